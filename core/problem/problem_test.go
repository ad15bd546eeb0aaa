package problem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smuggr.xyz/horarium/common/models/input"
	"smuggr.xyz/horarium/core/problem"
)

func trivialFeasibleRaw() input.RawProblemData {
	return input.RawProblemData{
		TimeslotsDaily:                  4,
		DaysInCycle:                     1,
		MinStudentsPerGroup:             []int{0},
		GroupsPerSubject:                []int{1},
		SubjectDuration:                 []int{1},
		GroupsCapacity:                  []int{1},
		GroupsTags:                      nil,
		RoomsCapacity:                   []int{1},
		RoomsTags:                       nil,
		RoomsUnavailabilityTimeslots:    [][]int{{}},
		StudentsSubjects:                [][]int{{0}},
		StudentsUnavailabilityTimeslots: [][]int{{}},
		StudentWeights:                  []float64{1.0},
		StudentsPreferences:             []input.StudentPreference{{}},
		TeachersGroups:                  [][]int{},
		TeachersUnavailabilityTimeslots: [][]int{},
		TeacherWeights:                  []float64{},
		TeachersPreferences:             []input.TeacherPreference{},
	}
}

func TestNew_TrivialFeasible(t *testing.T) {
	p := problem.New(trivialFeasibleRaw(), nil)
	assert.True(t, p.Feasible())
	assert.Equal(t, 4, p.TotalTimeslots)
	assert.Equal(t, 1, p.TotalStudentSubjects)
	assert.Equal(t, []int{0, 1}, p.CumulativeGroups)
}

func TestNew_InfeasibleWhenGroupsExceedPigeonhole(t *testing.T) {
	raw := trivialFeasibleRaw()
	// invariant 4: G <= total_timeslots * R; force violation.
	raw.GroupsPerSubject = []int{6}
	raw.GroupsCapacity = []int{1, 1, 1, 1, 1, 1}
	raw.RoomsCapacity = []int{1}
	raw.TimeslotsDaily = 1
	raw.DaysInCycle = 1
	raw.SubjectDuration = []int{1}

	p := problem.New(raw, nil)
	assert.False(t, p.Feasible())
}

func TestAbsoluteGroup(t *testing.T) {
	raw := trivialFeasibleRaw()
	raw.GroupsPerSubject = []int{2}
	raw.GroupsCapacity = []int{1, 1}
	raw.StudentsSubjects = [][]int{{0}}

	p := problem.New(raw, nil)
	require.True(t, p.Feasible())

	g, err := p.AbsoluteGroup(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, g)

	_, err = p.AbsoluteGroup(0, 2)
	assert.Error(t, err)
}

func TestDayOf(t *testing.T) {
	raw := trivialFeasibleRaw()
	raw.TimeslotsDaily = 4
	p := problem.New(raw, nil)
	assert.Equal(t, 0, p.DayOf(0))
	assert.Equal(t, 0, p.DayOf(3))
	assert.Equal(t, 1, p.DayOf(4))
}

func TestMinStudents_DefaultsToZero(t *testing.T) {
	raw := trivialFeasibleRaw()
	raw.MinStudentsPerGroup = nil
	p := problem.New(raw, nil)
	assert.Equal(t, 0, p.MinStudents(0))
}
