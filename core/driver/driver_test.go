package driver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smuggr.xyz/horarium/common/models/input"
	"smuggr.xyz/horarium/core/driver"
	"smuggr.xyz/horarium/core/evaluate"
	"smuggr.xyz/horarium/core/genotype"
	"smuggr.xyz/horarium/core/problem"
)

func smallFeasibleInstance(t *testing.T) (*problem.Instance, *genotype.Schema) {
	t.Helper()
	raw := input.RawProblemData{
		TimeslotsDaily:                  4,
		DaysInCycle:                     2,
		MinStudentsPerGroup:             []int{0, 0},
		GroupsPerSubject:                []int{2},
		SubjectDuration:                 []int{1},
		GroupsCapacity:                  []int{2, 2},
		RoomsCapacity:                   []int{2},
		RoomsUnavailabilityTimeslots:    [][]int{{}},
		StudentsSubjects:                [][]int{{0}, {0}, {0}},
		StudentsUnavailabilityTimeslots: [][]int{{}, {}, {}},
		StudentWeights:                  []float64{1, 1, 1},
		StudentsPreferences: []input.StudentPreference{
			{FreeDays: 1}, {ShortDays: 1}, {},
		},
		TeachersGroups:                  [][]int{},
		TeachersUnavailabilityTimeslots: [][]int{},
		TeacherWeights:                  []float64{},
		TeachersPreferences:             []input.TeacherPreference{},
	}
	p := problem.New(raw, nil)
	require.True(t, p.Feasible())
	return p, genotype.Build(p)
}

func TestAdaptive_InitAndIterateMonotone(t *testing.T) {
	p, schema := smallFeasibleInstance(t)
	eval := evaluate.New(nil)

	cfg := driver.Config{PopSize: 6, MaxInitAttempts: 50, InnerLoop: 1, CrossSize: 4, MutationSize: 4}
	algo := driver.NewAdaptive(cfg, nil)

	require.NoError(t, algo.Init(p, schema, eval, 42))
	assert.Equal(t, driver.Initialized, algo.State())

	best1 := algo.RunIteration(0)
	best2 := algo.RunIteration(1)

	assert.GreaterOrEqual(t, best2.Fitness, best1.Fitness)
	assert.Equal(t, driver.Iterating, algo.State())
}

func TestAdaptive_RefusesInfeasibleInstance(t *testing.T) {
	raw := input.RawProblemData{
		TimeslotsDaily:       1,
		DaysInCycle:          1,
		GroupsPerSubject:     []int{6},
		SubjectDuration:      []int{1},
		GroupsCapacity:       []int{1, 1, 1, 1, 1, 1},
		RoomsCapacity:        []int{1},
		MinStudentsPerGroup:  []int{0, 0, 0, 0, 0, 0},
		StudentsSubjects:     [][]int{},
		StudentWeights:       []float64{},
		StudentsPreferences:  []input.StudentPreference{},
		TeachersGroups:       [][]int{},
		TeacherWeights:       []float64{},
		TeachersPreferences:  []input.TeacherPreference{},
	}
	p := problem.New(raw, nil)
	require.False(t, p.Feasible())
	schema := genotype.Build(p)
	eval := evaluate.New(nil)

	algo := driver.NewAdaptive(driver.DefaultConfig(), nil)
	err := algo.Init(p, schema, eval, 1)
	assert.Error(t, err)
	assert.Equal(t, driver.Uninitialized, algo.State())
}

func TestBaseline_InitAndIterate(t *testing.T) {
	p, schema := smallFeasibleInstance(t)
	eval := evaluate.New(nil)

	algo := driver.NewBaseline(nil)
	require.NoError(t, algo.Init(p, schema, eval, 7))

	first := algo.Best()
	next := algo.RunIteration(0)
	assert.GreaterOrEqual(t, next.Fitness, first.Fitness)
}
