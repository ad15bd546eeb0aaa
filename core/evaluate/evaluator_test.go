package evaluate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smuggr.xyz/horarium/common/models/input"
	"smuggr.xyz/horarium/core/evaluate"
	"smuggr.xyz/horarium/core/genotype"
	"smuggr.xyz/horarium/core/problem"
)

// TestEvaluate_TrivialFeasible reproduces §8 scenario 1: with every
// preference absent, the unique feasible placement scores 1.0.
func TestEvaluate_TrivialFeasible(t *testing.T) {
	raw := input.RawProblemData{
		TimeslotsDaily:                  4,
		DaysInCycle:                     1,
		MinStudentsPerGroup:             []int{0},
		GroupsPerSubject:                []int{1},
		SubjectDuration:                 []int{1},
		GroupsCapacity:                  []int{1},
		RoomsCapacity:                   []int{1},
		RoomsUnavailabilityTimeslots:    [][]int{{}},
		StudentsSubjects:                [][]int{{0}},
		StudentsUnavailabilityTimeslots: [][]int{{}},
		StudentWeights:                  []float64{1},
		StudentsPreferences:             []input.StudentPreference{{}},
		TeachersGroups:                  [][]int{},
		TeachersUnavailabilityTimeslots: [][]int{},
		TeacherWeights:                  []float64{},
		TeachersPreferences:             []input.TeacherPreference{},
	}
	p := problem.New(raw, nil)
	require.True(t, p.Feasible())
	schema := genotype.Build(p)
	eval := evaluate.New(nil)

	ind := &genotype.Individual{Genes: []int{0, 2, 0}}
	sol := eval.Evaluate(ind, p, schema)

	assert.Equal(t, 1.0, sol.Fitness)
	assert.Equal(t, 1.0, ind.Fitness)
}

// TestEvaluate_Deterministic is the §3/§4.4 invariant: invoking Evaluate
// twice on the same (ProblemInstance, genotype) yields identical results.
func TestEvaluate_Deterministic(t *testing.T) {
	raw := input.RawProblemData{
		TimeslotsDaily:                  8,
		DaysInCycle:                     5,
		MinStudentsPerGroup:             []int{0, 0},
		GroupsPerSubject:                []int{2},
		SubjectDuration:                 []int{2},
		GroupsCapacity:                  []int{2, 2},
		RoomsCapacity:                   []int{2, 2},
		RoomsUnavailabilityTimeslots:    [][]int{{}, {}},
		StudentsSubjects:                [][]int{{0}, {0}},
		StudentsUnavailabilityTimeslots: [][]int{{}, {}},
		StudentWeights:                  []float64{1, 1},
		StudentsPreferences: []input.StudentPreference{
			{FreeDays: 2, PreferredStart: 1, PreferredStartWeight: 3},
			{ShortDays: -1},
		},
		TeachersGroups:                  [][]int{{0, 1}},
		TeachersUnavailabilityTimeslots: [][]int{{}},
		TeacherWeights:                  []float64{1},
		TeachersPreferences:             []input.TeacherPreference{{UniformDays: 2}},
	}
	p := problem.New(raw, nil)
	require.True(t, p.Feasible())
	schema := genotype.Build(p)
	eval := evaluate.New(nil)

	genes := []int{0, 1, 0, 0, 9, 1}

	ind1 := &genotype.Individual{Genes: append([]int(nil), genes...)}
	sol1 := eval.Evaluate(ind1, p, schema)

	ind2 := &genotype.Individual{Genes: append([]int(nil), genes...)}
	sol2 := eval.Evaluate(ind2, p, schema)

	assert.Equal(t, sol1.Fitness, sol2.Fitness)
	assert.Equal(t, sol1.StudentFitnesses, sol2.StudentFitnesses)
	assert.Equal(t, sol1.TeacherFitnesses, sol2.TeacherFitnesses)
}

// TestEvaluate_NoActiveDaysZeroesWeight reproduces Evaluator.cpp:141-179:
// a student with zero active days contributes neither B (ShortDays) nor
// C (UniformDays) to the weighted aggregate, even though both are
// configured with nonzero weight.
func TestEvaluate_NoActiveDaysZeroesWeight(t *testing.T) {
	raw := input.RawProblemData{
		TimeslotsDaily:                  4,
		DaysInCycle:                     1,
		MinStudentsPerGroup:             []int{0},
		GroupsPerSubject:                []int{1},
		SubjectDuration:                 []int{1},
		GroupsCapacity:                  []int{1},
		RoomsCapacity:                   []int{1},
		RoomsUnavailabilityTimeslots:    [][]int{{}},
		StudentsSubjects:                [][]int{{}},
		StudentsUnavailabilityTimeslots: [][]int{{}},
		StudentWeights:                  []float64{1},
		StudentsPreferences: []input.StudentPreference{
			{ShortDays: 5, UniformDays: 3},
		},
		TeachersGroups:                  [][]int{},
		TeachersUnavailabilityTimeslots: [][]int{},
		TeacherWeights:                  []float64{},
		TeachersPreferences:             []input.TeacherPreference{},
	}
	p := problem.New(raw, nil)
	require.True(t, p.Feasible())
	schema := genotype.Build(p)
	eval := evaluate.New(nil)

	ind := &genotype.Individual{Genes: []int{0, 0}}
	sol := eval.Evaluate(ind, p, schema)

	require.Len(t, sol.StudentDetailedFitnesses, 1)
	details := sol.StudentDetailedFitnesses[0]
	assert.Equal(t, 1.0, details[1].Score) // B
	assert.Equal(t, 0.0, details[1].Weight)
	assert.Equal(t, 1.0, details[2].Score) // C
	assert.Equal(t, 0.0, details[2].Weight)
}

// TestEvaluate_AbandonedGroupZeroesPreferredTimeslotsWeight reproduces
// Evaluator.cpp:431-476: a teacher whose only owned group ends up with
// no enrolled students (classes == []) gets a vacuous score for
// PreferredTimeslots (L) but contributes zero weight, not the full
// configured weight.
func TestEvaluate_AbandonedGroupZeroesPreferredTimeslotsWeight(t *testing.T) {
	raw := input.RawProblemData{
		TimeslotsDaily:                  4,
		DaysInCycle:                     1,
		MinStudentsPerGroup:             []int{0},
		GroupsPerSubject:                []int{1},
		SubjectDuration:                 []int{1},
		GroupsCapacity:                  []int{1},
		RoomsCapacity:                   []int{1},
		RoomsUnavailabilityTimeslots:    [][]int{{}},
		StudentsSubjects:                [][]int{{}},
		StudentsUnavailabilityTimeslots: [][]int{{}},
		StudentWeights:                  []float64{1},
		StudentsPreferences:             []input.StudentPreference{{}},
		TeachersGroups:                  [][]int{{0}},
		TeachersUnavailabilityTimeslots: [][]int{{}},
		TeacherWeights:                  []float64{1},
		TeachersPreferences: []input.TeacherPreference{
			{PreferredTimeslots: []int{1, -1, 1, -1}},
		},
	}
	p := problem.New(raw, nil)
	require.True(t, p.Feasible())
	schema := genotype.Build(p)
	eval := evaluate.New(nil)

	ind := &genotype.Individual{Genes: []int{0, 0}}
	sol := eval.Evaluate(ind, p, schema)

	require.Len(t, sol.TeacherDetailedFitnesses, 1)
	details := sol.TeacherDetailedFitnesses[0]
	assert.Equal(t, 1.0, details[11].Score) // L
	assert.Equal(t, 0.0, details[11].Weight)
}

func TestEvaluate_ShapeMismatchReturnsZero(t *testing.T) {
	raw := input.RawProblemData{
		TimeslotsDaily:                  4,
		DaysInCycle:                     1,
		MinStudentsPerGroup:             []int{0},
		GroupsPerSubject:                []int{1},
		SubjectDuration:                 []int{1},
		GroupsCapacity:                  []int{1},
		RoomsCapacity:                   []int{1},
		RoomsUnavailabilityTimeslots:    [][]int{{}},
		StudentsSubjects:                [][]int{{0}},
		StudentsUnavailabilityTimeslots: [][]int{{}},
		StudentWeights:                  []float64{1},
		StudentsPreferences:             []input.StudentPreference{{}},
		TeachersGroups:                  [][]int{},
		TeachersUnavailabilityTimeslots: [][]int{},
		TeacherWeights:                  []float64{},
		TeachersPreferences:             []input.TeacherPreference{},
	}
	p := problem.New(raw, nil)
	require.True(t, p.Feasible())
	schema := genotype.Build(p)
	eval := evaluate.New(nil)

	ind := &genotype.Individual{Genes: []int{0, 0}} // wrong length
	sol := eval.Evaluate(ind, p, schema)

	assert.Equal(t, 0.0, ind.Fitness)
	assert.Equal(t, 0.0, sol.Fitness)
}
