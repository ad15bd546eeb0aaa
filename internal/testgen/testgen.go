// Package testgen synthesizes RawJobData fixtures, grounded on the
// original's TestCaseGenerator: subject/group/room/student counts are
// drawn from configured ranges (the teacher count is half the group
// count, at least one), and per-student/teacher preference
// weights are drawn from a normal distribution so generated instances
// exercise every preference category without hand-authored JSON.
package testgen

import (
	"fmt"
	"math"
	"math/rand"

	"smuggr.xyz/horarium/common/models/input"
)

// Config bounds the synthetic instance's shape. Every "...Range" field is
// an inclusive [min, max] sampled uniformly.
type Config struct {
	TimeslotsDaily int
	DaysInCycle    int

	SubjectsRange        [2]int
	GroupsPerSubjectRange [2]int
	GroupCapacityRange   [2]int

	RoomsRange         [2]int
	RoomCapacityRange  [2]int

	StudentsRange          [2]int
	SubjectsPerStudentRange [2]int

	TagsRange int // number of distinct tag ids in the universe

	PreferenceWeightStddev float64
}

// DefaultConfig returns a modestly sized instance, large enough to
// exercise capacity overflow, underflow, and scheduling conflicts.
func DefaultConfig() Config {
	return Config{
		TimeslotsDaily:          8,
		DaysInCycle:             5,
		SubjectsRange:           [2]int{3, 6},
		GroupsPerSubjectRange:   [2]int{1, 3},
		GroupCapacityRange:      [2]int{10, 30},
		RoomsRange:              [2]int{3, 8},
		RoomCapacityRange:       [2]int{15, 40},
		StudentsRange:           [2]int{20, 80},
		SubjectsPerStudentRange: [2]int{2, 4},
		TagsRange:               4,
		PreferenceWeightStddev:  3.0,
	}
}

func uniform(rng *rand.Rand, bounds [2]int) int {
	if bounds[1] <= bounds[0] {
		return bounds[0]
	}
	return bounds[0] + rng.Intn(bounds[1]-bounds[0]+1)
}

// normalWeight draws an integer preference weight: a zero-mean normal
// sample scaled by stddev and rounded to the nearest integer, so either
// sign is equally likely and extreme magnitudes are rare.
func normalWeight(rng *rand.Rand, stddev float64) int {
	v := rng.NormFloat64() * stddev
	return int(math.Round(v))
}

// Generate builds a complete, internally-consistent RawJobData: group
// capacities are sized to always accommodate their subject's enrolled
// students, so the instance is feasible by construction.
func Generate(rng *rand.Rand, cfg Config, recruitmentID string) input.RawJobData {
	subjectsNum := uniform(rng, cfg.SubjectsRange)
	groupsPerSubject := make([]int, subjectsNum)
	subjectDuration := make([]int, subjectsNum)
	for p := 0; p < subjectsNum; p++ {
		groupsPerSubject[p] = uniform(rng, cfg.GroupsPerSubjectRange)
		subjectDuration[p] = 1 + rng.Intn(cfg.TimeslotsDaily)
	}

	groupsNum := 0
	for _, n := range groupsPerSubject {
		groupsNum += n
	}

	groupsCapacity := make([]int, groupsNum)
	minStudentsPerGroup := make([]int, groupsNum)
	var groupsTags [][]int
	for g := 0; g < groupsNum; g++ {
		groupsCapacity[g] = uniform(rng, cfg.GroupCapacityRange)
		minStudentsPerGroup[g] = rng.Intn(groupsCapacity[g]/2 + 1)
		if cfg.TagsRange > 0 && rng.Intn(2) == 0 {
			groupsTags = append(groupsTags, []int{g, rng.Intn(cfg.TagsRange)})
		}
	}

	roomsNum := uniform(rng, cfg.RoomsRange)
	roomsCapacity := make([]int, roomsNum)
	var roomsTags [][]int
	roomsUnavailability := make([][]int, roomsNum)
	totalTimeslots := cfg.TimeslotsDaily * cfg.DaysInCycle
	for r := 0; r < roomsNum; r++ {
		roomsCapacity[r] = uniform(rng, cfg.RoomCapacityRange)
		if cfg.TagsRange > 0 {
			roomsTags = append(roomsTags, []int{r, rng.Intn(cfg.TagsRange)})
		}
		if rng.Intn(5) == 0 && totalTimeslots > 0 {
			roomsUnavailability[r] = []int{rng.Intn(totalTimeslots)}
		}
	}

	studentsNum := uniform(rng, cfg.StudentsRange)
	studentsSubjects := make([][]int, studentsNum)
	studentsUnavailability := make([][]int, studentsNum)
	studentWeights := make([]float64, studentsNum)
	studentsPreferences := make([]input.StudentPreference, studentsNum)

	for s := 0; s < studentsNum; s++ {
		n := uniform(rng, cfg.SubjectsPerStudentRange)
		if n > subjectsNum {
			n = subjectsNum
		}
		perm := rng.Perm(subjectsNum)[:n]
		subs := append([]int(nil), perm...)
		studentsSubjects[s] = subs

		studentWeights[s] = 1.0
		studentsPreferences[s] = randomStudentPreference(rng, cfg, groupsNum, totalTimeslots)
	}

	teachersNum := groupsNum / 2
	if teachersNum == 0 && groupsNum > 0 {
		teachersNum = 1
	}
	teachersGroups := make([][]int, teachersNum)
	teachersUnavailability := make([][]int, teachersNum)
	teacherWeights := make([]float64, teachersNum)
	teachersPreferences := make([]input.TeacherPreference, teachersNum)
	for g := 0; g < groupsNum; g++ {
		t := g % teachersNum
		teachersGroups[t] = append(teachersGroups[t], g)
	}
	for t := 0; t < teachersNum; t++ {
		teacherWeights[t] = 1.0
		teachersPreferences[t] = randomTeacherPreference(rng, cfg, totalTimeslots)
	}

	ensureSubjectCapacity(groupsPerSubject, groupsCapacity, studentsSubjects, subjectStart(groupsPerSubject))

	return input.RawJobData{
		RecruitmentID: recruitmentID,
		ProblemData: input.RawProblemData{
			TimeslotsDaily:                  cfg.TimeslotsDaily,
			DaysInCycle:                     cfg.DaysInCycle,
			MinStudentsPerGroup:             minStudentsPerGroup,
			GroupsPerSubject:                groupsPerSubject,
			SubjectDuration:                 subjectDuration,
			GroupsCapacity:                  groupsCapacity,
			GroupsTags:                      groupsTags,
			RoomsCapacity:                   roomsCapacity,
			RoomsTags:                       roomsTags,
			RoomsUnavailabilityTimeslots:    roomsUnavailability,
			StudentsSubjects:                studentsSubjects,
			StudentsUnavailabilityTimeslots: studentsUnavailability,
			StudentWeights:                  studentWeights,
			StudentsPreferences:             studentsPreferences,
			TeachersGroups:                  teachersGroups,
			TeachersUnavailabilityTimeslots: teachersUnavailability,
			TeacherWeights:                  teacherWeights,
			TeachersPreferences:             teachersPreferences,
		},
		MaxExecutionTime: input.DefaultMaxExecutionTime,
	}
}

func subjectStart(groupsPerSubject []int) []int {
	start := make([]int, len(groupsPerSubject)+1)
	for i, n := range groupsPerSubject {
		start[i+1] = start[i] + n
	}
	return start
}

// ensureSubjectCapacity bumps group capacities up, if needed, so that
// subject_total_capacity >= subject_student_count for every subject
// (§3 invariant 3), keeping generated instances feasible by construction.
func ensureSubjectCapacity(groupsPerSubject, groupsCapacity []int, studentsSubjects [][]int, cumulative []int) {
	studentCount := make([]int, len(groupsPerSubject))
	for _, subs := range studentsSubjects {
		for _, subj := range subs {
			if subj >= 0 && subj < len(studentCount) {
				studentCount[subj]++
			}
		}
	}

	for subj := range groupsPerSubject {
		start, end := cumulative[subj], cumulative[subj+1]
		total := 0
		for g := start; g < end; g++ {
			total += groupsCapacity[g]
		}
		if total >= studentCount[subj] || end == start {
			continue
		}
		deficit := studentCount[subj] - total
		per := deficit/(end-start) + 1
		for g := start; g < end; g++ {
			groupsCapacity[g] += per
		}
	}
}

func randomStudentPreference(rng *rand.Rand, cfg Config, groupsNum, totalTimeslots int) input.StudentPreference {
	pref := input.StudentPreference{
		FreeDays:             normalWeight(rng, cfg.PreferenceWeightStddev),
		ShortDays:            normalWeight(rng, cfg.PreferenceWeightStddev),
		UniformDays:          normalWeight(rng, cfg.PreferenceWeightStddev),
		ConcentratedDays:     normalWeight(rng, cfg.PreferenceWeightStddev),
		MinGapsLength:        1 + rng.Intn(3),
		MinGapsWeight:        normalWeight(rng, cfg.PreferenceWeightStddev),
		MaxGapsLength:        3 + rng.Intn(4),
		MaxGapsWeight:        normalWeight(rng, cfg.PreferenceWeightStddev),
		MinDayLength:         2 + rng.Intn(3),
		MinDayLengthWeight:   normalWeight(rng, cfg.PreferenceWeightStddev),
		MaxDayLength:         cfg.TimeslotsDaily - rng.Intn(2),
		MaxDayLengthWeight:   normalWeight(rng, cfg.PreferenceWeightStddev),
		PreferredStart:       rng.Intn(cfg.TimeslotsDaily),
		PreferredStartWeight: normalWeight(rng, cfg.PreferenceWeightStddev),
		PreferredEnd:         rng.Intn(cfg.TimeslotsDaily),
		PreferredEndWeight:   normalWeight(rng, cfg.PreferenceWeightStddev),
	}

	if cfg.TagsRange > 1 {
		pref.TagOrderRules = []input.TagOrderRule{{
			TagA:   rng.Intn(cfg.TagsRange),
			TagB:   rng.Intn(cfg.TagsRange),
			Weight: normalWeight(rng, cfg.PreferenceWeightStddev),
		}}
	}

	if totalTimeslots > 0 {
		weights := make([]int, totalTimeslots)
		for i := range weights {
			weights[i] = normalWeight(rng, cfg.PreferenceWeightStddev)
		}
		pref.PreferredTimeslots = weights
	}

	if groupsNum > 0 {
		weights := make([]int, groupsNum)
		for i := range weights {
			if rng.Intn(4) == 0 {
				weights[i] = normalWeight(rng, cfg.PreferenceWeightStddev)
			}
		}
		pref.PreferredGroups = weights
	}

	return pref
}

func randomTeacherPreference(rng *rand.Rand, cfg Config, totalTimeslots int) input.TeacherPreference {
	student := randomStudentPreference(rng, cfg, 0, totalTimeslots)
	return input.TeacherPreference{
		FreeDays: student.FreeDays, ShortDays: student.ShortDays,
		UniformDays: student.UniformDays, ConcentratedDays: student.ConcentratedDays,
		MinGapsLength: student.MinGapsLength, MinGapsWeight: student.MinGapsWeight,
		MaxGapsLength: student.MaxGapsLength, MaxGapsWeight: student.MaxGapsWeight,
		MinDayLength: student.MinDayLength, MinDayLengthWeight: student.MinDayLengthWeight,
		MaxDayLength: student.MaxDayLength, MaxDayLengthWeight: student.MaxDayLengthWeight,
		PreferredStart: student.PreferredStart, PreferredStartWeight: student.PreferredStartWeight,
		PreferredEnd: student.PreferredEnd, PreferredEndWeight: student.PreferredEndWeight,
		TagOrderRules: student.TagOrderRules, PreferredTimeslots: student.PreferredTimeslots,
	}
}

// Describe returns a one-line human-readable summary, used by the host
// CLI when generating fixtures interactively.
func Describe(job input.RawJobData) string {
	return fmt.Sprintf("job %s: %d subjects, %d students, %d rooms",
		job.RecruitmentID, len(job.ProblemData.GroupsPerSubject), len(job.ProblemData.StudentsSubjects), len(job.ProblemData.RoomsCapacity))
}
