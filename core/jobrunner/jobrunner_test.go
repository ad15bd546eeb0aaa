package jobrunner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smuggr.xyz/horarium/common/models/input"
	"smuggr.xyz/horarium/common/models/output"
	"smuggr.xyz/horarium/core/driver"
	"smuggr.xyz/horarium/core/jobrunner"
)

type recordingSender struct {
	snapshots []output.ProgressSnapshot
}

func (r *recordingSender) SendProgress(_ context.Context, snapshot output.ProgressSnapshot) error {
	r.snapshots = append(r.snapshots, snapshot)
	return nil
}

func trivialJob() jobrunner.JobRequest {
	return jobrunner.JobRequest{
		RecruitmentID: "job-1",
		Problem: input.RawProblemData{
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
		},
		MaxExecutionTime: 300,
	}
}

// TestRunJob_CancelledContextEmitsOnlyFinal exercises the cancellation
// suspension point (§5): a context cancelled before the first iteration
// boundary still yields exactly one final (iteration = -1) snapshot.
func TestRunJob_CancelledContextEmitsOnlyFinal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &recordingSender{}
	runner := jobrunner.New(nil, func() driver.Algorithm { return driver.NewBaseline(nil) })

	err := runner.RunJob(ctx, trivialJob(), sender)
	require.NoError(t, err)

	require.Len(t, sender.snapshots, 1)
	assert.Equal(t, -1, sender.snapshots[0].Iteration)
	assert.Equal(t, "job-1", sender.snapshots[0].JobID)
}

// TestRunJob_InfeasibleInstanceEmitsNothing reproduces §8 scenario 5.
func TestRunJob_InfeasibleInstanceEmitsNothing(t *testing.T) {
	job := trivialJob()
	job.Problem.GroupsPerSubject = []int{6}
	job.Problem.GroupsCapacity = []int{1, 1, 1, 1, 1, 1}
	job.Problem.MinStudentsPerGroup = []int{0, 0, 0, 0, 0, 0}

	sender := &recordingSender{}
	runner := jobrunner.New(nil, func() driver.Algorithm { return driver.NewBaseline(nil) })

	err := runner.RunJob(context.Background(), job, sender)
	require.NoError(t, err)
	assert.Empty(t, sender.snapshots)
}
