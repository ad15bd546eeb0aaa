package intake_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smuggr.xyz/horarium/common/models/input"
	"smuggr.xyz/horarium/internal/intake"
)

func writeJobFile(t *testing.T, dir, name string, job input.RawJobData) {
	t.Helper()
	data, err := json.Marshal(job)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestFileIntake_ReceiveLowestNameFirst(t *testing.T) {
	dir := t.TempDir()
	writeJobFile(t, dir, "b.json", input.RawJobData{RecruitmentID: "job-b"})
	writeJobFile(t, dir, "a.json", input.RawJobData{RecruitmentID: "job-a"})

	in := intake.NewFileIntake(dir, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := in.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-a", req.RecruitmentID)
	assert.Equal(t, "job-a", in.CurrentJobID())

	_, err = os.Stat(filepath.Join(dir, "a.json.processing"))
	assert.NoError(t, err)
}

func TestFileIntake_CheckCancellation(t *testing.T) {
	dir := t.TempDir()
	in := intake.NewFileIntake(dir, nil)

	assert.False(t, in.CheckCancellation("job-x"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "job-x.cancel"), []byte{}, 0o644))
	assert.True(t, in.CheckCancellation("job-x"))
}

func TestFileIntake_ReceiveRespectsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	in := intake.NewFileIntake(dir, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := in.Receive(ctx)
	assert.Error(t, err)
}
