package emit_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smuggr.xyz/horarium/common/models/output"
	"smuggr.xyz/horarium/internal/emit"
)

func TestFileEmitter_WritesOnePerIteration(t *testing.T) {
	dir := t.TempDir()
	emitter := emit.NewFileEmitter(dir, nil)

	require.NoError(t, emitter.SendProgress(context.Background(), output.ProgressSnapshot{
		JobID: "job-1", Iteration: 0, BestSolution: output.SolutionData{Fitness: 0.5},
	}))
	require.NoError(t, emitter.SendProgress(context.Background(), output.ProgressSnapshot{
		JobID: "job-1", Iteration: -1, BestSolution: output.SolutionData{Fitness: 0.9},
	}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	data, err := os.ReadFile(filepath.Join(dir, "job-1_final.json"))
	require.NoError(t, err)

	var snap output.ProgressSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, -1, snap.Iteration)
	assert.Equal(t, 0.9, snap.BestSolution.Fitness)
}
