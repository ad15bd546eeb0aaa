package emit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smuggr.xyz/horarium/common/models/output"
	"smuggr.xyz/horarium/internal/emit"
)

func TestRedisEmitter_SetsKeyAndPublishes(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	sub := client.Subscribe(context.Background(), "horarium:progress:job-1")
	defer sub.Close()
	require.NoError(t, sub.Ready())

	emitter := emit.NewRedisEmitter(client, "horarium:snapshot:%s", "horarium:progress:%s", nil)
	snapshot := output.ProgressSnapshot{JobID: "job-1", Iteration: 3, BestSolution: output.SolutionData{Fitness: 0.7}}

	require.NoError(t, emitter.SendProgress(context.Background(), snapshot))

	raw, err := server.Get("horarium:snapshot:job-1")
	require.NoError(t, err)
	var stored output.ProgressSnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, snapshot, stored)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var published output.ProgressSnapshot
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &published))
	assert.Equal(t, snapshot, published)
}
