package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"

	"smuggr.xyz/horarium/common/models/output"
)

// RedisEmitter publishes a snapshot two ways, grounded on the original's
// RedisEventSender: SET under a per-job key (so a late subscriber can
// still fetch the latest snapshot) and PUBLISH on a channel (so a live
// subscriber is notified immediately).
type RedisEmitter struct {
	log    hclog.Logger
	client *redis.Client

	keyFmt     string
	channelFmt string
	ttl        time.Duration
}

// NewRedisEmitter constructs a RedisEmitter. keyFmt and channelFmt are
// fmt.Sprintf patterns with one %s placeholder for the job id.
func NewRedisEmitter(client *redis.Client, keyFmt, channelFmt string, log hclog.Logger) *RedisEmitter {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &RedisEmitter{
		log:        log.Named("emit.redis"),
		client:     client,
		keyFmt:     keyFmt,
		channelFmt: channelFmt,
		ttl:        time.Hour,
	}
}

func (e *RedisEmitter) SendProgress(ctx context.Context, snapshot output.ProgressSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	key := fmt.Sprintf(e.keyFmt, snapshot.JobID)
	if err := e.client.Set(ctx, key, data, e.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	channel := fmt.Sprintf(e.channelFmt, snapshot.JobID)
	if err := e.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}
