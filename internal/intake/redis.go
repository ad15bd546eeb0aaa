package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"

	"smuggr.xyz/horarium/common/models/input"
	"smuggr.xyz/horarium/core/jobrunner"
)

// RedisIntake receives jobs by blocking-popping a list key, grounded on
// the original's RedisEventReceiver (BRPOP with a timeout so the
// cancellation flag can still be polled between attempts).
type RedisIntake struct {
	log    hclog.Logger
	client *redis.Client

	queueKey      string
	cancelKeyFmt  string
	brpopTimeout  time.Duration

	currentJobID string
}

// NewRedisIntake constructs a RedisIntake. queueKey is the list job
// envelopes are BRPOP'd from; cancelKeyFmt is a fmt.Sprintf pattern with
// one %s placeholder for the job id, e.g. "horarium:cancel:%s".
func NewRedisIntake(client *redis.Client, queueKey, cancelKeyFmt string, log hclog.Logger) *RedisIntake {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &RedisIntake{
		log:          log.Named("intake.redis"),
		client:       client,
		queueKey:     queueKey,
		cancelKeyFmt: cancelKeyFmt,
		brpopTimeout: 5 * time.Second,
	}
}

func (r *RedisIntake) CurrentJobID() string { return r.currentJobID }

// HasMore always reports true: a Redis queue is an indefinite source, the
// host loop keeps calling Receive until its own context is cancelled.
func (r *RedisIntake) HasMore() bool { return true }

// Receive blocks on BRPOP with a bounded timeout, looping until a job
// arrives or ctx is cancelled, so a caller can still observe ctx
// cancellation even though BRPOP itself blocks the connection.
func (r *RedisIntake) Receive(ctx context.Context) (jobrunner.JobRequest, error) {
	for {
		if err := ctx.Err(); err != nil {
			return jobrunner.JobRequest{}, err
		}

		res, err := r.client.BRPop(ctx, r.brpopTimeout, r.queueKey).Result()
		if errors.Is(err, redis.Nil) {
			continue // timeout elapsed with nothing queued, retry
		}
		if err != nil {
			return jobrunner.JobRequest{}, fmt.Errorf("brpop %s: %w", r.queueKey, err)
		}
		if len(res) != 2 {
			return jobrunner.JobRequest{}, fmt.Errorf("unexpected brpop reply shape: %v", res)
		}

		var job input.RawJobData
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return jobrunner.JobRequest{}, fmt.Errorf("decoding job payload: %w", err)
		}

		r.currentJobID = job.RecruitmentID
		return jobrunner.JobRequest{
			RecruitmentID:    job.RecruitmentID,
			Problem:          job.ProblemData,
			MaxExecutionTime: job.MaxExecutionTime,
		}, nil
	}
}

// CheckCancellation reports whether the job's cancellation key exists.
func (r *RedisIntake) CheckCancellation(jobID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := r.client.Exists(ctx, fmt.Sprintf(r.cancelKeyFmt, jobID)).Result()
	if err != nil {
		r.log.Warn("cancellation check failed", "job_id", jobID, "error", err)
		return false
	}
	return n > 0
}
