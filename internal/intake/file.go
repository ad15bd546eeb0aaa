// Package intake implements the job-intake external collaborator (§6)
// with two concrete transports, grounded on the original's
// FileEventReceiver and RedisEventReceiver: a filesystem-polling
// implementation for local/batch use, and a Redis-backed implementation
// for queue-fed deployments.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"

	"smuggr.xyz/horarium/common/models/input"
	"smuggr.xyz/horarium/core/jobrunner"
)

// FileIntake polls a directory for job files, taking them in ascending
// file-name order (not by modification time). A job file is
// a JSON-encoded input.RawJobData. Once received, the file is renamed
// with a ".processing" suffix so a crash doesn't reprocess it on restart.
type FileIntake struct {
	log       hclog.Logger
	dir       string
	pollEvery time.Duration

	currentJobID string
}

// NewFileIntake constructs a FileIntake watching dir.
func NewFileIntake(dir string, log hclog.Logger) *FileIntake {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &FileIntake{log: log.Named("intake.file"), dir: dir, pollEvery: time.Second}
}

func (f *FileIntake) CurrentJobID() string { return f.currentJobID }

// HasMore always reports true: a file intake never knows it has run out,
// since a new job file may be dropped at any time.
func (f *FileIntake) HasMore() bool { return true }

// Receive blocks (polling at pollEvery) until a job file appears, or ctx
// is cancelled.
func (f *FileIntake) Receive(ctx context.Context) (jobrunner.JobRequest, error) {
	ticker := time.NewTicker(f.pollEvery)
	defer ticker.Stop()

	for {
		path, ok, err := f.nextJobFile()
		if err != nil {
			return jobrunner.JobRequest{}, err
		}
		if ok {
			return f.load(path)
		}

		select {
		case <-ctx.Done():
			return jobrunner.JobRequest{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *FileIntake) nextJobFile() (string, bool, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return "", false, fmt.Errorf("reading intake directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", false, nil
	}
	sort.Strings(names)
	return filepath.Join(f.dir, names[0]), true, nil
}

func (f *FileIntake) load(path string) (jobrunner.JobRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return jobrunner.JobRequest{}, fmt.Errorf("reading job file %s: %w", path, err)
	}

	processing := path + ".processing"
	if err := os.Rename(path, processing); err != nil {
		return jobrunner.JobRequest{}, fmt.Errorf("claiming job file %s: %w", path, err)
	}

	var job input.RawJobData
	if err := json.Unmarshal(raw, &job); err != nil {
		return jobrunner.JobRequest{}, fmt.Errorf("decoding job file %s: %w", path, err)
	}

	f.currentJobID = job.RecruitmentID
	return jobrunner.JobRequest{
		RecruitmentID:    job.RecruitmentID,
		Problem:          job.ProblemData,
		MaxExecutionTime: job.MaxExecutionTime,
	}, nil
}

// CheckCancellation reports whether a "<jobID>.cancel" marker file exists
// in the intake directory.
func (f *FileIntake) CheckCancellation(jobID string) bool {
	_, err := os.Stat(filepath.Join(f.dir, jobID+".cancel"))
	return err == nil
}
