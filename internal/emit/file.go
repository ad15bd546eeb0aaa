// Package emit implements the progress-emission external collaborator
// (§6) with two concrete transports, grounded on the original's
// FileEventSender and RedisEventSender: one JSON record per filesystem
// write, and a Redis SET+PUBLISH pair for queue-fed deployments.
package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"smuggr.xyz/horarium/common/models/output"
)

// FileEmitter writes one JSON file per snapshot to a directory. Per §6,
// "one record per iteration emission is acceptable" for file-backed
// persistence; ordering by iteration ascending (then -1 last) is
// preserved by the filename's zero-padded iteration suffix.
type FileEmitter struct {
	log hclog.Logger
	dir string
}

// NewFileEmitter constructs a FileEmitter writing into dir.
func NewFileEmitter(dir string, log hclog.Logger) *FileEmitter {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &FileEmitter{log: log.Named("emit.file"), dir: dir}
}

func (e *FileEmitter) SendProgress(ctx context.Context, snapshot output.ProgressSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	suffix := fmt.Sprintf("%08d", snapshot.Iteration)
	if snapshot.Iteration < 0 {
		suffix = "final"
	}
	name := fmt.Sprintf("%s_%s.json", snapshot.JobID, suffix)

	if err := os.WriteFile(filepath.Join(e.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot file: %w", err)
	}
	return nil
}
