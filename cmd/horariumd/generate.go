package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"smuggr.xyz/horarium/common/models/input"
)

func newSeededRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func writeJobFile(dir, jobID string, job input.RawJobData) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling generated job: %w", err)
	}
	path := filepath.Join(dir, jobID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing generated job file: %w", err)
	}
	return nil
}
