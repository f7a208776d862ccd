// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const registryVersion = "1.0"

// LoadRegistry reads the registry file. A missing file yields an empty
// registry so first-run callers do not need to special-case it.
func LoadRegistry(path string) (*JobRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &JobRegistry{Version: registryVersion}, nil
		}
		return nil, err
	}
	var reg JobRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// SaveRegistry writes the registry atomically via a temp file in the same
// directory followed by a rename.
func SaveRegistry(path string, reg *JobRegistry) error {
	if reg.Version == "" {
		reg.Version = registryVersion
	}
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// Upsert inserts or replaces the record keyed by job ARN.
func (r *JobRegistry) Upsert(record JobRecord) {
	record.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	for i, existing := range r.Jobs {
		if existing.JobArn == record.JobArn {
			if record.SubmittedAt == "" {
				record.SubmittedAt = existing.SubmittedAt
			}
			r.Jobs[i] = record
			return
		}
	}
	r.Jobs = append(r.Jobs, record)
}

// Find looks a job up by ARN or by exact job name.
func (r *JobRegistry) Find(arnOrName string) (*JobRecord, bool) {
	for i := range r.Jobs {
		if r.Jobs[i].JobArn == arnOrName || r.Jobs[i].JobName == arnOrName {
			return &r.Jobs[i], true
		}
	}
	return nil, false
}

// Remove deletes the record matching the ARN or name and reports whether
// anything was removed.
func (r *JobRegistry) Remove(arnOrName string) bool {
	for i := range r.Jobs {
		if r.Jobs[i].JobArn == arnOrName || r.Jobs[i].JobName == arnOrName {
			r.Jobs = append(r.Jobs[:i], r.Jobs[i+1:]...)
			return true
		}
	}
	return false
}

// Prune drops records older than the cutoff. With terminalOnly set, records
// whose status may still change are kept regardless of age. It returns the
// number of dropped records.
func (r *JobRegistry) Prune(olderThan time.Time, terminalOnly bool) int {
	kept := r.Jobs[:0]
	dropped := 0
	for _, job := range r.Jobs {
		if shouldPrune(job, olderThan, terminalOnly) {
			dropped++
			continue
		}
		kept = append(kept, job)
	}
	r.Jobs = kept
	return dropped
}

func shouldPrune(job JobRecord, olderThan time.Time, terminalOnly bool) bool {
	if terminalOnly && !isTerminalStatus(job.Status) {
		return false
	}
	ts := job.UpdatedAt
	if ts == "" {
		ts = job.SubmittedAt
	}
	if ts == "" {
		return false
	}
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return false
	}
	return parsed.Before(olderThan)
}

func isTerminalStatus(status string) bool {
	switch status {
	case "Completed", "PartiallyCompleted", "Failed", "Stopped", "Expired":
		return true
	}
	return false
}

// Validate checks structural integrity: every record needs an ARN and ARNs
// must be unique.
func (r *JobRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Jobs))
	for i, job := range r.Jobs {
		if job.JobArn == "" {
			return fmt.Errorf("job %d: missing jobArn", i)
		}
		if seen[job.JobArn] {
			return fmt.Errorf("job %d: duplicate jobArn %q", i, job.JobArn)
		}
		seen[job.JobArn] = true
	}
	return nil
}

// UpdateJob is the load-modify-save convenience used by stages to record a
// submission or status change without holding the registry open.
func UpdateJob(path string, record JobRecord) error {
	reg, err := LoadRegistry(path)
	if err != nil {
		return err
	}
	reg.Upsert(record)
	return SaveRegistry(path, reg)
}
