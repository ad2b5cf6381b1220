// Package journal provides persistent storage for pipeline run
// records.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Run statuses.
const (
	StatusSent        = "sent"
	StatusSkippedOOO  = "skipped_ooo"
	StatusSkippedBusy = "skipped_busy"
	StatusError       = "error"
)

// Counts summarizes what a run collected.
type Counts struct {
	Commits    int `json:"commits"`
	PRsOpened  int `json:"prs_opened"`
	PRsMerged  int `json:"prs_merged"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Manual     int `json:"manual"`
}

// Run is one pipeline execution record.
type Run struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`    // YYYY-MM-DD
	Trigger    string    `json:"trigger"` // scheduled, manual
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Counts     Counts    `json:"counts"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// maxRuns caps the journal at the newest entries; the file is
// rewritten when the cap is exceeded.
const maxRuns = 200

// Journal stores run records as JSONL, newest last.
type Journal struct {
	path string

	mu   sync.RWMutex
	runs []Run
}

// Open loads the journal at path, creating its directory if needed.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	runs, err := loadRuns(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}

	return &Journal{path: path, runs: runs}, nil
}

// Append records a run. When the cap is exceeded the file is rewritten
// keeping only the newest entries.
func (j *Journal) Append(run Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.runs = append(j.runs, run)

	if len(j.runs) > maxRuns {
		j.runs = j.runs[len(j.runs)-maxRuns:]
		return saveRuns(j.path, j.runs)
	}
	return appendRun(j.path, run)
}

// Last returns the most recent run, or nil when the journal is empty.
func (j *Journal) Last() *Run {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if len(j.runs) == 0 {
		return nil
	}
	run := j.runs[len(j.runs)-1]
	return &run
}

// Recent returns up to n runs, newest first.
func (j *Journal) Recent(n int) []Run {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if n > len(j.runs) {
		n = len(j.runs)
	}
	out := make([]Run, 0, n)
	for i := len(j.runs) - 1; i >= len(j.runs)-n; i-- {
		out = append(out, j.runs[i])
	}
	return out
}

// Len returns the number of stored runs.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.runs)
}

func loadRuns(path string) ([]Run, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var runs []Run
	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var run Run
		if err := json.Unmarshal(line, &run); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		runs = append(runs, run)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func saveRuns(path string, runs []Run) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(file)
	for _, run := range runs {
		data, err := json.Marshal(run)
		if err != nil {
			file.Close()
			os.Remove(tmpPath)
			return err
		}
		if _, err := writer.Write(append(data, '\n')); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return err
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func appendRun(path string, run Run) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	_, err = file.Write(append(data, '\n'))
	return err
}
