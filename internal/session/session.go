// Package session writes append-only JSONL transcripts of agent runs
// under the data directory. Transcripts are an audit artifact; nothing
// reads them back into prompts.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one transcript line.
type Record struct {
	TS        string `json:"ts"`
	Type      string `json:"type"`
	Iteration int    `json:"iteration,omitempty"`

	Objective string `json:"objective,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`

	Tool    string `json:"tool,omitempty"`
	Args    string `json:"args,omitempty"`
	Text    string `json:"text,omitempty"`
	IsError bool   `json:"is_error,omitempty"`

	Status  string `json:"status,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Writer appends records to one run's transcript file.
type Writer struct {
	mu   sync.Mutex
	id   string
	path string
	f    *os.File
}

// NewWriter opens a transcript for a fresh run ID under
// dataDir/sessions.
func NewWriter(dataDir string) (*Writer, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data dir not configured")
	}
	dir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	path := filepath.Join(dir, id+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &Writer{id: id, path: path, f: f}, nil
}

// ID returns the run ID the transcript is keyed by.
func (w *Writer) ID() string { return w.id }

// Path returns the transcript file location.
func (w *Writer) Path() string { return w.path }

// Write appends one record. Arguments and free text are scrubbed for
// key-shaped secrets first. Write failures are swallowed; a transcript
// must never take down a run.
func (w *Writer) Write(rec Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return
	}

	if rec.TS == "" {
		rec.TS = time.Now().UTC().Format(time.RFC3339Nano)
	}
	rec.Args = Redact(rec.Args)
	rec.Text = Redact(rec.Text)

	// One JSON object per line to keep it append-only and streamable.
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	b = append(b, '\n')
	_, _ = w.f.Write(b)
}

// Close flushes and closes the transcript file.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
}
