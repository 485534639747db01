package toolflow

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// TraceLogger writes invocation records as JSONL. It is safe for concurrent
// use, and a nil logger discards everything, so callers never need to guard.
type TraceLogger struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewTraceLogger creates a trace logger appending to the file at path.
// An empty path returns nil (tracing disabled).
func NewTraceLogger(path string) (*TraceLogger, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &TraceLogger{enc: json.NewEncoder(f), closer: f}, nil
}

// NewTraceWriter creates a trace logger writing to w.
func NewTraceWriter(w io.Writer) *TraceLogger {
	return &TraceLogger{enc: json.NewEncoder(w)}
}

// Close releases the underlying file, if any.
func (l *TraceLogger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closer.Close()
}

// Log writes one record as a JSON line, stamping the time if unset.
func (l *TraceLogger) Log(rec TraceRecord) error {
	if l == nil || l.enc == nil {
		return nil
	}
	if rec.Time == "" {
		rec.Time = time.Now().UTC().Format(time.RFC3339Nano)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(rec)
}

// TraceRecord is one normalized JSONL entry.
type TraceRecord struct {
	Time  string `json:"time"`
	Type  string `json:"type"`
	RunID string `json:"run_id,omitempty"`
	Tool  string `json:"tool,omitempty"`
	Data  any    `json:"data,omitempty"`
}
