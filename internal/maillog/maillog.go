package maillog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"
)

// Delivery outcome statuses recorded in the log.
const (
	StatusSent     = "SENT"
	StatusFailed   = "FAILED"
	StatusNoConfig = "NO_CONFIG"
)

const htmlExcerptLen = 200

// Entry is one JSON line in the delivery log.
type Entry struct {
	Time        time.Time `json:"time"`
	Status      string    `json:"status"`
	MessageID   string    `json:"message_id,omitempty"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Text        string    `json:"text"`
	HTMLExcerpt string    `json:"html_excerpt,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Log appends structured delivery records to a local destination. It is a
// diagnostic side channel, not a primary interface; writes are serialized
// in-process only.
type Log struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// Open creates (or appends to) the log file at path.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open mail log: %w", err)
	}
	return &Log{w: f, closer: f}, nil
}

// NewWriter wraps an arbitrary writer; used in tests.
func NewWriter(w io.Writer) *Log {
	return &Log{w: w}
}

// Record appends one entry as a JSON line. The entry's HTML is stored as a
// bounded excerpt so a large template cannot bloat the log.
func (l *Log) Record(e Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	e.HTMLExcerpt = truncateAtRune(e.HTMLExcerpt, htmlExcerptLen)

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode mail log entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append mail log entry: %w", err)
	}
	return nil
}

// truncateAtRune bounds s to at most max bytes without splitting a
// multi-byte rune, so the JSON line never carries a mangled tail.
func truncateAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Close releases the underlying file, if any.
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
