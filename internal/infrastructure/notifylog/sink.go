// Package notifylog persists notifications that failed processing so they
// can be replayed by hand. The gateway gets a 200 either way; this file is
// the only trace of what went wrong.
package notifylog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rokthenats/karting-registry/internal/application"
)

// FileSink appends one JSON object per line to a log file. Appends are
// serialized with a mutex; O_APPEND keeps concurrent processes from
// interleaving partial lines.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &FileSink{path: path}, nil
}

var _ application.FailedNotificationSink = (*FileSink)(nil)

func (s *FileSink) Append(record application.FailedNotification) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failed notification: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open failed-notification log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append failed notification: %w", err)
	}
	return nil
}
