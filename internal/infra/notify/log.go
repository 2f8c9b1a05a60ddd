package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/KayraNafi/TouchGrass/internal/domain"
	"github.com/KayraNafi/TouchGrass/internal/infra/metrics"
)

// Log writes reminders as text lines. Used when no desktop session is
// available or the user asks for it in config.
type Log struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLog returns a sink writing to w.
func NewLog(w io.Writer) *Log {
	return &Log{w: w}
}

// Fire writes one line per reminder.
func (l *Log) Fire(_ context.Context, r domain.Reminder) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintf(l.w, "[%s] %s reminder: %s\n", r.At.Format("15:04:05"), r.Kind, r.Message)
	if err != nil {
		metrics.NotifyFailures.WithLabelValues("log").Inc()
		return fmt.Errorf("%w: %v", domain.ErrNotifyFailed, err)
	}
	return nil
}
