package notify

import (
	"context"
	"errors"
	"log"

	"github.com/KayraNafi/TouchGrass/internal/domain"
	"github.com/KayraNafi/TouchGrass/internal/infra/healing"
	"github.com/KayraNafi/TouchGrass/internal/infra/metrics"
)

// Fallback sends reminders to a primary sink and, when it fails or its
// breaker is open, to a secondary one. A desktop session that loses its
// notification daemon keeps getting reminders in the log.
type Fallback struct {
	primary   domain.NotificationSink
	secondary domain.NotificationSink
	breaker   *healing.Breaker
}

// NewFallback wraps primary with a breaker and a secondary sink.
func NewFallback(primary, secondary domain.NotificationSink, breaker *healing.Breaker) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, breaker: breaker}
}

// Breaker exposes the breaker for health reporting.
func (f *Fallback) Breaker() *healing.Breaker { return f.breaker }

// Fire tries the primary sink unless its breaker is open.
func (f *Fallback) Fire(ctx context.Context, r domain.Reminder) error {
	if err := f.breaker.Allow(); err == nil {
		err := f.primary.Fire(ctx, r)
		if err == nil {
			f.breaker.Success()
			return nil
		}
		if errors.Is(err, context.Canceled) {
			f.breaker.Release()
			return err
		}
		// A sink that hangs past the deadline counts against the breaker.
		opened := f.breaker.Failure()
		if opened {
			log.Printf("[notify] %s sink disabled for now after repeated failures: %v", f.breaker.Name(), err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if !opened {
			log.Printf("[notify] %s sink failed, using fallback: %v", f.breaker.Name(), err)
		}
	}

	metrics.NotifyFallbacks.Inc()
	return f.secondary.Fire(ctx, r)
}
