//go:build darwin

package idle

import (
	"context"
	"fmt"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/domain"
)

// detectPlatform uses the IOHIDSystem idle counter. macOS has no push
// idle API reachable without cgo.
func detectPlatform(ctx context.Context, opts DetectOptions) (Sensor, error) {
	if opts.Backend == BackendEvent {
		return nil, fmt.Errorf("event backend: %w", domain.ErrNoIdleBackend)
	}
	if s, ok := probe(NewPollSensor("ioreg", ioregQuery(opts.runner()))); ok {
		return s, nil
	}
	return nil, fmt.Errorf("ioreg probe failed: %w", domain.ErrSensorUnavailable)
}

func ioregQuery(run CommandRunner) QueryFunc {
	return func(ctx context.Context) (time.Duration, error) {
		out, err := run(ctx, "ioreg", "-c", "IOHIDSystem", "-d", "4")
		if err != nil {
			return 0, fmt.Errorf("ioreg: %w", err)
		}
		return parseHIDIdleTime(out)
	}
}
