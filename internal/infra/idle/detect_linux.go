//go:build linux

package idle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/domain"
)

// linuxSession describes the graphical session and how to reach each
// backend. Swapped out in tests.
type linuxSession struct {
	wayland     bool
	x11         bool
	event       func(ctx context.Context, threshold time.Duration) (Sensor, error)
	screenSaver func(ctx context.Context) (Sensor, error)
}

func detectPlatform(ctx context.Context, opts DetectOptions) (Sensor, error) {
	return detectLinux(ctx, opts, linuxSession{
		wayland:     os.Getenv("WAYLAND_DISPLAY") != "",
		x11:         os.Getenv("DISPLAY") != "",
		event:       newMutterSensor,
		screenSaver: newScreenSaverSensor,
	})
}

// detectLinux tries, in order: the Mutter idle monitor (GNOME), the
// freedesktop ScreenSaver idle time (KDE), and xprintidle. Under Wayland
// xprintidle is never used: the X server only sees input to XWayland
// clients, so it would report the user idle while they type in native
// apps. No data is better than false idle.
func detectLinux(ctx context.Context, opts DetectOptions, sess linuxSession) (Sensor, error) {
	if opts.Backend == BackendEvent || (opts.Backend == BackendAuto && sess.wayland) {
		s, err := sess.event(ctx, opts.Threshold)
		if err == nil {
			return s, nil
		}
		if opts.Backend == BackendEvent {
			return nil, fmt.Errorf("event backend: %w", err)
		}
		log.Printf("[idle] event backend unavailable: %v", err)
	}

	var errs []error
	if sess.wayland || opts.Backend == BackendPoll {
		s, err := sess.screenSaver(ctx)
		if err == nil {
			return s, nil
		}
		errs = append(errs, err)
	}

	if sess.wayland {
		log.Printf("[idle] not using xprintidle under Wayland: it only sees XWayland input")
		errs = append(errs, domain.ErrSensorUnavailable)
		return nil, fmt.Errorf("no Wayland idle source: %w", errors.Join(errs...))
	}

	if sess.x11 || opts.Backend == BackendPoll {
		if s, ok := probe(NewPollSensor("x11", xprintidleQuery(opts.runner()))); ok {
			return s, nil
		}
		errs = append(errs, fmt.Errorf("xprintidle probe failed: %w", domain.ErrSensorUnavailable))
		return nil, errors.Join(errs...)
	}
	return nil, domain.ErrNoIdleBackend
}

// xprintidleQuery reads the XScreenSaver idle counter through xprintidle.
func xprintidleQuery(run CommandRunner) QueryFunc {
	return func(ctx context.Context) (time.Duration, error) {
		out, err := run(ctx, "xprintidle")
		if err != nil {
			return 0, fmt.Errorf("xprintidle: %w", err)
		}
		return parseMillis(out)
	}
}
