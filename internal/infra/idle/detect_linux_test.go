//go:build linux

package idle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/domain"
)

// ─── Linux Backend Selection ────────────────────────────────────────────────

type backendCalls struct {
	event, screenSaver, xprintidle int
}

func testSession(calls *backendCalls, wayland, x11, eventOK, screenSaverOK bool) linuxSession {
	return linuxSession{
		wayland: wayland,
		x11:     x11,
		event: func(context.Context, time.Duration) (Sensor, error) {
			calls.event++
			if !eventOK {
				return nil, errors.New("no mutter")
			}
			return NewPollSensor("mutter", func(context.Context) (time.Duration, error) { return 0, nil }), nil
		},
		screenSaver: func(context.Context) (Sensor, error) {
			calls.screenSaver++
			if !screenSaverOK {
				return nil, errors.New("no screensaver service")
			}
			return NewPollSensor("screensaver", func(context.Context) (time.Duration, error) { return 0, nil }), nil
		},
	}
}

func xprintidleRunner(calls *backendCalls) CommandRunner {
	return func(context.Context, string, ...string) ([]byte, error) {
		calls.xprintidle++
		return []byte("1500\n"), nil
	}
}

func TestDetectLinux(t *testing.T) {
	tests := []struct {
		name                   string
		backend                Backend
		wayland, x11           bool
		eventOK, screenSaverOK bool
		want                   string
		wantXprintidle         bool
	}{
		{"gnome wayland", BackendAuto, true, true, true, true, "mutter", false},
		{"kde wayland", BackendAuto, true, true, false, true, "screensaver", false},
		{"sway wayland never trusts xwayland", BackendAuto, true, true, false, false, "", false},
		{"plain x11", BackendAuto, false, true, false, false, "x11", true},
		{"explicit poll on x11 prefers screensaver", BackendPoll, false, true, false, true, "screensaver", false},
		{"explicit poll under wayland", BackendPoll, true, true, true, false, "", false},
		{"explicit event without mutter", BackendEvent, true, true, false, true, "", false},
		{"no session", BackendAuto, false, false, false, false, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls backendCalls
			sess := testSession(&calls, tt.wayland, tt.x11, tt.eventOK, tt.screenSaverOK)
			opts := DetectOptions{Backend: tt.backend, Threshold: 2 * time.Minute, Runner: xprintidleRunner(&calls)}

			s, err := detectLinux(context.Background(), opts, sess)
			switch {
			case tt.want == "" && err == nil:
				t.Fatalf("detectLinux() = %s, want error", s.Name())
			case tt.want != "" && err != nil:
				t.Fatalf("detectLinux() error: %v", err)
			case tt.want != "" && s.Name() != tt.want:
				t.Errorf("backend = %s, want %s", s.Name(), tt.want)
			}
			if got := calls.xprintidle > 0; got != tt.wantXprintidle {
				t.Errorf("xprintidle used = %v, want %v", got, tt.wantXprintidle)
			}
		})
	}
}

func TestDetectLinux_WaylandFallbackIsUnavailable(t *testing.T) {
	var calls backendCalls
	_, err := detectLinux(context.Background(), DetectOptions{Backend: BackendAuto, Runner: xprintidleRunner(&calls)},
		testSession(&calls, true, true, false, false))
	if !errors.Is(err, domain.ErrSensorUnavailable) {
		t.Errorf("error = %v, want ErrSensorUnavailable", err)
	}
}
