package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/api"
	"github.com/KayraNafi/TouchGrass/internal/domain"
)

// printStatus renders a status snapshot for humans.
func printStatus(w io.Writer, s api.StatusResponse, now time.Time) {
	switch {
	case s.Paused:
		fmt.Fprintln(w, "State:       paused")
	case s.SnoozedUntil != nil:
		fmt.Fprintf(w, "State:       snoozed until %s (%s)\n",
			s.SnoozedUntil.Local().Format("15:04"), humanUntil(now, *s.SnoozedUntil))
	default:
		fmt.Fprintln(w, "State:       running")
	}
	if s.NextTriggerAt != nil {
		fmt.Fprintf(w, "Next break:  %s (%s)\n",
			s.NextTriggerAt.Local().Format("15:04:05"), humanUntil(now, *s.NextTriggerAt))
	}
	if s.LastNotificationAt != nil {
		fmt.Fprintf(w, "Last break:  %s\n", s.LastNotificationAt.Local().Format("15:04:05"))
	} else {
		fmt.Fprintln(w, "Last break:  none yet")
	}
	if s.IdleSeconds != nil {
		fmt.Fprintf(w, "Idle:        %s\n", humanDuration(time.Duration(*s.IdleSeconds)*time.Second))
	} else {
		fmt.Fprintln(w, "Idle:        unknown")
	}
}

func printStats(w io.Writer, st domain.EngineStats) {
	fmt.Fprintf(w, "Breaks fired:     %d\n", st.Fired)
	fmt.Fprintf(w, "Previews:         %d\n", st.Previews)
	fmt.Fprintf(w, "Deferred (idle):  %d\n", st.Deferrals)
	fmt.Fprintf(w, "Idle resets:      %d\n", st.IdleResets)
	fmt.Fprintf(w, "Failed:           %d\n", st.NotifyFailures)
	fmt.Fprintf(w, "Commands:         %d\n", st.Commands)
	fmt.Fprintf(w, "Ticks:            %d\n", st.Ticks)
}

// printPreferences renders stored preferences.
func printPreferences(w io.Writer, p domain.Preferences) {
	fmt.Fprintf(w, "interval:            %d min\n", p.IntervalMinutes)
	fmt.Fprintf(w, "activity detection:  %s\n", onOff(p.ActivityDetection))
	fmt.Fprintf(w, "idle threshold:      %d min\n", p.IdleThresholdMinutes)
	fmt.Fprintf(w, "sound:               %s\n", onOff(p.SoundEnabled))
	fmt.Fprintf(w, "autostart:           %s\n", onOff(p.AutostartEnabled))
	fmt.Fprintf(w, "theme:               %s\n", p.Theme)
}

// humanUntil describes the gap between now and t, e.g. "in 4m 10s".
func humanUntil(now, t time.Time) string {
	d := t.Sub(now)
	if d <= 0 {
		return "due now"
	}
	return "in " + humanDuration(d)
}

// humanDuration formats d at second precision, dropping zero units.
func humanDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
