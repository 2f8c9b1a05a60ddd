// Package notify delivers reminders to the user.
//
// Desktop shells out to the platform's notification tool (notify-send,
// osascript, PowerShell). On Linux the notification carries "snooze" and
// "skip" buttons; clicks are routed back to the scheduler through an
// ActionHandler. Log writes reminders to a writer for headless use.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/domain"
	"github.com/KayraNafi/TouchGrass/internal/infra/metrics"
)

// Action identifiers reported by notify-send --wait.
const (
	ActionSnooze = "touchgrass.remind_in_5"
	ActionSkip   = "touchgrass.skip_break"
)

// ActionSnoozeMinutes is how long the snooze button holds reminders.
const ActionSnoozeMinutes = 5

// ActionHandler receives notification button clicks.
type ActionHandler interface {
	SnoozeFor(ctx context.Context, minutes uint32) error
	Skip(ctx context.Context) error
}

// Runner runs an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// Options configures the desktop sink.
type Options struct {
	AppName string // Notification title and app name (default "TouchGrass")
	Icon    string // Icon name or path, Linux only
	Actions bool   // Offer snooze/skip buttons where supported

	// SettleTimeout is how long Fire waits for an action notification to
	// fail before assuming it is on screen (default 500ms).
	SettleTimeout time.Duration

	// ActionWait bounds how long a click is awaited (default 10m).
	ActionWait time.Duration

	GOOS   string // default runtime.GOOS
	Runner Runner // default os/exec
}

// Desktop is a domain.NotificationSink backed by the OS notifier.
type Desktop struct {
	opts Options

	mu      sync.RWMutex
	handler ActionHandler

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDesktop builds a desktop sink.
func NewDesktop(opts Options) *Desktop {
	if opts.AppName == "" {
		opts.AppName = "TouchGrass"
	}
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = 500 * time.Millisecond
	}
	if opts.ActionWait <= 0 {
		opts.ActionWait = 10 * time.Minute
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Runner == nil {
		opts.Runner = execRunner
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Desktop{opts: opts, base: ctx, cancel: cancel}
}

// SetActionHandler wires button clicks. Set before the first Fire.
func (d *Desktop) SetActionHandler(h ActionHandler) {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
}

// Fire shows r. With actions enabled on Linux the call returns once the
// notification is up; the click is handled in the background.
func (d *Desktop) Fire(ctx context.Context, r domain.Reminder) error {
	d.mu.RLock()
	h := d.handler
	d.mu.RUnlock()

	if d.opts.Actions && h != nil && d.opts.GOOS == "linux" {
		err := d.fireWithActions(ctx, r, h)
		if err == nil {
			return nil
		}
		log.Printf("[notify] action notification failed: %v; falling back to plain", err)
	}
	return d.firePlain(ctx, r)
}

// Close abandons outstanding action waits.
func (d *Desktop) Close() error {
	d.cancel()
	d.wg.Wait()
	return nil
}

func (d *Desktop) firePlain(ctx context.Context, r domain.Reminder) error {
	name, args, err := buildCommand(d.opts, r, nil)
	if err != nil {
		return d.fail(err)
	}
	if _, err := d.opts.Runner(ctx, name, args...); err != nil {
		return d.fail(fmt.Errorf("%s: %w", name, err))
	}
	return nil
}

type actionResult struct {
	out []byte
	err error
}

func (d *Desktop) fireWithActions(ctx context.Context, r domain.Reminder, h ActionHandler) error {
	labels := &actionLabels{
		snooze: pick(snoozeLabels, "Snooze (5m)"),
		skip:   pick(skipLabels, "Skip this one"),
	}
	name, args, err := buildCommand(d.opts, r, labels)
	if err != nil {
		return err
	}

	// The command outlives Fire: it blocks until the user clicks or the
	// notification closes. The result is sent before the click is
	// handled so Fire never waits on the scheduler it was called from.
	result := make(chan actionResult, 1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		wctx, cancel := context.WithTimeout(d.base, d.opts.ActionWait)
		defer cancel()
		out, err := d.opts.Runner(wctx, name, args...)
		result <- actionResult{out: out, err: err}
		if err != nil {
			return
		}
		d.handleAction(wctx, h, strings.TrimSpace(string(out)))
	}()

	settle := time.NewTimer(d.opts.SettleTimeout)
	defer settle.Stop()
	select {
	case res := <-result:
		if res.err != nil {
			return fmt.Errorf("%s: %w", name, res.err)
		}
		return nil
	case <-settle.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Desktop) handleAction(ctx context.Context, h ActionHandler, action string) {
	var err error
	switch action {
	case ActionSnooze:
		log.Printf("[notify] snooze clicked; holding reminders for %d minutes", ActionSnoozeMinutes)
		err = h.SnoozeFor(ctx, ActionSnoozeMinutes)
	case ActionSkip:
		log.Printf("[notify] skip clicked; restarting countdown")
		err = h.Skip(ctx)
	default:
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[notify] apply %s: %v", action, err)
	}
}

func (d *Desktop) fail(err error) error {
	metrics.NotifyFailures.WithLabelValues("desktop").Inc()
	return fmt.Errorf("%w: %v", domain.ErrNotifyFailed, err)
}

// ─── Command Building ───────────────────────────────────────────────────────

type actionLabels struct {
	snooze string
	skip   string
}

// buildCommand returns the notifier invocation for opts.GOOS. labels is
// non-nil only for Linux action notifications.
func buildCommand(opts Options, r domain.Reminder, labels *actionLabels) (string, []string, error) {
	switch opts.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		args := []string{"--app-name=" + opts.AppName}
		if opts.Icon != "" {
			args = append(args, "--icon="+opts.Icon)
		}
		if r.PlaySound {
			args = append(args, "--hint=string:sound-name:message-new-instant")
		} else {
			args = append(args, "--hint=boolean:suppress-sound:true")
		}
		if labels != nil {
			args = append(args,
				"--wait",
				"--action="+ActionSnooze+"="+labels.snooze,
				"--action="+ActionSkip+"="+labels.skip,
			)
		}
		args = append(args, opts.AppName, r.Message)
		return "notify-send", args, nil

	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s",
			appleScriptQuote(r.Message), appleScriptQuote(opts.AppName))
		if r.PlaySound {
			script += ` sound name "Glass"`
		}
		return "osascript", []string{"-e", script}, nil

	case "windows":
		audio := `<audio src="ms-winsoundevent:Notification.Default"/>`
		if !r.PlaySound {
			audio = `<audio silent="true"/>`
		}
		toast := fmt.Sprintf(`<toast><visual><binding template="ToastGeneric"><text>%s</text><text>%s</text></binding></visual>%s</toast>`,
			html.EscapeString(opts.AppName), html.EscapeString(r.Message), audio)
		script := strings.Join([]string{
			`[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null`,
			`[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null`,
			`$xml = New-Object Windows.Data.Xml.Dom.XmlDocument`,
			`$xml.LoadXml('` + toast + `')`,
			`$toast = [Windows.UI.Notifications.ToastNotification]::new($xml)`,
			`[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('` + html.EscapeString(opts.AppName) + `').Show($toast)`,
		}, "; ")
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", script}, nil

	default:
		return "", nil, fmt.Errorf("desktop notifications not supported on %s", opts.GOOS)
	}
}

func appleScriptQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
