package idle

import (
	"fmt"
	"sync"
	"time"
)

// watchBus is the subset of a compositor idle-monitor API needed to
// drive an EventSource: one persistent idle watch, plus a one-shot
// "user active" watch armed each time the idle watch fires.
type watchBus interface {
	AddIdleWatch(interval time.Duration) (uint32, error)
	AddUserActiveWatch() (uint32, error)
	RemoveWatch(id uint32) error
}

// watchTracker maps fired watch IDs to transitions.
type watchTracker struct {
	bus watchBus

	mu     sync.Mutex
	idleID uint32
	active uint32
}

func newWatchTracker(bus watchBus) *watchTracker {
	return &watchTracker{bus: bus}
}

// arm replaces the idle watch with one for threshold.
func (w *watchTracker) arm(threshold time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.idleID != 0 {
		_ = w.bus.RemoveWatch(w.idleID)
		w.idleID = 0
	}
	id, err := w.bus.AddIdleWatch(threshold)
	if err != nil {
		return fmt.Errorf("add idle watch: %w", err)
	}
	w.idleID = id
	return nil
}

// fired handles a WatchFired signal. ok is false for IDs that are not
// ours.
func (w *watchTracker) fired(id uint32) (t Transition, ok bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case id != 0 && id == w.idleID:
		return TransitionIdle, true, w.armActiveLocked()
	case id != 0 && id == w.active:
		// Active watches are one-shot on the compositor side.
		w.active = 0
		return TransitionActive, true, nil
	default:
		return 0, false, nil
	}
}

// startIdle arms the one-shot active watch for a user who was already
// idle when the tracker was set up, so the return gets reported even if
// the idle watch never fires.
func (w *watchTracker) startIdle() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armActiveLocked()
}

func (w *watchTracker) armActiveLocked() error {
	if w.active != 0 {
		return nil
	}
	id, err := w.bus.AddUserActiveWatch()
	if err != nil {
		return fmt.Errorf("add active watch: %w", err)
	}
	w.active = id
	return nil
}

// startWatchedSensor builds an EventSensor over src. initial is the idle
// time at connect; past the threshold the sensor starts idle with the
// active watch armed.
func startWatchedSensor(name string, src EventSource, w *watchTracker, initial, threshold time.Duration) (*EventSensor, error) {
	s, err := NewEventSensor(name, src, threshold)
	if err != nil {
		return nil, err
	}
	if initial >= threshold {
		if err := w.startIdle(); err != nil {
			s.Close()
			return nil, err
		}
		s.apply(TransitionIdle)
	}
	return s, nil
}

// release removes every registered watch.
func (w *watchTracker) release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range []uint32{w.idleID, w.active} {
		if id != 0 {
			_ = w.bus.RemoveWatch(id)
		}
	}
	w.idleID, w.active = 0, 0
}
