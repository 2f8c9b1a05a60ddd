package idle

import (
	"log"
	"sync"
	"time"
)

// Transition is a push notification from an event-driven backend.
type Transition int

const (
	TransitionIdle   Transition = iota // Threshold of inactivity reached
	TransitionActive                   // Input seen after being idle
)

// String returns the transition name.
func (t Transition) String() string {
	if t == TransitionIdle {
		return "idle"
	}
	return "active"
}

// EventSource pushes idle/active transitions. Events is closed when the
// source dies.
type EventSource interface {
	Watch(threshold time.Duration) error
	Events() <-chan Transition
	Close() error
}

// EventSensor turns idle/active transitions into idle seconds.
//
// The listener goroutine is the only writer of the slot. IdleSeconds
// reads it from the scheduler goroutine; nothing else is shared.
type EventSensor struct {
	name   string
	source EventSource
	now    func() time.Time

	mu        sync.Mutex
	threshold time.Duration
	idle      bool
	idleSince time.Time
	dead      bool

	done chan struct{}
}

// NewEventSensor registers a watch for threshold on src and starts
// listening.
func NewEventSensor(name string, src EventSource, threshold time.Duration) (*EventSensor, error) {
	if err := src.Watch(threshold); err != nil {
		return nil, err
	}
	s := &EventSensor{
		name:      name,
		source:    src,
		now:       time.Now,
		threshold: threshold,
		done:      make(chan struct{}),
	}
	go s.listen()
	return s, nil
}

// Name returns the backend name.
func (s *EventSensor) Name() string { return s.name }

// IdleSeconds returns elapsed time since input stopped while idle, 0 while
// active, and not-ok once the source has died.
func (s *EventSensor) IdleSeconds() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return 0, false
	}
	if !s.idle {
		return 0, true
	}
	d := s.now().Sub(s.idleSince)
	if d < s.threshold {
		d = s.threshold
	}
	return uint64(d / time.Second), true
}

// SetThreshold re-registers the idle watch.
func (s *EventSensor) SetThreshold(d time.Duration) error {
	s.mu.Lock()
	if s.threshold == d {
		s.mu.Unlock()
		return nil
	}
	s.threshold = d
	s.mu.Unlock()
	return s.source.Watch(d)
}

// Close stops the source and waits for the listener to exit.
func (s *EventSensor) Close() error {
	err := s.source.Close()
	<-s.done
	return err
}

func (s *EventSensor) listen() {
	defer close(s.done)
	for t := range s.source.Events() {
		s.apply(t)
	}
	s.mu.Lock()
	s.dead = true
	s.idle = false
	s.mu.Unlock()
	log.Printf("[idle] %s event source closed", s.name)
}

// apply records a transition. The source fires once the user has been
// inactive for threshold, so input actually stopped threshold ago.
func (s *EventSensor) apply(t Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t {
	case TransitionIdle:
		if !s.idle {
			s.idle = true
			s.idleSince = s.now().Add(-s.threshold)
		}
	case TransitionActive:
		s.idle = false
		s.idleSince = time.Time{}
	}
}
