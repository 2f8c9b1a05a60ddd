//go:build linux

package idle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mutterService = "org.gnome.Mutter.IdleMonitor"
	mutterPath    = dbus.ObjectPath("/org/gnome/Mutter/IdleMonitor/Core")
	mutterIface   = "org.gnome.Mutter.IdleMonitor"
)

// mutterSource receives idle/active transitions from the GNOME Mutter
// IdleMonitor over the session bus.
type mutterSource struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	tracker *watchTracker
	signals chan *dbus.Signal
	events  chan Transition

	closeOnce sync.Once
}

// dialMutter connects to the session bus and checks that the idle
// monitor answers. initial is the idle time at connect.
func dialMutter(ctx context.Context) (*mutterSource, time.Duration, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, 0, fmt.Errorf("connect session bus: %w", err)
	}
	obj := conn.Object(mutterService, mutterPath)

	var ms uint64
	if err := obj.CallWithContext(ctx, mutterIface+".GetIdletime", 0).Store(&ms); err != nil {
		conn.Close()
		return nil, 0, fmt.Errorf("query %s: %w", mutterService, err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(mutterPath),
		dbus.WithMatchInterface(mutterIface),
		dbus.WithMatchMember("WatchFired"),
	); err != nil {
		conn.Close()
		return nil, 0, fmt.Errorf("subscribe WatchFired: %w", err)
	}

	m := &mutterSource{
		conn:    conn,
		obj:     obj,
		signals: make(chan *dbus.Signal, 16),
		events:  make(chan Transition, 16),
	}
	m.tracker = newWatchTracker(m)
	conn.Signal(m.signals)
	go m.loop()
	return m, time.Duration(ms) * time.Millisecond, nil
}

// ─── watchBus ───────────────────────────────────────────────────────────────

func (m *mutterSource) AddIdleWatch(interval time.Duration) (uint32, error) {
	var id uint32
	err := m.obj.Call(mutterIface+".AddIdleWatch", 0, uint64(interval/time.Millisecond)).Store(&id)
	return id, err
}

func (m *mutterSource) AddUserActiveWatch() (uint32, error) {
	var id uint32
	err := m.obj.Call(mutterIface+".AddUserActiveWatch", 0).Store(&id)
	return id, err
}

func (m *mutterSource) RemoveWatch(id uint32) error {
	return m.obj.Call(mutterIface+".RemoveWatch", 0, id).Err
}

// ─── EventSource ────────────────────────────────────────────────────────────

func (m *mutterSource) Watch(threshold time.Duration) error {
	return m.tracker.arm(threshold)
}

func (m *mutterSource) Events() <-chan Transition { return m.events }

func (m *mutterSource) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.tracker.release()
		// Closing the connection closes m.signals, which ends loop.
		err = m.conn.Close()
	})
	return err
}

func (m *mutterSource) loop() {
	defer close(m.events)
	for sig := range m.signals {
		if sig == nil || sig.Name != mutterIface+".WatchFired" || len(sig.Body) == 0 {
			continue
		}
		id, ok := sig.Body[0].(uint32)
		if !ok {
			continue
		}
		t, ours, err := m.tracker.fired(id)
		if err != nil {
			log.Printf("[idle] mutter: %v", err)
		}
		if ours {
			m.events <- t
		}
	}
}

// newMutterSensor builds the event-driven sensor on GNOME/Mutter.
func newMutterSensor(ctx context.Context, threshold time.Duration) (Sensor, error) {
	src, initial, err := dialMutter(ctx)
	if err != nil {
		return nil, err
	}
	s, err := startWatchedSensor("mutter", src, src.tracker, initial, threshold)
	if err != nil {
		src.Close()
		return nil, err
	}
	return s, nil
}
