//go:build linux

package idle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	screenSaverService = "org.freedesktop.ScreenSaver"
	screenSaverPath    = dbus.ObjectPath("/org/freedesktop/ScreenSaver")
	screenSaverIface   = "org.freedesktop.ScreenSaver"
)

// screenSaverSensor polls GetSessionIdleTime on the freedesktop
// ScreenSaver service. KDE Plasma answers it from the compositor, so it
// sees native Wayland input.
type screenSaverSensor struct {
	*PollSensor
	conn      *dbus.Conn
	closeOnce sync.Once
}

func newScreenSaverSensor(ctx context.Context) (Sensor, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	obj := conn.Object(screenSaverService, screenSaverPath)
	query := func(ctx context.Context) (time.Duration, error) {
		ctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		var ms uint32
		if err := obj.CallWithContext(ctx, screenSaverIface+".GetSessionIdleTime", 0).Store(&ms); err != nil {
			return 0, fmt.Errorf("GetSessionIdleTime: %w", err)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	s := &screenSaverSensor{PollSensor: NewPollSensor("screensaver", query), conn: conn}
	if _, ok := probe(s); !ok {
		s.Close()
		return nil, fmt.Errorf("%s does not report session idle time", screenSaverService)
	}
	return s, nil
}

func (s *screenSaverSensor) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.conn.Close() })
	return err
}
