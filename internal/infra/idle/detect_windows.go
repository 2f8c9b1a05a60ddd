//go:build windows

package idle

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/KayraNafi/TouchGrass/internal/domain"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
)

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

func detectPlatform(ctx context.Context, opts DetectOptions) (Sensor, error) {
	if opts.Backend == BackendEvent {
		return nil, fmt.Errorf("event backend: %w", domain.ErrNoIdleBackend)
	}
	if s, ok := probe(NewPollSensor("lastinput", lastInputQuery)); ok {
		return s, nil
	}
	return nil, fmt.Errorf("GetLastInputInfo probe failed: %w", domain.ErrSensorUnavailable)
}

// lastInputQuery uses GetLastInputInfo (keyboard + mouse activity).
func lastInputQuery(ctx context.Context) (time.Duration, error) {
	var info lastInputInfo
	info.cbSize = uint32(unsafe.Sizeof(info))

	ret, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return 0, fmt.Errorf("GetLastInputInfo: %w", err)
	}
	// Both counters are milliseconds since boot; dwTime wraps at 32 bits.
	idle := uint32(windows.GetTickCount64()) - info.dwTime
	return time.Duration(idle) * time.Millisecond, nil
}
