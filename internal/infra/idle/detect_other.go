//go:build !linux && !darwin && !windows

package idle

import (
	"context"

	"github.com/KayraNafi/TouchGrass/internal/domain"
)

func detectPlatform(ctx context.Context, opts DetectOptions) (Sensor, error) {
	return nil, domain.ErrNoIdleBackend
}
