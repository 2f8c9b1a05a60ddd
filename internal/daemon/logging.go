package daemon

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// setupLogging points the standard logger at stderr and, if configured, a
// log file. The returned closer is nil when no file is used.
func setupLogging(cfg LoggingConfig) (io.Closer, error) {
	log.SetFlags(log.LstdFlags)
	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}
