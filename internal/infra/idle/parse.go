package idle

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseHIDIdleTime extracts HIDIdleTime (nanoseconds) from
// `ioreg -c IOHIDSystem` output.
func parseHIDIdleTime(out []byte) (time.Duration, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, `"HIDIdleTime"`) {
			continue
		}
		_, val, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		ns, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse HIDIdleTime %q: %w", strings.TrimSpace(val), err)
		}
		return time.Duration(ns), nil
	}
	return 0, fmt.Errorf("HIDIdleTime not found in ioreg output")
}

// parseMillis parses a single integer millisecond count, the output
// format of xprintidle.
func parseMillis(out []byte) (time.Duration, error) {
	s := strings.TrimSpace(string(out))
	ms, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle millis %q: %w", s, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
