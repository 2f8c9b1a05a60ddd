package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/api"
	"github.com/KayraNafi/TouchGrass/internal/daemon"
)

// client talks to a running daemon.
type client struct {
	base string
	http *http.Client
}

// newClient resolves the daemon address from --addr or config.toml.
func newClient() (*client, error) {
	addr := apiAddr
	if addr == "" {
		cfg, err := daemon.LoadConfig()
		if err != nil {
			return nil, err
		}
		addr = cfg.Addr()
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return &client{base: strings.TrimRight(addr, "/"), http: &http.Client{Timeout: 30 * time.Second}}, nil
}

// apiError is the daemon's JSON error envelope.
type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? (touchgrass serve): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e apiError
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error.Message != "" {
			return errors.New(e.Error.Message)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) status(ctx context.Context) (api.StatusResponse, error) {
	var s api.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &s)
	return s, err
}

// command posts to a timer endpoint and returns the resulting status.
func (c *client) command(ctx context.Context, method, path string, body any) (api.StatusResponse, error) {
	var s api.StatusResponse
	err := c.do(ctx, method, path, body, &s)
	return s, err
}

// streamEvents reads /api/events and calls fn for each event until ctx is
// cancelled or the stream ends.
func (c *client) streamEvents(ctx context.Context, fn func(event string, data []byte) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/events", nil)
	if err != nil {
		return err
	}
	stream := &http.Client{} // no timeout: the stream is long-lived
	resp, err := stream.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? (touchgrass serve): %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /api/events: %s", resp.Status)
	}
	return readSSE(resp.Body, fn)
}

// readSSE parses "event:" and "data:" lines; comments are skipped.
// Consecutive data lines are joined with a newline.
func readSSE(r io.Reader, fn func(event string, data []byte) error) error {
	sc := bufio.NewScanner(r)
	var event string
	var data []byte
	var hasData bool
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if event != "" || hasData {
				if event == "" {
					event = "message"
				}
				if err := fn(event, data); err != nil {
					return err
				}
			}
			event, data, hasData = "", nil, false
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if hasData {
				data = append(data, '\n')
			}
			hasData = true
			v := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			data = append(data, v...)
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
