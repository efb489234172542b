package graphkit

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type errCloser struct {
	err    error
	closed int
}

func (c *errCloser) Close() error {
	c.closed++
	return c.err
}

// TestCloseWithLog verifies close errors are logged rather than dropped
// and that the helper tolerates nil inputs.
func TestCloseWithLog(t *testing.T) {
	t.Run("nil closer is a no-op", func(t *testing.T) {
		CloseWithLog(nil, nil, "nothing")
	})

	t.Run("clean close logs nothing", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		c := &errCloser{}

		CloseWithLog(c, logger, "sequence")

		if c.closed != 1 {
			t.Errorf("Close called %d times, want 1", c.closed)
		}
		if buf.Len() != 0 {
			t.Errorf("unexpected log output: %s", buf.String())
		}
	})

	t.Run("close error is logged with the resource name", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		c := &errCloser{err: errors.New("cursor already released")}

		CloseWithLog(c, logger, "people lookup")

		out := buf.String()
		if !strings.Contains(out, "failed to close resource") {
			t.Errorf("missing warning in log output: %s", out)
		}
		if !strings.Contains(out, "people lookup") {
			t.Errorf("missing resource name in log output: %s", out)
		}
		if !strings.Contains(out, "cursor already released") {
			t.Errorf("missing close error in log output: %s", out)
		}
	})
}
