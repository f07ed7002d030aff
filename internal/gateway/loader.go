package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type Loader func(ctx context.Context) (*Handle, error)

// Load runs the startup capability load bounded by timeout and settles avail.
// It returns the load error, if any, after recording it as the failure reason.
func Load(ctx context.Context, avail *Availability, timeout time.Duration, load Loader) error {
	loadCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	h, err := load(loadCtx)
	if err == nil && loadCtx.Err() != nil {
		err = loadCtx.Err()
	}
	if err == nil && h == nil {
		err = errors.New("gateway loader returned no capability")
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("gateway load timed out after %s: %w", timeout, err)
		}
		avail.Fail(err.Error())
		slog.Warn("gateway unavailable, replies will be mocked", "error", err)
		return err
	}

	avail.Resolve(h)
	slog.Info("gateway ready")
	return nil
}
