package datasource

import (
	"context"
	"fmt"
)

// Probe pings h and converts panics and nil handles into errors.
func Probe(ctx context.Context, h Handle) (err error) {
	if h == nil {
		return fmt.Errorf("no handle")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ping panicked: %v", r)
		}
	}()
	return h.PingContext(ctx)
}

// Ping reports liveness and never panics or returns an error.
func Ping(ctx context.Context, h Handle) bool {
	return Probe(ctx, h) == nil
}
