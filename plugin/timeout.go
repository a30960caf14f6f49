package plugin

import (
	"context"
	"log/slog"
	"time"

	"github.com/OpenPrinting/goipp"
)

// callWithTimeout runs fn under a deadline, isolating both panics and
// deadline overruns the way the teacher's fsm callbacks isolate a single
// failing transition: the chain continues with the next plugin rather than
// aborting the whole request, per §4.7's exception-isolation rule.
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) T, pluginID, hook string) (result T, ok bool) {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan T, 1)
	panicked := make(chan struct{}, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("plugin hook panicked, isolated", "plugin", pluginID, "hook", hook, "panic", r)
				panicked <- struct{}{}
			}
		}()
		done <- fn(cctx)
	}()

	select {
	case result = <-done:
		return result, true
	case <-panicked:
		var zero T
		return zero, false
	case <-cctx.Done():
		slog.Warn("plugin hook timed out, isolated", "plugin", pluginID, "hook", hook)
		var zero T
		return zero, false
	}
}

func callWithTimeoutOK(ctx context.Context, d time.Duration, fn func(context.Context) (ProcessResult, bool), pluginID, hook string) (ProcessResult, bool) {
	type pair struct {
		res ProcessResult
		ok  bool
	}
	p, ok := callWithTimeout(ctx, d, func(cctx context.Context) pair {
		res, handled := fn(cctx)
		return pair{res, handled}
	}, pluginID, hook)
	if !ok {
		return ProcessResult{}, false
	}
	return p.res, p.ok
}

func callWithTimeoutAttrs(ctx context.Context, d time.Duration, fn func(context.Context) (goipp.Attributes, bool), pluginID, hook string) (goipp.Attributes, bool) {
	type pair struct {
		attrs goipp.Attributes
		ok    bool
	}
	p, ok := callWithTimeout(ctx, d, func(cctx context.Context) pair {
		attrs, handled := fn(cctx)
		return pair{attrs, handled}
	}, pluginID, hook)
	if !ok {
		return nil, false
	}
	return p.attrs, p.ok
}
