package async

import (
	"context"
	"time"

	"github.com/platinummonkey/usercenter/pkg/observability"
)

// SafeGo runs fn in a goroutine with panic recovery and error logging. A
// positive timeout bounds the context passed to fn. The returned channel is
// closed once fn has returned or panicked.
//
// Example:
//
//	async.SafeGo(ctx, logger, 0, "config watch", func(ctx context.Context) error {
//	    return config.Watch(ctx, path, logger, onChange)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)

		ctx, cancel := parentCtx, context.CancelFunc(func() {})
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(parentCtx, timeout)
		}
		defer cancel()

		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
	return done
}

// SafeGoNoError is like SafeGo for functions that don't return errors.
func SafeGoNoError(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context)) <-chan struct{} {
	return SafeGo(parentCtx, logger, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
