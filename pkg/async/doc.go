// Package async runs background work without letting a panic or an ignored
// error escape silently.
//
// # SafeGo
//
// SafeGo starts a goroutine that recovers panics through
// observability.RecoverPanic and logs a returned error as a warning with the
// task name attached. A positive timeout bounds the context handed to the
// task; zero leaves it bound only by the parent context.
//
//	done := async.SafeGo(ctx, logger, 0, "config watch", func(ctx context.Context) error {
//		return config.Watch(ctx, path, logger, onChange)
//	})
//	<-done
//
// The returned channel closes when the task finishes, so callers that need to
// wait for it during shutdown can.
package async
