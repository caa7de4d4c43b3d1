// File: internal/navigator/context.go
package navigator

import "context"

// combineContext creates a context that is canceled when either parent is.
// Used to make every page operation respect both the session lifetime and
// the caller's deadline.
func combineContext(parentCtx, secondaryCtx context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(parentCtx)

	go func() {
		select {
		case <-secondaryCtx.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
