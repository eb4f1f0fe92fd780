package httpapi

import "context"

// serverBaseCtx scopes every in-flight request to the process lifetime. The
// daemon cancels it on shutdown so streaming handlers unwind instead of
// holding their workers through pool teardown.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process lifetime context. Passing nil resets to
// Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts derives a context that ends when either parent does. Handlers
// combine the request context (client disconnect) with the server base
// context (shutdown); calling the returned cancel releases the watcher.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	joined, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		select {
		case <-a.Done():
		case <-b.Done():
		case <-joined.Done():
		}
	}()
	return joined, cancel
}
