package streaming

import "sync"

// CancelHandle is a one-shot token that terminates an in-progress stream.
// Cancelling closes the underlying HTTP body (via the registered hook) and
// causes the stream goroutine to emit a single terminal Cancelled error.
// Cancel is idempotent and safe for concurrent use.
type CancelHandle struct {
	once sync.Once
	ch   chan struct{}

	mu     sync.Mutex
	onStop func()
}

// NewCancelHandle creates an un-cancelled handle.
func NewCancelHandle() *CancelHandle {
	return &CancelHandle{ch: make(chan struct{})}
}

// Cancel requests termination. The first call wins; later calls are no-ops.
func (h *CancelHandle) Cancel() {
	h.once.Do(func() {
		close(h.ch)
		h.mu.Lock()
		stop := h.onStop
		h.mu.Unlock()
		if stop != nil {
			stop()
		}
	})
}

// Done exposes the cancellation signal for select loops.
func (h *CancelHandle) Done() <-chan struct{} {
	return h.ch
}

// Cancelled reports whether Cancel has been called.
func (h *CancelHandle) Cancelled() bool {
	select {
	case <-h.ch:
		return true
	default:
		return false
	}
}

// OnCancel registers the body-drop hook. If the handle is already cancelled
// the hook runs immediately.
func (h *CancelHandle) OnCancel(stop func()) {
	h.mu.Lock()
	h.onStop = stop
	h.mu.Unlock()
	if h.Cancelled() && stop != nil {
		stop()
	}
}
