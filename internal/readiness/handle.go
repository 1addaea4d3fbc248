package readiness

import "context"

// Handle controls a poller started with Start.
type Handle struct {
	updates chan Update
	done    chan struct{}
	err     error
	cancel  context.CancelFunc
}

// publish delivers u, dropping the oldest queued update when the
// consumer falls behind.
func (h *Handle) publish(u Update) {
	for {
		select {
		case h.updates <- u:
			return
		default:
		}
		select {
		case <-h.updates:
		default:
		}
	}
}

// Updates streams poll attempts. It is closed when polling finishes.
func (h *Handle) Updates() <-chan Update {
	return h.updates
}

// Done is closed once polling finished for any reason.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the outcome once Done is closed: nil when ready, ErrTimeout,
// or the cancellation error. It returns nil while still polling.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Cancel stops polling. An in-flight poll is aborted through its context
// and no further poll is scheduled.
func (h *Handle) Cancel() {
	h.cancel()
}

// Wait blocks until polling finished and returns its outcome.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}
