// Package worker provides a uniform owning handle for a background
// worker goroutine: a human-readable name for logs, a cancellation
// signal, and a join capability. It generalizes the original
// implementation's Thread<T> (a join handle paired with a stop-token
// sender) to Go's goroutine/channel idiom.
package worker

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handle owns a single background worker goroutine.
//
// Workers must poll Done() between iterations and must not block longer
// than one sensor sample without doing so. Terminate is idempotent: it
// may be called multiple times and from any goroutine.
type Handle struct {
	Name string
	ID   uuid.UUID

	log *logrus.Entry

	cancel   chan struct{}
	once     sync.Once
	done     chan struct{}
	finished sync.Once
}

// New creates a Handle for a worker named name. fn is run in a new
// goroutine and receives the Handle's cancellation channel; fn must
// return when that channel is closed. log, if non-nil, is annotated with
// "worker" and "worker_id" fields and stored for callers that want to log
// under the same identity; a nil log falls back to logrus.StandardLogger().
func New(name string, log *logrus.Entry, fn func(cancel <-chan struct{})) *Handle {
	id := uuid.New()
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithFields(logrus.Fields{"worker": name, "worker_id": id.String()})

	h := &Handle{
		Name:   name,
		ID:     id,
		log:    log,
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		fn(h.cancel)
	}()

	return h
}

// Done returns the channel workers must poll; it is closed by Terminate.
func (h *Handle) Done() <-chan struct{} {
	return h.cancel
}

// Log returns the handle's logger, pre-populated with worker identity fields.
func (h *Handle) Log() *logrus.Entry {
	return h.log
}

// Terminate signals the worker to stop and blocks until it has exited.
// Safe to call more than once: only the first call closes the cancel
// channel and logs; later calls send and log nothing and return once
// the worker has exited.
func (h *Handle) Terminate() {
	h.once.Do(func() {
		h.log.Info("sending terminate signal")
		close(h.cancel)
	})
	h.finished.Do(func() {
		<-h.done
		h.log.Info("worker joined successfully")
	})
}
