package worker

import (
	"testing"
	"time"
)

func TestHandleTerminateJoins(t *testing.T) {
	ran := make(chan struct{})
	h := New("test-worker", nil, func(cancel <-chan struct{}) {
		<-cancel
		close(ran)
	})

	done := make(chan struct{})
	go func() {
		h.Terminate()
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker function never observed cancellation")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Terminate did not return after worker exited")
	}
}

func TestHandleTerminateIdempotent(t *testing.T) {
	h := New("idempotent", nil, func(cancel <-chan struct{}) {
		<-cancel
	})

	h.Terminate()
	h.Terminate() // must not panic on double close
}

func TestHandleNameAndID(t *testing.T) {
	h := New("named", nil, func(cancel <-chan struct{}) { <-cancel })
	defer h.Terminate()

	if h.Name != "named" {
		t.Errorf("expected name %q, got %q", "named", h.Name)
	}
	if h.ID.String() == "" {
		t.Error("expected non-empty worker id")
	}
}

func TestHandlePollsBetweenIterations(t *testing.T) {
	iterations := 0
	h := New("polling", nil, func(cancel <-chan struct{}) {
		for {
			select {
			case <-cancel:
				return
			default:
				iterations++
				if iterations > 1000 {
					return
				}
			}
		}
	})
	h.Terminate()

	if iterations == 0 {
		t.Error("expected worker to have run at least one iteration")
	}
}
