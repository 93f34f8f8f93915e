package dispatch

import (
	"testing"

	"firstcall/internal/models"

	"github.com/labstack/gommon/log"
)

func TestHubSlowSubscriberKeepsNewest(t *testing.T) {
	logger := log.New("dispatch")
	logger.SetLevel(log.OFF)
	h := newHub(models.Snapshot{SessionID: "s", Sequence: 1}, logger)
	ch, unsubscribe := h.subscribe()
	defer unsubscribe()

	for seq := uint64(2); seq <= 21; seq++ {
		h.publish(models.Snapshot{SessionID: "s", Sequence: seq})
	}

	h.mu.Lock()
	dropped := h.dropped
	h.mu.Unlock()
	if dropped != 5 {
		t.Errorf("dropped = %d, want 5", dropped)
	}

	want := uint64(6)
	for i := 0; i < subscriberBuffer; i++ {
		s := <-ch
		if s.Sequence != want {
			t.Fatalf("snapshot %d has sequence %d, want %d", i, s.Sequence, want)
		}
		want++
	}
	select {
	case s := <-ch:
		t.Fatalf("unexpected extra snapshot %d", s.Sequence)
	default:
	}
}

func TestHubLateSubscriberAfterClose(t *testing.T) {
	logger := log.New("dispatch")
	logger.SetLevel(log.OFF)
	h := newHub(models.Snapshot{SessionID: "s", Sequence: 1}, logger)
	h.publish(models.Snapshot{SessionID: "s", Sequence: 2, Status: models.StatusCancelled})
	h.close()

	ch, _ := h.subscribe()
	s, ok := <-ch
	if !ok || s.Status != models.StatusCancelled {
		t.Fatalf("first value = (%+v, %v), want the final snapshot", s, ok)
	}
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after close")
	}
}
