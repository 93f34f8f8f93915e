package dispatch

import (
	"sync"

	"firstcall/internal/models"

	"github.com/labstack/gommon/log"
)

const subscriberBuffer = 16

// hub fans the snapshots of one session out to its display subscribers.
// A subscriber that falls behind loses its oldest buffered snapshot; the gap
// shows in the snapshot sequence numbers.
type hub struct {
	mu      sync.Mutex
	latest  models.Snapshot
	subs    map[chan models.Snapshot]struct{}
	closed  bool
	dropped int
	logger  *log.Logger
}

func newHub(initial models.Snapshot, logger *log.Logger) *hub {
	return &hub{latest: initial, subs: make(map[chan models.Snapshot]struct{}), logger: logger}
}

// subscribe returns a channel primed with the latest snapshot.
func (h *hub) subscribe() (<-chan models.Snapshot, func()) {
	ch := make(chan models.Snapshot, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()

	ch <- h.latest
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *hub) publish(s models.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = s
	for ch := range h.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case old := <-ch:
			h.dropped++
			h.logger.Debugf("session %s: slow subscriber, dropped snapshot %d", old.SessionID, old.Sequence)
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// close ends every subscription. Later subscribers receive the final snapshot
// and a closed channel.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}
