package timeline

import "sync"

type hub struct {
	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
}

func newHub() *hub {
	return &hub{subs: map[chan Snapshot]struct{}{}}
}

func (h *hub) subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *hub) publish(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		// Latest wins: drain a stale pending snapshot before sending.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
