package app

import (
	"sync"

	"github.com/ayusman/tryon/internal/overlay"
)

// Event types published to subscribers.
const (
	EventStatus    = "status"
	EventTransform = "transform"
	EventSelection = "selection"
	EventAsset     = "asset"
)

// Event is a change notification for clients.
type Event struct {
	Type      string             `json:"type"`
	Status    *StatusInfo        `json:"status,omitempty"`
	Transform *overlay.Transform `json:"transform,omitempty"`
	Selection string             `json:"selection,omitempty"`
	AssetID   string             `json:"asset_id,omitempty"`
}

const subscriberBuffer = 32

// hub fans events out to subscribers. Slow subscribers lose their oldest
// pending events rather than blocking publishers.
type hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan Event]struct{})}
}

func (h *hub) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

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

func (h *hub) publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- e:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}
