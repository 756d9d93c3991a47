package overlay

import "sync"

// subscriberBuffer is the number of pending updates kept per subscriber.
const subscriberBuffer = 16

// State owns the current overlay transform and broadcasts every change to
// subscribed renderers.
type State struct {
	mu          sync.RWMutex
	current     Transform
	subscribers map[chan Transform]struct{}
}

// NewState creates a State holding initial.
func NewState(initial Transform) (*State, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &State{
		current:     initial,
		subscribers: make(map[chan Transform]struct{}),
	}, nil
}

// Get returns the current transform.
func (s *State) Get() Transform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the current transform.
func (s *State) Set(t Transform) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = t
	s.broadcast(t)
	s.mu.Unlock()

	return nil
}

// Reset replaces the current transform with a default value.
func (s *State) Reset(def Transform) error {
	return s.Set(def)
}

// Subscribe returns a channel receiving every new transform and a function
// that releases the subscription. A slow subscriber loses the oldest pending
// update rather than blocking writers.
func (s *State) Subscribe() (<-chan Transform, func()) {
	ch := make(chan Transform, subscriberBuffer)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// broadcast must be called with s.mu held for writing.
func (s *State) broadcast(t Transform) {
	for ch := range s.subscribers {
		select {
		case ch <- t:
		default:
			// Drop the oldest update so the latest position always arrives.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- t:
			default:
			}
		}
	}
}
