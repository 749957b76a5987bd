package service

import (
	"sync"

	"paynow-terminal-gateway/internal/core/domain"
	"paynow-terminal-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// DefaultSubscriberBuffer is the per-subscriber channel capacity when the
// configured value is zero.
const DefaultSubscriberBuffer = 16

// subscription is the registry's concrete ports.Subscription. Closing is
// guarded by a sync.Once so detach is idempotent from any goroutine.
type subscription struct {
	terminalID string
	ch         chan domain.TerminalSnapshot
	closeOnce  sync.Once
}

func (s *subscription) Snapshots() <-chan domain.TerminalSnapshot { return s.ch }
func (s *subscription) TerminalID() string                        { return s.terminalID }

func (s *subscription) close() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// TerminalRegistry fans terminal snapshots out to attached display clients.
// Publish never blocks: a subscriber whose buffer is full is detached on
// the spot, on the grounds that a display that cannot keep up with a
// human-paced payment flow is gone.
type TerminalRegistry struct {
	mu      sync.Mutex
	subs    map[string]map[*subscription]struct{}
	bufSize int
	log     zerolog.Logger
}

// NewTerminalRegistry creates an empty registry. bufSize <= 0 selects the
// default per-subscriber buffer.
func NewTerminalRegistry(bufSize int, log zerolog.Logger) *TerminalRegistry {
	if bufSize <= 0 {
		bufSize = DefaultSubscriberBuffer
	}
	return &TerminalRegistry{
		subs:    make(map[string]map[*subscription]struct{}),
		bufSize: bufSize,
		log:     log,
	}
}

// Attach registers a subscriber for terminalID and enqueues replay as its
// first delivery before any later publish can be observed.
func (r *TerminalRegistry) Attach(terminalID string, replay domain.TerminalSnapshot) ports.Subscription {
	sub := &subscription{
		terminalID: terminalID,
		ch:         make(chan domain.TerminalSnapshot, r.bufSize),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Buffer capacity is at least 1, so the replay send cannot block.
	sub.ch <- replay
	if r.subs[terminalID] == nil {
		r.subs[terminalID] = make(map[*subscription]struct{})
	}
	r.subs[terminalID][sub] = struct{}{}
	return sub
}

// Detach removes a subscription and closes its channel. Safe to call more
// than once, and with subscriptions the registry already dropped.
func (r *TerminalRegistry) Detach(s ports.Subscription) {
	sub, ok := s.(*subscription)
	if !ok {
		return
	}
	r.mu.Lock()
	if set, ok := r.subs[sub.terminalID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(r.subs, sub.terminalID)
		}
	}
	r.mu.Unlock()
	sub.close()
}

// Publish delivers snapshot to every subscriber of its terminal. Slow
// subscribers are dropped rather than allowed to stall the rest.
func (r *TerminalRegistry) Publish(snapshot domain.TerminalSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.subs[snapshot.TerminalID]
	for sub := range set {
		select {
		case sub.ch <- snapshot:
		default:
			delete(set, sub)
			sub.close()
			r.log.Warn().
				Str("terminal_id", snapshot.TerminalID).
				Msg("slow display subscriber dropped")
		}
	}
	if len(set) == 0 {
		delete(r.subs, snapshot.TerminalID)
	}
}

// SubscriberCount reports how many displays are attached to a terminal.
func (r *TerminalRegistry) SubscriberCount(terminalID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[terminalID])
}
