package memory

import (
	"context"
	"sync"
	"time"

	"paynow-terminal-gateway/internal/core/domain"
	"paynow-terminal-gateway/internal/core/ports"
	"paynow-terminal-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IntentStore is the authoritative in-process implementation of
// ports.IntentStore. A single mutex linearizes every mutation, which
// trivially satisfies the per-terminal ordering contract. All intents
// handed out are clones; callers never share store-owned state.
type IntentStore struct {
	mu      sync.RWMutex
	intents map[uuid.UUID]*domain.PaymentIntent
	current map[string]uuid.UUID

	mirror ports.IntentMirror // nil = mirroring disabled
	log    zerolog.Logger
}

// NewIntentStore creates an empty store. mirror may be nil.
func NewIntentStore(mirror ports.IntentMirror, log zerolog.Logger) *IntentStore {
	return &IntentStore{
		intents: make(map[uuid.UUID]*domain.PaymentIntent),
		current: make(map[string]uuid.UUID),
		mirror:  mirror,
		log:     log,
	}
}

// Create persists intent and makes it the terminal's current intent. A
// prior pending intent is superseded: it stays recorded, stays pending,
// and is flagged in the log rather than auto-canceled.
func (s *IntentStore) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	s.mu.Lock()
	if prevID, ok := s.current[intent.TerminalID]; ok {
		if prev := s.intents[prevID]; prev != nil && prev.Status == domain.IntentStatusPending {
			s.log.Warn().
				Str("terminal_id", intent.TerminalID).
				Str("superseded_intent_id", prevID.String()).
				Str("intent_id", intent.ID.String()).
				Msg("pending intent superseded by newer intent; left unresolved")
		}
	}
	stored := intent.Clone()
	s.intents[intent.ID] = stored
	s.current[intent.TerminalID] = intent.ID
	s.mu.Unlock()

	s.mirrorSave(ctx, stored)
	return nil
}

// Transition moves a pending intent into a terminal state, single-shot.
func (s *IntentStore) Transition(ctx context.Context, id uuid.UUID, status domain.IntentStatus, at time.Time) (*domain.PaymentIntent, error) {
	s.mu.Lock()
	intent, ok := s.intents[id]
	if !ok {
		s.mu.Unlock()
		return nil, apperror.ErrIntentNotFound()
	}
	if intent.Status != domain.IntentStatusPending {
		observed := intent.Status
		s.mu.Unlock()
		return nil, apperror.ErrIntentAlreadyResolved(string(observed))
	}
	if !intent.ResolvableTo(status) {
		s.mu.Unlock()
		return nil, apperror.ErrInvalidOutcome(string(status))
	}

	intent.Status = status
	resolvedAt := at
	intent.ResolvedAt = &resolvedAt
	result := intent.Clone()
	s.mu.Unlock()

	s.mirrorSave(ctx, result)
	return result, nil
}

// Get returns the intent by id, or nil if unknown.
func (s *IntentStore) Get(_ context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if intent, ok := s.intents[id]; ok {
		return intent.Clone(), nil
	}
	return nil, nil
}

// CurrentFor returns the latest-created intent for terminalID regardless of
// status, or nil if the terminal never had one.
func (s *IntentStore) CurrentFor(_ context.Context, terminalID string) (*domain.PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.current[terminalID]
	if !ok {
		return nil, nil
	}
	return s.intents[id].Clone(), nil
}

// PendingExpiredBefore lists pending intents whose deadline passed before t.
func (s *IntentStore) PendingExpiredBefore(_ context.Context, t time.Time) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []uuid.UUID
	for id, intent := range s.intents {
		if intent.ExpiredBy(t) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Seed loads a mirrored intent during crash recovery. It only claims the
// current pointer when it is newer than what is already loaded, and never
// logs supersede warnings or touches the mirror.
func (s *IntentStore) Seed(_ context.Context, intent *domain.PaymentIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.intents[intent.ID] = intent.Clone()
	if curID, ok := s.current[intent.TerminalID]; ok {
		if cur := s.intents[curID]; cur != nil && !intent.CreatedAt.After(cur.CreatedAt) {
			return nil
		}
	}
	s.current[intent.TerminalID] = intent.ID
	return nil
}

// mirrorSave writes through to the durable mirror, best-effort. The memory
// state stays authoritative; failures are logged, never propagated.
func (s *IntentStore) mirrorSave(ctx context.Context, intent *domain.PaymentIntent) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Save(ctx, intent); err != nil {
		s.log.Warn().Err(err).
			Str("intent_id", intent.ID.String()).
			Msg("intent mirror write failed")
	}
}
