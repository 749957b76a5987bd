package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"paynow-terminal-gateway/internal/core/domain"
	"paynow-terminal-gateway/internal/core/ports"
	"paynow-terminal-gateway/internal/paynow"
	"paynow-terminal-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DispatcherOptions carries the payment-flow tunables the dispatcher needs.
type DispatcherOptions struct {
	Currency  string        // ISO 4217 alpha code; only SGD is accepted
	IntentTTL time.Duration // pending -> expired deadline
	QRSize    int           // rendered QR edge length in pixels
}

// EventDispatcher orchestrates the encoder, intent store and subscription
// registry. It implements ports.Dispatcher.
//
// Each terminal has its own mutex spanning store mutation plus publish, so
// the order displays observe snapshots always matches the order the store
// accepted the mutations. The store and registry each lock internally and
// are never locked while holding each other, so there is no lock cycle.
type EventDispatcher struct {
	merchants ports.MerchantRepository
	terminals ports.TerminalRepository
	store     ports.IntentStore
	registry  *TerminalRegistry
	renderer  paynow.Renderer
	opts      DispatcherOptions
	log       zerolog.Logger
	now       func() time.Time

	termMu sync.Mutex
	terms  map[string]*sync.Mutex
}

// NewEventDispatcher creates a dispatcher.
func NewEventDispatcher(
	merchants ports.MerchantRepository,
	terminals ports.TerminalRepository,
	store ports.IntentStore,
	registry *TerminalRegistry,
	renderer paynow.Renderer,
	opts DispatcherOptions,
	log zerolog.Logger,
) *EventDispatcher {
	if opts.Currency == "" {
		opts.Currency = "SGD"
	}
	if opts.IntentTTL <= 0 {
		opts.IntentTTL = 15 * time.Minute
	}
	if opts.QRSize <= 0 {
		opts.QRSize = 512
	}
	return &EventDispatcher{
		merchants: merchants,
		terminals: terminals,
		store:     store,
		registry:  registry,
		renderer:  renderer,
		opts:      opts,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		terms:     make(map[string]*sync.Mutex),
	}
}

// terminalLock returns the mutex serializing one terminal's mutations.
func (d *EventDispatcher) terminalLock(terminalID string) *sync.Mutex {
	d.termMu.Lock()
	defer d.termMu.Unlock()
	mu, ok := d.terms[terminalID]
	if !ok {
		mu = &sync.Mutex{}
		d.terms[terminalID] = mu
	}
	return mu
}

// CreateIntent validates the request against the directory, encodes the
// payable payload, persists the new pending intent and publishes the
// resulting snapshot to every attached display.
func (d *EventDispatcher) CreateIntent(ctx context.Context, req ports.CreateIntentRequest) (*domain.PaymentIntent, error) {
	terminal, err := d.terminals.GetByID(ctx, req.TerminalID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if terminal == nil {
		return nil, apperror.ErrTerminalNotFound()
	}

	merchant, err := d.merchants.GetByID(ctx, terminal.MerchantID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if merchant == nil {
		return nil, apperror.ErrMerchantNotFound()
	}
	kind, proxyValue, ok := merchant.Proxy()
	if !ok {
		return nil, apperror.ErrMerchantProxyMisconfigured()
	}

	currency := req.Currency
	if currency == "" {
		currency = d.opts.Currency
	}
	if currency != "SGD" {
		return nil, apperror.ErrUnsupportedCurrency(currency)
	}

	now := d.now()
	expiresAt := now.Add(d.opts.IntentTTL)

	payload, err := paynow.Encode(paynow.Request{
		ProxyType:    proxyTypeFor(kind),
		ProxyValue:   proxyValue,
		AmountCents:  req.AmountCents,
		Reference:    req.Reference,
		MerchantName: merchant.DisplayName,
		Editable:     false,
		Expiry:       &expiresAt,
	})
	if err != nil {
		return nil, err
	}

	intent := &domain.PaymentIntent{
		ID:          uuid.New(),
		TerminalID:  terminal.ID,
		AmountCents: req.AmountCents,
		Currency:    currency,
		Reference:   req.Reference,
		Payload:     payload,
		Status:      domain.IntentStatusPending,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}

	// Rendering is best-effort: a broken image encoder degrades the display
	// to the raw payload, it never blocks the payment request.
	if image, mediaType, rerr := d.renderer.Render(payload, d.opts.QRSize); rerr == nil {
		intent.QRImage = image
		intent.QRMediaType = mediaType
	} else {
		d.log.Warn().Err(rerr).
			Str("terminal_id", terminal.ID).
			Msg("QR rendering failed, serving raw payload")
	}

	mu := d.terminalLock(terminal.ID)
	mu.Lock()
	defer mu.Unlock()

	if err := d.store.Create(ctx, intent); err != nil {
		return nil, err
	}
	d.registry.Publish(domain.NewSnapshot(terminal.ID, intent.Clone(), now))

	d.log.Info().
		Str("intent_id", intent.ID.String()).
		Str("terminal_id", terminal.ID).
		Int64("amount_cents", intent.AmountCents).
		Str("reference", intent.Reference).
		Msg("payment intent created")

	return intent, nil
}

// Resolve moves a pending intent to paid or canceled and publishes the
// resulting snapshot. A second resolution attempt surfaces as a conflict
// and nothing is re-published.
func (d *EventDispatcher) Resolve(ctx context.Context, intentID uuid.UUID, outcome domain.IntentStatus) (*domain.PaymentIntent, error) {
	if outcome != domain.IntentStatusPaid && outcome != domain.IntentStatusCanceled {
		return nil, apperror.ErrInvalidOutcome(string(outcome))
	}
	return d.transition(ctx, intentID, outcome)
}

// Expire is the sweeper's entry point. Losing the race against an operator
// resolution, or sweeping an id that vanished, is a no-op rather than an
// error.
func (d *EventDispatcher) Expire(ctx context.Context, intentID uuid.UUID) error {
	_, err := d.transition(ctx, intentID, domain.IntentStatusExpired)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && (appErr.Code == "INT_001" || appErr.Code == "INT_002") {
			return nil
		}
		return err
	}
	return nil
}

func (d *EventDispatcher) transition(ctx context.Context, intentID uuid.UUID, outcome domain.IntentStatus) (*domain.PaymentIntent, error) {
	intent, err := d.store.Get(ctx, intentID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if intent == nil {
		return nil, apperror.ErrIntentNotFound()
	}

	mu := d.terminalLock(intent.TerminalID)
	mu.Lock()
	defer mu.Unlock()

	resolved, err := d.store.Transition(ctx, intentID, outcome, d.now())
	if err != nil {
		return nil, err
	}

	// Publish only if the resolved intent is still what the terminal shows.
	// A superseded intent resolves silently; the display already moved on.
	current, err := d.store.CurrentFor(ctx, intent.TerminalID)
	if err == nil && current != nil && current.ID == intentID {
		d.registry.Publish(domain.NewSnapshot(intent.TerminalID, resolved.Clone(), d.now()))
	}

	d.log.Info().
		Str("intent_id", intentID.String()).
		Str("terminal_id", intent.TerminalID).
		Str("status", string(outcome)).
		Msg("payment intent resolved")

	return resolved, nil
}

// Attach registers a display subscriber for a terminal. The replay of the
// terminal's current state is enqueued under the terminal lock, so no
// publish can slip between the snapshot read and the registration.
func (d *EventDispatcher) Attach(ctx context.Context, terminalID string) (ports.Subscription, error) {
	terminal, err := d.terminals.GetByID(ctx, terminalID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if terminal == nil {
		return nil, apperror.ErrTerminalNotFound()
	}

	mu := d.terminalLock(terminalID)
	mu.Lock()
	defer mu.Unlock()

	current, err := d.store.CurrentFor(ctx, terminalID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return d.registry.Attach(terminalID, domain.NewSnapshot(terminalID, current, d.now())), nil
}

// Detach releases a subscription; idempotent.
func (d *EventDispatcher) Detach(sub ports.Subscription) {
	d.registry.Detach(sub)
}

func proxyTypeFor(kind domain.ProxyKind) paynow.ProxyType {
	if kind == domain.ProxyKindUEN {
		return paynow.ProxyUEN
	}
	return paynow.ProxyMobile
}
