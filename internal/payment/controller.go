// Package payment gates order commit behind a time-boxed payment session.
// Each checkout owns its own Session; nothing is shared between attempts.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canteen/internal/config"
	"canteen/internal/domain"
	apperrors "canteen/internal/errors"
	"canteen/internal/identity"
	"canteen/internal/order/usecase"
)

const (
	pruneInterval = time.Minute
	bypassRef     = "test-mode-bypass"
)

type Committer interface {
	Quote(ctx context.Context, actor identity.Actor, draft domain.OrderDraft) (*usecase.Quote, error)
	CreateQuoted(ctx context.Context, actor identity.Actor, quote *usecase.Quote) (*domain.Order, error)
}

type Ledger interface {
	Record(ctx context.Context, rec domain.Reconciliation) (int64, error)
}

type Controller struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	committer Committer
	ledger    Ledger
	clock     Clock
	window    time.Duration
	retention time.Duration
	testMode  bool
	logger    *zap.Logger
}

func NewController(committer Committer, ledger Ledger, cfg config.PaymentConfig, clock Clock, logger *zap.Logger) *Controller {
	return &Controller{
		sessions:  make(map[string]*Session),
		committer: committer,
		ledger:    ledger,
		clock:     clock,
		window:    cfg.Window,
		retention: cfg.SessionRetention,
		testMode:  cfg.TestMode,
		logger:    logger,
	}
}

func (c *Controller) TestMode() bool { return c.testMode }

// Start validates and prices the draft, then opens a session whose
// deadline is armed immediately.
func (c *Controller) Start(ctx context.Context, actor identity.Actor, draft domain.OrderDraft) (*Session, error) {
	quote, err := c.committer.Quote(ctx, actor, draft)
	if err != nil {
		return nil, err
	}
	return c.open(actor, quote, ""), nil
}

func (c *Controller) open(actor identity.Actor, quote *usecase.Quote, retryOf string) *Session {
	now := c.clock.Now()
	s := &Session{
		ID:        uuid.New().String(),
		Actor:     actor,
		Quote:     quote,
		StartedAt: now,
		Deadline:  now.Add(c.window),
		RetryOf:   retryOf,
		outcome:   OutcomePending,
		done:      make(chan struct{}),
		owner:     c,
	}

	c.mu.Lock()
	c.sessions[s.ID] = s
	c.mu.Unlock()

	// armed under the session lock so an immediate tick cannot observe a
	// session without its timer
	s.mu.Lock()
	s.timer = c.clock.AfterFunc(c.window, s.expire)
	s.mu.Unlock()

	c.logger.Info("payment session started",
		zap.String("sessionId", s.ID),
		zap.String("amount", quote.Amount.StringFixed(2)),
		zap.Time("deadline", s.Deadline),
		zap.String("retryOf", retryOf))
	return s
}

func (c *Controller) Get(id string) (*Session, error) {
	c.mu.RLock()
	s, ok := c.sessions[id]
	c.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(apperrors.ResourceSession, fmt.Sprintf("payment session %s not found", id))
	}
	return s, nil
}

// State returns the session's state as of the controller's clock.
func (c *Controller) State(id string) (State, error) {
	s, err := c.Get(id)
	if err != nil {
		return State{}, err
	}
	return s.State(c.clock.Now()), nil
}

func (c *Controller) Confirm(ctx context.Context, id, gatewayRef string) (*domain.Order, error) {
	s, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	return s.Succeed(ctx, gatewayRef)
}

func (c *Controller) Dismiss(id string) error {
	s, err := c.Get(id)
	if err != nil {
		return err
	}
	return s.Dismiss()
}

// Retry opens a new session from an expired or dismissed session's draft.
// Menu lines are priced again at current menu prices. A session is retried
// at most once: repeated calls return the same successor.
func (c *Controller) Retry(ctx context.Context, actor identity.Actor, id string) (*Session, error) {
	prev, err := c.Get(id)
	if err != nil {
		return nil, err
	}

	if !actor.IsStaff() && actor.ID != prev.Actor.ID {
		return nil, apperrors.NewForbiddenError("session belongs to another customer")
	}

	prev.retryMu.Lock()
	defer prev.retryMu.Unlock()

	st := prev.State(c.clock.Now())
	switch st.Outcome {
	case OutcomeExpired, OutcomeCancelled:
	default:
		return nil, fmt.Errorf("session %s is %s: %w", id, st.Outcome, apperrors.ErrSessionResolved)
	}

	if st.RetriedBy != "" {
		next, err := c.Get(st.RetriedBy)
		if err != nil {
			// successor already pruned
			return nil, fmt.Errorf("session %s was already retried as %s: %w", id, st.RetriedBy, apperrors.ErrSessionResolved)
		}
		return next, nil
	}

	quote, err := c.committer.Quote(ctx, prev.Actor, prev.Quote.Draft)
	if err != nil {
		return nil, err
	}
	next := c.open(prev.Actor, quote, prev.ID)

	prev.mu.Lock()
	prev.retriedBy = next.ID
	prev.mu.Unlock()

	return next, nil
}

// Bypass commits a draft with no payment session. It exists for
// development and only works in test mode.
func (c *Controller) Bypass(ctx context.Context, actor identity.Actor, draft domain.OrderDraft) (*domain.Order, error) {
	if !c.testMode {
		return nil, apperrors.NewForbiddenError("payment bypass is disabled")
	}

	quote, err := c.committer.Quote(ctx, actor, draft)
	if err != nil {
		return nil, err
	}
	ref := bypassRef
	quote.Draft.PaymentRef = &ref

	order, err := c.committer.CreateQuoted(ctx, actor, quote)
	if err != nil {
		return nil, err
	}

	c.logger.Warn("order committed through test-mode bypass",
		zap.Int64("orderId", order.ID),
		zap.String("orderNumber", order.OrderNumber))
	return order, nil
}

func (c *Controller) recordCritical(ctx context.Context, s *Session, critical *apperrors.CriticalReconciliationError) {
	rec := domain.Reconciliation{
		SessionID:  s.ID,
		GatewayRef: critical.GatewayRef,
		Amount:     s.Quote.Amount,
		Items:      s.Quote.Draft.Items,
		Cause:      critical.Cause.Error(),
		CreatedAt:  c.clock.Now().UTC(),
	}
	if s.Actor.ID != "" {
		id := s.Actor.ID
		rec.CustomerID = &id
	}

	fields := []zap.Field{
		zap.String("sessionId", s.ID),
		zap.String("gatewayRef", critical.GatewayRef),
		zap.String("amount", s.Quote.Amount.StringFixed(2)),
		zap.Error(critical.Cause),
	}

	id, err := c.ledger.Record(ctx, rec)
	if err != nil {
		// last copy of the facts is the log line
		items, _ := json.Marshal(rec.Items)
		c.logger.Error("CRITICAL: payment taken, order not recorded, ledger write failed",
			append(fields, zap.ByteString("items", items), zap.NamedError("ledgerError", err))...)
		return
	}

	c.logger.Error("CRITICAL: payment taken, order not recorded",
		append(fields, zap.Int64("reconciliationId", id))...)
}

// Prune forgets sessions resolved longer than the retention window ago.
func (c *Controller) Prune() int {
	cutoff := c.clock.Now().Add(-c.retention)

	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for id, s := range c.sessions {
		st := s.State(cutoff)
		if st.Outcome == OutcomePending || st.ResolvedAt.After(cutoff) {
			continue
		}
		delete(c.sessions, id)
		pruned++
	}
	return pruned
}

func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := c.Prune(); n > 0 {
				c.logger.Debug("pruned payment sessions", zap.Int("count", n))
			}
		}
	}
}
