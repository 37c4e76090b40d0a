package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"canteen/internal/domain"
	apperrors "canteen/internal/errors"
	"canteen/internal/identity"
	"canteen/internal/order/usecase"
)

type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeExpired   Outcome = "expired"
)

const commitTimeout = 15 * time.Second

// Session is one checkout attempt. Its outcome is written exactly once, by
// whichever of success, dismissal or the deadline tick takes the lock
// first.
type Session struct {
	ID        string
	Actor     identity.Actor
	Quote     *usecase.Quote
	StartedAt time.Time
	Deadline  time.Time
	// RetryOf is the session this one was restarted from, if any.
	RetryOf string

	// retryMu serializes Retry calls so a session has at most one successor.
	retryMu   sync.Mutex
	retriedBy string

	mu         sync.Mutex
	outcome    Outcome
	resolvedAt time.Time
	gatewayRef string
	order      *domain.Order
	failure    error
	timer      Timer
	done       chan struct{}

	owner *Controller
}

// State is a consistent copy of a session at one instant.
type State struct {
	ID         string
	Outcome    Outcome
	Quote      *usecase.Quote
	StartedAt  time.Time
	Deadline   time.Time
	Remaining  time.Duration
	ResolvedAt time.Time
	GatewayRef string
	Order      *domain.Order
	Failure    error
	RetryOf    string
	RetriedBy  string
}

// Done is closed once the outcome is final and, on success, the commit
// attempt has finished.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Session) State(now time.Time) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := time.Duration(0)
	if s.outcome == OutcomePending && now.Before(s.Deadline) {
		remaining = s.Deadline.Sub(now)
	}

	return State{
		ID:         s.ID,
		Outcome:    s.outcome,
		Quote:      s.Quote,
		StartedAt:  s.StartedAt,
		Deadline:   s.Deadline,
		Remaining:  remaining,
		ResolvedAt: s.resolvedAt,
		GatewayRef: s.gatewayRef,
		Order:      s.order,
		Failure:    s.failure,
		RetryOf:    s.RetryOf,
		RetriedBy:  s.retriedBy,
	}
}

// resolveLocked claims the outcome. Callers hold s.mu.
func (s *Session) resolveLocked(outcome Outcome) error {
	switch s.outcome {
	case OutcomePending:
	case OutcomeExpired:
		return apperrors.NewPaymentSessionExpiredError(s.ID)
	default:
		return fmt.Errorf("session %s is %s: %w", s.ID, s.outcome, apperrors.ErrSessionResolved)
	}

	s.outcome = outcome
	s.resolvedAt = s.owner.clock.Now()
	if s.timer != nil {
		s.timer.Stop()
	}
	return nil
}

// Succeed handles the gateway success callback. The order is committed
// through the gateway with the quoted amount. A failed commit is a
// critical reconciliation: it is recorded, never retried.
func (s *Session) Succeed(ctx context.Context, gatewayRef string) (*domain.Order, error) {
	s.mu.Lock()
	if err := s.resolveLocked(OutcomeSucceeded); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.gatewayRef = gatewayRef
	s.mu.Unlock()

	defer close(s.done)

	// the charge already happened; the caller going away must not abort
	// the commit
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	quote := *s.Quote
	quote.Draft.PaymentRef = &gatewayRef

	order, err := s.owner.committer.CreateQuoted(commitCtx, s.Actor, &quote)
	if err != nil {
		critical := apperrors.NewCriticalReconciliationError(s.ID, gatewayRef, err)
		s.owner.recordCritical(commitCtx, s, critical)

		s.mu.Lock()
		s.failure = critical
		s.mu.Unlock()
		return nil, critical
	}

	s.mu.Lock()
	s.order = order
	s.mu.Unlock()

	s.owner.logger.Info("payment session succeeded",
		zap.String("sessionId", s.ID),
		zap.Int64("orderId", order.ID),
		zap.String("orderNumber", order.OrderNumber))
	return order, nil
}

// Dismiss handles the user closing the payment flow. Dismissing twice is a
// no-op.
func (s *Session) Dismiss() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome == OutcomeCancelled {
		return nil
	}
	if err := s.resolveLocked(OutcomeCancelled); err != nil {
		return err
	}
	close(s.done)

	s.owner.logger.Info("payment session dismissed", zap.String("sessionId", s.ID))
	return nil
}

// expire is the deadline callback. It acts only if nothing else resolved
// the session first.
func (s *Session) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome != OutcomePending {
		return
	}
	s.outcome = OutcomeExpired
	s.resolvedAt = s.owner.clock.Now()
	close(s.done)

	s.owner.logger.Warn("payment session expired",
		zap.String("sessionId", s.ID),
		zap.Time("deadline", s.Deadline),
		zap.String("amount", s.Quote.Amount.StringFixed(2)))
}
