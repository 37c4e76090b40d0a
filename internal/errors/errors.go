package errors

import (
	"errors"
	"fmt"
)

// ErrSessionResolved is returned when a payment session already has a
// final outcome other than expiry.
var ErrSessionResolved = errors.New("payment session already resolved")

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Resources a NotFoundError can refer to.
const (
	ResourceOrder          = "order"
	ResourceSession        = "session"
	ResourceReconciliation = "reconciliation"
)

// NotFoundError means an identifier did not resolve to any record.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// NewNotFoundError reports a missing order.
func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Resource: ResourceOrder, Message: message}
}

func NewResourceNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if errors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

// InvalidTransitionError is returned when a status change is not legal from
// the order's current status. The order is left untouched.
type InvalidTransitionError struct {
	From  string
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot apply %q to an order in status %q", e.Event, e.From)
}

func NewInvalidTransitionError(from, event string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, Event: event}
}

func IsInvalidTransitionError(err error) (*InvalidTransitionError, bool) {
	var ite *InvalidTransitionError
	if errors.As(err, &ite) {
		return ite, true
	}
	return nil, false
}

// DuplicateError signals an identifier collision on insert. Callers retry
// with freshly generated identifiers.
type DuplicateError struct {
	Message string
	Cause   error
}

func (e *DuplicateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DuplicateError) Unwrap() error {
	return e.Cause
}

func NewDuplicateError(message string, cause error) *DuplicateError {
	return &DuplicateError{Message: message, Cause: cause}
}

func IsDuplicateError(err error) (*DuplicateError, bool) {
	var de *DuplicateError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

type PaymentSessionExpiredError struct {
	SessionID string
}

func (e *PaymentSessionExpiredError) Error() string {
	return fmt.Sprintf("payment session %s expired", e.SessionID)
}

func NewPaymentSessionExpiredError(sessionID string) *PaymentSessionExpiredError {
	return &PaymentSessionExpiredError{SessionID: sessionID}
}

func IsPaymentSessionExpiredError(err error) (*PaymentSessionExpiredError, bool) {
	var pse *PaymentSessionExpiredError
	if errors.As(err, &pse) {
		return pse, true
	}
	return nil, false
}

// CriticalReconciliationError means the payment gateway confirmed a charge
// but the order could not be persisted. It must reach an operator and is
// never retried automatically.
type CriticalReconciliationError struct {
	SessionID  string
	GatewayRef string
	Cause      error
}

func (e *CriticalReconciliationError) Error() string {
	return fmt.Sprintf("payment %s confirmed for session %s but order was not recorded: %v",
		e.GatewayRef, e.SessionID, e.Cause)
}

func (e *CriticalReconciliationError) Unwrap() error {
	return e.Cause
}

func NewCriticalReconciliationError(sessionID, gatewayRef string, cause error) *CriticalReconciliationError {
	return &CriticalReconciliationError{
		SessionID:  sessionID,
		GatewayRef: gatewayRef,
		Cause:      cause,
	}
}

func IsCriticalReconciliationError(err error) (*CriticalReconciliationError, bool) {
	var cre *CriticalReconciliationError
	if errors.As(err, &cre) {
		return cre, true
	}
	return nil, false
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

func IsForbiddenError(err error) (*ForbiddenError, bool) {
	var fe *ForbiddenError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
