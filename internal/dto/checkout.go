package dto

import "time"

type ConfirmCheckoutRequest struct {
	TransactionRef string `json:"transactionRef"`
}

type SessionDTO struct {
	SessionID        string     `json:"sessionId"`
	Outcome          string     `json:"outcome"`
	Subtotal         float64    `json:"subtotal"`
	Tax              float64    `json:"tax"`
	Amount           float64    `json:"amount"`
	StartedAt        time.Time  `json:"startedAt"`
	Deadline         time.Time  `json:"deadline"`
	RemainingSeconds int        `json:"remainingSeconds"`
	RetryOf          string     `json:"retryOf,omitempty"`
	RetriedBy        string     `json:"retriedBy,omitempty"`
	TransactionRef   string     `json:"transactionRef,omitempty"`
	Order            *OrderDTO  `json:"order,omitempty"`
	ResolvedAt       *time.Time `json:"resolvedAt,omitempty"`
	// Critical is set when payment was taken but the order was not stored.
	Critical bool `json:"critical,omitempty"`
}

type SessionResponse struct {
	TraceID string     `json:"traceId"`
	Session SessionDTO `json:"session"`
}
