package dto

import "time"

type ReconciliationDTO struct {
	ID         int64         `json:"id"`
	SessionID  string        `json:"sessionId"`
	GatewayRef string        `json:"gatewayRef"`
	Amount     float64       `json:"amount"`
	CustomerID *string       `json:"customerId"`
	Items      []LineItemDTO `json:"items"`
	Cause      string        `json:"cause"`
	CreatedAt  time.Time     `json:"createdAt"`
	ResolvedAt *time.Time    `json:"resolvedAt"`
}

type ReconciliationsResponse struct {
	TraceID         string              `json:"traceId"`
	Reconciliations []ReconciliationDTO `json:"reconciliations"`
}

type ReconciliationResponse struct {
	TraceID        string            `json:"traceId"`
	Reconciliation ReconciliationDTO `json:"reconciliation"`
}
