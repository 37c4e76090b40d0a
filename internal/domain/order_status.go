package domain

import (
	apperrors "canteen/internal/errors"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var AllStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

type OrderEvent string

const (
	EventCommit    OrderEvent = "commit"
	EventMarkReady OrderEvent = "mark_ready"
	EventComplete  OrderEvent = "complete"
	EventCancel    OrderEvent = "cancel"
)

// transitions is the complete table of legal moves. Anything absent is
// rejected.
var transitions = map[OrderStatus]map[OrderEvent]OrderStatus{
	OrderStatusPending: {
		EventCommit: OrderStatusPreparing,
		EventCancel: OrderStatusCancelled,
	},
	OrderStatusPreparing: {
		EventMarkReady: OrderStatusReady,
		EventCancel:    OrderStatusCancelled,
	},
	OrderStatusReady: {
		EventComplete: OrderStatusCompleted,
	},
}

var eventTargets = map[OrderEvent]OrderStatus{
	EventCommit:    OrderStatusPreparing,
	EventMarkReady: OrderStatusReady,
	EventComplete:  OrderStatusCompleted,
	EventCancel:    OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Progress is the display percentage for a status. It is always derived and
// must not be stored.
func (s OrderStatus) Progress() int {
	switch s {
	case OrderStatusPreparing:
		return 33
	case OrderStatusReady:
		return 66
	case OrderStatusCompleted:
		return 100
	}
	return 0
}

func (e OrderEvent) Valid() bool {
	_, ok := eventTargets[e]
	return ok
}

// Target is the status an event leads to.
func (e OrderEvent) Target() OrderStatus {
	return eventTargets[e]
}

// Apply returns the status reached by applying event to s. changed is false
// when the order is already in the event's target status; re-issuing a
// transition is a successful no-op so clients can retry after a network
// failure.
func (s OrderStatus) Apply(event OrderEvent) (next OrderStatus, changed bool, err error) {
	target, ok := eventTargets[event]
	if !ok {
		return s, false, apperrors.NewInvalidTransitionError(string(s), string(event))
	}
	if s == target {
		return s, false, nil
	}
	next, ok = transitions[s][event]
	if !ok {
		return s, false, apperrors.NewInvalidTransitionError(string(s), string(event))
	}
	return next, true, nil
}

// EventForStatus maps a requested target status (as sent in a PATCH body) to
// the event that reaches it.
func EventForStatus(target OrderStatus) (OrderEvent, bool) {
	for event, status := range eventTargets {
		if status == target {
			return event, true
		}
	}
	return "", false
}
