// Package orders owns the lifecycle of message-derived external orders:
// pending purchase intents that an operator later converts into sales.
package orders

import (
	"errors"
	"time"
)

// Status enumerates the lifecycle states of an external order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave this state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the state machine permits moving from
// s to next. Completion is reachable only from pending or confirmed and
// is performed exclusively by the sale transaction engine.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCompleted || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

// ExternalOrder is a purchase intent parsed from an inbound customer
// message, awaiting operator conversion into a Sale. SaleID is set iff
// the order reached completed.
type ExternalOrder struct {
	ID            int64     `json:"id"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerName  string    `json:"customer_name,omitempty"`
	ProductID     int64     `json:"product_id"`
	Quantity      int       `json:"quantity"`
	Message       string    `json:"message,omitempty"`
	Status        Status    `json:"status"`
	SaleID        *int64    `json:"sale_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

var (
	// ErrOrderNotFound indicates an unknown external order.
	ErrOrderNotFound = errors.New("orders: order not found")
	// ErrInvalidTransition indicates a state change the lifecycle forbids.
	ErrInvalidTransition = errors.New("orders: invalid status transition")
)
