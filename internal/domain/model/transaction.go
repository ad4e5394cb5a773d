package model

import (
	"fmt"
	"time"

	"masterclass-reconciler/internal/domain"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending" // order created, awaiting confirmation
	TransactionStatusSuccess TransactionStatus = "success" // verified and access granted
	TransactionStatusFailed  TransactionStatus = "failed"  // bad signature, cancelled, or gateway error
)

type PaymentMethod string

const (
	PaymentMethodGateway  PaymentMethod = "gateway"
	PaymentMethodTestMode PaymentMethod = "test-mode"
	PaymentMethodFree     PaymentMethod = "free"
)

type TransactionKind string

const (
	TransactionKindPurchase     TransactionKind = "purchase"
	TransactionKindRegistration TransactionKind = "upcoming_registration"
	TransactionKindItemPurchase TransactionKind = "item_purchase"
)

// Transaction is one attempted or completed payment inside a user's ledger.
// OrderID is the idempotency key; Method never changes after the first write.
type Transaction struct {
	OrderID          string            `json:"order_id"`
	PaymentID        string            `json:"payment_id,omitempty"`
	ResourceID       string            `json:"resource_id"`
	SubResourceID    string            `json:"sub_resource_id,omitempty"`
	ResourceTitle    string            `json:"resource_title,omitempty"`
	SubResourceTitle string            `json:"sub_resource_title,omitempty"`
	Kind             TransactionKind   `json:"kind,omitempty"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency,omitempty"`
	Status           TransactionStatus `json:"status"`
	Method           PaymentMethod     `json:"method"`
	FailureReason    string            `json:"failure_reason,omitempty"`
	ErrorCode        string            `json:"error_code,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	FailedAt         *time.Time        `json:"failed_at,omitempty"`
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusSuccess, TransactionStatusFailed:
		return true
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodGateway, PaymentMethodTestMode, PaymentMethodFree:
		return true
	}
	return false
}

// Validate checks the fields every stored transaction must carry.
func (t *Transaction) Validate() error {
	if t.OrderID == "" {
		return fmt.Errorf("%w: order_id is required", domain.ErrInvalidArgument)
	}
	if t.ResourceID == "" {
		return fmt.Errorf("%w: resource_id is required", domain.ErrInvalidArgument)
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", domain.ErrInvalidArgument)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, t.Status)
	}
	if !t.Method.Valid() {
		return fmt.Errorf("%w: unknown method %q", domain.ErrInvalidArgument, t.Method)
	}
	return nil
}
