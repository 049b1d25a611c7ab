package model

import (
	"strings"
	"time"

	"cloudshare/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING" // order minted at the gateway, awaiting verification
	PaymentStatusSuccess PaymentStatus = "SUCCESS" // signature verified and credits granted
	PaymentStatusFailed  PaymentStatus = "FAILED"  // bad signature or unrecognized plan
	PaymentStatusError   PaymentStatus = "ERROR"   // ledger write failed during settlement
)

// Terminal reports whether no further transition is allowed from s.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusError:
		return true
	}
	return false
}

// PaymentOrder records a gateway order and its settlement outcome.
type PaymentOrder struct {
	OrderID         string // gateway order id, unique
	ClerkID         string // external identity that created the order
	PlanID          string
	Amount          int64 // minor units, as sent to the gateway
	Currency        string
	Status          PaymentStatus
	PaymentID       *string // set once verification ran
	CreditsAdded    *int    // set on SUCCESS
	TransactionDate time.Time
	UserEmail       string
	UserName        string
}

// NewPendingOrder builds a PENDING order for a freshly minted gateway order id.
func NewPendingOrder(orderID, clerkID, planID string, amount int64, currency string, profile *Profile) (*PaymentOrder, error) {
	if orderID == "" || clerkID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 || strings.TrimSpace(currency) == "" {
		return nil, domain.ErrInvalidArgument
	}
	o := &PaymentOrder{
		OrderID:         orderID,
		ClerkID:         clerkID,
		PlanID:          planID,
		Amount:          amount,
		Currency:        currency,
		Status:          PaymentStatusPending,
		TransactionDate: time.Now(),
	}
	if profile != nil {
		o.UserEmail = profile.Email
		o.UserName = profile.FullName()
	}
	return o, nil
}

// Transition describes a PENDING -> terminal status write.
type Transition struct {
	Status       PaymentStatus
	PaymentID    *string
	CreditsAdded *int
}
