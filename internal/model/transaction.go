package model

import (
	"time"
)

type TransactionType string

const (
	TransactionTypePaymentReceived TransactionType = "payment_received" // debtor paid the user
	TransactionTypePaymentMade     TransactionType = "payment_made"     // user paid a creditor
	TransactionTypeDebtCreated     TransactionType = "debt_created"
	TransactionTypeCreditCreated   TransactionType = "credit_created"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodKCBMobile    PaymentMethod = "kcb_mobile" // via the KCB mobile-banking gateway
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// Transaction is a single money movement, optionally linked to a debt or a
// credit of the same owner. ReferenceNumber is the gateway correlation id and
// is unique per gateway attempt; a pending transaction with a given reference
// is completed at most once.
type Transaction struct {
	ID              int64             `json:"id" db:"id"`
	UserID          int64             `json:"user_id" db:"user_id"`
	DebtID          *int64            `json:"debt_id" db:"debt_id"`
	CreditID        *int64            `json:"credit_id" db:"credit_id"`
	Type            TransactionType   `json:"type" db:"type"`
	Amount          float64           `json:"amount" db:"amount"`
	PaymentMethod   PaymentMethod     `json:"payment_method" db:"payment_method"`
	Status          TransactionStatus `json:"status" db:"status"`
	ReferenceNumber string            `json:"reference_number" db:"reference_number"`
	TransactionDate time.Time         `json:"transaction_date" db:"transaction_date"`
	Description     string            `json:"description" db:"description"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}
