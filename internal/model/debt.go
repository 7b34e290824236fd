package model

import (
	"time"
)

type DebtStatus string

const (
	DebtStatusActive    DebtStatus = "active"    // money is still owed
	DebtStatusPaid      DebtStatus = "paid"      // cumulative payments covered the amount
	DebtStatusCancelled DebtStatus = "cancelled" // written off by the owner
)

// Debt is money owed to the user by a debtor. Amount is fixed at creation;
// payments are recorded as transactions against the debt, never by mutating Amount.
type Debt struct {
	ID           int64      `json:"id" db:"id"`
	UserID       int64      `json:"user_id" db:"user_id"`
	DebtorName   string     `json:"debtor_name" db:"debtor_name"`
	DebtorPhone  string     `json:"debtor_phone" db:"debtor_phone"`
	Amount       float64    `json:"amount" db:"amount"`
	DueDate      *time.Time `json:"due_date" db:"due_date"`
	Status       DebtStatus `json:"status" db:"status"`
	Category     string     `json:"category" db:"category"`
	InterestRate float64    `json:"interest_rate" db:"interest_rate"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateDebtRequest struct {
	DebtorName   string     `json:"debtor_name" validate:"required,min=2,max=100"`
	DebtorPhone  string     `json:"debtor_phone" validate:"required"`
	Amount       float64    `json:"amount" validate:"required,gt=0"`
	DueDate      *time.Time `json:"due_date"`
	Category     string     `json:"category"`
	InterestRate float64    `json:"interest_rate" validate:"gte=0"`
}

type UpdateDebtStatusRequest struct {
	Status DebtStatus `json:"status" validate:"required,oneof=paid cancelled"`
}
