package model

import (
	"time"
)

type CreditStatus string

const (
	CreditStatusActive   CreditStatus = "active"
	CreditStatusInactive CreditStatus = "inactive"
	CreditStatusClosed   CreditStatus = "closed"
)

// Credit is a line the user owes against (supplier credit, shop credit).
// Amount is the drawn-down balance; CreditLimit is optional.
type Credit struct {
	ID           int64        `json:"id" db:"id"`
	UserID       int64        `json:"user_id" db:"user_id"`
	CreditorName string       `json:"creditor_name" db:"creditor_name"`
	Amount       float64      `json:"amount" db:"amount"`
	CreditLimit  *float64     `json:"credit_limit" db:"credit_limit"`
	Category     string       `json:"category" db:"category"`
	Status       CreditStatus `json:"status" db:"status"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// Utilization returns the used share of the limit in percent,
// or 0 when no positive limit is set.
func (c *Credit) Utilization() float64 {
	if c.CreditLimit == nil || *c.CreditLimit <= 0 {
		return 0
	}
	return c.Amount / *c.CreditLimit * 100
}

type CreateCreditRequest struct {
	CreditorName string   `json:"creditor_name" validate:"required,min=2,max=100"`
	Amount       float64  `json:"amount" validate:"gte=0"`
	CreditLimit  *float64 `json:"credit_limit" validate:"omitempty,gt=0"`
	Category     string   `json:"category"`
}

type UpdateCreditAmountRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}
