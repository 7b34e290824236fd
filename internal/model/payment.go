package model

// InitiatePaymentRequest asks the gateway to collect a payment from a debtor's
// phone. AccountReference carries the DEBT-{id} convention when DebtID is not
// set explicitly.
type InitiatePaymentRequest struct {
	PhoneNumber      string  `json:"phone_number" validate:"required"`
	Amount           float64 `json:"amount" validate:"required,gt=0"`
	AccountReference string  `json:"account_reference"`
	DebtID           *int64  `json:"debt_id"`
}

// InitiatePaymentResponse is returned to the caller without waiting for
// settlement. DevMode marks the offline placeholder path where the gateway
// could not be reached.
type InitiatePaymentResponse struct {
	TransactionRef string `json:"transaction_ref"`
	PaymentID      string `json:"payment_id"`
	Status         string `json:"status"`
	DevMode        bool   `json:"dev_mode,omitempty"`
}

// GatewayCallback is the asynchronous settlement report posted by the gateway.
// It may arrive more than once and out of order relative to initiation.
type GatewayCallback struct {
	TransactionRef   string  `json:"transactionRef"`
	PaymentID        string  `json:"paymentId"`
	Status           string  `json:"status"`
	Amount           float64 `json:"amount"`
	PhoneNumber      string  `json:"phoneNumber"`
	AccountReference string  `json:"accountReference"`
}

// Gateway-reported settlement statuses. Anything else leaves the local
// transaction pending.
const (
	GatewayStatusCompleted = "completed"
	GatewayStatusFailed    = "failed"
)

type DevCompleteRequest struct {
	TransactionRef string `json:"transactionRef"`
	PaymentID      string `json:"paymentId"`
}
