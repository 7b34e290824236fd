package model

// PortfolioSummary - aggregate view over a user's debts and credits
type PortfolioSummary struct {
	ActiveDebts       int     `json:"active_debts"`
	OverdueDebts      int     `json:"overdue_debts"`
	TotalOutstanding  float64 `json:"total_outstanding"`
	TotalCollected    float64 `json:"total_collected"`
	ActiveCredits     int     `json:"active_credits"`
	TotalCreditUsed   float64 `json:"total_credit_used"`
	TotalCreditLimit  float64 `json:"total_credit_limit"`
	CreditUtilization float64 `json:"credit_utilization"`
}
