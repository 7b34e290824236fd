package service

import (
	"fmt"
	"math"
	"time"

	"debttrack-api/internal/model"
)

// Evaluation is the rule engine's verdict for one entity: what to send and how
// far back to look when checking whether an equivalent notification already
// exists.
type Evaluation struct {
	Type     model.NotificationType
	Priority model.NotificationPriority
	Title    string
	Message  string

	// LookbackDays parameterizes the dedup window: 0 means "once per calendar
	// day" (since local midnight), N > 0 means "none in the last N days".
	LookbackDays int
}

// DedupSince converts the lookback into the window start used by the
// notification existence check.
func (e *Evaluation) DedupSince(now time.Time) time.Time {
	if e.LookbackDays == 0 {
		return startOfDay(now)
	}
	return now.AddDate(0, 0, -e.LookbackDays)
}

// One escalation tier per overdue band. Keeping the bands in a table keeps
// each window independently verifiable.
type overdueTier struct {
	minDays      int
	maxDays      int // inclusive; math.MaxInt32 = unbounded
	priority     model.NotificationPriority
	lookbackDays int
	immediate    bool // flags "immediate action required" in the message
}

var overdueTiers = []overdueTier{
	{minDays: 1, maxDays: 1, priority: model.PriorityMedium, lookbackDays: 0},
	{minDays: 2, maxDays: 7, priority: model.PriorityMedium, lookbackDays: 2},
	{minDays: 8, maxDays: 30, priority: model.PriorityHigh, lookbackDays: 3},
	{minDays: 31, maxDays: math.MaxInt32, priority: model.PriorityUrgent, lookbackDays: 7, immediate: true},
}

// Credit utilization tiers, highest first.
type utilizationTier struct {
	minPercent   float64
	priority     model.NotificationPriority
	lookbackDays int
}

var utilizationTiers = []utilizationTier{
	{minPercent: 90, priority: model.PriorityUrgent, lookbackDays: 0},
	{minPercent: 80, priority: model.PriorityHigh, lookbackDays: 2},
	{minPercent: 70, priority: model.PriorityMedium, lookbackDays: 3},
}

// EvaluateDebt decides whether a debt warrants an alert at the given instant.
// Returns nil when nothing should be sent. Pure: no I/O, no clock access.
func EvaluateDebt(debt *model.Debt, now time.Time) *Evaluation {
	if debt.Status != model.DebtStatusActive || debt.DueDate == nil {
		return nil
	}

	daysOverdue := daysBetween(*debt.DueDate, now)

	switch daysOverdue {
	case 0:
		return &Evaluation{
			Type:         model.NotificationTypePaymentDue,
			Priority:     model.PriorityHigh,
			Title:        "Payment due today",
			Message:      fmt.Sprintf("Payment of %.2f from %s is due today.", debt.Amount, debt.DebtorName),
			LookbackDays: 0,
		}
	case -1:
		return &Evaluation{
			Type:         model.NotificationTypePaymentDue,
			Priority:     model.PriorityMedium,
			Title:        "Payment due tomorrow",
			Message:      fmt.Sprintf("Payment of %.2f from %s is due tomorrow.", debt.Amount, debt.DebtorName),
			LookbackDays: 0,
		}
	}

	if daysOverdue < 1 {
		return nil
	}

	for _, tier := range overdueTiers {
		if daysOverdue < tier.minDays || daysOverdue > tier.maxDays {
			continue
		}

		msg := fmt.Sprintf("Payment of %.2f from %s is %d day(s) overdue.", debt.Amount, debt.DebtorName, daysOverdue)
		if tier.immediate {
			msg += " Immediate action required."
		}

		return &Evaluation{
			Type:         model.NotificationTypePaymentOverdue,
			Priority:     tier.priority,
			Title:        "Payment overdue",
			Message:      msg,
			LookbackDays: tier.lookbackDays,
		}
	}

	return nil
}

// EvaluateCredit decides whether a credit line's utilization warrants an
// alert. Returns nil for credits without a positive limit or below 70%.
func EvaluateCredit(credit *model.Credit, now time.Time) *Evaluation {
	if credit.Status != model.CreditStatusActive {
		return nil
	}

	utilization := credit.Utilization()
	if utilization <= 0 {
		return nil
	}

	for _, tier := range utilizationTiers {
		if utilization < tier.minPercent {
			continue
		}

		return &Evaluation{
			Type:     model.NotificationTypeCreditLimit,
			Priority: tier.priority,
			Title:    "Credit limit warning",
			Message: fmt.Sprintf("Credit with %s is at %.0f%% of its limit (%.2f of %.2f).",
				credit.CreditorName, utilization, credit.Amount, *credit.CreditLimit),
			LookbackDays: tier.lookbackDays,
		}
	}

	return nil
}

// daysBetween returns the whole calendar days from due until now; negative
// when the due date is still ahead. The dates are compared in UTC so that a
// 23- or 25-hour day around a DST change still counts as one day.
func daysBetween(due, now time.Time) int {
	return int(dateOnly(now).Sub(dateOnly(due)).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
