package service

import (
	"strings"
	"testing"
	"time"

	"debttrack-api/internal/model"
)

func activeDebtDue(due time.Time) *model.Debt {
	return &model.Debt{
		ID:         1,
		UserID:     1,
		DebtorName: "John Kamau",
		Amount:     5000,
		DueDate:    &due,
		Status:     model.DebtStatusActive,
	}
}

func TestEvaluateDebtWindows(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		daysOverdue  int // due date offset: positive means overdue
		wantNil      bool
		wantType     model.NotificationType
		wantPriority model.NotificationPriority
		wantLookback int
	}{
		{name: "due in three days", daysOverdue: -3, wantNil: true},
		{name: "due tomorrow", daysOverdue: -1, wantType: model.NotificationTypePaymentDue, wantPriority: model.PriorityMedium, wantLookback: 0},
		{name: "due today", daysOverdue: 0, wantType: model.NotificationTypePaymentDue, wantPriority: model.PriorityHigh, wantLookback: 0},
		{name: "one day overdue", daysOverdue: 1, wantType: model.NotificationTypePaymentOverdue, wantPriority: model.PriorityMedium, wantLookback: 0},
		{name: "two days overdue", daysOverdue: 2, wantType: model.NotificationTypePaymentOverdue, wantPriority: model.PriorityMedium, wantLookback: 2},
		{name: "seven days overdue", daysOverdue: 7, wantType: model.NotificationTypePaymentOverdue, wantPriority: model.PriorityMedium, wantLookback: 2},
		{name: "eight days overdue", daysOverdue: 8, wantType: model.NotificationTypePaymentOverdue, wantPriority: model.PriorityHigh, wantLookback: 3},
		{name: "thirty days overdue", daysOverdue: 30, wantType: model.NotificationTypePaymentOverdue, wantPriority: model.PriorityHigh, wantLookback: 3},
		{name: "thirty one days overdue", daysOverdue: 31, wantType: model.NotificationTypePaymentOverdue, wantPriority: model.PriorityUrgent, wantLookback: 7},
		{name: "ninety days overdue", daysOverdue: 90, wantType: model.NotificationTypePaymentOverdue, wantPriority: model.PriorityUrgent, wantLookback: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debt := activeDebtDue(now.AddDate(0, 0, -tt.daysOverdue))
			eval := EvaluateDebt(debt, now)

			if tt.wantNil {
				if eval != nil {
					t.Fatalf("expected no evaluation, got %+v", eval)
				}
				return
			}
			if eval == nil {
				t.Fatal("expected an evaluation, got nil")
			}
			if eval.Type != tt.wantType {
				t.Errorf("type = %s, want %s", eval.Type, tt.wantType)
			}
			if eval.Priority != tt.wantPriority {
				t.Errorf("priority = %s, want %s", eval.Priority, tt.wantPriority)
			}
			if eval.LookbackDays != tt.wantLookback {
				t.Errorf("lookback = %d, want %d", eval.LookbackDays, tt.wantLookback)
			}
		})
	}
}

func TestEvaluateDebtSeverityNeverDecreases(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	prev := -1
	for days := 1; days <= 60; days++ {
		debt := activeDebtDue(now.AddDate(0, 0, -days))
		eval := EvaluateDebt(debt, now)
		if eval == nil {
			t.Fatalf("day %d: expected an evaluation", days)
		}
		rank := model.PriorityRank(eval.Priority)
		if rank < prev {
			t.Fatalf("day %d: priority %s ranks below the previous day's", days, eval.Priority)
		}
		prev = rank
	}
}

func TestEvaluateDebtUrgentMessageDemandsAction(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	eval := EvaluateDebt(activeDebtDue(now.AddDate(0, 0, -45)), now)
	if eval == nil {
		t.Fatal("expected an evaluation")
	}
	if !strings.Contains(eval.Message, "Immediate action required.") {
		t.Errorf("urgent message %q lacks the action demand", eval.Message)
	}

	eval = EvaluateDebt(activeDebtDue(now.AddDate(0, 0, -5)), now)
	if eval == nil {
		t.Fatal("expected an evaluation")
	}
	if strings.Contains(eval.Message, "Immediate action required.") {
		t.Errorf("medium message %q should not demand immediate action", eval.Message)
	}
}

func TestEvaluateDebtSkipsNonCandidates(t *testing.T) {
	now := time.Now()
	due := now.AddDate(0, 0, -10)

	paid := activeDebtDue(due)
	paid.Status = model.DebtStatusPaid
	if eval := EvaluateDebt(paid, now); eval != nil {
		t.Errorf("paid debt evaluated to %+v", eval)
	}

	cancelled := activeDebtDue(due)
	cancelled.Status = model.DebtStatusCancelled
	if eval := EvaluateDebt(cancelled, now); eval != nil {
		t.Errorf("cancelled debt evaluated to %+v", eval)
	}

	noDue := activeDebtDue(due)
	noDue.DueDate = nil
	if eval := EvaluateDebt(noDue, now); eval != nil {
		t.Errorf("debt without due date evaluated to %+v", eval)
	}
}

func TestEvaluateCreditUtilizationTiers(t *testing.T) {
	now := time.Now()
	limit := 10000.0

	tests := []struct {
		name         string
		amount       float64
		wantNil      bool
		wantPriority model.NotificationPriority
		wantLookback int
	}{
		{name: "below warning threshold", amount: 6999, wantNil: true},
		{name: "at seventy percent", amount: 7000, wantPriority: model.PriorityMedium, wantLookback: 3},
		{name: "just below eighty", amount: 7999, wantPriority: model.PriorityMedium, wantLookback: 3},
		{name: "at eighty percent", amount: 8000, wantPriority: model.PriorityHigh, wantLookback: 2},
		{name: "just below ninety", amount: 8999, wantPriority: model.PriorityHigh, wantLookback: 2},
		{name: "at ninety percent", amount: 9000, wantPriority: model.PriorityUrgent, wantLookback: 0},
		{name: "over the limit", amount: 11000, wantPriority: model.PriorityUrgent, wantLookback: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			credit := &model.Credit{
				ID:           1,
				UserID:       1,
				CreditorName: "Mama Njeri Supplies",
				Amount:       tt.amount,
				CreditLimit:  &limit,
				Status:       model.CreditStatusActive,
			}
			eval := EvaluateCredit(credit, now)

			if tt.wantNil {
				if eval != nil {
					t.Fatalf("expected no evaluation, got %+v", eval)
				}
				return
			}
			if eval == nil {
				t.Fatal("expected an evaluation, got nil")
			}
			if eval.Type != model.NotificationTypeCreditLimit {
				t.Errorf("type = %s, want %s", eval.Type, model.NotificationTypeCreditLimit)
			}
			if eval.Priority != tt.wantPriority {
				t.Errorf("priority = %s, want %s", eval.Priority, tt.wantPriority)
			}
			if eval.LookbackDays != tt.wantLookback {
				t.Errorf("lookback = %d, want %d", eval.LookbackDays, tt.wantLookback)
			}
		})
	}
}

func TestEvaluateCreditSkipsNonCandidates(t *testing.T) {
	now := time.Now()
	limit := 10000.0

	noLimit := &model.Credit{ID: 1, UserID: 1, Amount: 9000, Status: model.CreditStatusActive}
	if eval := EvaluateCredit(noLimit, now); eval != nil {
		t.Errorf("credit without limit evaluated to %+v", eval)
	}

	inactive := &model.Credit{ID: 2, UserID: 1, Amount: 9000, CreditLimit: &limit, Status: model.CreditStatusClosed}
	if eval := EvaluateCredit(inactive, now); eval != nil {
		t.Errorf("closed credit evaluated to %+v", eval)
	}
}

func TestDedupSince(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 45, 12, 0, time.UTC)

	daily := &Evaluation{LookbackDays: 0}
	if got, want := daily.DedupSince(now), time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("daily window start = %v, want %v", got, want)
	}

	windowed := &Evaluation{LookbackDays: 3}
	if got, want := windowed.DedupSince(now), now.AddDate(0, 0, -3); !got.Equal(want) {
		t.Errorf("three day window start = %v, want %v", got, want)
	}
}

func TestDaysBetweenCountsCalendarDays(t *testing.T) {
	// Due just before midnight, checked just after: one calendar day apart
	// even though less than an hour passed.
	due := time.Date(2026, 3, 14, 23, 50, 0, 0, time.UTC)
	now := time.Date(2026, 3, 15, 0, 10, 0, 0, time.UTC)

	if got := daysBetween(due, now); got != 1 {
		t.Errorf("daysBetween = %d, want 1", got)
	}
	if got := daysBetween(now, due); got != -1 {
		t.Errorf("reversed daysBetween = %d, want -1", got)
	}
	if got := daysBetween(now, now); got != 0 {
		t.Errorf("same day daysBetween = %d, want 0", got)
	}
}

func TestDaysBetweenAcrossClockChange(t *testing.T) {
	// Spring-forward: the day between these instants is only 23 wall-clock
	// hours long, but it is still one calendar day.
	due := time.Date(2026, 3, 7, 22, 0, 0, 0, time.FixedZone("EST", -5*3600))
	now := time.Date(2026, 3, 8, 22, 30, 0, 0, time.FixedZone("EDT", -4*3600))

	if got := daysBetween(due, now); got != 1 {
		t.Errorf("daysBetween across spring-forward = %d, want 1", got)
	}

	// Fall-back: a 25-hour day is also one calendar day.
	due = time.Date(2026, 10, 31, 22, 0, 0, 0, time.FixedZone("EDT", -4*3600))
	now = time.Date(2026, 11, 1, 22, 30, 0, 0, time.FixedZone("EST", -5*3600))

	if got := daysBetween(due, now); got != 1 {
		t.Errorf("daysBetween across fall-back = %d, want 1", got)
	}
}
