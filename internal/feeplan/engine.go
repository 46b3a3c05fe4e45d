// Package feeplan decides what a student owes for a fee and which payment
// options may be offered, based on the payments already recorded.
//
// Everything here is pure: callers fetch the rows, the engine only reads them.
// Missing data (no class total, no plans) degrades to zero or empty results.
package feeplan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/schoolfees-api/internal/models"
)

// ReasonFullPaid is reported when no option is offered because the fee is settled
const ReasonFullPaid = "full_paid"

var hundred = decimal.NewFromInt(100)

// PaymentState summarizes the completed payments of one (student, fee) pair
type PaymentState struct {
	HighestCompletedInstallment int  `json:"highest_completed_installment"`
	FullyPaid                   bool `json:"fully_paid"`
}

// Option is one selectable way of paying a fee
type Option struct {
	Key           string     `json:"key"`
	Label         string     `json:"label"`
	Percentage    float64    `json:"percentage"`
	PlanID        *uint      `json:"plan_id"`
	InstallmentNo *int       `json:"installment_no"`
	DueDate       *time.Time `json:"due_date,omitempty"`
}

// Selection returns the selection that picks this option
func (o Option) Selection() Selection {
	if o.PlanID == nil {
		return FullSelection()
	}
	return InstallmentSelection(*o.PlanID)
}

// Options is the set of options that may be presented, with the reason when it is empty
type Options struct {
	Allowed []Option `json:"allowed"`
	Reason  *string  `json:"reason"`
}

// Permits returns true if the selection is one of the allowed options
func (o Options) Permits(sel Selection) bool {
	for _, opt := range o.Allowed {
		if opt.Selection() == sel {
			return true
		}
	}
	return false
}

// AnalyzePaymentState folds the payment history of a (student, fee) pair.
// Only payments with status "paid" or marked completed count.
func AnalyzePaymentState(payments []models.FeePayment) PaymentState {
	var state PaymentState
	for i := range payments {
		p := &payments[i]
		if !p.IsCountedAsCompleted() {
			continue
		}
		if p.InstallmentNo != nil && *p.InstallmentNo > state.HighestCompletedInstallment {
			state.HighestCompletedInstallment = *p.InstallmentNo
		}
		if p.IsFullPayment() || p.IsCompleted {
			state.FullyPaid = true
		}
	}
	return state
}

// AllowedPlanOptions returns the full option plus, when defined, the next
// sequential installment. Installments past the next one are never exposed.
func AllowedPlanOptions(fee models.Fee, plans []models.FeePaymentPlan, state PaymentState) Options {
	if state.FullyPaid {
		reason := ReasonFullPaid
		return Options{Allowed: []Option{}, Reason: &reason}
	}

	allowed := []Option{fullOption()}

	next := state.HighestCompletedInstallment + 1
	if plan, ok := indexInstallments(fee, plans)[next]; ok {
		allowed = append(allowed, installmentOption(plan))
	}

	return Options{Allowed: allowed}
}

// ComputeFeeForStudent returns what the selection costs out of the class total,
// rounded to 2 decimals. An unknown plan costs nothing.
func ComputeFeeForStudent(fee models.Fee, classTotal float64, plans []models.FeePaymentPlan, sel Selection) float64 {
	planID, ok := sel.PlanID()
	if !ok {
		return classTotal
	}

	for _, plan := range plans {
		if plan.ID != planID || !belongsTo(fee, plan) {
			continue
		}
		return percentOf(classTotal, plan.Percentage)
	}
	return 0
}

// ComputeBalance returns what remains of the class total after paying the amount.
// The result is not clamped; a negative balance means upstream data is inconsistent.
func ComputeBalance(classTotal, payableAmount float64) float64 {
	return decimal.NewFromFloat(classTotal).
		Sub(decimal.NewFromFloat(payableAmount)).
		Round(2).
		InexactFloat64()
}

// ClassTotalFor resolves the full amount of a fee for a class, 0 if no row exists
func ClassTotalFor(totals []models.FeeClassTotal, feeID, classID uint) float64 {
	for _, t := range totals {
		if t.FeeID == feeID && t.ClassID == classID {
			return t.TotalAmount
		}
	}
	return 0
}

// PercentageTotal sums the percentages of the installment plans
func PercentageTotal(plans []models.FeePaymentPlan) float64 {
	total := decimal.Zero
	for _, plan := range plans {
		if plan.PlanType == models.PlanTypeMicroPayments {
			continue
		}
		total = total.Add(decimal.NewFromFloat(plan.Percentage))
	}
	return total.Round(2).InexactFloat64()
}

// SumsToHundred reports whether the installment plans cover the whole fee.
// An empty plan set is considered complete (full payment only).
func SumsToHundred(plans []models.FeePaymentPlan) bool {
	installments := 0
	for _, plan := range plans {
		if plan.PlanType != models.PlanTypeMicroPayments {
			installments++
		}
	}
	return installments == 0 || PercentageTotal(plans) == 100
}

// LastInstallmentNo returns the highest installment number defined for the fee
func LastInstallmentNo(fee models.Fee, plans []models.FeePaymentPlan) int {
	last := 0
	for n := range indexInstallments(fee, plans) {
		if n > last {
			last = n
		}
	}
	return last
}

func percentOf(total, percentage float64) float64 {
	return decimal.NewFromFloat(total).
		Mul(decimal.NewFromFloat(percentage)).
		Div(hundred).
		Round(2).
		InexactFloat64()
}

// indexInstallments keys the installment plans of the fee by installment number.
// Micro-payment plans are ignored; the first plan wins on duplicate numbers.
func indexInstallments(fee models.Fee, plans []models.FeePaymentPlan) map[int]models.FeePaymentPlan {
	index := make(map[int]models.FeePaymentPlan, len(plans))
	for _, plan := range plans {
		if plan.PlanType == models.PlanTypeMicroPayments || !belongsTo(fee, plan) {
			continue
		}
		if _, exists := index[plan.InstallmentNo]; !exists {
			index[plan.InstallmentNo] = plan
		}
	}
	return index
}

// belongsTo ignores plans of other fees; a zero fee id accepts every plan
func belongsTo(fee models.Fee, plan models.FeePaymentPlan) bool {
	return fee.ID == 0 || plan.FeeID == 0 || plan.FeeID == fee.ID
}

func fullOption() Option {
	return Option{
		Key:        SelectionFullKey,
		Label:      "Full payment (100%)",
		Percentage: 100,
	}
}

func installmentOption(plan models.FeePaymentPlan) Option {
	id := plan.ID
	n := plan.InstallmentNo
	return Option{
		Key:           InstallmentSelection(id).Key(),
		Label:         fmt.Sprintf("Installment %d (%s%%)", n, decimal.NewFromFloat(plan.Percentage).String()),
		Percentage:    plan.Percentage,
		PlanID:        &id,
		InstallmentNo: &n,
		DueDate:       plan.DueDate,
	}
}
