package feeplan

import (
	"github.com/sjperalta/schoolfees-api/internal/models"
)

// Quote is the monetary breakdown of one selection for a (student, fee) pair
type Quote struct {
	FeeID      uint         `json:"fee_id"`
	FeeName    string       `json:"fee_name"`
	StudentID  uint         `json:"student_id"`
	ClassID    uint         `json:"class_id"`
	State      PaymentState `json:"state"`
	Options    Options      `json:"options"`
	Selection  string       `json:"selection"`
	Selectable bool         `json:"selectable"`
	ClassTotal float64      `json:"class_total"`
	Payable    float64      `json:"payable"`
	Balance    float64      `json:"balance"`
}

// Inputs are the rows a quote is computed from
type Inputs struct {
	Fee         models.Fee
	Student     models.Student
	ClassTotals []models.FeeClassTotal
	Plans       []models.FeePaymentPlan
	Payments    []models.FeePayment
}

// BuildQuote runs the engine over the inputs for one selection.
// A settled fee quotes nothing payable and no balance.
func BuildQuote(in Inputs, sel Selection) Quote {
	state := AnalyzePaymentState(in.Payments)
	options := AllowedPlanOptions(in.Fee, in.Plans, state)
	classTotal := ClassTotalFor(in.ClassTotals, in.Fee.ID, in.Student.ClassID)

	q := Quote{
		FeeID:      in.Fee.ID,
		FeeName:    in.Fee.Name,
		StudentID:  in.Student.ID,
		ClassID:    in.Student.ClassID,
		State:      state,
		Options:    options,
		Selection:  sel.Key(),
		Selectable: options.Permits(sel),
		ClassTotal: classTotal,
	}
	if state.FullyPaid {
		return q
	}

	q.Payable = ComputeFeeForStudent(in.Fee, classTotal, in.Plans, sel)
	q.Balance = ComputeBalance(classTotal, q.Payable)
	return q
}
