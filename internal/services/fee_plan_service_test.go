package services

import (
	"context"
	"testing"

	"github.com/sjperalta/schoolfees-api/internal/feeplan"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeePlanService_Quote(t *testing.T) {
	f := newFixture()
	f.payments.seed(models.FeePayment{FeeID: 1, StudentID: 3, PlanID: uintPtr(11), InstallmentNo: intPtr(1), Status: models.FeePaymentStatusPaid, Reference: "r1"})

	quote, err := f.planService().Quote(context.Background(), guardian, 3, 1, feeplan.InstallmentSelection(12))
	require.NoError(t, err)

	assert.Equal(t, 9000.0, quote.ClassTotal)
	assert.Equal(t, 2700.0, quote.Payable)
	assert.Equal(t, 6300.0, quote.Balance)
	require.Len(t, quote.Options.Allowed, 2)
	assert.Equal(t, feeplan.SelectionFullKey, quote.Options.Allowed[0].Key)
	assert.Equal(t, "12", quote.Options.Allowed[1].Key)
}

func TestFeePlanService_QuoteAccess(t *testing.T) {
	f := newFixture()
	svc := f.planService()

	_, err := svc.Quote(context.Background(), stranger, 3, 1, feeplan.FullSelection())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Quote(context.Background(), Actor{Subject: "t-1", Role: models.RoleTeacher}, 3, 1, feeplan.FullSelection())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Quote(context.Background(), proprietor, 3, 1, feeplan.FullSelection())
	assert.NoError(t, err)

	_, err = svc.Quote(context.Background(), guardian, 3, 404, feeplan.FullSelection())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFeePlanService_Overview(t *testing.T) {
	f := newFixture()
	f.fees.fees[5] = models.Fee{ID: 5, SchoolID: 1, Name: "Bus"}
	f.totals.totals = append(f.totals.totals, models.FeeClassTotal{FeeID: 5, ClassID: 7, TotalAmount: 1500})
	f.payments.seed(models.FeePayment{FeeID: 5, StudentID: 3, Status: models.FeePaymentStatusPaid, IsCompleted: true, Reference: "bus"})

	quotes, err := f.planService().Overview(context.Background(), guardian, 3, []uint{1, 2, 5})
	require.NoError(t, err)
	require.Len(t, quotes, 2, "fees of other schools are skipped")

	assert.Equal(t, uint(1), quotes[0].FeeID)
	assert.Equal(t, 9000.0, quotes[0].Payable)
	assert.Len(t, quotes[0].Options.Allowed, 2)

	assert.Equal(t, uint(5), quotes[1].FeeID)
	assert.True(t, quotes[1].State.FullyPaid)
	require.NotNil(t, quotes[1].Options.Reason)
	assert.Equal(t, feeplan.ReasonFullPaid, *quotes[1].Options.Reason)

	all, err := f.planService().Overview(context.Background(), guardian, 3, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2, "no ids means every fee of the student's school")
}
