package services

import (
	"context"
	"testing"

	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) feeService() *FeeService {
	return NewFeeService(f.fees, f.payments, f.schools, f.students, NewAuditService(nil, nil), NewNotificationService(f.notifications), nil)
}

func validFeeInput() FeeInput {
	return FeeInput{
		SchoolID: 1,
		Name:     " Second Term Tuition ",
		Session:  "2025/2026",
		Term:     "Second",
		Services: []FeeServiceInput{
			{ClassID: 7, Name: "Tuition", Amount: 8000},
			{ClassID: 7, Name: "Books", Amount: 1000.5},
			{ClassID: 8, Name: "Tuition", Amount: 9500},
		},
		Plans: []FeePlanInput{
			{InstallmentNo: 2, Percentage: 30},
			{InstallmentNo: 1, Percentage: 40},
			{InstallmentNo: 3, Percentage: 30},
		},
	}
}

func TestFeeService_CreateDerivesClassTotals(t *testing.T) {
	f := newFixture()

	res, err := f.feeService().Create(context.Background(), proprietor, validFeeInput())
	require.NoError(t, err)

	assert.Equal(t, "Second Term Tuition", res.Fee.Name)
	assert.Equal(t, []models.FeeClassTotal{
		{FeeID: res.Fee.ID, ClassID: 7, TotalAmount: 9000.5},
		{FeeID: res.Fee.ID, ClassID: 8, TotalAmount: 9500},
	}, res.Fee.ClassTotals)

	require.Len(t, res.Fee.Plans, 3)
	assert.Equal(t, 1, res.Fee.Plans[0].InstallmentNo, "plans are ordered by installment")
	assert.Equal(t, models.PlanTypeInstallment, res.Fee.Plans[0].PlanType)
	assert.Equal(t, 100.0, res.PercentageTotal)
	assert.True(t, res.PercentageComplete)
	assert.Empty(t, res.Warnings)
}

func TestFeeService_CreateNotifiesGuardiansOnce(t *testing.T) {
	f := newFixture()
	f.students.students[4] = models.Student{ID: 4, SchoolID: 1, ClassID: 8, StudentName: "Bola Obi", GuardianID: guardianSubject}
	f.students.students[5] = models.Student{ID: 5, SchoolID: 1, ClassID: 8, StudentName: "Zed Musa"}

	_, err := f.feeService().Create(context.Background(), proprietor, validFeeInput())
	require.NoError(t, err)

	require.Len(t, f.notifications.created, 1, "one notice per guardian across classes")
	notice := f.notifications.created[0]
	assert.Equal(t, guardianSubject, notice.Recipient)
	assert.Equal(t, models.NotificationTypeFeePublished, *notice.NotificationType)
	assert.Contains(t, notice.Message, "Second Term Tuition")
}

func TestFeeService_PercentageCheckIsAdvisory(t *testing.T) {
	f := newFixture()
	input := validFeeInput()
	input.Plans = []FeePlanInput{{InstallmentNo: 1, Percentage: 60}, {InstallmentNo: 2, Percentage: 30}}

	res, err := f.feeService().Create(context.Background(), proprietor, input)
	require.NoError(t, err, "an incomplete percentage split is saved")

	assert.Equal(t, 90.0, res.PercentageTotal)
	assert.False(t, res.PercentageComplete)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "90%")
}

func TestFeeService_CreateValidation(t *testing.T) {
	tests := []struct {
		name     string
		actor    Actor
		mutate   func(in *FeeInput)
		expected error
	}{
		{name: "Missing name", actor: proprietor, mutate: func(in *FeeInput) { in.Name = "  " }, expected: ErrValidation},
		{name: "Percentage above 100", actor: proprietor, mutate: func(in *FeeInput) { in.Plans[0].Percentage = 120 }, expected: ErrValidation},
		{name: "Unknown plan type", actor: proprietor, mutate: func(in *FeeInput) { in.Plans[0].PlanType = "weekly" }, expected: ErrValidation},
		{name: "Duplicate installment", actor: proprietor, mutate: func(in *FeeInput) { in.Plans[1].InstallmentNo = 2 }, expected: ErrValidation},
		{name: "Negative amount", actor: proprietor, mutate: func(in *FeeInput) { in.Services[0].Amount = -1 }, expected: ErrValidation},
		{name: "Class of another school", actor: proprietor, mutate: func(in *FeeInput) { in.Services[0].ClassID = 9 }, expected: ErrValidation},
		{name: "Guardian cannot create fees", actor: guardian, mutate: func(in *FeeInput) {}, expected: ErrForbidden},
		{name: "Proprietor of another school", actor: Actor{Subject: strangerSubject, Role: models.RoleProprietor}, mutate: func(in *FeeInput) {}, expected: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			input := validFeeInput()
			tt.mutate(&input)

			_, err := f.feeService().Create(context.Background(), tt.actor, input)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestFeeService_MicroPaymentsMayShareInstallmentNumbers(t *testing.T) {
	f := newFixture()
	input := validFeeInput()
	input.Plans = append(input.Plans, FeePlanInput{PlanType: models.PlanTypeMicroPayments, InstallmentNo: 1, Percentage: 5})

	res, err := f.feeService().Create(context.Background(), proprietor, input)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.PercentageTotal, "micro-payments are not part of the split")
}

func TestFeeService_DuplicateFee(t *testing.T) {
	f := newFixture()
	f.fees.saveErr = repository.ErrDuplicateKey

	_, err := f.feeService().Create(context.Background(), proprietor, validFeeInput())
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestFeeService_UpdateReplacesChildren(t *testing.T) {
	f := newFixture()
	svc := f.feeService()
	input := validFeeInput()
	input.Name = "Tuition"
	input.Term = "First"
	input.Services = []FeeServiceInput{{ClassID: 7, Name: "Tuition", Amount: 12000}}
	input.Plans = []FeePlanInput{{InstallmentNo: 1, Percentage: 50}, {InstallmentNo: 2, Percentage: 50}}

	res, err := svc.Update(context.Background(), proprietor, 1, input)
	require.NoError(t, err)

	assert.Equal(t, uint(1), res.Fee.ID)
	assert.Len(t, res.Fee.Plans, 2)
	assert.Equal(t, []models.FeeClassTotal{{FeeID: 1, ClassID: 7, TotalAmount: 12000}}, res.Fee.ClassTotals)

	input.SchoolID = 2
	_, err = svc.Update(context.Background(), proprietor, 1, input)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(context.Background(), proprietor, 42, input)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFeeService_DeleteRefusedWithCompletedPayments(t *testing.T) {
	f := newFixture()
	f.payments.seed(models.FeePayment{FeeID: 1, StudentID: 3, Status: models.FeePaymentStatusPaid, Reference: "r1"})

	err := f.feeService().Delete(context.Background(), proprietor, 1)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, f.fees.deleted)
}

func TestFeeService_Delete(t *testing.T) {
	f := newFixture()
	f.payments.seed(models.FeePayment{FeeID: 1, StudentID: 3, Status: models.FeePaymentStatusFailed, Reference: "r1"})
	svc := f.feeService()

	assert.ErrorIs(t, svc.Delete(context.Background(), guardian, 1), ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), proprietor, 1))
	assert.Equal(t, []uint{1}, f.fees.deleted)
}

func TestFeeService_ListRequiresSchool(t *testing.T) {
	f := newFixture()
	svc := f.feeService()

	_, _, err := svc.List(context.Background(), proprietor, &repository.FeeQuery{ListQuery: repository.NewListQuery()})
	assert.ErrorIs(t, err, ErrValidation)

	fees, total, err := svc.List(context.Background(), Actor{Subject: "t-1", Role: models.RoleTeacher}, &repository.FeeQuery{ListQuery: repository.NewListQuery(), SchoolID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Tuition", fees[0].Name)
}

func TestClassTotalsFromServices(t *testing.T) {
	totals := ClassTotalsFromServices([]models.FeeService{
		{ClassID: 9, Amount: 0.1},
		{ClassID: 2, Amount: 100},
		{ClassID: 9, Amount: 0.2},
	})

	assert.Equal(t, []models.FeeClassTotal{
		{ClassID: 2, TotalAmount: 100},
		{ClassID: 9, TotalAmount: 0.3},
	}, totals)
	assert.Empty(t, ClassTotalsFromServices(nil))
}
