package services

import (
	"context"

	"github.com/sjperalta/schoolfees-api/internal/feeplan"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
)

// FeePlanService loads the rows the fee plan engine needs and runs it
type FeePlanService struct {
	studentRepo    repository.StudentRepository
	feeRepo        repository.FeeRepository
	planRepo       repository.PlanRepository
	classTotalRepo repository.ClassTotalRepository
	paymentRepo    repository.FeePaymentRepository
	access         access
}

func NewFeePlanService(
	studentRepo repository.StudentRepository,
	feeRepo repository.FeeRepository,
	planRepo repository.PlanRepository,
	classTotalRepo repository.ClassTotalRepository,
	paymentRepo repository.FeePaymentRepository,
	schoolRepo repository.SchoolRepository,
) *FeePlanService {
	return &FeePlanService{
		studentRepo:    studentRepo,
		feeRepo:        feeRepo,
		planRepo:       planRepo,
		classTotalRepo: classTotalRepo,
		paymentRepo:    paymentRepo,
		access:         access{schoolRepo: schoolRepo},
	}
}

// Quote returns the options and the cost of one selection for a student's fee
func (s *FeePlanService) Quote(ctx context.Context, actor Actor, studentID, feeID uint, sel feeplan.Selection) (*feeplan.Quote, error) {
	student, err := s.authorizedStudent(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}
	quote, _, err := s.quote(ctx, student, feeID, sel)
	return quote, err
}

// Overview quotes the full-payment selection of several fees at once.
// Fees of another school than the student's are skipped.
func (s *FeePlanService) Overview(ctx context.Context, actor Actor, studentID uint, feeIDs []uint) ([]feeplan.Quote, error) {
	student, err := s.authorizedStudent(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}

	var fees []models.Fee
	if len(feeIDs) == 0 {
		fees, _, err = s.feeRepo.List(ctx, &repository.FeeQuery{
			ListQuery: &repository.ListQuery{Page: 1},
			SchoolID:  student.SchoolID,
		})
	} else {
		fees, err = s.feeRepo.FindByIDs(ctx, feeIDs)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(fees))
	for _, fee := range fees {
		if fee.SchoolID == student.SchoolID {
			ids = append(ids, fee.ID)
		}
	}

	plans, err := s.planRepo.FindByFees(ctx, ids)
	if err != nil {
		return nil, err
	}
	totals, err := s.classTotalRepo.FindByFeesAndClass(ctx, ids, student.ClassID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.FindByStudentAndFees(ctx, student.ID, ids)
	if err != nil {
		return nil, err
	}

	plansByFee := make(map[uint][]models.FeePaymentPlan)
	for _, p := range plans {
		plansByFee[p.FeeID] = append(plansByFee[p.FeeID], p)
	}
	paymentsByFee := make(map[uint][]models.FeePayment)
	for _, p := range payments {
		paymentsByFee[p.FeeID] = append(paymentsByFee[p.FeeID], p)
	}

	quotes := make([]feeplan.Quote, 0, len(ids))
	for _, fee := range fees {
		if fee.SchoolID != student.SchoolID {
			continue
		}
		quotes = append(quotes, feeplan.BuildQuote(feeplan.Inputs{
			Fee:         fee,
			Student:     *student,
			ClassTotals: totals,
			Plans:       plansByFee[fee.ID],
			Payments:    paymentsByFee[fee.ID],
		}, feeplan.FullSelection()))
	}
	return quotes, nil
}

func (s *FeePlanService) authorizedStudent(ctx context.Context, actor Actor, studentID uint) (*models.Student, error) {
	student, err := s.studentRepo.FindByID(ctx, studentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.access.actForStudent(ctx, actor, student); err != nil {
		return nil, err
	}
	return student, nil
}

// quote fetches fresh rows for the pair and runs the engine.
// The fee is returned with its plans loaded.
func (s *FeePlanService) quote(ctx context.Context, student *models.Student, feeID uint, sel feeplan.Selection) (*feeplan.Quote, *models.Fee, error) {
	fee, err := s.feeRepo.FindByID(ctx, feeID)
	if err != nil {
		return nil, nil, mapRepoError(err)
	}
	if fee.SchoolID != student.SchoolID {
		return nil, nil, ErrNotFound
	}

	plans, err := s.planRepo.FindByFee(ctx, fee.ID)
	if err != nil {
		return nil, nil, err
	}
	totals, err := s.classTotalRepo.FindByFeeAndClass(ctx, fee.ID, student.ClassID)
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.paymentRepo.FindByStudentAndFee(ctx, student.ID, fee.ID)
	if err != nil {
		return nil, nil, err
	}

	fee.Plans = plans
	quote := feeplan.BuildQuote(feeplan.Inputs{
		Fee:         *fee,
		Student:     *student,
		ClassTotals: totals,
		Plans:       plans,
		Payments:    payments,
	}, sel)
	return &quote, fee, nil
}
