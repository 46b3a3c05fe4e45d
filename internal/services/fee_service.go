package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/schoolfees-api/internal/feeplan"
	"github.com/sjperalta/schoolfees-api/internal/jobs"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
	"github.com/sjperalta/schoolfees-api/pkg/logger"
)

// FeeInput is the payload for creating or replacing a fee
type FeeInput struct {
	SchoolID uint              `json:"school_id" validate:"required"`
	Name     string            `json:"name" validate:"required,max=120"`
	Session  string            `json:"session" validate:"required,max=20"`
	Term     string            `json:"term" validate:"required,max=20"`
	Services []FeeServiceInput `json:"services" validate:"dive"`
	Plans    []FeePlanInput    `json:"plans" validate:"dive"`
}

// FeeServiceInput is one priced line item for a class
type FeeServiceInput struct {
	ClassID uint    `json:"class_id" validate:"required"`
	Name    string  `json:"name" validate:"required,max=120"`
	Amount  float64 `json:"amount" validate:"gte=0"`
}

// FeePlanInput is one installment of the fee
type FeePlanInput struct {
	PlanType      string     `json:"plan_type" validate:"omitempty,oneof=installment micro-payments"`
	InstallmentNo int        `json:"installment_no" validate:"required,gte=1"`
	Percentage    float64    `json:"percentage" validate:"gt=0,lte=100"`
	DueDate       *time.Time `json:"due_date"`
}

// FeeSaveResult carries the saved fee and the advisory percentage check
type FeeSaveResult struct {
	Fee                *models.Fee `json:"fee"`
	PercentageTotal    float64     `json:"percentage_total"`
	PercentageComplete bool        `json:"percentage_complete"`
	Warnings           []string    `json:"warnings"`
}

type FeeService struct {
	repo        repository.FeeRepository
	paymentRepo repository.FeePaymentRepository
	schoolRepo  repository.SchoolRepository
	studentRepo repository.StudentRepository
	auditSvc    *AuditService
	notify      notifier
	access      access
	validate    *validator.Validate
}

func NewFeeService(
	repo repository.FeeRepository,
	paymentRepo repository.FeePaymentRepository,
	schoolRepo repository.SchoolRepository,
	studentRepo repository.StudentRepository,
	auditSvc *AuditService,
	notificationSvc *NotificationService,
	worker *jobs.Worker,
) *FeeService {
	return &FeeService{
		repo:        repo,
		paymentRepo: paymentRepo,
		schoolRepo:  schoolRepo,
		studentRepo: studentRepo,
		auditSvc:    auditSvc,
		notify:      notifier{svc: notificationSvc, worker: worker},
		access:      access{schoolRepo: schoolRepo},
		validate:    validator.New(),
	}
}

func (s *FeeService) Get(ctx context.Context, actor Actor, id uint) (*models.Fee, error) {
	fee, err := s.repo.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.access.readSchool(ctx, actor, fee.SchoolID); err != nil {
		return nil, err
	}
	return fee, nil
}

func (s *FeeService) List(ctx context.Context, actor Actor, query *repository.FeeQuery) ([]models.Fee, int64, error) {
	if query.SchoolID == 0 {
		return nil, 0, fmt.Errorf("%w: school_id is required", ErrValidation)
	}
	if err := s.access.readSchool(ctx, actor, query.SchoolID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, query)
}

// Create validates the input, derives class totals and stores the fee
func (s *FeeService) Create(ctx context.Context, actor Actor, input FeeInput) (*FeeSaveResult, error) {
	fee, err := s.buildFee(ctx, actor, input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, fee); err != nil {
		return nil, mapRepoError(err)
	}

	s.auditSvc.Log(ctx, actor, AuditCreate, "Fee", fee.ID, fmt.Sprintf("Fee %q created for %s %s", fee.Name, fee.Session, fee.Term))
	logger.Info("[FeeService] Fee created", "fee_id", fee.ID, "school_id", fee.SchoolID)
	s.announce(ctx, fee)

	return s.result(ctx, fee.ID)
}

// announce tells each guardian with a student in a priced class that the fee is out
func (s *FeeService) announce(ctx context.Context, fee *models.Fee) {
	notified := make(map[string]bool)
	for _, total := range fee.ClassTotals {
		students, err := s.studentRepo.FindByClass(ctx, total.ClassID)
		if err != nil {
			logger.Warn("[FeeService] Failed to load class for fee notice", "fee_id", fee.ID, "class_id", total.ClassID, "error", err.Error())
			continue
		}
		for _, student := range students {
			if student.GuardianID == "" || notified[student.GuardianID] {
				continue
			}
			notified[student.GuardianID] = true
			s.notify.send(student.GuardianID, "New fee published",
				fmt.Sprintf("%s for %s %s has been published.", fee.Name, fee.Session, fee.Term),
				models.NotificationTypeFeePublished)
		}
	}
}

// Update replaces the fee's plans, services and class totals
func (s *FeeService) Update(ctx context.Context, actor Actor, id uint, input FeeInput) (*FeeSaveResult, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if input.SchoolID != existing.SchoolID {
		return nil, fmt.Errorf("%w: a fee cannot move to another school", ErrValidation)
	}

	fee, err := s.buildFee(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	fee.ID = existing.ID

	if err := s.repo.Replace(ctx, fee); err != nil {
		return nil, mapRepoError(err)
	}

	s.auditSvc.Log(ctx, actor, AuditUpdate, "Fee", fee.ID, fmt.Sprintf("Fee %q replaced with %d plans and %d services", fee.Name, len(fee.Plans), len(fee.Services)))

	return s.result(ctx, fee.ID)
}

// Delete removes a fee that has no completed payments
func (s *FeeService) Delete(ctx context.Context, actor Actor, id uint) error {
	fee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	if err := s.access.manageSchool(ctx, actor, fee.SchoolID); err != nil {
		return err
	}

	completed, err := s.paymentRepo.CountCompletedByFee(ctx, id)
	if err != nil {
		return err
	}
	if completed > 0 {
		return fmt.Errorf("%w: fee has %d completed payments", ErrInvalidState, completed)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}

	s.auditSvc.Log(ctx, actor, AuditDelete, "Fee", id, fmt.Sprintf("Fee %q deleted", fee.Name))
	return nil
}

func (s *FeeService) buildFee(ctx context.Context, actor Actor, input FeeInput) (*models.Fee, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Session = strings.TrimSpace(input.Session)
	input.Term = strings.TrimSpace(input.Term)

	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}
	if err := s.access.manageSchool(ctx, actor, input.SchoolID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(input.Plans))
	plans := make([]models.FeePaymentPlan, 0, len(input.Plans))
	for _, p := range input.Plans {
		planType := p.PlanType
		if planType == "" {
			planType = models.PlanTypeInstallment
		}
		key := fmt.Sprintf("%s/%d", planType, p.InstallmentNo)
		if seen[key] {
			return nil, fmt.Errorf("%w: installment %d is defined twice", ErrValidation, p.InstallmentNo)
		}
		seen[key] = true

		plans = append(plans, models.FeePaymentPlan{
			PlanType:      planType,
			InstallmentNo: p.InstallmentNo,
			Percentage:    decimal.NewFromFloat(p.Percentage).Round(2).InexactFloat64(),
			DueDate:       p.DueDate,
		})
	}
	sort.SliceStable(plans, func(i, j int) bool { return plans[i].InstallmentNo < plans[j].InstallmentNo })

	checked := make(map[uint]bool)
	services := make([]models.FeeService, 0, len(input.Services))
	for _, svc := range input.Services {
		if !checked[svc.ClassID] {
			ok, err := s.schoolRepo.ClassBelongsTo(ctx, svc.ClassID, input.SchoolID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: class %d does not belong to school %d", ErrValidation, svc.ClassID, input.SchoolID)
			}
			checked[svc.ClassID] = true
		}
		services = append(services, models.FeeService{
			ClassID: svc.ClassID,
			Name:    strings.TrimSpace(svc.Name),
			Amount:  decimal.NewFromFloat(svc.Amount).Round(2).InexactFloat64(),
		})
	}

	return &models.Fee{
		SchoolID:    input.SchoolID,
		Name:        input.Name,
		Session:     input.Session,
		Term:        input.Term,
		Plans:       plans,
		Services:    services,
		ClassTotals: ClassTotalsFromServices(services),
	}, nil
}

func (s *FeeService) result(ctx context.Context, id uint) (*FeeSaveResult, error) {
	fee, err := s.repo.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	res := &FeeSaveResult{
		Fee:                fee,
		PercentageTotal:    feeplan.PercentageTotal(fee.Plans),
		PercentageComplete: feeplan.SumsToHundred(fee.Plans),
		Warnings:           []string{},
	}
	if !res.PercentageComplete {
		res.Warnings = append(res.Warnings, fmt.Sprintf("installment percentages add up to %s%%, not 100%%", decimal.NewFromFloat(res.PercentageTotal).String()))
	}
	return res, nil
}

// ClassTotalsFromServices sums service amounts per class, ordered by class id
func ClassTotalsFromServices(services []models.FeeService) []models.FeeClassTotal {
	sums := make(map[uint]decimal.Decimal)
	for _, svc := range services {
		sums[svc.ClassID] = sums[svc.ClassID].Add(decimal.NewFromFloat(svc.Amount))
	}

	totals := make([]models.FeeClassTotal, 0, len(sums))
	for classID, sum := range sums {
		totals = append(totals, models.FeeClassTotal{
			ClassID:     classID,
			TotalAmount: sum.Round(2).InexactFloat64(),
		})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].ClassID < totals[j].ClassID })
	return totals
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
