package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sjperalta/schoolfees-api/internal/feeplan"
	"github.com/sjperalta/schoolfees-api/internal/gateway"
	"github.com/sjperalta/schoolfees-api/internal/jobs"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
	"github.com/sjperalta/schoolfees-api/internal/statemachine"
	"github.com/sjperalta/schoolfees-api/pkg/logger"
	"gorm.io/datatypes"
)

// InitiateInput is a guardian's request to pay a fee
type InitiateInput struct {
	StudentID uint   `json:"student_id" binding:"required"`
	FeeID     uint   `json:"fee_id" binding:"required"`
	Plan      string `json:"plan"` // "full" or a plan id
	Email     string `json:"email" binding:"omitempty,email"`
}

// InitiateResult is returned once the gateway accepted the payment
type InitiateResult struct {
	Payment     *models.FeePayment `json:"payment"`
	RedirectURL string             `json:"redirect_url"`
	Quote       *feeplan.Quote     `json:"quote"`
}

// CallbackInput is the gateway's report on a payment
type CallbackInput struct {
	Reference string   `json:"reference" binding:"required"`
	Status    string   `json:"status" binding:"required"`
	Amount    *float64 `json:"amount"`
	Payload   []byte   `json:"-"`
}

type PaymentService struct {
	repo            repository.FeePaymentRepository
	studentRepo     repository.StudentRepository
	planRepo        repository.PlanRepository
	planSvc         *FeePlanService
	gateway         gateway.Initiator
	notify          notifier
	auditSvc        *AuditService
	access          access
	pendingTTL      time.Duration
}

func NewPaymentService(
	repo repository.FeePaymentRepository,
	studentRepo repository.StudentRepository,
	planRepo repository.PlanRepository,
	schoolRepo repository.SchoolRepository,
	planSvc *FeePlanService,
	initiator gateway.Initiator,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
	pendingTTL time.Duration,
) *PaymentService {
	return &PaymentService{
		repo:            repo,
		studentRepo:     studentRepo,
		planRepo:        planRepo,
		planSvc:         planSvc,
		gateway:         initiator,
		notify:          notifier{svc: notificationSvc, worker: worker},
		auditSvc:        auditSvc,
		access:          access{schoolRepo: schoolRepo},
		pendingTTL:      pendingTTL,
	}
}

// FindByID returns a payment visible to the actor
func (s *PaymentService) FindByID(ctx context.Context, actor Actor, id uint) (*models.FeePayment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.access.actForStudent(ctx, actor, &payment.Student); err != nil {
		return nil, ErrNotFound
	}
	return payment, nil
}

// ListByStudent returns every payment of a student, oldest first
func (s *PaymentService) ListByStudent(ctx context.Context, actor Actor, studentID uint) ([]models.FeePayment, error) {
	student, err := s.studentRepo.FindByID(ctx, studentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.access.actForStudent(ctx, actor, student); err != nil {
		return nil, err
	}
	return s.repo.FindByStudent(ctx, studentID)
}

// List returns payments of a school the proprietor owns
func (s *PaymentService) List(ctx context.Context, actor Actor, query *repository.PaymentQuery) ([]models.FeePayment, int64, error) {
	if query.SchoolID == 0 {
		return nil, 0, fmt.Errorf("%w: school_id is required", ErrValidation)
	}
	if err := s.access.manageSchool(ctx, actor, query.SchoolID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, query)
}

// Initiate re-runs the engine, stores a pending payment and asks the gateway for a checkout URL
func (s *PaymentService) Initiate(ctx context.Context, actor Actor, input InitiateInput) (*InitiateResult, error) {
	sel, err := feeplan.ParseSelection(input.Plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	student, err := s.studentRepo.FindByID(ctx, input.StudentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.access.actForStudent(ctx, actor, student); err != nil {
		return nil, err
	}

	quote, fee, err := s.planSvc.quote(ctx, student, input.FeeID, sel)
	if err != nil {
		return nil, err
	}
	switch {
	case quote.State.FullyPaid:
		return nil, ErrFeeSettled
	case !quote.Selectable:
		return nil, ErrPlanNotAllowed
	case quote.Payable <= 0:
		return nil, ErrNothingToPay
	}

	inFlight, err := s.inFlight(ctx, student.ID, fee.ID)
	if err != nil {
		return nil, err
	}
	if inFlight != nil {
		if selectionOf(inFlight) != sel || inFlight.CheckoutURL == nil {
			return nil, fmt.Errorf("%w: payment %s for this fee is still in progress", ErrDuplicate, inFlight.Reference)
		}
		logger.Info("[PaymentService] Reusing in-flight payment", "reference", inFlight.Reference)
		inFlight.Fee = *fee
		inFlight.Student = *student
		return &InitiateResult{Payment: inFlight, RedirectURL: *inFlight.CheckoutURL, Quote: quote}, nil
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		email = student.GuardianEmail
	}
	if email == "" {
		return nil, fmt.Errorf("%w: a payer email is required", ErrValidation)
	}

	payment := &models.FeePayment{
		FeeID:      fee.ID,
		StudentID:  student.ID,
		AmountPaid: quote.Payable,
		Status:     models.FeePaymentStatusPending,
		Reference:  GenerateReference(fee.ID, student.ID),
		PayerEmail: email,
	}
	for _, opt := range quote.Options.Allowed {
		if opt.Key == sel.Key() {
			payment.PlanID = opt.PlanID
			payment.InstallmentNo = opt.InstallmentNo
		}
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, mapRepoError(err)
	}

	resp, err := s.gateway.Initiate(ctx, gateway.InitiateRequest{
		StudentID:     student.ID,
		FeeID:         fee.ID,
		PlanID:        payment.PlanID,
		InstallmentNo: payment.InstallmentNo,
		SchoolID:      student.SchoolID,
		AmountPaid:    payment.AmountPaid,
		Email:         email,
		Reference:     payment.Reference,
	})
	if err != nil {
		logger.Error("[PaymentService] Gateway initiation failed", "reference", payment.Reference, "error", err.Error())
		if ferr := statemachine.NewFeePaymentFSM(payment).Fail(ctx); ferr == nil {
			if uerr := s.repo.Update(ctx, payment); uerr != nil {
				logger.Error("[PaymentService] Failed to mark payment failed", "reference", payment.Reference, "error", uerr.Error())
			}
		}
		s.auditSvc.Log(ctx, actor, AuditFail, "FeePayment", payment.ID, "Gateway initiation failed: "+err.Error())
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	payment.CheckoutURL = &resp.RedirectURL
	if len(resp.Raw) > 0 {
		payment.GatewayPayload = datatypes.JSON(resp.Raw)
	}
	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, AuditInitiate, "FeePayment", payment.ID,
		fmt.Sprintf("%s of %q for student %d: %.2f", sel.String(), fee.Name, student.ID, payment.AmountPaid))

	title := "Payment started"
	message := fmt.Sprintf("A payment of %.2f for %s (%s) was started for %s.", payment.AmountPaid, fee.Name, planLabel(payment), student.StudentName)
	s.notify.send(student.GuardianID, title, message, models.NotificationTypePaymentInitiated)

	payment.Fee = *fee
	payment.Student = *student
	return &InitiateResult{Payment: payment, RedirectURL: resp.RedirectURL, Quote: quote}, nil
}

// HandleCallback applies the gateway's verdict to a pending payment. Repeating a verdict that was
// already applied is a no-op. A confirmation is always recorded since the payer was charged, but one
// that breaks the installment sequence is flagged for review.
func (s *PaymentService) HandleCallback(ctx context.Context, input CallbackInput) (*models.FeePayment, error) {
	complete, err := parseCallbackStatus(input.Status)
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.FindByReference(ctx, input.Reference)
	if err != nil {
		return nil, mapRepoError(err)
	}

	target := models.FeePaymentStatusFailed
	if complete {
		target = models.FeePaymentStatusPaid
	}
	if payment.Status == target {
		return payment, nil
	}

	previous := payment.Status
	pfsm := statemachine.NewFeePaymentFSM(payment)
	if complete {
		err = pfsm.Complete(ctx)
	} else {
		err = pfsm.Fail(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if input.Amount != nil && *input.Amount != payment.AmountPaid {
		logger.Warn("[PaymentService] Callback amount differs from quoted amount",
			"reference", payment.Reference, "quoted", payment.AmountPaid, "reported", *input.Amount)
	}
	if len(input.Payload) > 0 {
		payment.GatewayPayload = datatypes.JSON(input.Payload)
	}

	review := ""
	if complete {
		if previous == models.FeePaymentStatusFailed {
			logger.Warn("[PaymentService] Gateway confirmed a failed payment", "reference", payment.Reference)
		}
		review, err = s.reviewReason(ctx, payment)
		if err != nil {
			return nil, err
		}
		settles, err := s.settlesFee(ctx, payment)
		if err != nil {
			return nil, err
		}
		payment.IsCompleted = settles
	}

	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, err
	}

	action := AuditFail
	if complete {
		action = AuditComplete
	}
	s.auditSvc.Log(ctx, GatewayActor, action, "FeePayment", payment.ID, fmt.Sprintf("Gateway reported %s for %s", input.Status, payment.Reference))

	if review != "" {
		logger.Warn("[PaymentService] Payment needs review", "reference", payment.Reference, "reason", review)
		s.auditSvc.Log(ctx, GatewayActor, AuditReview, "FeePayment", payment.ID, review)
		s.notify.send(payment.Student.GuardianID, "Payment under review",
			fmt.Sprintf("We received %.2f for %s (%s) but %s. The school will contact you.", payment.AmountPaid, payment.Fee.Name, planLabel(payment), review),
			models.NotificationTypePaymentReview)
		return payment, nil
	}

	s.notifyOutcome(payment)
	return payment, nil
}

// reviewReason checks a confirmed payment against the rest of the pair's history and
// describes why it breaks the sequence, or returns "" when it does not
func (s *PaymentService) reviewReason(ctx context.Context, payment *models.FeePayment) (string, error) {
	history, err := s.repo.FindByStudentAndFee(ctx, payment.StudentID, payment.FeeID)
	if err != nil {
		return "", err
	}
	others := make([]models.FeePayment, 0, len(history))
	for _, p := range history {
		if p.ID != payment.ID {
			others = append(others, p)
		}
	}
	state := feeplan.AnalyzePaymentState(others)

	switch {
	case state.FullyPaid:
		return "the fee was already settled", nil
	case payment.InstallmentNo == nil:
		return "", nil
	case *payment.InstallmentNo <= state.HighestCompletedInstallment:
		return fmt.Sprintf("installment %d was already paid", *payment.InstallmentNo), nil
	case *payment.InstallmentNo > state.HighestCompletedInstallment+1:
		return fmt.Sprintf("installment %d is not yet paid", state.HighestCompletedInstallment+1), nil
	}
	return "", nil
}

// inFlight returns the pair's pending payment whose checkout has not expired yet
func (s *PaymentService) inFlight(ctx context.Context, studentID, feeID uint) (*models.FeePayment, error) {
	history, err := s.repo.FindByStudentAndFee(ctx, studentID, feeID)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-s.pendingTTL)
	for i := range history {
		p := &history[i]
		if p.Status == models.FeePaymentStatusPending && p.CreatedAt.After(cutoff) {
			return p, nil
		}
	}
	return nil, nil
}

// ExpireStalePending fails pending payments older than the configured TTL
func (s *PaymentService) ExpireStalePending(ctx context.Context) (int, error) {
	stale, err := s.repo.FindStalePending(ctx, time.Now().Add(-s.pendingTTL))
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		payment := &stale[i]
		if err := statemachine.NewFeePaymentFSM(payment).Fail(ctx); err != nil {
			continue
		}
		if err := s.repo.Update(ctx, payment); err != nil {
			logger.Error("[PaymentService] Failed to expire payment", "reference", payment.Reference, "error", err.Error())
			continue
		}
		s.auditSvc.Log(ctx, SystemActor, AuditExpire, "FeePayment", payment.ID, "Pending payment expired")
		expired++
	}

	if expired > 0 {
		logger.Info("[PaymentService] Expired stale pending payments", "count", expired)
	}
	return expired, nil
}

// settlesFee reports whether a completed payment clears the fee: a full payment, or the
// last installment of the fee's current plans
func (s *PaymentService) settlesFee(ctx context.Context, payment *models.FeePayment) (bool, error) {
	if payment.IsFullPayment() {
		return true, nil
	}
	if payment.InstallmentNo == nil {
		return false, nil
	}
	plans, err := s.planRepo.FindByFee(ctx, payment.FeeID)
	if err != nil {
		return false, err
	}
	last := feeplan.LastInstallmentNo(models.Fee{ID: payment.FeeID}, plans)
	return last > 0 && *payment.InstallmentNo >= last, nil
}

func (s *PaymentService) notifyOutcome(payment *models.FeePayment) {
	recipient := payment.Student.GuardianID
	feeName := payment.Fee.Name

	switch {
	case payment.Status == models.FeePaymentStatusFailed:
		s.notify.send(recipient, "Payment failed",
			fmt.Sprintf("The payment %s for %s did not go through.", payment.Reference, feeName),
			models.NotificationTypePaymentFailed)
	case payment.IsCompleted:
		s.notify.send(recipient, "Fee fully paid",
			fmt.Sprintf("%s is now fully paid for %s.", feeName, payment.Student.StudentName),
			models.NotificationTypeFeeSettled)
	default:
		s.notify.send(recipient, "Payment received",
			fmt.Sprintf("We received %.2f for %s (%s).", payment.AmountPaid, feeName, planLabel(payment)),
			models.NotificationTypePaymentPaid)
	}
}

func parseCallbackStatus(status string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "success", "successful", "completed":
		return true, nil
	case "failed", "cancelled", "canceled", "declined", "abandoned":
		return false, nil
	default:
		return false, fmt.Errorf("%w: unknown payment status %q", ErrValidation, status)
	}
}

func selectionOf(payment *models.FeePayment) feeplan.Selection {
	if payment.PlanID == nil {
		return feeplan.FullSelection()
	}
	return feeplan.InstallmentSelection(*payment.PlanID)
}

func planLabel(payment *models.FeePayment) string {
	return payment.ToResponse().PlanLabel
}

// GenerateReference builds a unique payment reference such as FEE-12-345-20260102-150405-1A2B3C4D
func GenerateReference(feeID, studentID uint) string {
	now := time.Now().UTC().Format("20060102-150405")
	u := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("FEE-%d-%d-%s-%s", feeID, studentID, now, strings.ToUpper(u))
}
