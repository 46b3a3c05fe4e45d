package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sjperalta/schoolfees-api/internal/gateway"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
	"gorm.io/gorm"
)

// Mock SchoolRepository
type mockSchoolRepository struct {
	repository.SchoolRepository
	schools map[uint]models.School
	classes map[uint]uint // class id -> school id
}

func (m *mockSchoolRepository) FindByID(ctx context.Context, id uint) (*models.School, error) {
	school, ok := m.schools[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &school, nil
}

func (m *mockSchoolRepository) ClassBelongsTo(ctx context.Context, classID, schoolID uint) (bool, error) {
	return m.classes[classID] == schoolID, nil
}

// Mock StudentRepository
type mockStudentRepository struct {
	repository.StudentRepository
	students map[uint]models.Student
}

func (m *mockStudentRepository) FindByID(ctx context.Context, id uint) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &student, nil
}

func (m *mockStudentRepository) FindByClass(ctx context.Context, classID uint) ([]models.Student, error) {
	var out []models.Student
	for _, s := range m.students {
		if s.ClassID == classID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStudentRepository) FindByGuardian(ctx context.Context, guardianID string) ([]models.Student, error) {
	var out []models.Student
	for _, s := range m.students {
		if s.GuardianID == guardianID {
			out = append(out, s)
		}
	}
	return out, nil
}

// Mock FeeRepository keeping fees with their children in memory
type mockFeeRepository struct {
	repository.FeeRepository
	fees    map[uint]models.Fee
	nextID  uint
	deleted []uint
	saveErr error
}

func (m *mockFeeRepository) FindByID(ctx context.Context, id uint) (*models.Fee, error) {
	fee, ok := m.fees[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	fee.Plans, fee.Services, fee.ClassTotals = nil, nil, nil
	return &fee, nil
}

func (m *mockFeeRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Fee, error) {
	fee, ok := m.fees[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &fee, nil
}

func (m *mockFeeRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Fee, error) {
	var out []models.Fee
	for _, id := range ids {
		if fee, ok := m.fees[id]; ok {
			out = append(out, fee)
		}
	}
	return out, nil
}

func (m *mockFeeRepository) List(ctx context.Context, query *repository.FeeQuery) ([]models.Fee, int64, error) {
	var out []models.Fee
	for _, fee := range m.fees {
		if query.SchoolID == 0 || fee.SchoolID == query.SchoolID {
			out = append(out, fee)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *mockFeeRepository) Create(ctx context.Context, fee *models.Fee) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.nextID++
	fee.ID = m.nextID
	m.store(fee)
	return nil
}

func (m *mockFeeRepository) Replace(ctx context.Context, fee *models.Fee) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.fees[fee.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.store(fee)
	return nil
}

func (m *mockFeeRepository) Delete(ctx context.Context, id uint) error {
	delete(m.fees, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockFeeRepository) store(fee *models.Fee) {
	for i := range fee.Plans {
		fee.Plans[i].ID = fee.ID*100 + uint(i) + 1
		fee.Plans[i].FeeID = fee.ID
	}
	for i := range fee.Services {
		fee.Services[i].FeeID = fee.ID
	}
	for i := range fee.ClassTotals {
		fee.ClassTotals[i].FeeID = fee.ID
	}
	m.fees[fee.ID] = *fee
}

// Mock PlanRepository
type mockPlanRepository struct {
	repository.PlanRepository
	plans []models.FeePaymentPlan
}

func (m *mockPlanRepository) FindByFee(ctx context.Context, feeID uint) ([]models.FeePaymentPlan, error) {
	var out []models.FeePaymentPlan
	for _, p := range m.plans {
		if p.FeeID == feeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPlanRepository) FindByFees(ctx context.Context, feeIDs []uint) ([]models.FeePaymentPlan, error) {
	var out []models.FeePaymentPlan
	for _, id := range feeIDs {
		plans, _ := m.FindByFee(ctx, id)
		out = append(out, plans...)
	}
	return out, nil
}

// Mock ClassTotalRepository
type mockClassTotalRepository struct {
	repository.ClassTotalRepository
	totals []models.FeeClassTotal
}

func (m *mockClassTotalRepository) FindByFeeAndClass(ctx context.Context, feeID, classID uint) ([]models.FeeClassTotal, error) {
	var out []models.FeeClassTotal
	for _, t := range m.totals {
		if t.FeeID == feeID && t.ClassID == classID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockClassTotalRepository) FindByFeesAndClass(ctx context.Context, feeIDs []uint, classID uint) ([]models.FeeClassTotal, error) {
	var out []models.FeeClassTotal
	for _, id := range feeIDs {
		totals, _ := m.FindByFeeAndClass(ctx, id, classID)
		out = append(out, totals...)
	}
	return out, nil
}

// Mock FeePaymentRepository keeping payments in memory
type mockFeePaymentRepository struct {
	repository.FeePaymentRepository
	mu        sync.Mutex
	payments  map[uint]models.FeePayment
	nextID    uint
	students  *mockStudentRepository
	fees      *mockFeeRepository
	updateErr error
}

func newMockFeePaymentRepository(students *mockStudentRepository, fees *mockFeeRepository) *mockFeePaymentRepository {
	return &mockFeePaymentRepository{
		payments: make(map[uint]models.FeePayment),
		students: students,
		fees:     fees,
	}
}

func (m *mockFeePaymentRepository) seed(p models.FeePayment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.payments[p.ID] = p
}

func (m *mockFeePaymentRepository) withAssociations(p models.FeePayment) models.FeePayment {
	if m.students != nil {
		p.Student = m.students.students[p.StudentID]
	}
	if m.fees != nil {
		fee := m.fees.fees[p.FeeID]
		fee.Plans, fee.Services, fee.ClassTotals = nil, nil, nil
		p.Fee = fee
	}
	return p
}

func (m *mockFeePaymentRepository) filter(keep func(models.FeePayment) bool) []models.FeePayment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.FeePayment
	for _, p := range m.payments {
		if keep(p) {
			out = append(out, m.withAssociations(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockFeePaymentRepository) FindByID(ctx context.Context, id uint) (*models.FeePayment, error) {
	out := m.filter(func(p models.FeePayment) bool { return p.ID == id })
	if len(out) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &out[0], nil
}

func (m *mockFeePaymentRepository) FindByReference(ctx context.Context, reference string) (*models.FeePayment, error) {
	out := m.filter(func(p models.FeePayment) bool { return p.Reference == reference })
	if len(out) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &out[0], nil
}

func (m *mockFeePaymentRepository) FindByStudentAndFee(ctx context.Context, studentID, feeID uint) ([]models.FeePayment, error) {
	return m.filter(func(p models.FeePayment) bool { return p.StudentID == studentID && p.FeeID == feeID }), nil
}

func (m *mockFeePaymentRepository) FindByStudentAndFees(ctx context.Context, studentID uint, feeIDs []uint) ([]models.FeePayment, error) {
	wanted := make(map[uint]bool, len(feeIDs))
	for _, id := range feeIDs {
		wanted[id] = true
	}
	return m.filter(func(p models.FeePayment) bool { return p.StudentID == studentID && wanted[p.FeeID] }), nil
}

func (m *mockFeePaymentRepository) FindByStudent(ctx context.Context, studentID uint) ([]models.FeePayment, error) {
	return m.filter(func(p models.FeePayment) bool { return p.StudentID == studentID }), nil
}

func (m *mockFeePaymentRepository) FindByFee(ctx context.Context, feeID uint) ([]models.FeePayment, error) {
	return m.filter(func(p models.FeePayment) bool { return p.FeeID == feeID }), nil
}

func (m *mockFeePaymentRepository) FindStalePending(ctx context.Context, olderThan time.Time) ([]models.FeePayment, error) {
	return m.filter(func(p models.FeePayment) bool {
		return p.Status == models.FeePaymentStatusPending && p.CreatedAt.Before(olderThan)
	}), nil
}

func (m *mockFeePaymentRepository) CountCompletedByFee(ctx context.Context, feeID uint) (int64, error) {
	out := m.filter(func(p models.FeePayment) bool { return p.FeeID == feeID && p.IsCountedAsCompleted() })
	return int64(len(out)), nil
}

func (m *mockFeePaymentRepository) Create(ctx context.Context, payment *models.FeePayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	payment.ID = m.nextID
	payment.CreatedAt = time.Now()
	m.payments[payment.ID] = *payment
	return nil
}

func (m *mockFeePaymentRepository) Update(ctx context.Context, payment *models.FeePayment) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *payment
	stored.Fee, stored.Student = models.Fee{}, models.Student{}
	m.payments[payment.ID] = stored
	return nil
}

func (m *mockFeePaymentRepository) get(id uint) models.FeePayment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payments[id]
}

// Mock NotificationRepository capturing created notifications
type mockNotificationRepository struct {
	repository.NotificationRepository
	mu      sync.Mutex
	created []models.Notification
}

func (m *mockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *notification)
	return nil
}

func (m *mockNotificationRepository) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, n := range m.created {
		out = append(out, *n.NotificationType)
	}
	return out
}

// Mock CollectionRepository
type mockCollectionRepository struct {
	repository.CollectionRepository
	summary *models.CollectionSummary
}

func (m *mockCollectionRepository) SummaryByFee(ctx context.Context, feeID uint) (*models.CollectionSummary, error) {
	if m.summary != nil {
		return m.summary, nil
	}
	return &models.CollectionSummary{FeeID: feeID}, nil
}

// Mock gateway
type mockGateway struct {
	mu       sync.Mutex
	requests []gateway.InitiateRequest
	err      error
}

func (m *mockGateway) Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &gateway.InitiateResponse{
		RedirectURL: "https://pay.example.com/" + req.Reference,
		Raw:         []byte(`{"redirect_url":"https://pay.example.com/` + req.Reference + `"}`),
	}, nil
}

// fixture is a school with one class, one student and one 40/30/30 fee
type fixture struct {
	schools       *mockSchoolRepository
	students      *mockStudentRepository
	fees          *mockFeeRepository
	plans         *mockPlanRepository
	totals        *mockClassTotalRepository
	payments      *mockFeePaymentRepository
	notifications *mockNotificationRepository
	gateway       *mockGateway
}

const (
	ownerSubject    = "8f0c6a1e-0000-4000-8000-000000000001"
	guardianSubject = "8f0c6a1e-0000-4000-8000-000000000002"
	strangerSubject = "8f0c6a1e-0000-4000-8000-000000000003"
)

var (
	guardian   = Actor{Subject: guardianSubject, Role: models.RoleGuardian}
	proprietor = Actor{Subject: ownerSubject, Role: models.RoleProprietor}
	stranger   = Actor{Subject: strangerSubject, Role: models.RoleGuardian}
)

func newFixture() *fixture {
	students := &mockStudentRepository{students: map[uint]models.Student{
		3: {ID: 3, SchoolID: 1, ClassID: 7, StudentName: "Ada Obi", GuardianID: guardianSubject, GuardianEmail: "parent@example.com",
			School: models.School{ID: 1, Name: "Bright Future Academy", Currency: "NGN"}, Class: models.Class{ID: 7, Name: "Primary 4"}},
	}}
	fees := &mockFeeRepository{fees: map[uint]models.Fee{
		1: {ID: 1, SchoolID: 1, Name: "Tuition", Session: "2025/2026", Term: "First",
			ClassTotals: []models.FeeClassTotal{{FeeID: 1, ClassID: 7, TotalAmount: 9000}}},
		2: {ID: 2, SchoolID: 2, Name: "Other school fee", Session: "2025/2026", Term: "First"},
	}, nextID: 2}

	return &fixture{
		schools: &mockSchoolRepository{
			schools: map[uint]models.School{
				1: {ID: 1, Name: "Bright Future Academy", OwnerID: ownerSubject},
				2: {ID: 2, Name: "Elsewhere", OwnerID: strangerSubject},
			},
			classes: map[uint]uint{7: 1, 8: 1, 9: 2},
		},
		students: students,
		fees:     fees,
		plans: &mockPlanRepository{plans: []models.FeePaymentPlan{
			{ID: 11, FeeID: 1, PlanType: models.PlanTypeInstallment, InstallmentNo: 1, Percentage: 40},
			{ID: 12, FeeID: 1, PlanType: models.PlanTypeInstallment, InstallmentNo: 2, Percentage: 30},
			{ID: 13, FeeID: 1, PlanType: models.PlanTypeInstallment, InstallmentNo: 3, Percentage: 30},
		}},
		totals: &mockClassTotalRepository{totals: []models.FeeClassTotal{
			{FeeID: 1, ClassID: 7, TotalAmount: 9000},
		}},
		payments:      newMockFeePaymentRepository(students, fees),
		notifications: &mockNotificationRepository{},
		gateway:       &mockGateway{},
	}
}

func (f *fixture) planService() *FeePlanService {
	return NewFeePlanService(f.students, f.fees, f.plans, f.totals, f.payments, f.schools)
}

func (f *fixture) paymentService() *PaymentService {
	return NewPaymentService(f.payments, f.students, f.plans, f.schools, f.planService(), f.gateway,
		NewNotificationService(f.notifications), NewAuditService(nil, nil), nil, time.Hour)
}

func uintPtr(v uint) *uint { return &v }
func intPtr(v int) *int    { return &v }
