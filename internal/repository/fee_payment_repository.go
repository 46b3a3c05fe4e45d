package repository

import (
	"context"
	"time"

	"github.com/sjperalta/schoolfees-api/internal/models"
	"gorm.io/gorm"
)

// FeePaymentRepository defines the interface for fee payment data access
type FeePaymentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.FeePayment, error)
	FindByReference(ctx context.Context, reference string) (*models.FeePayment, error)
	FindByStudentAndFee(ctx context.Context, studentID, feeID uint) ([]models.FeePayment, error)
	FindByStudentAndFees(ctx context.Context, studentID uint, feeIDs []uint) ([]models.FeePayment, error)
	FindByStudent(ctx context.Context, studentID uint) ([]models.FeePayment, error)
	FindByFee(ctx context.Context, feeID uint) ([]models.FeePayment, error)
	FindStalePending(ctx context.Context, olderThan time.Time) ([]models.FeePayment, error)
	CountCompletedByFee(ctx context.Context, feeID uint) (int64, error)
	List(ctx context.Context, query *PaymentQuery) ([]models.FeePayment, int64, error)
	Create(ctx context.Context, payment *models.FeePayment) error
	Update(ctx context.Context, payment *models.FeePayment) error
}

// PaymentQuery extends ListQuery with fee payment filters
type PaymentQuery struct {
	*ListQuery
	SchoolID  uint
	StudentID uint
	FeeID     uint
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
}

type feePaymentRepository struct {
	db *gorm.DB
}

// NewFeePaymentRepository creates a new fee payment repository
func NewFeePaymentRepository(db *gorm.DB) FeePaymentRepository {
	return &feePaymentRepository{db: db}
}

func (r *feePaymentRepository) FindByID(ctx context.Context, id uint) (*models.FeePayment, error) {
	var payment models.FeePayment
	err := r.db.WithContext(ctx).
		Joins("Fee").
		Joins("Student").
		First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *feePaymentRepository) FindByReference(ctx context.Context, reference string) (*models.FeePayment, error) {
	var payment models.FeePayment
	err := r.db.WithContext(ctx).
		Joins("Fee").
		Joins("Student").
		Where("fee_payments.reference = ?", reference).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *feePaymentRepository) FindByStudentAndFee(ctx context.Context, studentID, feeID uint) ([]models.FeePayment, error) {
	var payments []models.FeePayment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND fee_id = ?", studentID, feeID).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *feePaymentRepository) FindByStudentAndFees(ctx context.Context, studentID uint, feeIDs []uint) ([]models.FeePayment, error) {
	var payments []models.FeePayment
	if len(feeIDs) == 0 {
		return payments, nil
	}
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND fee_id IN ?", studentID, feeIDs).
		Order("fee_id ASC, created_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *feePaymentRepository) FindByStudent(ctx context.Context, studentID uint) ([]models.FeePayment, error) {
	var payments []models.FeePayment
	err := r.db.WithContext(ctx).
		Joins("Fee").
		Where("fee_payments.student_id = ?", studentID).
		Order("fee_payments.created_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *feePaymentRepository) FindByFee(ctx context.Context, feeID uint) ([]models.FeePayment, error) {
	var payments []models.FeePayment
	err := r.db.WithContext(ctx).
		Joins("Student").
		Joins("Student.Class").
		Where("fee_payments.fee_id = ?", feeID).
		Order("fee_payments.student_id ASC, fee_payments.created_at ASC").
		Find(&payments).Error
	return payments, err
}

// FindStalePending returns pending payments created before the cutoff
func (r *feePaymentRepository) FindStalePending(ctx context.Context, olderThan time.Time) ([]models.FeePayment, error) {
	var payments []models.FeePayment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.FeePaymentStatusPending, olderThan).
		Order("created_at ASC").
		Limit(500).
		Find(&payments).Error
	return payments, err
}

func (r *feePaymentRepository) CountCompletedByFee(ctx context.Context, feeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FeePayment{}).
		Where("fee_id = ? AND (status = ? OR is_completed = ?)", feeID, models.FeePaymentStatusPaid, true).
		Count(&count).Error
	return count, err
}

func (r *feePaymentRepository) List(ctx context.Context, query *PaymentQuery) ([]models.FeePayment, int64, error) {
	var payments []models.FeePayment
	var total int64

	db := r.db.WithContext(ctx).Model(&models.FeePayment{}).
		Joins("Fee").
		Joins("Student")

	if query.SchoolID > 0 {
		db = db.Where("\"Fee\".school_id = ?", query.SchoolID)
	}
	if query.StudentID > 0 {
		db = db.Where("fee_payments.student_id = ?", query.StudentID)
	}
	if query.FeeID > 0 {
		db = db.Where("fee_payments.fee_id = ?", query.FeeID)
	}
	if query.Status != "" {
		db = db.Where("fee_payments.status = ?", query.Status)
	}
	if query.StartDate != nil {
		db = db.Where("fee_payments.created_at >= ?", query.StartDate)
	}
	if query.EndDate != nil {
		db = db.Where("fee_payments.created_at <= ?", query.EndDate)
	}
	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("fee_payments.reference ILIKE ? OR \"Student\".student_name ILIKE ?", search, search)
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = paginate(db, query.ListQuery, map[string]string{
		"amount_paid": "fee_payments.amount_paid",
		"status":      "fee_payments.status",
		"paid_at":     "fee_payments.paid_at",
		"created_at":  "fee_payments.created_at",
	}, "fee_payments.created_at DESC")

	err := db.Find(&payments).Error
	return payments, total, err
}

func (r *feePaymentRepository) Create(ctx context.Context, payment *models.FeePayment) error {
	err := r.db.WithContext(ctx).Omit("Fee", "Student").Create(payment).Error
	if isDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *feePaymentRepository) Update(ctx context.Context, payment *models.FeePayment) error {
	return r.db.WithContext(ctx).Omit("Fee", "Student").Save(payment).Error
}
