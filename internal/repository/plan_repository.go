package repository

import (
	"context"

	"github.com/sjperalta/schoolfees-api/internal/models"
	"gorm.io/gorm"
)

// PlanRepository defines the interface for fee payment plan data access
type PlanRepository interface {
	FindByFee(ctx context.Context, feeID uint) ([]models.FeePaymentPlan, error)
	FindByFees(ctx context.Context, feeIDs []uint) ([]models.FeePaymentPlan, error)
}

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) FindByFee(ctx context.Context, feeID uint) ([]models.FeePaymentPlan, error) {
	var plans []models.FeePaymentPlan
	err := r.db.WithContext(ctx).
		Where("fee_id = ?", feeID).
		Order("installment_no ASC, id ASC").
		Find(&plans).Error
	return plans, err
}

func (r *planRepository) FindByFees(ctx context.Context, feeIDs []uint) ([]models.FeePaymentPlan, error) {
	var plans []models.FeePaymentPlan
	if len(feeIDs) == 0 {
		return plans, nil
	}
	err := r.db.WithContext(ctx).
		Where("fee_id IN ?", feeIDs).
		Order("fee_id ASC, installment_no ASC, id ASC").
		Find(&plans).Error
	return plans, err
}

// ClassTotalRepository defines the interface for per-class fee totals
type ClassTotalRepository interface {
	FindByFeeAndClass(ctx context.Context, feeID, classID uint) ([]models.FeeClassTotal, error)
	FindByFee(ctx context.Context, feeID uint) ([]models.FeeClassTotal, error)
	FindByFeesAndClass(ctx context.Context, feeIDs []uint, classID uint) ([]models.FeeClassTotal, error)
}

type classTotalRepository struct {
	db *gorm.DB
}

// NewClassTotalRepository creates a new class total repository
func NewClassTotalRepository(db *gorm.DB) ClassTotalRepository {
	return &classTotalRepository{db: db}
}

// FindByFeeAndClass returns the matching row, or an empty slice when the fee does not apply to the class
func (r *classTotalRepository) FindByFeeAndClass(ctx context.Context, feeID, classID uint) ([]models.FeeClassTotal, error) {
	var totals []models.FeeClassTotal
	err := r.db.WithContext(ctx).
		Where("fee_id = ? AND class_id = ?", feeID, classID).
		Find(&totals).Error
	return totals, err
}

func (r *classTotalRepository) FindByFee(ctx context.Context, feeID uint) ([]models.FeeClassTotal, error) {
	var totals []models.FeeClassTotal
	err := r.db.WithContext(ctx).
		Where("fee_id = ?", feeID).
		Order("class_id ASC").
		Find(&totals).Error
	return totals, err
}

func (r *classTotalRepository) FindByFeesAndClass(ctx context.Context, feeIDs []uint, classID uint) ([]models.FeeClassTotal, error) {
	var totals []models.FeeClassTotal
	if len(feeIDs) == 0 {
		return totals, nil
	}
	err := r.db.WithContext(ctx).
		Where("fee_id IN ? AND class_id = ?", feeIDs, classID).
		Find(&totals).Error
	return totals, err
}
