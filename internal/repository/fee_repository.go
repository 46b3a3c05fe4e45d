package repository

import (
	"context"
	"time"

	"github.com/sjperalta/schoolfees-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeeRepository defines the interface for fee data access
type FeeRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Fee, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Fee, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Fee, error)
	List(ctx context.Context, query *FeeQuery) ([]models.Fee, int64, error)
	Create(ctx context.Context, fee *models.Fee) error
	Replace(ctx context.Context, fee *models.Fee) error
	Delete(ctx context.Context, id uint) error
}

// FeeQuery extends ListQuery with fee-specific filters
type FeeQuery struct {
	*ListQuery
	SchoolID uint
	Session  string
	Term     string
}

type feeRepository struct {
	db *gorm.DB
}

// NewFeeRepository creates a new fee repository
func NewFeeRepository(db *gorm.DB) FeeRepository {
	return &feeRepository{db: db}
}

func (r *feeRepository) FindByID(ctx context.Context, id uint) (*models.Fee, error) {
	var fee models.Fee
	if err := r.db.WithContext(ctx).First(&fee, id).Error; err != nil {
		return nil, err
	}
	return &fee, nil
}

func (r *feeRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Fee, error) {
	var fee models.Fee
	err := r.db.WithContext(ctx).
		Joins("School").
		Preload("Plans", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_no ASC")
		}).
		Preload("Services", func(db *gorm.DB) *gorm.DB {
			return db.Order("class_id ASC, id ASC")
		}).
		Preload("ClassTotals").
		First(&fee, id).Error
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

func (r *feeRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Fee, error) {
	var fees []models.Fee
	if len(ids) == 0 {
		return fees, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&fees).Error
	return fees, err
}

func (r *feeRepository) List(ctx context.Context, query *FeeQuery) ([]models.Fee, int64, error) {
	var fees []models.Fee
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Fee{})

	if query.SchoolID > 0 {
		db = db.Where("fees.school_id = ?", query.SchoolID)
	}
	if query.Session != "" {
		db = db.Where("fees.session = ?", query.Session)
	}
	if query.Term != "" {
		db = db.Where("fees.term = ?", query.Term)
	}
	if query.Search != "" {
		db = db.Where("fees.name ILIKE ?", "%"+query.Search+"%")
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = paginate(db, query.ListQuery, map[string]string{
		"name":       "fees.name",
		"session":    "fees.session",
		"term":       "fees.term",
		"created_at": "fees.created_at",
	}, "fees.created_at DESC")

	err := db.Preload("Plans", func(db *gorm.DB) *gorm.DB {
		return db.Order("installment_no ASC")
	}).Find(&fees).Error
	return fees, total, err
}

// Create inserts the fee with its plans, services and class totals in one transaction
func (r *feeRepository) Create(ctx context.Context, fee *models.Fee) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(fee).Error; err != nil {
			return err
		}
		return insertChildren(tx, fee)
	})
	if isDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

// Replace updates the fee and reinserts its plans, services and class totals.
// Existing children are deleted first; their ids are not preserved.
func (r *feeRepository) Replace(ctx context.Context, fee *models.Fee) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Fee{}).
			Where("id = ?", fee.ID).
			Updates(map[string]interface{}{
				"name":       fee.Name,
				"session":    fee.Session,
				"term":       fee.Term,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := deleteChildren(tx, fee.ID); err != nil {
			return err
		}
		return insertChildren(tx, fee)
	})
	if isDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

// Delete removes the fee, its children and any payment that never completed
func (r *feeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("fee_id = ? AND status <> ? AND is_completed = ?", id, models.FeePaymentStatusPaid, false).
			Delete(&models.FeePayment{}).Error; err != nil {
			return err
		}
		if err := deleteChildren(tx, id); err != nil {
			return err
		}
		res := tx.Delete(&models.Fee{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func deleteChildren(tx *gorm.DB, feeID uint) error {
	if err := tx.Where("fee_id = ?", feeID).Delete(&models.FeePaymentPlan{}).Error; err != nil {
		return err
	}
	if err := tx.Where("fee_id = ?", feeID).Delete(&models.FeeService{}).Error; err != nil {
		return err
	}
	return tx.Where("fee_id = ?", feeID).Delete(&models.FeeClassTotal{}).Error
}

func insertChildren(tx *gorm.DB, fee *models.Fee) error {
	for i := range fee.Plans {
		fee.Plans[i].ID = 0
		fee.Plans[i].FeeID = fee.ID
	}
	for i := range fee.Services {
		fee.Services[i].ID = 0
		fee.Services[i].FeeID = fee.ID
	}
	for i := range fee.ClassTotals {
		fee.ClassTotals[i].FeeID = fee.ID
	}

	if len(fee.Plans) > 0 {
		if err := tx.Create(&fee.Plans).Error; err != nil {
			return err
		}
	}
	if len(fee.Services) > 0 {
		if err := tx.Create(&fee.Services).Error; err != nil {
			return err
		}
	}
	if len(fee.ClassTotals) > 0 {
		if err := tx.Create(&fee.ClassTotals).Error; err != nil {
			return err
		}
	}
	return nil
}
