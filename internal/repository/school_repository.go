package repository

import (
	"context"

	"github.com/sjperalta/schoolfees-api/internal/models"
	"gorm.io/gorm"
)

// SchoolRepository defines the interface for school data access
type SchoolRepository interface {
	FindByID(ctx context.Context, id uint) (*models.School, error)
	FindByOwner(ctx context.Context, ownerID string) ([]models.School, error)
	ClassBelongsTo(ctx context.Context, classID, schoolID uint) (bool, error)
}

type schoolRepository struct {
	db *gorm.DB
}

// NewSchoolRepository creates a new school repository
func NewSchoolRepository(db *gorm.DB) SchoolRepository {
	return &schoolRepository{db: db}
}

func (r *schoolRepository) FindByID(ctx context.Context, id uint) (*models.School, error) {
	var school models.School
	if err := r.db.WithContext(ctx).First(&school, id).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *schoolRepository) FindByOwner(ctx context.Context, ownerID string) ([]models.School, error) {
	var schools []models.School
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&schools).Error
	return schools, err
}

func (r *schoolRepository) ClassBelongsTo(ctx context.Context, classID, schoolID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Class{}).
		Where("id = ? AND school_id = ?", classID, schoolID).
		Count(&count).Error
	return count > 0, err
}
