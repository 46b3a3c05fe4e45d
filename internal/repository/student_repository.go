package repository

import (
	"context"

	"github.com/sjperalta/schoolfees-api/internal/models"
	"gorm.io/gorm"
)

// StudentRepository defines the interface for student data access
type StudentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Student, error)
	FindByGuardian(ctx context.Context, guardianID string) ([]models.Student, error)
	FindByClass(ctx context.Context, classID uint) ([]models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) FindByID(ctx context.Context, id uint) (*models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Joins("School").
		Joins("Class").
		First(&student, id).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) FindByGuardian(ctx context.Context, guardianID string) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Joins("Class").
		Where("students.guardian_id = ?", guardianID).
		Order("students.student_name ASC").
		Find(&students).Error
	return students, err
}

func (r *studentRepository) FindByClass(ctx context.Context, classID uint) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Joins("Class").
		Where("students.class_id = ?", classID).
		Order("students.student_name ASC").
		Find(&students).Error
	return students, err
}
