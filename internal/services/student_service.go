package services

import (
	"context"

	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
)

type StudentService struct {
	repo   repository.StudentRepository
	access access
}

func NewStudentService(repo repository.StudentRepository, schoolRepo repository.SchoolRepository) *StudentService {
	return &StudentService{repo: repo, access: access{schoolRepo: schoolRepo}}
}

// ListForGuardian returns the students of the calling guardian
func (s *StudentService) ListForGuardian(ctx context.Context, actor Actor) ([]models.Student, error) {
	if !actor.IsGuardian() {
		return nil, ErrForbidden
	}
	return s.repo.FindByGuardian(ctx, actor.Subject)
}

func (s *StudentService) Get(ctx context.Context, actor Actor, id uint) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.access.actForStudent(ctx, actor, student); err != nil {
		return nil, ErrNotFound
	}
	return student, nil
}
