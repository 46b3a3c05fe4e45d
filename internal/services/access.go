package services

import (
	"context"

	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
)

// access answers ownership questions shared by the services
type access struct {
	schoolRepo repository.SchoolRepository
}

// manageSchool allows only the proprietor who owns the school
func (a access) manageSchool(ctx context.Context, actor Actor, schoolID uint) error {
	if !actor.IsProprietor() {
		return ErrForbidden
	}
	school, err := a.schoolRepo.FindByID(ctx, schoolID)
	if err != nil {
		return mapRepoError(err)
	}
	if school.OwnerID != actor.Subject {
		return ErrForbidden
	}
	return nil
}

// readSchool additionally lets teachers read school data
func (a access) readSchool(ctx context.Context, actor Actor, schoolID uint) error {
	if actor.IsTeacher() {
		return nil
	}
	return a.manageSchool(ctx, actor, schoolID)
}

// actForStudent allows the student's guardian and the school's proprietor
func (a access) actForStudent(ctx context.Context, actor Actor, student *models.Student) error {
	switch {
	case actor.IsGuardian():
		if !student.IsGuardedBy(actor.Subject) {
			return ErrForbidden
		}
		return nil
	case actor.IsProprietor():
		return a.manageSchool(ctx, actor, student.SchoolID)
	default:
		return ErrForbidden
	}
}
