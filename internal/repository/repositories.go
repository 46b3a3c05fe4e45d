package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	School       SchoolRepository
	Student      StudentRepository
	Fee          FeeRepository
	Plan         PlanRepository
	ClassTotal   ClassTotalRepository
	FeePayment   FeePaymentRepository
	Collection   CollectionRepository
	Notification NotificationRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		School:       NewSchoolRepository(db),
		Student:      NewStudentRepository(db),
		Fee:          NewFeeRepository(db),
		Plan:         NewPlanRepository(db),
		ClassTotal:   NewClassTotalRepository(db),
		FeePayment:   NewFeePaymentRepository(db),
		Collection:   NewCollectionRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
