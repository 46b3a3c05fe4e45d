package services

import (
	"github.com/sjperalta/schoolfees-api/internal/config"
	"github.com/sjperalta/schoolfees-api/internal/gateway"
	"github.com/sjperalta/schoolfees-api/internal/jobs"
	"github.com/sjperalta/schoolfees-api/internal/repository"
	"gorm.io/gorm"
)

// Services holds all service instances
type Services struct {
	Student      *StudentService
	Fee          *FeeService
	FeePlan      *FeePlanService
	Payment      *PaymentService
	Notification *NotificationService
	Report       *ReportService
	Audit        *AuditService
	Job          *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, initiator gateway.Initiator, cfg *config.Config, db *gorm.DB) *Services {
	notificationSvc := NewNotificationService(repos.Notification)
	auditSvc := NewAuditService(db, worker)
	feePlanSvc := NewFeePlanService(repos.Student, repos.Fee, repos.Plan, repos.ClassTotal, repos.FeePayment, repos.School)

	return &Services{
		Student:      NewStudentService(repos.Student, repos.School),
		Fee:          NewFeeService(repos.Fee, repos.FeePayment, repos.School, repos.Student, auditSvc, notificationSvc, worker),
		FeePlan:      feePlanSvc,
		Payment:      NewPaymentService(repos.FeePayment, repos.Student, repos.Plan, repos.School, feePlanSvc, initiator, notificationSvc, auditSvc, worker, cfg.PendingPaymentTTL),
		Notification: notificationSvc,
		Report:       NewReportService(repos.Student, repos.Fee, repos.FeePayment, repos.Collection, repos.School),
		Audit:        auditSvc,
		Job:          NewJobService(worker),
	}
}
