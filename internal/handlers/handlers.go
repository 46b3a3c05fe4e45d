package handlers

import (
	"github.com/sjperalta/schoolfees-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Student      *StudentHandler
	Fee          *FeeHandler
	Plan         *PlanHandler
	Payment      *PaymentHandler
	Notification *NotificationHandler
	Report       *ReportHandler
	Audit        *AuditHandler
	Job          *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, callbackSecret string) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Student:      NewStudentHandler(svcs.Student),
		Fee:          NewFeeHandler(svcs.Fee),
		Plan:         NewPlanHandler(svcs.FeePlan),
		Payment:      NewPaymentHandler(svcs.Payment, callbackSecret),
		Notification: NewNotificationHandler(svcs.Notification),
		Report:       NewReportHandler(svcs.Report),
		Audit:        NewAuditHandler(svcs.Audit),
		Job:          NewJobHandler(svcs.Job),
	}
}
