package services

import (
	"context"

	"github.com/sjperalta/schoolfees-api/internal/jobs"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/pkg/logger"
	"gorm.io/gorm"
)

// Audit actions
const (
	AuditCreate   = "CREATE"
	AuditUpdate   = "UPDATE"
	AuditDelete   = "DELETE"
	AuditInitiate = "INITIATE"
	AuditComplete = "COMPLETE"
	AuditFail     = "FAIL"
	AuditExpire   = "EXPIRE"
	AuditReview   = "REVIEW"
)

type AuditService struct {
	db     *gorm.DB
	worker *jobs.Worker
}

func NewAuditService(db *gorm.DB, worker *jobs.Worker) *AuditService {
	return &AuditService{db: db, worker: worker}
}

// Log records an audit entry off the request path. Failures are logged and never block the caller.
func (s *AuditService) Log(ctx context.Context, actor Actor, action, entity string, entityID uint, details string) {
	if s == nil || s.db == nil {
		return
	}
	entry := &models.AuditLog{
		Actor:     actor.Subject,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	write := func(ctx context.Context) error {
		if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
			logger.Warn("[Audit] Failed to write audit entry", "action", action, "entity", entity, "error", err.Error())
		}
		return nil
	}
	if s.worker == nil {
		_ = write(ctx)
		return
	}
	s.worker.EnqueueAsync("audit:"+action, write)
}

// List retrieves the actor's own audit trail, newest first
func (s *AuditService) List(ctx context.Context, actor Actor, entity string, limit, offset int) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := s.db.WithContext(ctx).Model(&models.AuditLog{}).Where("actor = ?", actor.Subject)
	if entity != "" {
		db = db.Where("entity = ?", entity)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at desc").Limit(limit).Offset(offset).Find(&logs).Error
	return logs, total, err
}
