package services

import (
	"context"
	"fmt"

	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
)

type NotificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// FindByID returns the notification if it belongs to the recipient
func (s *NotificationService) FindByID(ctx context.Context, id uint, recipient string) (*models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if notification.Recipient != recipient {
		return nil, ErrNotFound
	}
	return notification, nil
}

func (s *NotificationService) FindByRecipient(ctx context.Context, recipient string, query *repository.ListQuery) ([]models.Notification, int64, error) {
	return s.repo.FindByRecipient(ctx, recipient, query)
}

func (s *NotificationService) CountUnread(ctx context.Context, recipient string) (int64, error) {
	return s.repo.CountUnread(ctx, recipient)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id uint, recipient string) (*models.Notification, error) {
	notification, err := s.FindByID(ctx, id, recipient)
	if err != nil {
		return nil, err
	}
	if notification.IsRead() {
		return notification, nil
	}
	notification.MarkAsRead()
	if err := s.repo.Update(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, recipient string) error {
	return s.repo.MarkAllAsRead(ctx, recipient)
}

func (s *NotificationService) Delete(ctx context.Context, id uint, recipient string) error {
	if _, err := s.FindByID(ctx, id, recipient); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Notify stores a notification for the recipient; an empty recipient is skipped
func (s *NotificationService) Notify(ctx context.Context, recipient, title, message, notifType string) error {
	if recipient == "" {
		return nil
	}
	notification := &models.Notification{
		Recipient:        recipient,
		Title:            title,
		Message:          message,
		NotificationType: &notifType,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to notify %s: %w", recipient, err)
	}
	return nil
}
