package services

import (
	"context"

	"github.com/sjperalta/schoolfees-api/internal/jobs"
)

// notifier hands notifications to the worker pool so callers never wait on the write
type notifier struct {
	svc    *NotificationService
	worker *jobs.Worker
}

func (n notifier) send(recipient, title, message, notifType string) {
	if recipient == "" || n.svc == nil {
		return
	}
	job := func(ctx context.Context) error {
		return n.svc.Notify(ctx, recipient, title, message, notifType)
	}
	if n.worker == nil {
		_ = job(context.Background())
		return
	}
	n.worker.Enqueue("notify:"+notifType, job)
}
