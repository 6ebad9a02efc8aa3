// Package notify persists user notifications and delivers them over the
// realtime, pub/sub and mail channels. Delivery is best effort: a failed leg
// is logged and never undoes the write that caused it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"task-marketplace-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outbox collects the notifications produced by one transaction. Save them
// with the transaction, then Dispatch after it commits.
type Outbox struct {
	items []models.Notification
	now   func() time.Time
}

// NewOutbox returns an empty outbox stamping notifications with now.
func NewOutbox(now func() time.Time) *Outbox {
	if now == nil {
		now = time.Now
	}
	return &Outbox{now: now}
}

// Add queues a notification for userID. taskID may be empty.
func (o *Outbox) Add(userID, title, message string, category models.NotificationCategory, taskID string) {
	n := models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Category:  category,
		CreatedAt: o.now().UTC(),
	}
	if taskID != "" {
		n.TaskID = &taskID
	}
	o.items = append(o.items, n)
}

// Items returns the queued notifications.
func (o *Outbox) Items() []models.Notification {
	return o.items
}

// Len returns the number of queued notifications.
func (o *Outbox) Len() int {
	return len(o.items)
}

// Save writes the queued notifications with tx.
func (o *Outbox) Save(tx *gorm.DB) error {
	if len(o.items) == 0 {
		return nil
	}
	if err := tx.Create(&o.items).Error; err != nil {
		return fmt.Errorf("save notifications: %w", err)
	}
	return nil
}

// Dispatch hands every queued notification to d. Errors are logged, not returned.
func (o *Outbox) Dispatch(ctx context.Context, d Deliverer) {
	if d == nil {
		return
	}
	for _, n := range o.items {
		if err := d.Deliver(ctx, n); err != nil {
			slog.Warn("notification delivery failed",
				"notification_id", n.ID,
				"user_id", n.UserID,
				"category", n.Category,
				"error", err,
			)
		}
	}
}
