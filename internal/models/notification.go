package models

import "time"

// NotificationCategory groups notifications for display and filtering
type NotificationCategory string

const (
	NotifyTaskAssigned        NotificationCategory = "task_assigned"
	NotifyTaskApplication     NotificationCategory = "task_application"
	NotifyTaskSubmission      NotificationCategory = "task_submission"
	NotifyTaskCompleted       NotificationCategory = "task_completed"
	NotifyTaskCancelled       NotificationCategory = "task_cancelled"
	NotifyAchievementUnlocked NotificationCategory = "achievement_unlocked"
	NotifySystemUpdate        NotificationCategory = "system_update"
)

// Notification is a message addressed to one user.
type Notification struct {
	ID        string               `json:"id" gorm:"primaryKey;size:36"`
	UserID    string               `json:"userId" gorm:"column:user_id;not null;index"`
	Title     string               `json:"title" gorm:"not null"`
	Message   string               `json:"message" gorm:"not null"`
	Category  NotificationCategory `json:"category" gorm:"type:varchar(30);not null"`
	TaskID    *string              `json:"taskId,omitempty" gorm:"column:task_id"`
	IsRead    bool                 `json:"isRead" gorm:"column:is_read;not null;default:false"`
	CreatedAt time.Time            `json:"createdAt" gorm:"index"`
}

// TableName specifies the table name for Notification Model
func (Notification) TableName() string {
	return "notifications"
}
