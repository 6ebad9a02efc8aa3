package models

import "time"

// AchievementKind classifies achievements
type AchievementKind string

const (
	AchievementProjectCompletion  AchievementKind = "project_completion"
	AchievementPointsMilestone    AchievementKind = "points_milestone"
	AchievementSpecialRecognition AchievementKind = "special_recognition"
)

// Achievement is a one-time badge earned by a user. (user_id, code) is unique.
type Achievement struct {
	ID            string          `json:"id" gorm:"primaryKey;size:36"`
	UserID        string          `json:"userId" gorm:"column:user_id;not null;uniqueIndex:idx_achievement_user_code"`
	Code          string          `json:"code" gorm:"not null;uniqueIndex:idx_achievement_user_code"`
	Title         string          `json:"title" gorm:"not null"`
	Description   string          `json:"description"`
	Kind          AchievementKind `json:"kind" gorm:"type:varchar(30);not null"`
	PointsAwarded int             `json:"pointsAwarded" gorm:"column:points_awarded;not null;default:0"`
	BadgeIcon     string          `json:"badgeIcon" gorm:"column:badge_icon"`
	EarnedAt      time.Time       `json:"earnedAt" gorm:"column:earned_at;not null"`
}

// TableName specifies the table name for Achievement Model
func (Achievement) TableName() string {
	return "achievements"
}

// PointEntry is one append-only line of the points ledger.
// A non-empty Reference is unique, which makes credits safe to repeat.
type PointEntry struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"userId" gorm:"column:user_id;not null;index"`
	Delta     int       `json:"delta" gorm:"not null"`
	Reason    string    `json:"reason" gorm:"not null"`
	Reference *string   `json:"reference,omitempty" gorm:"uniqueIndex"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for PointEntry Model
func (PointEntry) TableName() string {
	return "point_entries"
}

// ActivityLog records one lifecycle transition. Rows are never updated.
type ActivityLog struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	ActorID    string     `json:"actorId" gorm:"column:actor_id;not null;index"`
	TaskID     string     `json:"taskId" gorm:"column:task_id;not null;index"`
	Action     string     `json:"action" gorm:"not null"`
	FromStatus TaskStatus `json:"fromStatus" gorm:"column:from_status;type:varchar(20)"`
	ToStatus   TaskStatus `json:"toStatus" gorm:"column:to_status;type:varchar(20)"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"index"`
}

// TableName specifies the table name for ActivityLog Model
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// All lists every model for migrations.
func All() []any {
	return []any{
		&User{},
		&Task{},
		&TaskApplication{},
		&TaskSubmission{},
		&Notification{},
		&Achievement{},
		&PointEntry{},
		&ActivityLog{},
	}
}
