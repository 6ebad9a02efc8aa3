package models

import "time"

// ApplicationStatus represents the review state of a task application
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

// TaskApplication is a developer's bid to be assigned a task.
// (task_id, applicant_id) is unique.
type TaskApplication struct {
	ID               string            `json:"id" gorm:"primaryKey;size:36"`
	TaskID           string            `json:"taskId" gorm:"column:task_id;not null;uniqueIndex:idx_application_task_applicant"`
	ApplicantID      string            `json:"applicantId" gorm:"column:applicant_id;not null;uniqueIndex:idx_application_task_applicant"`
	CoverLetter      string            `json:"coverLetter" gorm:"column:cover_letter;not null"`
	ProposedTimeline string            `json:"proposedTimeline" gorm:"column:proposed_timeline;not null"`
	ProposedBudget   *float64          `json:"proposedBudget" gorm:"column:proposed_budget;type:decimal(10,2)"`
	Status           ApplicationStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	AppliedAt        time.Time         `json:"appliedAt" gorm:"column:applied_at;not null"`
	ReviewedAt       *time.Time        `json:"reviewedAt" gorm:"column:reviewed_at"`
	ReviewedBy       *string           `json:"reviewedBy" gorm:"column:reviewed_by"`
}

// TableName specifies the table name for TaskApplication Model
func (TaskApplication) TableName() string {
	return "task_applications"
}
