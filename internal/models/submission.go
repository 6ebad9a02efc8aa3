package models

import (
	"strings"
	"time"
)

// SubmissionStatus represents the review state of a task submission
type SubmissionStatus string

const (
	SubmissionSubmitted     SubmissionStatus = "submitted"
	SubmissionUnderReview   SubmissionStatus = "under_review"
	SubmissionApproved      SubmissionStatus = "approved"
	SubmissionNeedsRevision SubmissionStatus = "needs_revision"
	SubmissionRejected      SubmissionStatus = "rejected"
)

// TaskSubmission is the deliverable a developer provides against an assigned task.
// There is at most one per task; resubmissions replace it in place.
type TaskSubmission struct {
	ID               string           `json:"id" gorm:"primaryKey;size:36"`
	TaskID           string           `json:"taskId" gorm:"column:task_id;not null;uniqueIndex"`
	SubmittedBy      string           `json:"submittedBy" gorm:"column:submitted_by;not null"`
	Description      string           `json:"description" gorm:"not null"`
	FileRefs         string           `json:"-" gorm:"column:files"`
	Files            []string         `json:"files" gorm:"-"`
	RepositoryLink   string           `json:"repositoryLink" gorm:"column:repository_link"`
	DemoLink         string           `json:"demoLink" gorm:"column:demo_link"`
	Status           SubmissionStatus `json:"status" gorm:"type:varchar(20);not null;default:'submitted'"`
	IsApproved       bool             `json:"isApproved" gorm:"column:is_approved;not null;default:false"`
	ReviewerFeedback string           `json:"reviewerFeedback" gorm:"column:reviewer_feedback"`
	Revision         int              `json:"revision" gorm:"not null;default:1"`
	SubmittedAt      time.Time        `json:"submittedAt" gorm:"column:submitted_at;not null"`
	ReviewedAt       *time.Time       `json:"reviewedAt" gorm:"column:reviewed_at"`
	ReviewedBy       *string          `json:"reviewedBy" gorm:"column:reviewed_by"`
}

// TableName specifies the table name for TaskSubmission Model
func (TaskSubmission) TableName() string {
	return "task_submissions"
}

// SetFiles stores file references as a newline-separated column.
func (s *TaskSubmission) SetFiles(files []string) {
	kept := make([]string, 0, len(files))
	for _, f := range files {
		if f = strings.TrimSpace(f); f != "" {
			kept = append(kept, f)
		}
	}
	s.Files = kept
	s.FileRefs = strings.Join(kept, "\n")
}

// Hydrate fills the derived file list from the stored column.
func (s *TaskSubmission) Hydrate() {
	s.Files = []string{}
	if s.FileRefs == "" {
		return
	}
	s.Files = strings.Split(s.FileRefs, "\n")
}
