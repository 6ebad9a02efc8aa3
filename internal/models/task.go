package models

import (
	"strings"
	"time"
)

// TaskStatus represents the lifecycle status of a task
type TaskStatus string

const (
	StatusOpen       TaskStatus = "open"
	StatusAssigned   TaskStatus = "assigned"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusInProgress, StatusReview, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// HasAssignee reports whether a task in status s must carry an assigned developer.
func (s TaskStatus) HasAssignee() bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// TaskCategory represents the kind of work a task asks for
type TaskCategory string

const (
	CategoryDevelopment   TaskCategory = "development"
	CategoryDesign        TaskCategory = "design"
	CategoryTesting       TaskCategory = "testing"
	CategoryDocumentation TaskCategory = "documentation"
	CategoryConsultation  TaskCategory = "consultation"
	CategoryTraining      TaskCategory = "training"
	CategoryMaintenance   TaskCategory = "maintenance"
)

// Valid reports whether c is a known category.
func (c TaskCategory) Valid() bool {
	switch c {
	case CategoryDevelopment, CategoryDesign, CategoryTesting, CategoryDocumentation,
		CategoryConsultation, CategoryTraining, CategoryMaintenance:
		return true
	}
	return false
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a unit of paid work open to developer applications.
type Task struct {
	ID             string       `json:"id" gorm:"primaryKey;size:36"`
	Title          string       `json:"title" gorm:"not null"`
	Description    string       `json:"description" gorm:"not null"`
	Category       TaskCategory `json:"category" gorm:"type:varchar(20);not null;index"`
	Priority       TaskPriority `json:"priority" gorm:"type:varchar(10);not null;default:'medium'"`
	Status         TaskStatus   `json:"status" gorm:"type:varchar(20);not null;default:'open';index"`
	Budget         float64      `json:"budget" gorm:"type:decimal(10,2);not null"`
	PointsReward   int          `json:"pointsReward" gorm:"column:points_reward;not null;default:0"`
	EstimatedHours int          `json:"estimatedHours" gorm:"column:estimated_hours"`
	ActualHours    int          `json:"actualHours" gorm:"column:actual_hours;default:0"`
	Requirements   string       `json:"requirements"`
	Deliverables   string       `json:"deliverables"`
	RequiredSkills string       `json:"-" gorm:"column:required_skills"`
	Skills         []string     `json:"requiredSkills" gorm:"-"`
	DueDate        time.Time    `json:"dueDate" gorm:"column:due_date;not null"`
	CreatedBy      string       `json:"createdBy" gorm:"column:created_by;not null;index"`
	AssignedTo     *string      `json:"assignedTo" gorm:"column:assigned_to;index"`
	AssignedDate   *time.Time   `json:"assignedDate" gorm:"column:assigned_date"`
	CompletedDate  *time.Time   `json:"completedDate" gorm:"column:completed_date"`
	Version        uint         `json:"version" gorm:"not null;default:1"`
	IsOverdue      bool         `json:"isOverdue" gorm:"-"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`

	Applications []TaskApplication `json:"applications,omitempty" gorm:"foreignKey:TaskID"`
	Submission   *TaskSubmission   `json:"submission,omitempty" gorm:"foreignKey:TaskID"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// Overdue reports whether the due date has passed while work is still outstanding.
// It is display-only and never drives a transition.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate.Before(now) && !t.Status.Terminal()
}

// IsAssignedTo reports whether userID is the task's current developer.
func (t *Task) IsAssignedTo(userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// SetSkills normalizes skills into the stored comma-separated column.
func (t *Task) SetSkills(skills []string) {
	t.Skills = NormalizeSkills(skills)
	t.RequiredSkills = strings.Join(t.Skills, ",")
}

// Hydrate fills the derived, non-persisted fields.
func (t *Task) Hydrate(now time.Time) {
	t.Skills = NormalizeSkills(strings.Split(t.RequiredSkills, ","))
	t.IsOverdue = t.Overdue(now)
}

// NormalizeSkills trims, drops empties and de-duplicates case-insensitively, keeping first spelling.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
