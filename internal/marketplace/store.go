package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-marketplace-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateTaskInput holds the attributes a task owner supplies.
type CreateTaskInput struct {
	Title          string
	Description    string
	Category       models.TaskCategory
	Priority       models.TaskPriority
	Budget         float64
	PointsReward   int
	EstimatedHours int
	DueDate        time.Time
	RequiredSkills []string
	Requirements   string
	Deliverables   string
}

// ApplicationInput holds a developer's bid.
type ApplicationInput struct {
	CoverLetter      string
	ProposedTimeline string
	ProposedBudget   *float64
}

// SubmissionInput holds a developer's deliverable.
type SubmissionInput struct {
	Description    string
	Files          []string
	RepositoryLink string
	DemoLink       string
}

// Store holds task, application and submission records and enforces the
// structural rules: required fields, (task, applicant) uniqueness, one
// submission per task, and versioned task writes.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a store on db.
func NewStore(db *gorm.DB, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, now: now}
}

// WithTx returns a store whose reads and writes join tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx, now: s.now}
}

// CreateTask validates in and stores a new open task owned by ownerID.
func (s *Store) CreateTask(ctx context.Context, ownerID string, in CreateTaskInput) (*models.Task, error) {
	if err := s.validateTask(&in); err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Category:       in.Category,
		Priority:       in.Priority,
		Status:         models.StatusOpen,
		Budget:         in.Budget,
		PointsReward:   in.PointsReward,
		EstimatedHours: in.EstimatedHours,
		Requirements:   in.Requirements,
		Deliverables:   in.Deliverables,
		DueDate:        in.DueDate.UTC(),
		CreatedBy:      ownerID,
		Version:        1,
	}
	task.SetSkills(in.RequiredSkills)

	if err := s.db.WithContext(ctx).Omit("Applications", "Submission").Create(task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	task.Hydrate(s.now())
	return task, nil
}

func (s *Store) validateTask(in *CreateTaskInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", "is required")
	}
	if len(in.Title) > 200 {
		return invalid("title", "must be at most 200 characters")
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalid("description", "is required")
	}
	if !in.Category.Valid() {
		return invalid("category", fmt.Sprintf("unknown category %q", in.Category))
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return invalid("priority", fmt.Sprintf("unknown priority %q", in.Priority))
	}
	if in.Budget < 0 {
		return invalid("budget", "must not be negative")
	}
	if in.PointsReward < 0 {
		return invalid("pointsReward", "must not be negative")
	}
	if in.EstimatedHours < 0 {
		return invalid("estimatedHours", "must not be negative")
	}
	if in.DueDate.IsZero() {
		return invalid("dueDate", "is required")
	}
	if !in.DueDate.After(s.now()) {
		return invalid("dueDate", "must be in the future")
	}
	return nil
}

// RecordApplication stores a pending application from applicantID.
func (s *Store) RecordApplication(ctx context.Context, task *models.Task, applicantID string, in ApplicationInput) (*models.TaskApplication, error) {
	if task.Status != models.StatusOpen {
		return nil, stateErr("task is %s, applications are closed", task.Status)
	}
	if applicantID == task.CreatedBy {
		return nil, ErrSelfAssignment
	}
	if strings.TrimSpace(in.CoverLetter) == "" {
		return nil, invalid("coverLetter", "is required")
	}
	if strings.TrimSpace(in.ProposedTimeline) == "" {
		return nil, invalid("proposedTimeline", "is required")
	}
	if in.ProposedBudget != nil && *in.ProposedBudget < 0 {
		return nil, invalid("proposedBudget", "must not be negative")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.TaskApplication{}).
		Where("task_id = ? AND applicant_id = ?", task.ID, applicantID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateApplication
	}

	app := &models.TaskApplication{
		ID:               uuid.NewString(),
		TaskID:           task.ID,
		ApplicantID:      applicantID,
		CoverLetter:      strings.TrimSpace(in.CoverLetter),
		ProposedTimeline: strings.TrimSpace(in.ProposedTimeline),
		ProposedBudget:   in.ProposedBudget,
		Status:           models.ApplicationPending,
		AppliedAt:        s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateApplication
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

// RecordSubmission stores the task's submission, replacing an earlier one in
// place. The first submission has revision 1.
func (s *Store) RecordSubmission(ctx context.Context, task *models.Task, developerID string, in SubmissionInput) (*models.TaskSubmission, error) {
	if !task.IsAssignedTo(developerID) {
		return nil, ErrNotAssigned
	}
	if task.Status != models.StatusAssigned && task.Status != models.StatusInProgress {
		return nil, stateErr("task is %s, work cannot be submitted", task.Status)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, invalid("description", "is required")
	}

	sub, err := s.Submission(ctx, task.ID)
	isNew := errors.Is(err, ErrNotFound)
	switch {
	case isNew:
		sub = &models.TaskSubmission{ID: uuid.NewString(), TaskID: task.ID, Revision: 1}
	case err != nil:
		return nil, err
	default:
		sub.Revision++
	}

	sub.SubmittedBy = developerID
	sub.Description = strings.TrimSpace(in.Description)
	sub.SetFiles(in.Files)
	sub.RepositoryLink = strings.TrimSpace(in.RepositoryLink)
	sub.DemoLink = strings.TrimSpace(in.DemoLink)
	sub.Status = models.SubmissionSubmitted
	sub.IsApproved = false
	sub.ReviewerFeedback = ""
	sub.SubmittedAt = s.now().UTC()
	sub.ReviewedAt = nil
	sub.ReviewedBy = nil

	if isNew {
		err = s.db.WithContext(ctx).Create(sub).Error
	} else {
		err = s.db.WithContext(ctx).Save(sub).Error
	}
	if err != nil {
		return nil, fmt.Errorf("save submission: %w", err)
	}
	return sub, nil
}

// Task loads a task by id.
func (s *Store) Task(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("task", id)
	}
	if err != nil {
		return nil, err
	}
	task.Hydrate(s.now())
	return &task, nil
}

// Application loads an application by id.
func (s *Store) Application(ctx context.Context, id string) (*models.TaskApplication, error) {
	var app models.TaskApplication
	err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("application", id)
	}
	return &app, err
}

// Applications lists a task's applications, newest first.
func (s *Store) Applications(ctx context.Context, taskID string) ([]models.TaskApplication, error) {
	var apps []models.TaskApplication
	err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("applied_at desc").
		Find(&apps).Error
	return apps, err
}

// Submission loads the submission for taskID.
func (s *Store) Submission(ctx context.Context, taskID string) (*models.TaskSubmission, error) {
	var sub models.TaskSubmission
	err := s.db.WithContext(ctx).First(&sub, "task_id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("submission for task", taskID)
	}
	if err != nil {
		return nil, err
	}
	sub.Hydrate()
	return &sub, nil
}

// SaveTask writes the task's lifecycle columns if the stored version still
// matches task.Version, then bumps the version. A mismatch means another
// writer got there first.
func (s *Store) SaveTask(ctx context.Context, task *models.Task) error {
	res := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND version = ?", task.ID, task.Version).
		Updates(map[string]any{
			"status":         task.Status,
			"assigned_to":    task.AssignedTo,
			"assigned_date":  task.AssignedDate,
			"completed_date": task.CompletedDate,
			"actual_hours":   task.ActualHours,
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	task.Version++
	task.Hydrate(s.now())
	return nil
}

// SaveApplication writes an application's review columns.
func (s *Store) SaveApplication(ctx context.Context, app *models.TaskApplication) error {
	return s.db.WithContext(ctx).Model(&models.TaskApplication{}).
		Where("id = ?", app.ID).
		Updates(map[string]any{
			"status":      app.Status,
			"reviewed_at": app.ReviewedAt,
			"reviewed_by": app.ReviewedBy,
		}).Error
}

// SaveSubmission writes a submission's review columns.
func (s *Store) SaveSubmission(ctx context.Context, sub *models.TaskSubmission) error {
	return s.db.WithContext(ctx).Model(&models.TaskSubmission{}).
		Where("id = ?", sub.ID).
		Updates(map[string]any{
			"status":            sub.Status,
			"is_approved":       sub.IsApproved,
			"reviewer_feedback": sub.ReviewerFeedback,
			"reviewed_at":       sub.ReviewedAt,
			"reviewed_by":       sub.ReviewedBy,
		}).Error
}

// LogActivity appends an audit entry for a task.
func (s *Store) LogActivity(ctx context.Context, actorID, taskID, action string, from, to models.TaskStatus) error {
	entry := &models.ActivityLog{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		TaskID:     taskID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

// User loads a user by id.
func (s *Store) User(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user", id)
	}
	return &u, err
}
