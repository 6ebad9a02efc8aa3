package marketplace

import (
	"context"
	"errors"

	"task-marketplace-api/internal/models"

	"gorm.io/gorm"
)

// TaskFilter narrows ListTasks. Zero fields match everything.
type TaskFilter struct {
	Status     models.TaskStatus
	Category   models.TaskCategory
	Priority   models.TaskPriority
	CreatedBy  string
	AssignedTo string
	Overdue    bool
	Page       int
	Limit      int
	// Sort is "asc" or "desc" on created_at; anything else means desc.
	Sort string
}

// TaskPage is one page of ListTasks.
type TaskPage struct {
	Tasks []models.Task
	Total int64
	Page  int
	Limit int
	Sort  string
}

func (f *TaskFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 5
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Sort != "asc" {
		f.Sort = "desc"
	}
}

// ListTasks returns the tasks matching f, one page at a time.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) (*TaskPage, error) {
	f.normalize()
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("status", "unknown status")
	}
	if f.Category != "" && !f.Category.Valid() {
		return nil, invalid("category", "unknown category")
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, invalid("priority", "unknown priority")
	}

	query := s.db.WithContext(ctx).Model(&models.Task{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Priority != "" {
		query = query.Where("priority = ?", f.Priority)
	}
	if f.CreatedBy != "" {
		query = query.Where("created_by = ?", f.CreatedBy)
	}
	if f.AssignedTo != "" {
		query = query.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.Overdue {
		query = query.Where("due_date < ? AND status NOT IN ?",
			s.now().UTC(), []models.TaskStatus{models.StatusCompleted, models.StatusCancelled})
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var tasks []models.Task
	err := query.Session(&gorm.Session{}).
		Order("created_at " + f.Sort).
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range tasks {
		tasks[i].Hydrate(now)
	}
	return &TaskPage{Tasks: tasks, Total: total, Page: f.Page, Limit: f.Limit, Sort: f.Sort}, nil
}

// TaskDetail loads a task with its applications and submission.
func (s *Store) TaskDetail(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).
		Preload("Applications", func(db *gorm.DB) *gorm.DB { return db.Order("applied_at desc") }).
		Preload("Submission").
		First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("task", id)
	}
	if err != nil {
		return nil, err
	}
	task.Hydrate(s.now())
	if task.Submission != nil {
		task.Submission.Hydrate()
	}
	return &task, nil
}

// Activity returns a task's audit trail, oldest first.
func (s *Store) Activity(ctx context.Context, taskID string) ([]models.ActivityLog, error) {
	if _, err := s.Task(ctx, taskID); err != nil {
		return nil, err
	}
	var entries []models.ActivityLog
	err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at asc").
		Find(&entries).Error
	return entries, err
}

// UserStats counts the tasks assigned to a user by status.
type UserStats struct {
	ByStatus map[models.TaskStatus]int64
	Total    int64
}

// StatsByUser counts the tasks assigned to userID, by status.
func (s *Store) StatsByUser(ctx context.Context, userID string) (*UserStats, error) {
	type row struct {
		Status models.TaskStatus
		Count  int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).Model(&models.Task{}).
		Select("status, COUNT(*) as count").
		Where("assigned_to = ?", userID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &UserStats{ByStatus: map[models.TaskStatus]int64{
		models.StatusAssigned:   0,
		models.StatusInProgress: 0,
		models.StatusReview:     0,
		models.StatusCompleted:  0,
		models.StatusCancelled:  0,
	}}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.Total += r.Count
	}
	return stats, nil
}

// Users lists every user ordered by username.
func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("username asc").Find(&users).Error
	return users, err
}
