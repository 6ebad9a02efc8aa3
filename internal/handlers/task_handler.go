package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"task-marketplace-api/internal/marketplace"
	"task-marketplace-api/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title          string              `json:"title" binding:"required,max=200"`
	Description    string              `json:"description" binding:"required"`
	Category       models.TaskCategory `json:"category" binding:"required"`
	Priority       models.TaskPriority `json:"priority"`
	Budget         float64             `json:"budget" binding:"gte=0"`
	PointsReward   int                 `json:"pointsReward" binding:"gte=0"`
	EstimatedHours int                 `json:"estimatedHours" binding:"gte=0"`
	DueDate        string              `json:"dueDate" binding:"required"`
	RequiredSkills []string            `json:"requiredSkills"`
	Requirements   string              `json:"requirements"`
	Deliverables   string              `json:"deliverables"`
}

// ApplyRequest represents a developer's application
type ApplyRequest struct {
	CoverLetter      string   `json:"coverLetter" binding:"required"`
	ProposedTimeline string   `json:"proposedTimeline" binding:"required"`
	ProposedBudget   *float64 `json:"proposedBudget"`
}

// SubmitWorkRequest represents a developer's deliverable
type SubmitWorkRequest struct {
	Description    string   `json:"description" binding:"required"`
	Files          []string `json:"files"`
	RepositoryLink string   `json:"repositoryLink"`
	DemoLink       string   `json:"demoLink"`
}

// ReviewRequest carries the reviewer's verdict. Approved is accepted as a
// shorthand when Decision is empty: true approves, false asks for revision.
type ReviewRequest struct {
	Decision   marketplace.ReviewDecision `json:"decision"`
	Approved   *bool                      `json:"approved"`
	Feedback   string                     `json:"feedback"`
	CancelTask bool                       `json:"cancelTask"`
}

func (r ReviewRequest) input() (marketplace.ReviewInput, error) {
	decision := r.Decision
	if decision == "" {
		if r.Approved == nil {
			return marketplace.ReviewInput{}, errors.New("decision or approved is required")
		}
		decision = marketplace.DecisionRevise
		if *r.Approved {
			decision = marketplace.DecisionApprove
		}
	}
	return marketplace.ReviewInput{Decision: decision, Feedback: strings.TrimSpace(r.Feedback), CancelTask: r.CancelTask}, nil
}

func parseDateFlexible(dateStr string) (time.Time, bool) {
	if dateStr == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,  // full RFC3339
		"2006-01-02",  // ISO date
		"2 Jan 2006",  // e.g., 30 Oct 2025
		"02 Jan 2006", // zero-padded day
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

/*
*
ListTasks handles GET /api/tasks
Query params: page (default 1), limit (default 5), sort (asc|desc on created_at),
status, category, priority, createdBy, assignedTo, overdue=true.
*/
func (h *Handler) ListTasks(c *gin.Context) {
	if _, ok := actor(c); !ok {
		return
	}

	page, limit := pageParams(c)
	filter := marketplace.TaskFilter{
		Status:     models.TaskStatus(c.Query("status")),
		Category:   models.TaskCategory(c.Query("category")),
		Priority:   models.TaskPriority(c.Query("priority")),
		CreatedBy:  c.Query("createdBy"),
		AssignedTo: c.Query("assignedTo"),
		Overdue:    c.Query("overdue") == "true",
		Page:       page,
		Limit:      limit,
		Sort:       strings.ToLower(c.DefaultQuery("sort", "desc")),
	}

	result, err := h.store.ListTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": result.Tasks,
		"count": len(result.Tasks), // number of items in this page
		"total": result.Total,      // total tasks (all pages) for current filter
		"page":  result.Page,
		"limit": result.Limit,
		"sort":  result.Sort,
	})
}

// CreateTask handles POST /api/tasks
func (h *Handler) CreateTask(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	due, ok := parseDateFlexible(req.DueDate)
	if !ok {
		badRequest(c, errors.New("dueDate must be an RFC3339 timestamp or YYYY-MM-DD"))
		return
	}

	task, err := h.engine.CreateTask(c.Request.Context(), who, marketplace.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Priority:       req.Priority,
		Budget:         req.Budget,
		PointsReward:   req.PointsReward,
		EstimatedHours: req.EstimatedHours,
		DueDate:        due,
		RequiredSkills: req.RequiredSkills,
		Requirements:   req.Requirements,
		Deliverables:   req.Deliverables,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GetTaskByID handles GET /api/tasks/:id
// Returns the task with its applications and submission.
func (h *Handler) GetTaskByID(c *gin.Context) {
	if _, ok := actor(c); !ok {
		return
	}
	task, err := h.store.TaskDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CancelTask handles POST /api/tasks/:id/cancel
func (h *Handler) CancelTask(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	task, err := h.engine.CancelTask(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// StartWork handles POST /api/tasks/:id/start
func (h *Handler) StartWork(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	task, err := h.engine.StartWork(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Apply handles POST /api/tasks/:id/applications
func (h *Handler) Apply(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	app, err := h.engine.Apply(c.Request.Context(), who, c.Param("id"), marketplace.ApplicationInput{
		CoverLetter:      req.CoverLetter,
		ProposedTimeline: req.ProposedTimeline,
		ProposedBudget:   req.ProposedBudget,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// ListApplications handles GET /api/tasks/:id/applications
// Only the task owner or an admin sees the applications.
func (h *Handler) ListApplications(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	task, err := h.store.Task(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !who.Admin && task.CreatedBy != who.ID {
		respondError(c, marketplace.ErrForbidden)
		return
	}
	apps, err := h.store.Applications(ctx, task.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "count": len(apps)})
}

// SubmitWork handles POST /api/tasks/:id/submission
func (h *Handler) SubmitWork(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req SubmitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sub, err := h.engine.SubmitWork(c.Request.Context(), who, c.Param("id"), marketplace.SubmissionInput{
		Description:    req.Description,
		Files:          req.Files,
		RepositoryLink: req.RepositoryLink,
		DemoLink:       req.DemoLink,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// MarkUnderReview handles POST /api/tasks/:id/submission/under-review
func (h *Handler) MarkUnderReview(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	sub, err := h.engine.MarkUnderReview(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ReviewSubmission handles POST /api/tasks/:id/review
func (h *Handler) ReviewSubmission(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		badRequest(c, err)
		return
	}
	task, err := h.engine.ReviewSubmission(c.Request.Context(), who, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	if in.Decision == marketplace.DecisionApprove {
		// Balances changed; the next leaderboard read reloads.
		h.invalidateLeaderboard()
	}
	c.JSON(http.StatusOK, task)
}

// GetActivity handles GET /api/tasks/:id/activity
func (h *Handler) GetActivity(c *gin.Context) {
	if _, ok := actor(c); !ok {
		return
	}
	entries, err := h.store.Activity(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries, "count": len(entries)})
}

// GetStatsByUser handles GET /api/stats/:userid
// Returns counts of tasks assigned to :userid, by status.
func (h *Handler) GetStatsByUser(c *gin.Context) {
	if _, ok := actor(c); !ok {
		return
	}
	targetUserID := strings.TrimSpace(c.Param("userid"))
	if targetUserID == "" {
		badRequest(c, errors.New("userid is required"))
		return
	}

	stats, err := h.store.StatsByUser(c.Request.Context(), targetUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assigned":   stats.ByStatus[models.StatusAssigned],
		"inProgress": stats.ByStatus[models.StatusInProgress],
		"review":     stats.ByStatus[models.StatusReview],
		"completed":  stats.ByStatus[models.StatusCompleted],
		"cancelled":  stats.ByStatus[models.StatusCancelled],
		"total":      stats.Total,
	})
}
