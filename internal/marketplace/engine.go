// Package marketplace implements the task marketplace lifecycle: tasks are
// posted open, developers apply, the owner accepts one application, the
// assigned developer submits work, and the owner reviews it.
//
// Engine is the only writer of task, application and submission status.
// Each transition runs in one database transaction under a per-task lock,
// and the task row is written with an optimistic version check. Points and
// stored notifications commit with the transition; delivery of those
// notifications happens after commit and cannot fail the call.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"task-marketplace-api/internal/achievements"
	"task-marketplace-api/internal/models"
	"task-marketplace-api/internal/notify"
	"task-marketplace-api/internal/points"

	"gorm.io/gorm"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID    string
	Admin bool
}

// ReviewDecision is the reviewer's verdict on a submission.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionRevise  ReviewDecision = "needs_revision"
	DecisionReject  ReviewDecision = "reject"
)

// ReviewInput is a reviewer's verdict. CancelTask is only meaningful with
// DecisionReject and gives up on the task instead of reopening work.
type ReviewInput struct {
	Decision   ReviewDecision
	Feedback   string
	CancelTask bool
}

// Recorder observes transition outcomes.
type Recorder interface {
	TransitionObserved(action string, err error)
	PointsCredited(amount int)
}

// Options configures an Engine.
type Options struct {
	Deliverer notify.Deliverer
	Recorder  Recorder
	Now       func() time.Time
}

// Engine performs every task lifecycle transition.
type Engine struct {
	db           *gorm.DB
	store        *Store
	ledger       *points.Ledger
	achievements *achievements.Service
	deliverer    notify.Deliverer
	recorder     Recorder
	locks        *keyedMutex
	now          func() time.Time
}

// NewEngine creates an engine on db.
func NewEngine(db *gorm.DB, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ledger := points.NewLedger(db)
	return &Engine{
		db:           db,
		store:        NewStore(db, now),
		ledger:       ledger,
		achievements: achievements.NewService(db, ledger),
		deliverer:    opts.Deliverer,
		recorder:     opts.Recorder,
		locks:        newKeyedMutex(),
		now:          now,
	}
}

// Store returns the engine's read access to records.
func (e *Engine) Store() *Store {
	return e.store
}

// txn is the per-transition view handed to transition bodies.
type txn struct {
	store        *Store
	achievements *achievements.Service
	out          *notify.Outbox
	credited     int
}

// transition runs fn for taskID under the task's lock and inside one
// database transaction, then delivers the notifications fn queued.
func (e *Engine) transition(ctx context.Context, action, taskID string, fn func(t *txn) error) error {
	unlock := e.locks.Lock(taskID)
	defer unlock()

	t := &txn{out: notify.NewOutbox(e.now)}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t.store = e.store.WithTx(tx)
		t.achievements = e.achievements.WithTx(tx)
		if err := fn(t); err != nil {
			return err
		}
		return t.out.Save(tx)
	})
	if e.recorder != nil {
		e.recorder.TransitionObserved(action, err)
		if err == nil && t.credited > 0 {
			e.recorder.PointsCredited(t.credited)
		}
	}
	if err != nil {
		slog.Debug("transition rejected", "action", action, "task_id", taskID, "error", err)
		return err
	}

	slog.Info("task transition", "action", action, "task_id", taskID)
	t.out.Dispatch(ctx, e.deliverer)
	return nil
}

// move sets the task's status, saves it with a version check and appends
// the audit entry.
func (t *txn) move(ctx context.Context, actorID string, task *models.Task, action string, to models.TaskStatus) error {
	from := task.Status
	task.Status = to
	if err := t.store.SaveTask(ctx, task); err != nil {
		return err
	}
	return t.store.LogActivity(ctx, actorID, task.ID, action, from, to)
}

func canReview(actor Actor, task *models.Task) bool {
	return actor.Admin || actor.ID == task.CreatedBy
}

func (e *Engine) timestamp() *time.Time {
	ts := e.now().UTC()
	return &ts
}

// CreateTask posts a new open task owned by the actor.
func (e *Engine) CreateTask(ctx context.Context, actor Actor, in CreateTaskInput) (*models.Task, error) {
	var task *models.Task
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := e.store.WithTx(tx)
		var err error
		task, err = store.CreateTask(ctx, actor.ID, in)
		if err != nil {
			return err
		}
		return store.LogActivity(ctx, actor.ID, task.ID, "created", "", models.StatusOpen)
	})
	if e.recorder != nil {
		e.recorder.TransitionObserved("create", err)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("task created", "task_id", task.ID, "owner", actor.ID)
	return task, nil
}

// Apply records the actor's application to an open task and tells the owner.
func (e *Engine) Apply(ctx context.Context, actor Actor, taskID string, in ApplicationInput) (*models.TaskApplication, error) {
	var app *models.TaskApplication
	err := e.transition(ctx, "apply", taskID, func(t *txn) error {
		task, err := t.store.Task(ctx, taskID)
		if err != nil {
			return err
		}
		app, err = t.store.RecordApplication(ctx, task, actor.ID, in)
		if err != nil {
			return err
		}
		applicant, err := t.store.User(ctx, actor.ID)
		if err != nil {
			return err
		}
		t.out.Add(task.CreatedBy, "New Task Application",
			fmt.Sprintf("%s applied for task: %s", applicant.Username, task.Title),
			models.NotifyTaskApplication, task.ID)
		return t.store.LogActivity(ctx, actor.ID, task.ID, "application_submitted", task.Status, task.Status)
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Withdraw lets an applicant take back a pending application.
func (e *Engine) Withdraw(ctx context.Context, actor Actor, applicationID string) (*models.TaskApplication, error) {
	pre, err := e.store.Application(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	var app *models.TaskApplication
	err = e.transition(ctx, "withdraw", pre.TaskID, func(t *txn) error {
		var err error
		app, err = t.store.Application(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.ApplicantID != actor.ID {
			return fmt.Errorf("%w: only the applicant can withdraw", ErrForbidden)
		}
		if app.Status != models.ApplicationPending {
			return stateErr("application is %s", app.Status)
		}
		task, err := t.store.Task(ctx, app.TaskID)
		if err != nil {
			return err
		}
		app.Status = models.ApplicationWithdrawn
		app.ReviewedAt = e.timestamp()
		if err := t.store.SaveApplication(ctx, app); err != nil {
			return err
		}
		t.out.Add(task.CreatedBy, "Application Withdrawn",
			fmt.Sprintf("An applicant withdrew from task: %s", task.Title),
			models.NotifyTaskApplication, task.ID)
		return t.store.LogActivity(ctx, actor.ID, task.ID, "application_withdrawn", task.Status, task.Status)
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// AcceptApplication assigns the task to the application's developer. Every
// other pending application on the task is rejected in the same transaction.
func (e *Engine) AcceptApplication(ctx context.Context, actor Actor, applicationID string) (*models.Task, error) {
	pre, err := e.store.Application(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	var task *models.Task
	err = e.transition(ctx, "accept", pre.TaskID, func(t *txn) error {
		var err error
		task, err = t.store.Task(ctx, pre.TaskID)
		if err != nil {
			return err
		}
		if !canReview(actor, task) {
			return fmt.Errorf("%w: only the task owner can accept applications", ErrForbidden)
		}
		if task.Status != models.StatusOpen {
			return stateErr("task is %s, not open", task.Status)
		}
		app, err := t.store.Application(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.Status != models.ApplicationPending {
			return stateErr("application is already %s", app.Status)
		}

		reviewedAt := e.timestamp()
		app.Status = models.ApplicationAccepted
		app.ReviewedAt = reviewedAt
		app.ReviewedBy = &actor.ID
		if err := t.store.SaveApplication(ctx, app); err != nil {
			return err
		}

		siblings, err := t.store.Applications(ctx, task.ID)
		if err != nil {
			return err
		}
		for i := range siblings {
			sib := &siblings[i]
			if sib.ID == app.ID || sib.Status != models.ApplicationPending {
				continue
			}
			sib.Status = models.ApplicationRejected
			sib.ReviewedAt = reviewedAt
			sib.ReviewedBy = &actor.ID
			if err := t.store.SaveApplication(ctx, sib); err != nil {
				return err
			}
			t.out.Add(sib.ApplicantID, "Application Update",
				fmt.Sprintf("Your application for %q was not accepted this time.", task.Title),
				models.NotifyTaskApplication, task.ID)
		}

		developer := app.ApplicantID
		task.AssignedTo = &developer
		task.AssignedDate = reviewedAt
		if err := t.move(ctx, actor.ID, task, "application_accepted", models.StatusAssigned); err != nil {
			return err
		}

		t.out.Add(developer, "Application Update",
			fmt.Sprintf("Your application for %q has been accepted!", task.Title),
			models.NotifyTaskApplication, task.ID)
		t.out.Add(developer, "New Task Assigned",
			fmt.Sprintf("You have been assigned a new task: %s (due %s, %d points)",
				task.Title, task.DueDate.Format(time.DateOnly), task.PointsReward),
			models.NotifyTaskAssigned, task.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// RejectApplication declines one pending application. The task stays open.
func (e *Engine) RejectApplication(ctx context.Context, actor Actor, applicationID string) (*models.TaskApplication, error) {
	pre, err := e.store.Application(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	var app *models.TaskApplication
	err = e.transition(ctx, "reject_application", pre.TaskID, func(t *txn) error {
		task, err := t.store.Task(ctx, pre.TaskID)
		if err != nil {
			return err
		}
		if !canReview(actor, task) {
			return fmt.Errorf("%w: only the task owner can reject applications", ErrForbidden)
		}
		if task.Status != models.StatusOpen {
			return stateErr("task is %s, not open", task.Status)
		}
		app, err = t.store.Application(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.Status != models.ApplicationPending {
			return stateErr("application is already %s", app.Status)
		}
		app.Status = models.ApplicationRejected
		app.ReviewedAt = e.timestamp()
		app.ReviewedBy = &actor.ID
		if err := t.store.SaveApplication(ctx, app); err != nil {
			return err
		}
		t.out.Add(app.ApplicantID, "Application Update",
			fmt.Sprintf("Your application for %q was not accepted this time.", task.Title),
			models.NotifyTaskApplication, task.ID)
		return t.store.LogActivity(ctx, actor.ID, task.ID, "application_rejected", task.Status, task.Status)
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// StartWork moves an assigned task to in progress.
func (e *Engine) StartWork(ctx context.Context, actor Actor, taskID string) (*models.Task, error) {
	var task *models.Task
	err := e.transition(ctx, "start", taskID, func(t *txn) error {
		var err error
		task, err = t.store.Task(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.IsAssignedTo(actor.ID) {
			return ErrNotAssigned
		}
		if task.Status != models.StatusAssigned {
			return stateErr("task is %s, not assigned", task.Status)
		}
		if err := t.move(ctx, actor.ID, task, "work_started", models.StatusInProgress); err != nil {
			return err
		}
		t.out.Add(task.CreatedBy, "Work Started",
			fmt.Sprintf("Work has started on task: %s", task.Title),
			models.NotifyTaskAssigned, task.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// SubmitWork stores the assigned developer's deliverable and puts the task
// under review. A resubmission replaces the earlier submission.
func (e *Engine) SubmitWork(ctx context.Context, actor Actor, taskID string, in SubmissionInput) (*models.TaskSubmission, error) {
	var sub *models.TaskSubmission
	err := e.transition(ctx, "submit", taskID, func(t *txn) error {
		task, err := t.store.Task(ctx, taskID)
		if err != nil {
			return err
		}
		sub, err = t.store.RecordSubmission(ctx, task, actor.ID, in)
		if err != nil {
			return err
		}
		if err := t.move(ctx, actor.ID, task, "work_submitted", models.StatusReview); err != nil {
			return err
		}
		developer, err := t.store.User(ctx, actor.ID)
		if err != nil {
			return err
		}
		t.out.Add(task.CreatedBy, "Task Submitted",
			fmt.Sprintf("%s submitted work for: %s", developer.Username, task.Title),
			models.NotifyTaskSubmission, task.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// MarkUnderReview tells the developer the reviewer has picked up their
// submission. The task stays in review.
func (e *Engine) MarkUnderReview(ctx context.Context, actor Actor, taskID string) (*models.TaskSubmission, error) {
	var sub *models.TaskSubmission
	err := e.transition(ctx, "mark_under_review", taskID, func(t *txn) error {
		task, err := t.store.Task(ctx, taskID)
		if err != nil {
			return err
		}
		if !canReview(actor, task) {
			return fmt.Errorf("%w: only the task owner can review", ErrForbidden)
		}
		if task.Status != models.StatusReview {
			return stateErr("task is %s, not under review", task.Status)
		}
		sub, err = t.store.Submission(ctx, task.ID)
		if err != nil {
			return err
		}
		if sub.Status != models.SubmissionSubmitted {
			return stateErr("submission is %s", sub.Status)
		}
		sub.Status = models.SubmissionUnderReview
		sub.ReviewedBy = &actor.ID
		if err := t.store.SaveSubmission(ctx, sub); err != nil {
			return err
		}
		t.out.Add(*task.AssignedTo, "Submission Under Review",
			fmt.Sprintf("Your submission for %q is now under review.", task.Title),
			models.NotifyTaskSubmission, task.ID)
		return t.store.LogActivity(ctx, actor.ID, task.ID, "submission_under_review", task.Status, task.Status)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ReviewSubmission applies the reviewer's verdict to a task under review.
// Approval completes the task and credits its full points reward once.
func (e *Engine) ReviewSubmission(ctx context.Context, actor Actor, taskID string, in ReviewInput) (*models.Task, error) {
	switch in.Decision {
	case DecisionApprove, DecisionRevise, DecisionReject:
	default:
		return nil, invalid("decision", fmt.Sprintf("unknown decision %q", in.Decision))
	}
	if in.CancelTask && in.Decision != DecisionReject {
		return nil, invalid("cancelTask", "only allowed when rejecting")
	}

	var task *models.Task
	err := e.transition(ctx, "review", taskID, func(t *txn) error {
		var err error
		task, err = t.store.Task(ctx, taskID)
		if err != nil {
			return err
		}
		if !canReview(actor, task) {
			return fmt.Errorf("%w: only the task owner can review", ErrForbidden)
		}
		if task.Status != models.StatusReview {
			return stateErr("task is %s, not under review", task.Status)
		}
		sub, err := t.store.Submission(ctx, task.ID)
		if err != nil {
			return err
		}

		sub.ReviewerFeedback = in.Feedback
		sub.ReviewedAt = e.timestamp()
		sub.ReviewedBy = &actor.ID

		switch in.Decision {
		case DecisionApprove:
			return e.approve(ctx, t, actor, task, sub)
		case DecisionRevise:
			sub.Status = models.SubmissionNeedsRevision
			if err := t.store.SaveSubmission(ctx, sub); err != nil {
				return err
			}
			if err := t.move(ctx, actor.ID, task, "revision_requested", models.StatusInProgress); err != nil {
				return err
			}
			t.out.Add(*task.AssignedTo, "Revision Requested",
				fmt.Sprintf("Your work on %q needs revision. %s", task.Title, in.Feedback),
				models.NotifyTaskSubmission, task.ID)
			return nil
		default:
			sub.Status = models.SubmissionRejected
			if err := t.store.SaveSubmission(ctx, sub); err != nil {
				return err
			}
			if in.CancelTask {
				return e.cancel(ctx, t, actor, task, "submission_rejected")
			}
			if err := t.move(ctx, actor.ID, task, "submission_rejected", models.StatusInProgress); err != nil {
				return err
			}
			t.out.Add(*task.AssignedTo, "Submission Rejected",
				fmt.Sprintf("Your submission for %q was rejected. You may resubmit. %s", task.Title, in.Feedback),
				models.NotifyTaskSubmission, task.ID)
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (e *Engine) approve(ctx context.Context, t *txn, actor Actor, task *models.Task, sub *models.TaskSubmission) error {
	developer := *task.AssignedTo

	sub.Status = models.SubmissionApproved
	sub.IsApproved = true
	if err := t.store.SaveSubmission(ctx, sub); err != nil {
		return err
	}

	task.CompletedDate = e.timestamp()
	if err := t.move(ctx, actor.ID, task, "submission_approved", models.StatusCompleted); err != nil {
		return err
	}

	ref := fmt.Sprintf("task:%s:completion", task.ID)
	applied, err := t.achievements.Reward(ctx, developer, task.PointsReward, "task completed: "+task.Title, ref, t.out)
	if err != nil {
		return err
	}
	if applied {
		t.credited += task.PointsReward
	}
	if _, err := t.achievements.Grant(ctx, developer, achievements.TaskCompleted(task.ID, task.Title), t.out); err != nil {
		return err
	}

	t.out.Add(developer, "Task Approved!",
		fmt.Sprintf("Your work on %q has been approved! You earned %d points.", task.Title, task.PointsReward),
		models.NotifyTaskCompleted, task.ID)
	return nil
}

// CancelTask gives up on a task. Cancelling a cancelled task is a no-op;
// a completed task cannot be cancelled.
func (e *Engine) CancelTask(ctx context.Context, actor Actor, taskID string) (*models.Task, error) {
	var task *models.Task
	err := e.transition(ctx, "cancel", taskID, func(t *txn) error {
		var err error
		task, err = t.store.Task(ctx, taskID)
		if err != nil {
			return err
		}
		if !canReview(actor, task) {
			return fmt.Errorf("%w: only the task owner can cancel", ErrForbidden)
		}
		switch task.Status {
		case models.StatusCancelled:
			return nil
		case models.StatusCompleted:
			return fmt.Errorf("%w: completed tasks cannot be cancelled", ErrAlreadyTerminal)
		}
		return e.cancel(ctx, t, actor, task, "cancelled")
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// cancel moves task to cancelled, releases the developer and closes pending applications.
func (e *Engine) cancel(ctx context.Context, t *txn, actor Actor, task *models.Task, action string) error {
	developer := task.AssignedTo
	task.AssignedTo = nil
	task.AssignedDate = nil
	if err := t.move(ctx, actor.ID, task, action, models.StatusCancelled); err != nil {
		return err
	}

	sub, err := t.store.Submission(ctx, task.ID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	case sub.Status != models.SubmissionApproved && sub.Status != models.SubmissionRejected:
		sub.Status = models.SubmissionRejected
		sub.ReviewedAt = e.timestamp()
		sub.ReviewedBy = &actor.ID
		if err := t.store.SaveSubmission(ctx, sub); err != nil {
			return err
		}
	}

	msg := fmt.Sprintf("Task %q has been cancelled by its owner.", task.Title)
	if developer != nil {
		t.out.Add(*developer, "Task Cancelled", msg, models.NotifyTaskCancelled, task.ID)
	}

	apps, err := t.store.Applications(ctx, task.ID)
	if err != nil {
		return err
	}
	for i := range apps {
		app := &apps[i]
		if app.Status != models.ApplicationPending {
			continue
		}
		app.Status = models.ApplicationRejected
		app.ReviewedAt = e.timestamp()
		app.ReviewedBy = &actor.ID
		if err := t.store.SaveApplication(ctx, app); err != nil {
			return err
		}
		t.out.Add(app.ApplicantID, "Task Cancelled", msg, models.NotifyTaskCancelled, task.ID)
	}
	return nil
}
