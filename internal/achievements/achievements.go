// Package achievements unlocks one-time badges and the points bundled with them.
package achievements

import (
	"context"
	"fmt"
	"time"

	"task-marketplace-api/internal/models"
	"task-marketplace-api/internal/notify"
	"task-marketplace-api/internal/points"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Definition describes an achievement that can be unlocked once per user.
type Definition struct {
	Code        string
	Title       string
	Description string
	Kind        models.AchievementKind
	Points      int
	BadgeIcon   string
}

// Welcome is granted when an account is created.
var Welcome = Definition{
	Code:        "welcome",
	Title:       "Welcome Aboard!",
	Description: "Joined the community",
	Kind:        models.AchievementSpecialRecognition,
	Points:      10,
	BadgeIcon:   "fas fa-hand-wave",
}

// TaskCompleted is the badge for an approved task. It carries no points of
// its own: the task's reward is credited separately, exactly once.
func TaskCompleted(taskID, title string) Definition {
	return Definition{
		Code:        "task_completed:" + taskID,
		Title:       "Task Completed",
		Description: fmt.Sprintf("Successfully completed task: %s", title),
		Kind:        models.AchievementProjectCompletion,
		BadgeIcon:   "fas fa-check-circle",
	}
}

// Milestone is a points threshold badge.
type Milestone struct {
	Threshold   int
	Title       string
	Description string
}

// Milestones are checked after every credit, lowest first.
var Milestones = []Milestone{
	{100, "First Century", "Earned your first 100 points"},
	{500, "Point Collector", "Accumulated 500 points"},
	{1000, "Thousand Club", "Reached 1000 points"},
	{2500, "Point Master", "Achieved 2500 points"},
	{5000, "Point Legend", "Accumulated 5000 points"},
}

// Definition returns the achievement for m. The bonus is a tenth of the threshold.
func (m Milestone) Definition() Definition {
	return Definition{
		Code:        fmt.Sprintf("points_milestone:%d", m.Threshold),
		Title:       m.Title,
		Description: m.Description,
		Kind:        models.AchievementPointsMilestone,
		Points:      m.Threshold / 10,
		BadgeIcon:   "fas fa-trophy",
	}
}

// Service unlocks achievements and credits their points through the ledger.
type Service struct {
	db     *gorm.DB
	ledger *points.Ledger
	now    func() time.Time
}

// NewService creates a service on db.
func NewService(db *gorm.DB, ledger *points.Ledger) *Service {
	return &Service{db: db, ledger: ledger, now: time.Now}
}

// WithTx returns a service whose writes join tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	cp := *s
	cp.db = tx
	cp.ledger = s.ledger.WithTx(tx)
	return &cp
}

// Grant unlocks def for userID and then any milestone the new balance reaches.
func (s *Service) Grant(ctx context.Context, userID string, def Definition, out *notify.Outbox) (bool, error) {
	unlocked, err := s.unlock(ctx, userID, def, out)
	if err != nil || !unlocked {
		return unlocked, err
	}
	return true, s.CheckMilestones(ctx, userID, out)
}

// Reward credits amount to userID under reference and then checks milestones.
// It reports whether the credit was applied (false for a repeated reference).
func (s *Service) Reward(ctx context.Context, userID string, amount int, reason, reference string, out *notify.Outbox) (bool, error) {
	if amount <= 0 {
		return false, nil
	}
	applied, err := s.ledger.Credit(ctx, userID, amount, reason, reference)
	if err != nil || !applied {
		return applied, err
	}
	return true, s.CheckMilestones(ctx, userID, out)
}

// CheckMilestones unlocks every milestone at or below the current balance.
// Milestone bonuses can carry the balance over the next threshold, so it
// loops until a pass unlocks nothing.
func (s *Service) CheckMilestones(ctx context.Context, userID string, out *notify.Outbox) error {
	for {
		balance, err := s.ledger.Balance(ctx, userID)
		if err != nil {
			return err
		}
		progressed := false
		for _, m := range Milestones {
			if balance < m.Threshold {
				break
			}
			unlocked, err := s.unlock(ctx, userID, m.Definition(), out)
			if err != nil {
				return err
			}
			if unlocked {
				progressed = true
				break
			}
		}
		if !progressed {
			return nil
		}
	}
}

// List returns the user's achievements, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.Achievement, error) {
	var items []models.Achievement
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("earned_at desc").
		Find(&items).Error
	return items, err
}

func (s *Service) unlock(ctx context.Context, userID string, def Definition, out *notify.Outbox) (bool, error) {
	a := models.Achievement{
		ID:            uuid.NewString(),
		UserID:        userID,
		Code:          def.Code,
		Title:         def.Title,
		Description:   def.Description,
		Kind:          def.Kind,
		PointsAwarded: def.Points,
		BadgeIcon:     def.BadgeIcon,
		EarnedAt:      s.now().UTC(),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&a)
	if res.Error != nil {
		return false, fmt.Errorf("unlock achievement %s: %w", def.Code, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if out != nil {
		out.Add(userID, "Achievement Unlocked!",
			fmt.Sprintf("You earned the %q achievement!", def.Title),
			models.NotifyAchievementUnlocked, "")
	}
	if def.Points > 0 {
		ref := fmt.Sprintf("achievement:%s:%s", userID, def.Code)
		if _, err := s.ledger.Credit(ctx, userID, def.Points, "achievement: "+def.Title, ref); err != nil {
			return false, err
		}
	}
	return true, nil
}
