// Package points keeps user point balances. Every change is an atomic
// increment on the user row plus an append-only ledger line.
package points

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-marketplace-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidAmount      = errors.New("points amount must be positive")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrUserNotFound       = errors.New("user not found")
)

// Ledger applies point changes against a gorm handle. Bind it to a
// transaction with WithTx so a credit commits together with its cause.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLedger creates a ledger on db.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// WithTx returns a ledger whose writes join tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	cp := *l
	cp.db = tx
	return &cp
}

// Credit adds amount to the user's balance. A non-empty reference makes the
// call idempotent: if an entry with that reference exists the balance is left
// alone and applied is false.
func (l *Ledger) Credit(ctx context.Context, userID string, amount int, reason, reference string) (applied bool, err error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := insertEntry(tx, l.entry(userID, amount, reason, reference))
		if err != nil || !inserted {
			return err
		}
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("points", gorm.Expr("points + ?", amount))
		if res.Error != nil {
			return fmt.Errorf("credit points: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// Debit removes amount from the user's balance. The balance never goes
// negative: when it holds less than amount nothing is deducted and
// ErrInsufficientPoints is returned.
func (l *Ledger) Debit(ctx context.Context, userID string, amount int, reason, reference string) (applied bool, err error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND points >= ?", userID, amount).
			Update("points", gorm.Expr("points - ?", amount))
		if res.Error != nil {
			return fmt.Errorf("debit points: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrUserNotFound
			}
			return ErrInsufficientPoints
		}
		inserted, err := insertEntry(tx, l.entry(userID, -amount, reason, reference))
		if err != nil {
			return err
		}
		if !inserted {
			// Reference already used; roll the deduction back.
			return errDuplicate
		}
		applied = true
		return nil
	})
	if errors.Is(err, errDuplicate) {
		return false, nil
	}
	return applied, err
}

// Balance returns the user's current balance.
func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	var user models.User
	err := l.db.WithContext(ctx).Select("points").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrUserNotFound
	}
	return user.Points, err
}

// History lists the user's ledger lines, newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]models.PointEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var entries []models.PointEntry
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// Leaderboard returns the top users by balance.
func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var users []models.User
	err := l.db.WithContext(ctx).
		Order("points desc").
		Order("username asc").
		Limit(limit).
		Find(&users).Error
	return users, err
}

var errDuplicate = errors.New("duplicate ledger reference")

func (l *Ledger) entry(userID string, delta int, reason, reference string) *models.PointEntry {
	e := &models.PointEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Delta:     delta,
		Reason:    reason,
		CreatedAt: l.now().UTC(),
	}
	if reference != "" {
		e.Reference = &reference
	}
	return e
}

// insertEntry writes e, reporting false when its reference is already taken.
func insertEntry(tx *gorm.DB, e *models.PointEntry) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(e)
	if res.Error != nil {
		return false, fmt.Errorf("write ledger entry: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
