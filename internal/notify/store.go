package notify

import (
	"context"
	"errors"

	"task-marketplace-api/internal/models"

	"gorm.io/gorm"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notification queue is closed")
	ErrNotFound  = errors.New("notification not found")
)

// Store reads and marks a user's stored notifications.
type Store struct {
	db *gorm.DB
}

// NewStore creates a notification store on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List returns the user's notifications, newest first.
func (s *Store) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var items []models.Notification
	err := query.Order("created_at desc").Limit(limit).Find(&items).Error
	return items, err
}

// UnreadCount returns how many of the user's notifications are unread.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one of the user's notifications as read.
func (s *Store) MarkRead(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *Store) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// EmailLookupFromDB returns an EmailLookup reading users from db.
func EmailLookupFromDB(db *gorm.DB) EmailLookup {
	return func(ctx context.Context, userID string) (string, error) {
		var u models.User
		if err := db.WithContext(ctx).Select("email").First(&u, "id = ?", userID).Error; err != nil {
			return "", err
		}
		return u.Email, nil
	}
}
