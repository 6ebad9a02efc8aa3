package testutil

import (
	"testing"
	"time"

	"task-marketplace-api/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
// The pool is pinned to one connection: every new connection to ":memory:"
// would otherwise see its own empty database.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, err
	}
	return db, nil
}

// MustDB is NewInMemoryDB for tests.
func MustDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SeedUser inserts a user with the given username and type.
func SeedUser(t *testing.T, db *gorm.DB, username string, userType models.UserType) models.User {
	t.Helper()
	u := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		UserType:     userType,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// Points returns the stored balance of userID.
func Points(t *testing.T, db *gorm.DB, userID string) int {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, "id = ?", userID).Error)
	return u.Points
}

// Clock is a settable time source.
type Clock struct {
	T time.Time
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }
