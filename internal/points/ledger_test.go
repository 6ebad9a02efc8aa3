package points

import (
	"context"
	"sync"
	"testing"

	"task-marketplace-api/internal/models"
	"task-marketplace-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCredit(t *testing.T) {
	db := testutil.MustDB(t)
	user := testutil.SeedUser(t, db, "dave", models.UserDeveloper)
	ledger := NewLedger(db)
	ctx := context.Background()

	applied, err := ledger.Credit(ctx, user.ID, 30, "task completed", "")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = ledger.Credit(ctx, user.ID, 20, "task completed", "")
	require.NoError(t, err)
	assert.True(t, applied)

	balance, err := ledger.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, balance)

	history, err := ledger.History(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestCreditIsIdempotentPerReference(t *testing.T) {
	db := testutil.MustDB(t)
	user := testutil.SeedUser(t, db, "dave", models.UserDeveloper)
	ledger := NewLedger(db)
	ctx := context.Background()

	applied, err := ledger.Credit(ctx, user.ID, 40, "reward", "task:1:completion")
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = ledger.Credit(ctx, user.ID, 40, "reward", "task:1:completion")
	require.NoError(t, err)
	assert.False(t, applied)

	assert.Equal(t, 40, testutil.Points(t, db, user.ID))
}

func TestCreditRejectsBadInput(t *testing.T) {
	db := testutil.MustDB(t)
	user := testutil.SeedUser(t, db, "dave", models.UserDeveloper)
	ledger := NewLedger(db)
	ctx := context.Background()

	_, err := ledger.Credit(ctx, user.ID, 0, "nothing", "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.Credit(ctx, "ghost", 10, "reward", "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	var entries int64
	require.NoError(t, db.Model(&models.PointEntry{}).Count(&entries).Error)
	assert.Zero(t, entries)
}

func TestConcurrentCreditsAreNotLost(t *testing.T) {
	db := testutil.MustDB(t)
	user := testutil.SeedUser(t, db, "dave", models.UserDeveloper)
	ledger := NewLedger(db)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Credit(context.Background(), user.ID, 5, "bonus", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, testutil.Points(t, db, user.ID))
}

func TestDebit(t *testing.T) {
	db := testutil.MustDB(t)
	user := testutil.SeedUser(t, db, "dave", models.UserDeveloper)
	ledger := NewLedger(db)
	ctx := context.Background()
	_, err := ledger.Credit(ctx, user.ID, 30, "reward", "")
	require.NoError(t, err)

	_, err = ledger.Debit(ctx, user.ID, 31, "redeem", "")
	require.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Equal(t, 30, testutil.Points(t, db, user.ID))

	applied, err := ledger.Debit(ctx, user.ID, 10, "redeem", "redeem:1")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = ledger.Debit(ctx, user.ID, 10, "redeem", "redeem:1")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 20, testutil.Points(t, db, user.ID))

	_, err = ledger.Debit(ctx, "ghost", 1, "redeem", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreditRollsBackWithOuterTransaction(t *testing.T) {
	db := testutil.MustDB(t)
	user := testutil.SeedUser(t, db, "dave", models.UserDeveloper)
	ledger := NewLedger(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := ledger.WithTx(tx).Credit(context.Background(), user.ID, 25, "reward", "task:9:completion"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, 0, testutil.Points(t, db, user.ID))
	applied, err := ledger.Credit(context.Background(), user.ID, 25, "reward", "task:9:completion")
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestLeaderboard(t *testing.T) {
	db := testutil.MustDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()
	amy := testutil.SeedUser(t, db, "amy", models.UserDeveloper)
	bob := testutil.SeedUser(t, db, "bob", models.UserDeveloper)
	cat := testutil.SeedUser(t, db, "cat", models.UserDeveloper)
	for id, amount := range map[string]int{amy.ID: 10, bob.ID: 50, cat.ID: 10} {
		_, err := ledger.Credit(ctx, id, amount, "seed", "")
		require.NoError(t, err)
	}

	top, err := ledger.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "bob", top[0].Username)
	assert.Equal(t, "amy", top[1].Username)
}
