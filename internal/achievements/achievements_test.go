package achievements

import (
	"context"
	"testing"
	"time"

	"task-marketplace-api/internal/models"
	"task-marketplace-api/internal/notify"
	"task-marketplace-api/internal/points"
	"task-marketplace-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, models.User, func() int) {
	t.Helper()
	db := testutil.MustDB(t)
	user := testutil.SeedUser(t, db, "dave", models.UserDeveloper)
	svc := NewService(db, points.NewLedger(db))
	return svc, user, func() int { return testutil.Points(t, db, user.ID) }
}

func TestGrantWelcome(t *testing.T) {
	svc, user, balance := newService(t)
	out := notify.NewOutbox(time.Now)
	ctx := context.Background()

	unlocked, err := svc.Grant(ctx, user.ID, Welcome, out)
	require.NoError(t, err)
	assert.True(t, unlocked)
	assert.Equal(t, 10, balance())

	require.Equal(t, 1, out.Len())
	assert.Equal(t, models.NotifyAchievementUnlocked, out.Items()[0].Category)

	unlocked, err = svc.Grant(ctx, user.ID, Welcome, out)
	require.NoError(t, err)
	assert.False(t, unlocked)
	assert.Equal(t, 10, balance())
	assert.Equal(t, 1, out.Len())
}

func TestRewardUnlocksChainedMilestones(t *testing.T) {
	svc, user, balance := newService(t)
	ctx := context.Background()

	applied, err := svc.Reward(ctx, user.ID, 460, "seed", "", nil)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, 460+10, balance())

	_, err = svc.Reward(ctx, user.ID, 40, "top up", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 510+50, balance())

	list, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	codes := make([]string, 0, len(list))
	for _, a := range list {
		codes = append(codes, a.Code)
	}
	assert.ElementsMatch(t, []string{"points_milestone:100", "points_milestone:500"}, codes)
}

func TestMilestoneBonusCanCrossNextThreshold(t *testing.T) {
	svc, user, balance := newService(t)

	_, err := svc.Reward(context.Background(), user.ID, 995, "seed", "", nil)
	require.NoError(t, err)

	// 995 unlocks 100 and 500; their bonuses reach 1055, which unlocks 1000.
	assert.Equal(t, 995+10+50+100, balance())
}

func TestRewardSkipsZeroAndRepeatedReference(t *testing.T) {
	svc, user, balance := newService(t)
	ctx := context.Background()

	applied, err := svc.Reward(ctx, user.ID, 0, "nothing", "", nil)
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = svc.Reward(ctx, user.ID, 50, "task", "task:1:completion", nil)
	require.NoError(t, err)
	applied, err = svc.Reward(ctx, user.ID, 50, "task", "task:1:completion", nil)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 50, balance())
}

func TestTaskCompletedBadgeCarriesNoPoints(t *testing.T) {
	svc, user, balance := newService(t)

	unlocked, err := svc.Grant(context.Background(), user.ID, TaskCompleted("t1", "Fix login"), nil)
	require.NoError(t, err)
	assert.True(t, unlocked)
	assert.Equal(t, 0, balance())
}

func TestMilestoneDefinition(t *testing.T) {
	def := Milestones[2].Definition()

	assert.Equal(t, "points_milestone:1000", def.Code)
	assert.Equal(t, 100, def.Points)
	assert.Equal(t, models.AchievementPointsMilestone, def.Kind)
}
