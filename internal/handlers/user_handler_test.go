package handlers

import (
	"net/http"
	"testing"

	"task-marketplace-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leaderboardBody struct {
	Leaderboard []LeaderboardEntry
	Count       int
}

// complete runs task through to approval with developer doing the work.
func (s *testServer) complete(ownerToken, devToken string, reward int) {
	s.t.Helper()
	task := s.createTask(ownerToken, reward)
	app := s.apply(task.ID, devToken)
	require.Equal(s.t, http.StatusOK, s.do(http.MethodPost, "/api/applications/"+app.ID+"/accept", ownerToken, nil).Code)
	require.Equal(s.t, http.StatusCreated, s.do(http.MethodPost, "/api/tasks/"+task.ID+"/submission", devToken, map[string]any{"description": "done"}).Code)
	require.Equal(s.t, http.StatusOK, s.do(http.MethodPost, "/api/tasks/"+task.ID+"/review", ownerToken, map[string]any{"decision": "approve"}).Code)
}

func TestGetLeaderboard_CachedUntilApproval(t *testing.T) {
	s := newTestServer(t)
	_, ownerToken := s.user("olivia", models.UserInstructor)
	dave, daveToken := s.user("dave", models.UserDeveloper)
	dina, _ := s.user("dina", models.UserDeveloper)
	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", dina.ID).Update("points", 30).Error)

	w := s.do(http.MethodGet, "/api/leaderboard?limit=2", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[leaderboardBody](t, w)
	require.Equal(t, 2, board.Count)
	assert.Equal(t, dina.ID, board.Leaderboard[0].UserID)
	assert.Equal(t, 1, board.Leaderboard[0].Rank)

	// A direct write is not seen while the entry is fresh.
	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", dave.ID).Update("points", 40).Error)
	board = decode[leaderboardBody](t, s.do(http.MethodGet, "/api/leaderboard?limit=2", ownerToken, nil))
	assert.Equal(t, dina.ID, board.Leaderboard[0].UserID)

	s.complete(ownerToken, daveToken, 25)

	board = decode[leaderboardBody](t, s.do(http.MethodGet, "/api/leaderboard?limit=2", ownerToken, nil))
	require.Len(t, board.Leaderboard, 2)
	assert.Equal(t, dave.ID, board.Leaderboard[0].UserID)
	assert.Equal(t, 65, board.Leaderboard[0].Points)
	assert.Equal(t, dina.ID, board.Leaderboard[1].UserID)
}

func TestGetMe(t *testing.T) {
	s := newTestServer(t)
	_, ownerToken := s.user("olivia", models.UserInstructor)
	dave, daveToken := s.user("dave", models.UserDeveloper)
	s.complete(ownerToken, daveToken, 120)

	w := s.do(http.MethodGet, "/api/me", daveToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		User          models.User
		Achievements  []models.Achievement
		PointsHistory []models.PointEntry
	}](t, w)
	assert.Equal(t, dave.ID, me.User.ID)
	// 120 reward plus the 10 point bonus for crossing 100.
	assert.Equal(t, 130, me.User.Points)
	assert.Len(t, me.Achievements, 2)
	assert.Len(t, me.PointsHistory, 2)
}

func TestGetAllUsers(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user("olivia", models.UserInstructor)
	s.user("dave", models.UserDeveloper)

	w := s.do(http.MethodGet, "/api/users", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Users []UserResponse
		Count int
	}](t, w)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "dave", body.Users[0].Username)
	assert.NotContains(t, w.Body.String(), "password")
}
