package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-marketplace-api/internal/auth"
	"task-marketplace-api/internal/marketplace"
	"task-marketplace-api/internal/middleware"
	"task-marketplace-api/internal/models"
	"task-marketplace-api/internal/realtime"
	"task-marketplace-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	router  *gin.Engine
	tokens  *auth.Manager
	handler *Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.MustDB(t)
	tokens := auth.NewManager("0123456789abcdef", "test", "test", time.Hour)
	h := New(Deps{
		DB:             db,
		Engine:         marketplace.NewEngine(db, marketplace.Options{}),
		Tokens:         tokens,
		Hub:            realtime.NewHub(),
		LeaderboardTTL: time.Minute,
	})

	r := gin.New()
	r.POST("/api/register", h.Register)
	r.POST("/api/login", h.Login)
	api := r.Group("/api", middleware.JWTAuthMiddleware(tokens))
	api.GET("/tasks", h.ListTasks)
	api.POST("/tasks", h.CreateTask)
	api.GET("/tasks/:id", h.GetTaskByID)
	api.POST("/tasks/:id/cancel", h.CancelTask)
	api.POST("/tasks/:id/start", h.StartWork)
	api.GET("/tasks/:id/applications", h.ListApplications)
	api.POST("/tasks/:id/applications", h.Apply)
	api.POST("/tasks/:id/submission", h.SubmitWork)
	api.POST("/tasks/:id/submission/under-review", h.MarkUnderReview)
	api.POST("/tasks/:id/review", h.ReviewSubmission)
	api.GET("/tasks/:id/activity", h.GetActivity)
	api.POST("/applications/:id/accept", h.AcceptApplication)
	api.POST("/applications/:id/reject", h.RejectApplication)
	api.POST("/applications/:id/withdraw", h.WithdrawApplication)
	api.GET("/users", h.GetAllUsers)
	api.GET("/me", h.GetMe)
	api.GET("/stats/:userid", h.GetStatsByUser)
	api.GET("/leaderboard", h.GetLeaderboard)
	api.GET("/notifications", h.GetNotifications)
	api.POST("/notifications/read-all", h.MarkAllNotificationsRead)
	api.POST("/notifications/:id/read", h.MarkNotificationRead)

	return &testServer{t: t, db: db, router: r, tokens: tokens, handler: h}
}

// user seeds an account and returns it with a bearer token.
func (s *testServer) user(username string, userType models.UserType) (models.User, string) {
	s.t.Helper()
	u := testutil.SeedUser(s.t, s.db, username, userType)
	token, err := s.tokens.GenerateToken(&u)
	require.NoError(s.t, err)
	return u, token
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func taskPayload(reward int) map[string]any {
	return map[string]any{
		"title":          "Grade quiz submissions",
		"description":    "Write a grader for the week 3 quiz",
		"category":       "development",
		"budget":         120.5,
		"pointsReward":   reward,
		"estimatedHours": 4,
		"dueDate":        time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"requiredSkills": []string{"Go"},
	}
}

var applyPayload = map[string]any{
	"coverLetter":      "I wrote the week 2 grader",
	"proposedTimeline": "2 days",
}

// createTask posts a task as token and returns it.
func (s *testServer) createTask(token string, reward int) models.Task {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/tasks", token, taskPayload(reward))
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Task](s.t, w)
}

func (s *testServer) apply(taskID, token string) models.TaskApplication {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/tasks/"+taskID+"/applications", token, applyPayload)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.TaskApplication](s.t, w)
}
