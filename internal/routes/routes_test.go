package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"task-marketplace-api/internal/auth"
	"task-marketplace-api/internal/handlers"
	"task-marketplace-api/internal/marketplace"
	"task-marketplace-api/internal/metrics"
	"task-marketplace-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.MustDB(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tokens := auth.NewManager("0123456789abcdef", "test", "test", time.Hour)
	engine := marketplace.NewEngine(db, marketplace.Options{Recorder: m})
	return SetupRoutes(Options{
		Handler:  handlers.New(handlers.Deps{DB: db, Engine: engine, Tokens: tokens, LeaderboardTTL: time.Second}),
		Tokens:   tokens,
		Observer: m,
		Gatherer: reg,
	})
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	r := newRouter(t)
	w := serve(r, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newRouter(t)
	for _, path := range []string{"/api/tasks", "/api/me", "/api/leaderboard", "/api/notifications", "/api/ws"} {
		w := serve(r, http.MethodGet, path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestPreflight(t *testing.T) {
	r := newRouter(t)
	w := serve(r, http.MethodOptions, "/api/tasks")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(t)
	serve(r, http.MethodGet, "/health")

	w := serve(r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `marketplace_http_request_duration_seconds_count{method="GET",route="/health",status="200"} 1`), body)
}
