package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-marketplace-api/internal/auth"
	"task-marketplace-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTokens() *auth.Manager {
	return auth.NewManager("0123456789abcdef", "issuer", "web", time.Hour)
}

func protectedRouter(tokens *auth.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware(tokens))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(KeyUserID),
			"admin":   c.GetBool(KeyIsAdmin),
		})
	})
	return r
}

func TestJWTAuthMiddleware_Success(t *testing.T) {
	tokens := newTokens()
	r := protectedRouter(tokens)

	token, err := tokens.GenerateToken(&models.User{ID: "user-1", Username: "alice", UserType: models.UserDeveloper})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user_id":"user-1","admin":false}`, w.Body.String())
}

func TestJWTAuthMiddleware_QueryToken(t *testing.T) {
	tokens := newTokens()
	r := protectedRouter(tokens)

	token, err := tokens.GenerateToken(&models.User{ID: "root", Username: "root", UserType: models.UserAdmin})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user_id":"root","admin":true}`, w.Body.String())
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	r := protectedRouter(newTokens())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_BadToken(t *testing.T) {
	r := protectedRouter(newTokens())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

type recordingObserver struct {
	route  string
	status int
}

func (o *recordingObserver) ObserveHTTP(_, route string, status int, _ time.Duration) {
	o.route, o.status = route, status
}

func TestRequestLoggerReportsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(RequestLogger(obs))
	r.GET("/tasks/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/42", nil))

	require.Equal(t, "/tasks/:id", obs.route)
	require.Equal(t, http.StatusTeapot, obs.status)
}
