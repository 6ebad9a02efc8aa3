package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"task-marketplace-api/internal/achievements"
	"task-marketplace-api/internal/auth"
	"task-marketplace-api/internal/cache"
	"task-marketplace-api/internal/marketplace"
	"task-marketplace-api/internal/middleware"
	"task-marketplace-api/internal/notify"
	"task-marketplace-api/internal/points"
	"task-marketplace-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP handlers need.
type Deps struct {
	DB             *gorm.DB
	Engine         *marketplace.Engine
	Tokens         *auth.Manager
	Hub            *realtime.Hub
	Deliverer      notify.Deliverer
	LeaderboardTTL time.Duration
}

// Handler serves the marketplace HTTP API.
type Handler struct {
	db            *gorm.DB
	engine        *marketplace.Engine
	store         *marketplace.Store
	tokens        *auth.Manager
	hub           *realtime.Hub
	deliverer     notify.Deliverer
	notifications *notify.Store
	ledger        *points.Ledger
	achievements  *achievements.Service

	leaderboard    *cache.TTLCache[int, []LeaderboardEntry]
	leaderboardTTL time.Duration
}

// New builds a Handler from deps.
func New(deps Deps) *Handler {
	ledger := points.NewLedger(deps.DB)
	hub := deps.Hub
	if hub == nil {
		hub = realtime.NewHub()
	}
	return &Handler{
		db:             deps.DB,
		engine:         deps.Engine,
		store:          deps.Engine.Store(),
		tokens:         deps.Tokens,
		hub:            hub,
		deliverer:      deps.Deliverer,
		notifications:  notify.NewStore(deps.DB),
		ledger:         ledger,
		achievements:   achievements.NewService(deps.DB, ledger),
		leaderboard:    cache.New[int, []LeaderboardEntry](),
		leaderboardTTL: deps.LeaderboardTTL,
	}
}

// actor returns the authenticated caller. It aborts with 401 when the JWT
// middleware did not run.
func actor(c *gin.Context) (marketplace.Actor, bool) {
	userID := c.GetString(middleware.KeyUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User ID not found in token",
			"code":  "UNAUTHORIZED",
		})
		return marketplace.Actor{}, false
	}
	return marketplace.Actor{ID: userID, Admin: c.GetBool(middleware.KeyIsAdmin)}, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, marketplace.ErrValidation), errors.Is(err, marketplace.ErrSelfAssignment):
		return http.StatusBadRequest
	case errors.Is(err, marketplace.ErrNotFound), errors.Is(err, notify.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, marketplace.ErrForbidden), errors.Is(err, marketplace.ErrNotAssigned):
		return http.StatusForbidden
	case errors.Is(err, marketplace.ErrDuplicateApplication),
		errors.Is(err, marketplace.ErrInvalidState),
		errors.Is(err, marketplace.ErrAlreadyTerminal),
		errors.Is(err, marketplace.ErrConcurrentModification):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error", "code"}. Unexpected errors are
// logged and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	code := marketplace.Code(err)
	msg := err.Error()
	if errors.Is(err, notify.ErrNotFound) {
		code = marketplace.CodeNotFound
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		msg = "Internal server error"
	}
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"code":  marketplace.CodeValidation,
	})
}

// pageParams reads page (default 1) and limit (default 5, max 100).
func pageParams(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "5"))
	if err != nil || limit < 1 {
		limit = 5
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
