package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	UserType string `json:"userType"`
	Points   int    `json:"points"`
}

// LeaderboardEntry is one row of GET /api/leaderboard.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// GetAllUsers returns all users (protected)
// GET /api/users
func (h *Handler) GetAllUsers(c *gin.Context) {
	users, err := h.store.Users(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	// Map to safe response payload
	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, UserResponse{
			ID:       u.ID,
			Username: u.Username,
			UserType: string(u.UserType),
			Points:   u.Points,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"users": resp,
		"count": len(resp),
	})
}

// GetMe returns the caller's profile, achievements and recent point history.
// GET /api/me
func (h *Handler) GetMe(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	user, err := h.store.User(ctx, who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	earned, err := h.achievements.List(ctx, who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := h.ledger.History(ctx, who.ID, 20)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"achievements":  earned,
		"pointsHistory": history,
	})
}

// GetLeaderboard returns the top users by points, cached for a short TTL.
// GET /api/leaderboard?limit=10
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}
	ctx := c.Request.Context()

	entries, err := h.leaderboard.GetOrLoad(limit, h.leaderboardTTL, func() ([]LeaderboardEntry, error) {
		users, err := h.ledger.Leaderboard(ctx, limit)
		if err != nil {
			return nil, err
		}
		out := make([]LeaderboardEntry, 0, len(users))
		for i, u := range users {
			out = append(out, LeaderboardEntry{Rank: i + 1, UserID: u.ID, Username: u.Username, Points: u.Points})
		}
		return out, nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": entries, "count": len(entries)})
}

func (h *Handler) invalidateLeaderboard() {
	h.leaderboard.Clear()
}
