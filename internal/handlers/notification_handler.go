package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetNotifications handles GET /api/notifications
// Optional query params: unread=true, limit (default 50).
func (h *Handler) GetNotifications(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	ctx := c.Request.Context()

	items, err := h.notifications.List(ctx, who.ID, c.Query("unread") == "true", limit)
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": items,
		"count":         len(items),
		"unread":        unread,
	})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), who.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "isRead": true})
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	marked, err := h.notifications.MarkAllRead(c.Request.Context(), who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}
