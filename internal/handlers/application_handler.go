package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AcceptApplication handles POST /api/applications/:id/accept
func (h *Handler) AcceptApplication(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	task, err := h.engine.AcceptApplication(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// RejectApplication handles POST /api/applications/:id/reject
func (h *Handler) RejectApplication(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	app, err := h.engine.RejectApplication(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// WithdrawApplication handles POST /api/applications/:id/withdraw
func (h *Handler) WithdrawApplication(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	app, err := h.engine.Withdraw(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}
