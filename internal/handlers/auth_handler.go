package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"task-marketplace-api/internal/achievements"
	"task-marketplace-api/internal/auth"
	"task-marketplace-api/internal/models"
	"task-marketplace-api/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterRequest represents the sign-up payload
type RegisterRequest struct {
	Username string          `json:"username" binding:"required,min=3,max=50"`
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required,min=8,max=72"`
	UserType models.UserType `json:"userType"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token    string          `json:"token"`
	UserID   string          `json:"user_id"`
	Username string          `json:"username"`
	UserType models.UserType `json:"user_type"`
	Message  string          `json:"message"`
}

var errAccountTaken = errors.New("username or email already registered")

// Register creates an account and grants the welcome achievement.
// POST /api/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userType := req.UserType
	if userType == "" {
		userType = models.UserStudent
	}
	if !userType.Valid() || userType == models.UserAdmin {
		badRequest(c, errors.New("userType must be student, developer or instructor"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	user := models.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		UserType:     userType,
	}

	ctx := c.Request.Context()
	out := notify.NewOutbox(time.Now)
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", user.Username, user.Email).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return errAccountTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAccountTaken
			}
			return err
		}
		out.Add(user.ID, "Welcome to the marketplace!",
			fmt.Sprintf("Welcome %s! Start your learning journey today.", user.Username),
			models.NotifySystemUpdate, "")
		if _, err := h.achievements.WithTx(tx).Grant(ctx, user.ID, achievements.Welcome, out); err != nil {
			return err
		}
		return out.Save(tx)
	})
	if errors.Is(err, errAccountTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "ACCOUNT_EXISTS"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	out.Dispatch(ctx, h.deliverer)
	user.Points = achievements.Welcome.Points

	token, err := h.tokens.GenerateToken(&user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

// Login checks the credentials and issues a token.
// POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. Username and password are required.",
			"code":  "VALIDATION_ERROR",
		})
		return
	}

	var user models.User
	err := h.db.WithContext(c.Request.Context()).First(&user, "username = ?", strings.TrimSpace(req.Username)).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, err)
		return
	}
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid username or password",
			"code":  "UNAUTHORIZED",
		})
		return
	}

	token, err := h.tokens.GenerateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
			"code":  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		UserType: user.UserType,
		Message:  "Login successful",
	})
}
