package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-lms/backend/internal/middleware"
	"github.com/campus-lms/backend/internal/models"
	"github.com/campus-lms/backend/pkg/response"
	"github.com/campus-lms/backend/pkg/utils"
)

// LoginRequest is the body for POST /login.
type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with the access token.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth and profile HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Login handles POST /login. Authentication is by user ID within a role
// scope, so the same ID space can exist for students and teachers.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role := models.Role(req.Role)
	if !role.Valid() {
		response.BadRequest(c, "invalid role")
		return
	}

	user, err := h.repo.GetByIDAndRole(c.Request.Context(), req.ID, role)
	if err != nil {
		response.Unauthorized(c, "incorrect username or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "incorrect username or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Profile handles GET /personal-info. Students additionally get their class
// and major.
func (h *Handler) Profile(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(string)

	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	if user.Role == models.RoleStudent && user.ClassID != nil {
		class, major, err := h.repo.GetClassWithMajor(c.Request.Context(), *user.ClassID)
		if err != nil {
			response.Internal(c, "failed to load class")
			return
		}
		response.OK(c, gin.H{"personal": user.ToPublic(), "class": class, "major": major})
		return
	}
	response.OK(c, gin.H{"personal": user.ToPublic()})
}

// UpdateProfile handles PUT /personal-info.
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(string)

	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	var req struct {
		Email        *string `json:"email"`
		Phone        *string `json:"phone"`
		Introduction *string `json:"introduction"`
		Avatar       *string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	email, phone, intro, avatar := user.Email, user.Phone, user.Introduction, user.Avatar
	if req.Email != nil {
		email = *req.Email
	}
	if req.Phone != nil {
		phone = *req.Phone
	}
	if req.Introduction != nil {
		intro = *req.Introduction
	}
	if req.Avatar != nil {
		avatar = *req.Avatar
	}
	if err := h.repo.UpdateProfile(c.Request.Context(), userID, email, phone, intro, avatar); err != nil {
		response.Internal(c, "failed to update profile")
		return
	}
	response.NoContent(c)
}

// ChangePassword handles PUT /password.
func (h *Handler) ChangePassword(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(string)

	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		response.Internal(c, "failed to load user")
		return
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		response.BadRequest(c, "wrong old password")
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.UpdatePassword(c.Request.Context(), userID, hash); err != nil {
		response.Internal(c, "failed to update password")
		return
	}
	response.NoContent(c)
}
