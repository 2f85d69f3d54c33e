package dashboard

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-lms/backend/internal/activity"
	"github.com/campus-lms/backend/internal/middleware"
	"github.com/campus-lms/backend/internal/models"
	"github.com/campus-lms/backend/pkg/response"
)

// Handler serves GET /dashboard for teachers and students.
type Handler struct {
	repo       *Repository
	activities *activity.Repository
	logger     *zap.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(repo *Repository, activities *activity.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, activities: activities, logger: logger}
}

// Get handles GET /dashboard: role-specific aggregates plus the caller's
// activity feed.
func (h *Handler) Get(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	role := models.Role(c.GetString(middleware.ContextUserRole))
	ctx := c.Request.Context()

	feed, err := h.activities.ListByUser(ctx, userID, role)
	if err != nil {
		h.logger.Error("dashboard feed", zap.Error(err))
		response.Internal(c, "failed to load dashboard")
		return
	}

	switch role {
	case models.RoleTeacher:
		summary, err := h.repo.TeacherSummary(ctx, userID)
		if err != nil {
			h.logger.Error("teacher summary", zap.Error(err))
			response.Internal(c, "failed to load dashboard")
			return
		}
		response.OK(c, gin.H{"summary": summary, "activities": feed})
	case models.RoleStudent:
		summary, err := h.repo.StudentSummary(ctx, userID)
		if err != nil {
			h.logger.Error("student summary", zap.Error(err))
			response.Internal(c, "failed to load dashboard")
			return
		}
		response.OK(c, gin.H{"summary": summary, "activities": feed})
	default:
		response.Forbidden(c, "no dashboard for this role")
	}
}
