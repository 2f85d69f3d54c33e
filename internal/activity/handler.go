package activity

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-lms/backend/internal/middleware"
	"github.com/campus-lms/backend/internal/models"
	"github.com/campus-lms/backend/pkg/response"
)

// Handler serves the notification feed.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an activity handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Feed handles GET /activities: the latest entries addressed to the caller.
func (h *Handler) Feed(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	role := models.Role(c.GetString(middleware.ContextUserRole))
	list, err := h.repo.ListByUser(c.Request.Context(), userID, role)
	if err != nil {
		h.logger.Error("list activities", zap.Error(err))
		response.Internal(c, "failed to list activities")
		return
	}
	response.OK(c, list)
}
