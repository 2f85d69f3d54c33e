package admin

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-lms/backend/internal/models"
	"github.com/campus-lms/backend/pkg/response"
	"github.com/campus-lms/backend/pkg/utils"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	// OptionSemester holds the current semester, e.g. "2026-1".
	OptionSemester = "semester"
)

// Handler serves the administrative endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func pageFrom(c *gin.Context) Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return Page{Number: page, Size: size, Keyword: c.Query("keyword")}
}

// --- majors ---

// ListMajors handles GET /admin/majors.
func (h *Handler) ListMajors(c *gin.Context) {
	list, total, err := h.repo.ListMajors(c.Request.Context(), pageFrom(c))
	if err != nil {
		h.logger.Error("list majors", zap.Error(err))
		response.Internal(c, "failed to list majors")
		return
	}
	response.OK(c, response.Paginated{Data: list, Total: total})
}

// CreateMajor handles POST /admin/majors.
func (h *Handler) CreateMajor(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	major, err := h.repo.CreateMajor(c.Request.Context(), req.Name)
	if err != nil {
		h.logger.Error("create major", zap.Error(err))
		response.Internal(c, "failed to create major")
		return
	}
	response.Created(c, major)
}

// UpdateMajor handles PUT /admin/majors/:id.
func (h *Handler) UpdateMajor(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	if err := h.repo.UpdateMajor(c.Request.Context(), id, req.Name); err != nil {
		h.writeError(c, err, "failed to update major")
		return
	}
	response.OK(c, models.Major{ID: id, Name: req.Name})
}

// DeleteMajor handles DELETE /admin/majors/:id.
func (h *Handler) DeleteMajor(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.repo.DeleteMajor(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "failed to delete major")
		return
	}
	response.NoContent(c)
}

// --- classes ---

// ListClasses handles GET /admin/classes.
func (h *Handler) ListClasses(c *gin.Context) {
	list, total, err := h.repo.ListClasses(c.Request.Context(), pageFrom(c))
	if err != nil {
		h.logger.Error("list classes", zap.Error(err))
		response.Internal(c, "failed to list classes")
		return
	}
	response.OK(c, response.Paginated{Data: list, Total: total})
}

type classRequest struct {
	Grade   int    `json:"grade" binding:"required"`
	MajorID int64  `json:"major_id" binding:"required"`
	Name    string `json:"name" binding:"required"`
}

// CreateClass handles POST /admin/classes.
func (h *Handler) CreateClass(c *gin.Context) {
	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "grade, major_id and name are required")
		return
	}
	class := &models.Class{Grade: req.Grade, MajorID: req.MajorID, Name: req.Name}
	if err := h.repo.CreateClass(c.Request.Context(), class); err != nil {
		h.logger.Error("create class", zap.Error(err))
		response.Internal(c, "failed to create class")
		return
	}
	response.Created(c, class)
}

// UpdateClass handles PUT /admin/classes/:id.
func (h *Handler) UpdateClass(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "grade, major_id and name are required")
		return
	}
	class := &models.Class{ID: id, Grade: req.Grade, MajorID: req.MajorID, Name: req.Name}
	if err := h.repo.UpdateClass(c.Request.Context(), class); err != nil {
		h.writeError(c, err, "failed to update class")
		return
	}
	response.OK(c, class)
}

// DeleteClass handles DELETE /admin/classes/:id.
func (h *Handler) DeleteClass(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.repo.DeleteClass(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "failed to delete class")
		return
	}
	response.NoContent(c)
}

// --- teachers and students ---

// ListUsers returns a paginated user list handler for one role.
func (h *Handler) ListUsers(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, total, err := h.repo.ListUsers(c.Request.Context(), role, pageFrom(c))
		if err != nil {
			h.logger.Error("list users", zap.Error(err), zap.String("role", string(role)))
			response.Internal(c, "failed to list users")
			return
		}
		response.OK(c, response.Paginated{Data: list, Total: total})
	}
}

// CreateUser returns a creation handler for one role. New accounts get their
// user ID as the initial password.
func (h *Handler) CreateUser(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ID      string `json:"id" binding:"required"`
			Name    string `json:"name" binding:"required"`
			ClassID *int64 `json:"class_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "id and name are required")
			return
		}
		if role != models.RoleStudent && req.ClassID != nil {
			response.BadRequest(c, "only students belong to a class")
			return
		}
		hash, err := utils.HashPassword(req.ID)
		if err != nil {
			h.logger.Error("hash password", zap.Error(err))
			response.Internal(c, "failed to create user")
			return
		}
		user := &models.User{ID: req.ID, Name: req.Name, Role: role, ClassID: req.ClassID}
		if err := h.repo.CreateUser(c.Request.Context(), user, hash); err != nil {
			if errors.Is(err, ErrDuplicate) {
				response.Conflict(c, "user id already exists")
				return
			}
			h.logger.Error("create user", zap.Error(err))
			response.Internal(c, "failed to create user")
			return
		}
		response.Created(c, user.ToPublic())
	}
}

// UpdateUser handles PUT /admin/(teachers|students)/:id.
func (h *Handler) UpdateUser(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		ClassID *int64 `json:"class_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	if err := h.repo.UpdateUser(c.Request.Context(), c.Param("id"), req.Name, req.ClassID); err != nil {
		h.writeError(c, err, "failed to update user")
		return
	}
	response.OK(c, gin.H{"id": c.Param("id"), "name": req.Name, "class_id": req.ClassID})
}

// DeleteUser handles DELETE /admin/(teachers|students)/:id.
func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.repo.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "failed to delete user")
		return
	}
	response.NoContent(c)
}

// ResetPassword handles PUT /admin/(teachers|students)/:id/password: the
// password goes back to the user ID.
func (h *Handler) ResetPassword(c *gin.Context) {
	id := c.Param("id")
	hash, err := utils.HashPassword(id)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		response.Internal(c, "failed to reset password")
		return
	}
	if err := h.repo.ResetPassword(c.Request.Context(), id, hash); err != nil {
		h.writeError(c, err, "failed to reset password")
		return
	}
	response.OK(c, gin.H{"message": "password reset"})
}

// --- lessons ---

// ListLessons handles GET /admin/lessons.
func (h *Handler) ListLessons(c *gin.Context) {
	list, total, err := h.repo.ListLessons(c.Request.Context(), pageFrom(c))
	if err != nil {
		h.logger.Error("list lessons", zap.Error(err))
		response.Internal(c, "failed to list lessons")
		return
	}
	response.OK(c, response.Paginated{Data: list, Total: total})
}

type lessonRequest struct {
	Thumbnail string `json:"thumbnail"`
	Title     string `json:"title" binding:"required"`
	TeacherID string `json:"teacher_id" binding:"required"`
	Year      int    `json:"year" binding:"required"`
	Term      int    `json:"term" binding:"required"`
	IsOver    bool   `json:"is_over"`
}

// CreateLesson handles POST /admin/lessons.
func (h *Handler) CreateLesson(c *gin.Context) {
	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title, teacher_id, year and term are required")
		return
	}
	lesson := &models.Lesson{
		Thumbnail: req.Thumbnail,
		Title:     req.Title,
		TeacherID: req.TeacherID,
		Year:      req.Year,
		Term:      req.Term,
		IsOver:    req.IsOver,
	}
	if err := h.repo.CreateLesson(c.Request.Context(), lesson); err != nil {
		h.logger.Error("create lesson", zap.Error(err))
		response.Internal(c, "failed to create lesson")
		return
	}
	response.Created(c, lesson)
}

// UpdateLesson handles PUT /admin/lessons/:id.
func (h *Handler) UpdateLesson(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title, teacher_id, year and term are required")
		return
	}
	lesson := &models.Lesson{
		ID:        id,
		Thumbnail: req.Thumbnail,
		Title:     req.Title,
		TeacherID: req.TeacherID,
		Year:      req.Year,
		Term:      req.Term,
		IsOver:    req.IsOver,
	}
	if err := h.repo.UpdateLesson(c.Request.Context(), lesson); err != nil {
		h.writeError(c, err, "failed to update lesson")
		return
	}
	response.OK(c, lesson)
}

// DeleteLesson handles DELETE /admin/lessons/:id.
func (h *Handler) DeleteLesson(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.repo.DeleteLesson(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "failed to delete lesson")
		return
	}
	response.NoContent(c)
}

// LessonClasses handles GET /admin/lessons/:id/classes.
func (h *Handler) LessonClasses(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ids, err := h.repo.ClassIDsOfLesson(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list lesson classes", zap.Error(err))
		response.Internal(c, "failed to list lesson classes")
		return
	}
	response.OK(c, gin.H{"class_ids": ids})
}

// AssignClasses handles PUT /admin/lessons/:id/classes: replaces the lesson's
// class assignments.
func (h *Handler) AssignClasses(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req struct {
		ClassIDs []int64 `json:"class_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "class_ids is required")
		return
	}
	if err := h.repo.AssignClasses(c.Request.Context(), id, req.ClassIDs); err != nil {
		h.logger.Error("assign classes", zap.Error(err))
		response.Internal(c, "failed to assign classes")
		return
	}
	response.OK(c, gin.H{"class_ids": req.ClassIDs})
}

// --- options ---

// GetSemester handles GET /admin/semester.
func (h *Handler) GetSemester(c *gin.Context) {
	value, err := h.repo.GetOption(c.Request.Context(), OptionSemester)
	if err != nil {
		h.logger.Error("get semester", zap.Error(err))
		response.Internal(c, "failed to get semester")
		return
	}
	response.OK(c, gin.H{"semester": value})
}

// SetSemester handles PUT /admin/semester.
func (h *Handler) SetSemester(c *gin.Context) {
	var req struct {
		Semester string `json:"semester" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "semester is required")
		return
	}
	if err := h.repo.SetOption(c.Request.Context(), OptionSemester, req.Semester); err != nil {
		h.logger.Error("set semester", zap.Error(err))
		response.Internal(c, "failed to set semester")
		return
	}
	response.OK(c, gin.H{"semester": req.Semester})
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "not found")
		return
	}
	h.logger.Error(msg, zap.Error(err))
	response.Internal(c, msg)
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
