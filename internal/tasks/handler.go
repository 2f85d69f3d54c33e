package tasks

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-lms/backend/internal/lessons"
	"github.com/campus-lms/backend/internal/middleware"
	"github.com/campus-lms/backend/internal/models"
	"github.com/campus-lms/backend/pkg/queue"
	"github.com/campus-lms/backend/pkg/response"
)

// Handler serves task endpoints.
type Handler struct {
	repo    *Repository
	lessons *lessons.Repository
	queue   *queue.Queue
	logger  *zap.Logger
}

// NewHandler creates a task handler.
func NewHandler(repo *Repository, lessonRepo *lessons.Repository, q *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, lessons: lessonRepo, queue: q, logger: logger}
}

// ListMine handles GET /tasks (student only): every assigned task with the
// caller's status.
func (h *Handler) ListMine(c *gin.Context) {
	studentID := c.GetString(middleware.ContextUserID)
	list, err := h.repo.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		h.logger.Error("list student tasks", zap.Error(err))
		response.Internal(c, "failed to list tasks")
		return
	}
	response.OK(c, list)
}

// ListForLesson handles GET /lessons/:id/tasks.
func (h *Handler) ListForLesson(c *gin.Context) {
	lessonID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid lesson id")
		return
	}
	if !h.lessonAccess(c, lessonID) {
		return
	}
	list, err := h.repo.ListByLesson(c.Request.Context(), lessonID)
	if err != nil {
		h.logger.Error("list lesson tasks", zap.Error(err))
		response.Internal(c, "failed to list tasks")
		return
	}
	response.OK(c, list)
}

// Create handles POST /lessons/:id/tasks (teacher only). A status row is
// created for every enrolled student and the lesson is notified.
func (h *Handler) Create(c *gin.Context) {
	lessonID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid lesson id")
		return
	}
	if !h.teacherOwns(c, lessonID) {
		return
	}
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Deadline    int64  `json:"deadline" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title and deadline are required")
		return
	}
	task := &models.Task{
		LessonID:    lessonID,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   time.Now().Unix(),
		Deadline:    req.Deadline,
	}
	if err := h.repo.Create(c.Request.Context(), task); err != nil {
		h.logger.Error("create task", zap.Error(err))
		response.Internal(c, "failed to create task")
		return
	}
	err = h.queue.EnqueueActivityBroadcast(c.Request.Context(), queue.ActivityBroadcastPayload{
		LessonID: lessonID,
		Content:  fmt.Sprintf("New task %q", req.Title),
	})
	if err != nil {
		h.logger.Warn("enqueue task broadcast", zap.Error(err))
	}
	response.Created(c, task)
}

// Update handles PUT /tasks/:id (owning teacher only).
func (h *Handler) Update(c *gin.Context) {
	task, ok := h.ownedTask(c)
	if !ok {
		return
	}
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Deadline    int64  `json:"deadline" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title and deadline are required")
		return
	}
	task.Title = req.Title
	task.Description = req.Description
	task.Deadline = req.Deadline
	if err := h.repo.Update(c.Request.Context(), task); err != nil {
		h.logger.Error("update task", zap.Error(err))
		response.Internal(c, "failed to update task")
		return
	}
	response.OK(c, task)
}

// Delete handles DELETE /tasks/:id (owning teacher only).
func (h *Handler) Delete(c *gin.Context) {
	task, ok := h.ownedTask(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), task.ID); err != nil {
		h.logger.Error("delete task", zap.Error(err))
		response.Internal(c, "failed to delete task")
		return
	}
	response.NoContent(c)
}

// Statuses handles GET /tasks/:id/statuses (owning teacher only): every
// student's submission for checking.
func (h *Handler) Statuses(c *gin.Context) {
	task, ok := h.ownedTask(c)
	if !ok {
		return
	}
	list, err := h.repo.ListStatuses(c.Request.Context(), task.ID)
	if err != nil {
		h.logger.Error("list task statuses", zap.Error(err))
		response.Internal(c, "failed to list statuses")
		return
	}
	response.OK(c, list)
}

// Submit handles PUT /tasks/:id/submit (student only). Late submissions are
// stored as expired; a checked submission can no longer change.
func (h *Handler) Submit(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	var req struct {
		Text  string `json:"text"`
		Files string `json:"files"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid submission")
		return
	}
	ctx := c.Request.Context()
	studentID := c.GetString(middleware.ContextUserID)

	task, err := h.repo.GetByID(ctx, taskID)
	if errors.Is(err, ErrTaskNotFound) {
		response.NotFound(c, "task not found")
		return
	}
	if err != nil {
		h.logger.Error("get task", zap.Error(err))
		response.Internal(c, "failed to get task")
		return
	}
	current, err := h.repo.GetStatus(ctx, studentID, taskID)
	if errors.Is(err, ErrTaskNotFound) {
		response.Forbidden(c, "task is not assigned to you")
		return
	}
	if err != nil {
		h.logger.Error("get task status", zap.Error(err))
		response.Internal(c, "failed to get status")
		return
	}
	if current.Status == models.TaskStatusChecked {
		response.Conflict(c, "submission has already been checked")
		return
	}
	status := models.TaskStatusCompleted
	if time.Now().Unix() > task.Deadline {
		status = models.TaskStatusExpired
	}
	if err := h.repo.SubmitStatus(ctx, studentID, taskID, status, req.Text, req.Files); err != nil {
		h.logger.Error("submit task", zap.Error(err))
		response.Internal(c, "failed to submit")
		return
	}
	response.OK(c, gin.H{"status": status})
}

// Grade handles PUT /tasks/:id/statuses/:studentID (owning teacher only):
// sets the score, marks the row checked and notifies the student.
func (h *Handler) Grade(c *gin.Context) {
	task, ok := h.ownedTask(c)
	if !ok {
		return
	}
	studentID := c.Param("studentID")
	var req struct {
		Score *int `json:"score" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "score is required")
		return
	}
	ctx := c.Request.Context()
	if err := h.repo.GradeStatus(ctx, studentID, task.ID, *req.Score); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			response.NotFound(c, "submission not found")
			return
		}
		h.logger.Error("grade task", zap.Error(err))
		response.Internal(c, "failed to grade")
		return
	}
	err := h.queue.EnqueueActivityDirect(ctx, queue.ActivityDirectPayload{
		LessonID: task.LessonID,
		Content:  fmt.Sprintf("Task %q has been graded", task.Title),
		Scope:    string(models.RoleStudent),
		UserID:   studentID,
	})
	if err != nil {
		h.logger.Warn("enqueue grade notification", zap.Error(err))
	}
	response.OK(c, gin.H{"status": models.TaskStatusChecked, "score": *req.Score})
}

// ownedTask loads the task and requires the caller to own its lesson.
func (h *Handler) ownedTask(c *gin.Context) (*models.Task, bool) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return nil, false
	}
	task, err := h.repo.GetByID(c.Request.Context(), taskID)
	if errors.Is(err, ErrTaskNotFound) {
		response.NotFound(c, "task not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get task", zap.Error(err))
		response.Internal(c, "failed to get task")
		return nil, false
	}
	if !h.teacherOwns(c, task.LessonID) {
		return nil, false
	}
	return task, true
}

func (h *Handler) teacherOwns(c *gin.Context, lessonID int64) bool {
	owns, err := h.lessons.TeacherOwns(c.Request.Context(), c.GetString(middleware.ContextUserID), lessonID)
	if err != nil {
		h.logger.Error("check lesson ownership", zap.Error(err))
		response.Internal(c, "failed to check lesson ownership")
		return false
	}
	if !owns {
		response.Forbidden(c, "not the lesson teacher")
		return false
	}
	return true
}

func (h *Handler) lessonAccess(c *gin.Context, lessonID int64) bool {
	userID := c.GetString(middleware.ContextUserID)
	ctx := c.Request.Context()
	switch models.Role(c.GetString(middleware.ContextUserRole)) {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		owns, err := h.lessons.TeacherOwns(ctx, userID, lessonID)
		if err != nil {
			h.logger.Error("check lesson ownership", zap.Error(err))
			response.Internal(c, "failed to check lesson ownership")
			return false
		}
		if owns {
			return true
		}
	case models.RoleStudent:
		enrolled, err := h.lessons.StudentEnrolled(ctx, userID, lessonID)
		if err != nil {
			h.logger.Error("check enrollment", zap.Error(err))
			response.Internal(c, "failed to check enrollment")
			return false
		}
		if enrolled {
			return true
		}
	}
	response.Forbidden(c, "no access to this lesson")
	return false
}
