package lessons

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-lms/backend/internal/classroom"
	"github.com/campus-lms/backend/internal/middleware"
	"github.com/campus-lms/backend/internal/models"
	"github.com/campus-lms/backend/internal/realtime"
	"github.com/campus-lms/backend/pkg/queue"
	"github.com/campus-lms/backend/pkg/response"
)

const defaultRollCallSize = 3

// Handler serves lesson endpoints and the live classroom session.
type Handler struct {
	repo        *Repository
	engine      *classroom.Engine
	queue       *queue.Queue
	hub         *realtime.Hub
	logger      *zap.Logger
	windowSecs  int
	tokenWindow time.Duration
}

// NewHandler creates a lesson handler. windowSecs is the default attendance
// window for class begin, tokenWindow the QR token validity.
func NewHandler(repo *Repository, engine *classroom.Engine, q *queue.Queue, hub *realtime.Hub, logger *zap.Logger, windowSecs int, tokenWindow time.Duration) *Handler {
	return &Handler{
		repo:        repo,
		engine:      engine,
		queue:       q,
		hub:         hub,
		logger:      logger,
		windowSecs:  windowSecs,
		tokenWindow: tokenWindow,
	}
}

// List handles GET /lessons: a teacher sees their own lessons, a student the
// lessons assigned to their class.
func (h *Handler) List(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	role := models.Role(c.GetString(middleware.ContextUserRole))

	var (
		list []models.Lesson
		err  error
	)
	switch role {
	case models.RoleTeacher:
		list, err = h.repo.ListByTeacher(c.Request.Context(), userID)
	case models.RoleStudent:
		var classID *int64
		classID, err = h.repo.ClassIDOf(c.Request.Context(), userID)
		if err == nil {
			if classID == nil {
				response.OK(c, []models.LessonBrief{})
				return
			}
			list, err = h.repo.ListByClass(c.Request.Context(), *classID)
		}
	default:
		response.Forbidden(c, "insufficient permissions")
		return
	}
	if err != nil {
		h.logger.Error("list lessons", zap.Error(err))
		response.Internal(c, "failed to list lessons")
		return
	}
	briefs := make([]models.LessonBrief, 0, len(list))
	for i := range list {
		briefs = append(briefs, list[i].Brief())
	}
	response.OK(c, briefs)
}

// Get handles GET /lessons/:id.
func (h *Handler) Get(c *gin.Context) {
	lesson, ok := h.authorizedLesson(c)
	if !ok {
		return
	}
	response.OK(c, lesson)
}

// UpdateNotice handles PUT /lessons/:id/notice (teacher only).
func (h *Handler) UpdateNotice(c *gin.Context) {
	lesson, ok := h.ownedLesson(c)
	if !ok {
		return
	}
	var req struct {
		Notice string `json:"notice" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "notice is required")
		return
	}
	if err := h.repo.UpdateNotice(c.Request.Context(), lesson.ID, req.Notice); err != nil {
		h.logger.Error("update notice", zap.Error(err))
		response.Internal(c, "failed to update notice")
		return
	}
	h.broadcast(c, lesson.ID, fmt.Sprintf("New notice in lesson %q", lesson.Title))
	h.hub.Push(lesson.ID, "notice", gin.H{"notice": req.Notice})
	response.OK(c, gin.H{"notice": req.Notice})
}

// UpdateCourseware handles PUT /lessons/:id/courseware (teacher only).
func (h *Handler) UpdateCourseware(c *gin.Context) {
	lesson, ok := h.ownedLesson(c)
	if !ok {
		return
	}
	var req struct {
		Courseware string `json:"courseware" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "courseware is required")
		return
	}
	if err := h.repo.UpdateCourseware(c.Request.Context(), lesson.ID, req.Courseware); err != nil {
		h.logger.Error("update courseware", zap.Error(err))
		response.Internal(c, "failed to update courseware")
		return
	}
	h.broadcast(c, lesson.ID, fmt.Sprintf("Courseware updated in lesson %q", lesson.Title))
	response.OK(c, gin.H{"courseware": req.Courseware})
}

// ListRecords handles GET /lessons/:id/records.
func (h *Handler) ListRecords(c *gin.Context) {
	lesson, ok := h.authorizedLesson(c)
	if !ok {
		return
	}
	list, err := h.repo.ListRecords(c.Request.Context(), lesson.ID)
	if err != nil {
		h.logger.Error("list lesson records", zap.Error(err))
		response.Internal(c, "failed to list records")
		return
	}
	response.OK(c, list)
}

// GetRecord handles GET /lessons/:id/records/:recordID.
func (h *Handler) GetRecord(c *gin.Context) {
	lesson, ok := h.authorizedLesson(c)
	if !ok {
		return
	}
	recordID, err := strconv.ParseInt(c.Param("recordID"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid record id")
		return
	}
	rec, err := h.repo.GetRecord(c.Request.Context(), lesson.ID, recordID)
	if errors.Is(err, ErrLessonNotFound) {
		response.NotFound(c, "record not found")
		return
	}
	if err != nil {
		h.logger.Error("get lesson record", zap.Error(err))
		response.Internal(c, "failed to get record")
		return
	}
	response.OK(c, rec)
}

// Classroom handles GET /lessons/:id/classroom: the live event sequence, and
// for the owning teacher the current attendance QR token (null once the
// window has elapsed).
func (h *Handler) Classroom(c *gin.Context) {
	lesson, ok := h.authorizedLesson(c)
	if !ok {
		return
	}
	events, err := h.engine.Record(c.Request.Context(), lesson.ID)
	if err != nil {
		h.classroomError(c, err)
		return
	}
	body := gin.H{"record": events}
	if models.Role(c.GetString(middleware.ContextUserRole)) == models.RoleTeacher {
		token, err := h.engine.IssueAttendanceToken(c.Request.Context(), lesson.ID, h.tokenWindow)
		if err != nil {
			h.classroomError(c, err)
			return
		}
		if token == "" {
			body["qrcode"] = nil
		} else {
			body["qrcode"] = token
		}
	}
	response.OK(c, body)
}

// ClassBegin handles PUT /lessons/:id/classroom/classbegin (teacher only).
func (h *Handler) ClassBegin(c *gin.Context) {
	lesson, ok := h.ownedLesson(c)
	if !ok {
		return
	}
	var req struct {
		AttendanceWindowSeconds int `json:"attendance_window_seconds"`
	}
	_ = c.ShouldBindJSON(&req)
	window := req.AttendanceWindowSeconds
	if window <= 0 {
		window = h.windowSecs
	}
	if err := h.engine.Open(c.Request.Context(), lesson.ID, lesson.Title, window); err != nil {
		h.classroomError(c, err)
		return
	}
	h.broadcast(c, lesson.ID, fmt.Sprintf("Lesson %q has started", lesson.Title))
	h.hub.Push(lesson.ID, "classbegin", gin.H{"title": lesson.Title})
	response.OK(c, gin.H{"message": "class begun"})
}

// ClassEnd handles PUT /lessons/:id/classroom/classend (teacher only). The
// final event sequence is archived before the session keys are deleted, so a
// failed archive leaves the session intact for a retry.
func (h *Handler) ClassEnd(c *gin.Context) {
	lesson, ok := h.ownedLesson(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	events, err := h.engine.Close(ctx, lesson.ID)
	if err != nil {
		h.classroomError(c, err)
		return
	}
	data, err := json.Marshal(events)
	if err != nil {
		h.logger.Error("encode session record", zap.Error(err), zap.Int64("lesson_id", lesson.ID))
		response.Internal(c, "failed to archive session")
		return
	}
	if err := h.repo.Archive(ctx, lesson.ID, time.Now().Unix(), data); err != nil {
		h.logger.Error("archive session", zap.Error(err), zap.Int64("lesson_id", lesson.ID))
		response.Internal(c, "failed to archive session")
		return
	}
	if err := h.engine.Delete(ctx, lesson.ID); err != nil {
		h.logger.Error("delete session keys", zap.Error(err), zap.Int64("lesson_id", lesson.ID))
		response.Internal(c, "failed to close session")
		return
	}
	h.broadcast(c, lesson.ID, fmt.Sprintf("Lesson %q has ended", lesson.Title))
	h.hub.Push(lesson.ID, "classend", nil)
	response.OK(c, gin.H{"message": "class ended", "events": len(events)})
}

// Attendance handles PUT /lessons/:id/classroom/attendance (student only).
// The scanned QR token proves the student read the current secret; identity
// comes from their session.
func (h *Handler) Attendance(c *gin.Context) {
	lesson, ok := h.enrolledLesson(c)
	if !ok {
		return
	}
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token is required")
		return
	}
	ctx := c.Request.Context()
	if err := h.engine.VerifyAttendanceToken(ctx, lesson.ID, req.Token); err != nil {
		h.classroomError(c, err)
		return
	}
	studentID := c.GetString(middleware.ContextUserID)
	name, err := h.repo.UserName(ctx, studentID)
	if err != nil {
		h.logger.Error("lookup student name", zap.Error(err))
		response.Internal(c, "failed to record attendance")
		return
	}
	if err := h.engine.RecordAttendance(ctx, lesson.ID, studentID, name); err != nil {
		h.classroomError(c, err)
		return
	}
	h.hub.Push(lesson.ID, "attendance", gin.H{"student_id": studentID, "name": name})
	response.OK(c, gin.H{"message": "attendance recorded"})
}

// RollCall handles GET /lessons/:id/classroom/roll (teacher only): samples
// enrolled students, appends the roll-call snapshot and returns it.
func (h *Handler) RollCall(c *gin.Context) {
	lesson, ok := h.ownedLesson(c)
	if !ok {
		return
	}
	count, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(defaultRollCallSize)))
	if err != nil || count <= 0 {
		response.BadRequest(c, "invalid count")
		return
	}
	question := c.Query("question")

	ctx := c.Request.Context()
	students, err := h.repo.SampleStudents(ctx, lesson.ID, count)
	if err != nil {
		h.logger.Error("sample students", zap.Error(err))
		response.Internal(c, "failed to sample students")
		return
	}
	if err := h.engine.RecordRollCall(ctx, lesson.ID, students, question); err != nil {
		h.classroomError(c, err)
		return
	}
	h.hub.Push(lesson.ID, "taketheroll", gin.H{"students": students, "question": question})
	response.OK(c, gin.H{"students": students, "question": question})
}

// broadcast enqueues a lesson-wide activity; failures are logged, never
// surfaced.
func (h *Handler) broadcast(c *gin.Context, lessonID int64, content string) {
	err := h.queue.EnqueueActivityBroadcast(c.Request.Context(), queue.ActivityBroadcastPayload{
		LessonID: lessonID,
		Content:  content,
	})
	if err != nil {
		h.logger.Warn("enqueue activity broadcast", zap.Error(err), zap.Int64("lesson_id", lessonID))
	}
}

func (h *Handler) classroomError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, classroom.ErrAlreadyOpen):
		response.Conflict(c, "classroom session is already open")
	case errors.Is(err, classroom.ErrNotOpen):
		response.BadRequest(c, "classroom session is not open")
	case errors.Is(err, classroom.ErrRecordCorrupt):
		response.Internal(c, "classroom record was corrupted and has been reset")
	case errors.Is(err, classroom.ErrInvalidToken):
		response.BadRequest(c, "invalid or expired attendance code")
	default:
		h.logger.Error("classroom operation", zap.Error(err))
		response.Internal(c, "classroom operation failed")
	}
}

func (h *Handler) lessonID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid lesson id")
		return 0, false
	}
	return id, true
}

// authorizedLesson loads the lesson and checks the caller may see it: the
// owning teacher, an enrolled student or an admin.
func (h *Handler) authorizedLesson(c *gin.Context) (*models.Lesson, bool) {
	id, ok := h.lessonID(c)
	if !ok {
		return nil, false
	}
	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrLessonNotFound) {
		response.NotFound(c, "lesson not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get lesson", zap.Error(err))
		response.Internal(c, "failed to get lesson")
		return nil, false
	}
	userID := c.GetString(middleware.ContextUserID)
	switch models.Role(c.GetString(middleware.ContextUserRole)) {
	case models.RoleAdmin:
		return lesson, true
	case models.RoleTeacher:
		if lesson.TeacherID == userID {
			return lesson, true
		}
	case models.RoleStudent:
		enrolled, err := h.repo.StudentEnrolled(c.Request.Context(), userID, id)
		if err != nil {
			h.logger.Error("check enrollment", zap.Error(err))
			response.Internal(c, "failed to check enrollment")
			return nil, false
		}
		if enrolled {
			return lesson, true
		}
	}
	response.Forbidden(c, "no access to this lesson")
	return nil, false
}

// ownedLesson loads the lesson and requires the caller to be its teacher.
func (h *Handler) ownedLesson(c *gin.Context) (*models.Lesson, bool) {
	id, ok := h.lessonID(c)
	if !ok {
		return nil, false
	}
	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrLessonNotFound) {
		response.NotFound(c, "lesson not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get lesson", zap.Error(err))
		response.Internal(c, "failed to get lesson")
		return nil, false
	}
	if lesson.TeacherID != c.GetString(middleware.ContextUserID) {
		response.Forbidden(c, "not the lesson teacher")
		return nil, false
	}
	return lesson, true
}

// enrolledLesson loads the lesson and requires the caller to be an enrolled
// student.
func (h *Handler) enrolledLesson(c *gin.Context) (*models.Lesson, bool) {
	id, ok := h.lessonID(c)
	if !ok {
		return nil, false
	}
	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrLessonNotFound) {
		response.NotFound(c, "lesson not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get lesson", zap.Error(err))
		response.Internal(c, "failed to get lesson")
		return nil, false
	}
	userID := c.GetString(middleware.ContextUserID)
	enrolled, err := h.repo.StudentEnrolled(c.Request.Context(), userID, id)
	if err != nil {
		h.logger.Error("check enrollment", zap.Error(err))
		response.Internal(c, "failed to check enrollment")
		return nil, false
	}
	if !enrolled {
		response.Forbidden(c, "not enrolled in this lesson")
		return nil, false
	}
	return lesson, true
}
