package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-lms/backend/internal/models"
)

// TeacherSummary aggregates a teacher's landing-page numbers.
type TeacherSummary struct {
	OpenLessons    int `json:"open_lessons"`
	TotalLessons   int `json:"total_lessons"`
	PendingReviews int `json:"pending_reviews"`
}

// StudentSummary aggregates a student's landing-page numbers.
type StudentSummary struct {
	OpenLessons      int `json:"open_lessons"`
	UncompletedTasks int `json:"uncompleted_tasks"`
}

// Repository computes dashboard aggregates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a dashboard repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TeacherSummary returns the teacher's aggregates: lesson counts and
// submissions waiting for a check.
func (r *Repository) TeacherSummary(ctx context.Context, teacherID string) (*TeacherSummary, error) {
	var s TeacherSummary
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE NOT is_over), COUNT(*)
		 FROM lessons WHERE teacher_id = $1`,
		teacherID).Scan(&s.OpenLessons, &s.TotalLessons)
	if err != nil {
		return nil, err
	}
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM task_statuses s
		 JOIN tasks t ON t.id = s.task_id
		 JOIN lessons l ON l.id = t.lesson_id
		 WHERE l.teacher_id = $1 AND s.status = $2`,
		teacherID, models.TaskStatusCompleted).Scan(&s.PendingReviews)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// StudentSummary returns the student's aggregates: open lessons for their
// class and tasks still to do.
func (r *Repository) StudentSummary(ctx context.Context, studentID string) (*StudentSummary, error) {
	var s StudentSummary
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT l.id)
		 FROM lessons l
		 JOIN class_lessons cl ON cl.lesson_id = l.id
		 JOIN users u ON u.class_id = cl.class_id
		 WHERE u.id = $1 AND NOT l.is_over`,
		studentID).Scan(&s.OpenLessons)
	if err != nil {
		return nil, err
	}
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM task_statuses
		 WHERE student_id = $1 AND status = $2`,
		studentID, models.TaskStatusUncompleted).Scan(&s.UncompletedTasks)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
