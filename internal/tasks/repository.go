package tasks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-lms/backend/internal/models"
)

var (
	// ErrTaskNotFound is returned when a task or status row does not exist.
	ErrTaskNotFound = errors.New("task not found")
)

// Repository handles tasks and per-student task statuses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a task repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns one task.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	var t models.Task
	err := r.pool.QueryRow(ctx,
		`SELECT id, lesson_id, title, description, created_at, deadline FROM tasks WHERE id = $1`,
		id).Scan(&t.ID, &t.LessonID, &t.Title, &t.Description, &t.CreatedAt, &t.Deadline)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a task and one uncompleted status row per enrolled student,
// in a single transaction.
func (r *Repository) Create(ctx context.Context, t *models.Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO tasks (lesson_id, title, description, created_at, deadline)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		t.LessonID, t.Title, t.Description, t.CreatedAt, t.Deadline).Scan(&t.ID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO task_statuses (student_id, task_id, status, text, files, score)
		 SELECT DISTINCT u.id, $1, $2, '', '', 0 FROM users u
		 JOIN class_lessons cl ON cl.class_id = u.class_id
		 WHERE cl.lesson_id = $3 AND u.role = $4`,
		t.ID, models.TaskStatusUncompleted, t.LessonID, models.RoleStudent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update replaces a task's title, description and deadline.
func (r *Repository) Update(ctx context.Context, t *models.Task) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, deadline = $3 WHERE id = $4`,
		t.Title, t.Description, t.Deadline, t.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task; status rows go with it via cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ListByLesson returns a lesson's tasks, newest first.
func (r *Repository) ListByLesson(ctx context.Context, lessonID int64) ([]models.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, lesson_id, title, description, created_at, deadline
		 FROM tasks WHERE lesson_id = $1 ORDER BY created_at DESC, id DESC`,
		lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.Task, 0)
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.LessonID, &t.Title, &t.Description, &t.CreatedAt, &t.Deadline); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// StudentTaskView is a task joined with the student's own status.
type StudentTaskView struct {
	models.Task
	LessonTitle string `json:"lesson_title"`
	Status      string `json:"status"`
	Text        string `json:"text"`
	Files       string `json:"files"`
	Score       int    `json:"score"`
}

// ListForStudent returns every task assigned to the student with their
// status, newest first.
func (r *Repository) ListForStudent(ctx context.Context, studentID string) ([]StudentTaskView, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.lesson_id, t.title, t.description, t.created_at, t.deadline,
		        l.title, s.status, s.text, s.files, s.score
		 FROM task_statuses s
		 JOIN tasks t ON t.id = s.task_id
		 JOIN lessons l ON l.id = t.lesson_id
		 WHERE s.student_id = $1
		 ORDER BY t.created_at DESC, t.id DESC`,
		studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]StudentTaskView, 0)
	for rows.Next() {
		var v StudentTaskView
		if err := rows.Scan(&v.ID, &v.LessonID, &v.Title, &v.Description, &v.CreatedAt, &v.Deadline,
			&v.LessonTitle, &v.Status, &v.Text, &v.Files, &v.Score); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// StatusRow is one student's submission joined with their name, for the
// teacher's checking view.
type StatusRow struct {
	models.TaskStatus
	StudentName string `json:"student_name"`
}

// ListStatuses returns every status row for a task.
func (r *Repository) ListStatuses(ctx context.Context, taskID int64) ([]StatusRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.student_id, s.task_id, s.status, s.text, s.files, s.score, u.name
		 FROM task_statuses s JOIN users u ON u.id = s.student_id
		 WHERE s.task_id = $1 ORDER BY s.student_id`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]StatusRow, 0)
	for rows.Next() {
		var row StatusRow
		if err := rows.Scan(&row.ID, &row.StudentID, &row.TaskID, &row.Status, &row.Text, &row.Files, &row.Score, &row.StudentName); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

// GetStatus returns one student's status row for a task.
func (r *Repository) GetStatus(ctx context.Context, studentID string, taskID int64) (*models.TaskStatus, error) {
	var s models.TaskStatus
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, task_id, status, text, files, score
		 FROM task_statuses WHERE student_id = $1 AND task_id = $2`,
		studentID, taskID).Scan(&s.ID, &s.StudentID, &s.TaskID, &s.Status, &s.Text, &s.Files, &s.Score)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SubmitStatus records a student submission.
func (r *Repository) SubmitStatus(ctx context.Context, studentID string, taskID int64, status, text, files string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE task_statuses SET status = $1, text = $2, files = $3
		 WHERE student_id = $4 AND task_id = $5`,
		status, text, files, studentID, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// GradeStatus marks a submission checked with a score.
func (r *Repository) GradeStatus(ctx context.Context, studentID string, taskID int64, score int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE task_statuses SET status = $1, score = $2
		 WHERE student_id = $3 AND task_id = $4`,
		models.TaskStatusChecked, score, studentID, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}
