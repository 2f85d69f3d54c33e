package lessons

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-lms/backend/internal/classroom"
	"github.com/campus-lms/backend/internal/models"
)

// ErrLessonNotFound is returned when a lesson does not exist.
var ErrLessonNotFound = errors.New("lesson not found")

const lessonColumns = `id, thumbnail, title, teacher_id, year, term, is_over, notice, courseware`

// Repository handles lessons, class assignments and lesson records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lesson repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLesson(row pgx.Row) (*models.Lesson, error) {
	var l models.Lesson
	err := row.Scan(&l.ID, &l.Thumbnail, &l.Title, &l.TeacherID, &l.Year, &l.Term, &l.IsOver, &l.Notice, &l.Courseware)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByID returns one lesson.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Lesson, error) {
	return scanLesson(r.pool.QueryRow(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
}

// ListByTeacher returns every lesson owned by a teacher.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Lesson, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE teacher_id = $1 ORDER BY year DESC, term DESC, id DESC`,
		teacherID)
	if err != nil {
		return nil, err
	}
	return collectLessons(rows)
}

// ListByClass returns every lesson assigned to a class.
func (r *Repository) ListByClass(ctx context.Context, classID int64) ([]models.Lesson, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+lessonColumns+` FROM lessons l
		 JOIN class_lessons cl ON cl.lesson_id = l.id
		 WHERE cl.class_id = $1 ORDER BY l.year DESC, l.term DESC, l.id DESC`,
		classID)
	if err != nil {
		return nil, err
	}
	return collectLessons(rows)
}

func collectLessons(rows pgx.Rows) ([]models.Lesson, error) {
	defer rows.Close()
	list := make([]models.Lesson, 0)
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.Thumbnail, &l.Title, &l.TeacherID, &l.Year, &l.Term, &l.IsOver, &l.Notice, &l.Courseware); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// TeacherOwns reports whether the teacher owns the lesson.
func (r *Repository) TeacherOwns(ctx context.Context, teacherID string, lessonID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM lessons WHERE id = $1 AND teacher_id = $2)`,
		lessonID, teacherID).Scan(&ok)
	return ok, err
}

// StudentEnrolled reports whether the student's class is assigned the lesson.
func (r *Repository) StudentEnrolled(ctx context.Context, studentID string, lessonID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM users u
		   JOIN class_lessons cl ON cl.class_id = u.class_id
		   WHERE u.id = $1 AND cl.lesson_id = $2)`,
		studentID, lessonID).Scan(&ok)
	return ok, err
}

// UpdateNotice replaces the lesson notice.
func (r *Repository) UpdateNotice(ctx context.Context, lessonID int64, notice string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE lessons SET notice = $1 WHERE id = $2`, notice, lessonID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLessonNotFound
	}
	return nil
}

// UpdateCourseware replaces the lesson courseware path.
func (r *Repository) UpdateCourseware(ctx context.Context, lessonID int64, courseware string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE lessons SET courseware = $1 WHERE id = $2`, courseware, lessonID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLessonNotFound
	}
	return nil
}

// SampleStudents returns up to n random students enrolled in the lesson, for
// roll calls.
func (r *Repository) SampleStudents(ctx context.Context, lessonID int64, n int) ([]classroom.StudentRef, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name FROM users u
		 JOIN class_lessons cl ON cl.class_id = u.class_id
		 WHERE cl.lesson_id = $1 AND u.role = $2
		 ORDER BY RANDOM() LIMIT $3`,
		lessonID, models.RoleStudent, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []classroom.StudentRef
	for rows.Next() {
		var s classroom.StudentRef
		if err := rows.Scan(&s.StudentID, &s.Name); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// UserName returns the display name for a user ID.
func (r *Repository) UserName(ctx context.Context, userID string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM users WHERE id = $1`, userID).Scan(&name)
	return name, err
}

// ClassIDOf returns the student's class ID, nil when unassigned.
func (r *Repository) ClassIDOf(ctx context.Context, userID string) (*int64, error) {
	var classID *int64
	err := r.pool.QueryRow(ctx, `SELECT class_id FROM users WHERE id = $1`, userID).Scan(&classID)
	if err != nil {
		return nil, err
	}
	return classID, nil
}

// Archive stores a finished classroom session's event log durably.
func (r *Repository) Archive(ctx context.Context, lessonID int64, archivedAt int64, data json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO lesson_records (lesson_id, archived_at, data) VALUES ($1, $2, $3)`,
		lessonID, archivedAt, data)
	return err
}

// ListRecords returns archived sessions for a lesson, newest first, without
// the event payloads.
func (r *Repository) ListRecords(ctx context.Context, lessonID int64) ([]models.LessonRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, lesson_id, archived_at FROM lesson_records
		 WHERE lesson_id = $1 ORDER BY archived_at DESC`,
		lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.LessonRecord, 0)
	for rows.Next() {
		var rec models.LessonRecord
		if err := rows.Scan(&rec.ID, &rec.LessonID, &rec.ArchivedAt); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// GetRecord returns one archived session including its event payload.
func (r *Repository) GetRecord(ctx context.Context, lessonID, recordID int64) (*models.LessonRecord, error) {
	var rec models.LessonRecord
	err := r.pool.QueryRow(ctx,
		`SELECT id, lesson_id, archived_at, data FROM lesson_records
		 WHERE id = $1 AND lesson_id = $2`,
		recordID, lessonID).Scan(&rec.ID, &rec.LessonID, &rec.ArchivedAt, &rec.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
