package admin

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-lms/backend/internal/models"
)

var (
	// ErrNotFound is returned when the target row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("already exists")
)

// Page bounds a paginated query.
type Page struct {
	Number  int
	Size    int
	Keyword string
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Like returns the keyword as a LIKE pattern.
func (p Page) Like() string {
	return "%" + p.Keyword + "%"
}

// Repository holds the administrative queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an admin repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// --- majors ---

// ListMajors returns one page of majors matching the keyword.
func (r *Repository) ListMajors(ctx context.Context, p Page) ([]models.Major, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM majors WHERE name ILIKE $1`, p.Like()).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name FROM majors WHERE name ILIKE $1 ORDER BY id LIMIT $2 OFFSET $3`,
		p.Like(), p.Size, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := make([]models.Major, 0)
	for rows.Next() {
		var m models.Major
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, 0, err
		}
		list = append(list, m)
	}
	return list, total, rows.Err()
}

// CreateMajor inserts a major.
func (r *Repository) CreateMajor(ctx context.Context, name string) (*models.Major, error) {
	var m models.Major
	m.Name = name
	err := r.pool.QueryRow(ctx,
		`INSERT INTO majors (name) VALUES ($1) RETURNING id`, name).Scan(&m.ID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMajor renames a major.
func (r *Repository) UpdateMajor(ctx context.Context, id int64, name string) error {
	return r.expectOne(r.pool.Exec(ctx, `UPDATE majors SET name = $1 WHERE id = $2`, name, id))
}

// DeleteMajor removes a major.
func (r *Repository) DeleteMajor(ctx context.Context, id int64) error {
	return r.expectOne(r.pool.Exec(ctx, `DELETE FROM majors WHERE id = $1`, id))
}

// --- classes ---

// ClassRow is a class joined with its major name.
type ClassRow struct {
	models.Class
	MajorName string `json:"major_name"`
}

// ListClasses returns one page of classes matching the keyword against the
// class or major name.
func (r *Repository) ListClasses(ctx context.Context, p Page) ([]ClassRow, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM classes c JOIN majors m ON m.id = c.major_id
		 WHERE c.name ILIKE $1 OR m.name ILIKE $1`, p.Like()).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.grade, c.major_id, c.name, m.name
		 FROM classes c JOIN majors m ON m.id = c.major_id
		 WHERE c.name ILIKE $1 OR m.name ILIKE $1
		 ORDER BY c.id LIMIT $2 OFFSET $3`,
		p.Like(), p.Size, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := make([]ClassRow, 0)
	for rows.Next() {
		var c ClassRow
		if err := rows.Scan(&c.ID, &c.Grade, &c.MajorID, &c.Name, &c.MajorName); err != nil {
			return nil, 0, err
		}
		list = append(list, c)
	}
	return list, total, rows.Err()
}

// CreateClass inserts a class.
func (r *Repository) CreateClass(ctx context.Context, cl *models.Class) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO classes (grade, major_id, name) VALUES ($1, $2, $3) RETURNING id`,
		cl.Grade, cl.MajorID, cl.Name).Scan(&cl.ID)
}

// UpdateClass replaces a class's fields.
func (r *Repository) UpdateClass(ctx context.Context, cl *models.Class) error {
	return r.expectOne(r.pool.Exec(ctx,
		`UPDATE classes SET grade = $1, major_id = $2, name = $3 WHERE id = $4`,
		cl.Grade, cl.MajorID, cl.Name, cl.ID))
}

// DeleteClass removes a class.
func (r *Repository) DeleteClass(ctx context.Context, id int64) error {
	return r.expectOne(r.pool.Exec(ctx, `DELETE FROM classes WHERE id = $1`, id))
}

// --- users ---

// ListUsers returns one page of users of a role, keyword matched against ID
// and name.
func (r *Repository) ListUsers(ctx context.Context, role models.Role, p Page) ([]models.UserPublic, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1 AND (id ILIKE $2 OR name ILIKE $2)`,
		role, p.Like()).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, role, class_id, email, phone, introduction, avatar
		 FROM users WHERE role = $1 AND (id ILIKE $2 OR name ILIKE $2)
		 ORDER BY id LIMIT $3 OFFSET $4`,
		role, p.Like(), p.Size, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := make([]models.UserPublic, 0)
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.ClassID, &u.Email, &u.Phone, &u.Introduction, &u.Avatar); err != nil {
			return nil, 0, err
		}
		list = append(list, u)
	}
	return list, total, rows.Err()
}

// CreateUser inserts a user with a pre-hashed password.
func (r *Repository) CreateUser(ctx context.Context, u *models.User, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, role, class_id, password_hash) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Role, u.ClassID, passwordHash)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateUser replaces name and class assignment.
func (r *Repository) UpdateUser(ctx context.Context, id string, name string, classID *int64) error {
	return r.expectOne(r.pool.Exec(ctx,
		`UPDATE users SET name = $1, class_id = $2 WHERE id = $3`, name, classID, id))
}

// DeleteUser removes a user.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	return r.expectOne(r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id))
}

// ResetPassword overwrites a user's password hash.
func (r *Repository) ResetPassword(ctx context.Context, id string, passwordHash string) error {
	return r.expectOne(r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id))
}

// --- lessons ---

// ListLessons returns one page of lessons matching the keyword against the
// title or teacher name.
func (r *Repository) ListLessons(ctx context.Context, p Page) ([]models.Lesson, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM lessons l JOIN users u ON u.id = l.teacher_id
		 WHERE l.title ILIKE $1 OR u.name ILIKE $1`, p.Like()).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT l.id, l.thumbnail, l.title, l.teacher_id, l.year, l.term, l.is_over, l.notice, l.courseware
		 FROM lessons l JOIN users u ON u.id = l.teacher_id
		 WHERE l.title ILIKE $1 OR u.name ILIKE $1
		 ORDER BY l.id LIMIT $2 OFFSET $3`,
		p.Like(), p.Size, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := make([]models.Lesson, 0)
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.Thumbnail, &l.Title, &l.TeacherID, &l.Year, &l.Term, &l.IsOver, &l.Notice, &l.Courseware); err != nil {
			return nil, 0, err
		}
		list = append(list, l)
	}
	return list, total, rows.Err()
}

// CreateLesson inserts a lesson.
func (r *Repository) CreateLesson(ctx context.Context, l *models.Lesson) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO lessons (thumbnail, title, teacher_id, year, term, is_over)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		l.Thumbnail, l.Title, l.TeacherID, l.Year, l.Term, l.IsOver).Scan(&l.ID)
}

// UpdateLesson replaces a lesson's administrative fields.
func (r *Repository) UpdateLesson(ctx context.Context, l *models.Lesson) error {
	return r.expectOne(r.pool.Exec(ctx,
		`UPDATE lessons SET thumbnail = $1, title = $2, teacher_id = $3, year = $4, term = $5, is_over = $6
		 WHERE id = $7`,
		l.Thumbnail, l.Title, l.TeacherID, l.Year, l.Term, l.IsOver, l.ID))
}

// DeleteLesson removes a lesson and, via cascade, its assignments, tasks and
// records.
func (r *Repository) DeleteLesson(ctx context.Context, id int64) error {
	return r.expectOne(r.pool.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id))
}

// ClassIDsOfLesson returns the classes a lesson is assigned to.
func (r *Repository) ClassIDsOfLesson(ctx context.Context, lessonID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT class_id FROM class_lessons WHERE lesson_id = $1 ORDER BY class_id`, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssignClasses replaces a lesson's class assignments.
func (r *Repository) AssignClasses(ctx context.Context, lessonID int64, classIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM class_lessons WHERE lesson_id = $1`, lessonID); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, classID := range classIDs {
		batch.Queue(`INSERT INTO class_lessons (class_id, lesson_id) VALUES ($1, $2)`, classID, lessonID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- options ---

// GetOption returns a site option value, empty when unset.
func (r *Repository) GetOption(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM options WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetOption upserts a site option.
func (r *Repository) SetOption(ctx context.Context, key, value string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO options (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	return err
}

func (r *Repository) expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
