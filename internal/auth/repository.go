package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-lms/backend/internal/models"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, name, role, class_id, email, phone, introduction, avatar, password_hash`

// Repository handles user persistence for all three roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Role, &u.ClassID, &u.Email, &u.Phone, &u.Introduction, &u.Avatar, &u.Password)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// GetByIDAndRole returns a user by ID constrained to a role. Login uses this
// so a student ID cannot authenticate against the teacher scope.
func (r *Repository) GetByIDAndRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND role = $2`
	return scanUser(r.pool.QueryRow(ctx, q, id, string(role)))
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (id, name, role, class_id, email, phone, introduction, avatar, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, q, u.ID, u.Name, string(u.Role), u.ClassID, u.Email, u.Phone, u.Introduction, u.Avatar, u.Password)
	return err
}

// UpdateProfile updates the user-editable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id, email, phone, introduction, avatar string) error {
	const q = `UPDATE users SET email = $1, phone = $2, introduction = $3, avatar = $4 WHERE id = $5`
	_, err := r.pool.Exec(ctx, q, email, phone, introduction, avatar, id)
	return err
}

// UpdatePassword replaces the user's password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $1 WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, passwordHash, id)
	return err
}

// GetClassWithMajor returns a student's class and its major, for profile views.
func (r *Repository) GetClassWithMajor(ctx context.Context, classID int64) (*models.Class, *models.Major, error) {
	const q = `SELECT c.id, c.grade, c.major_id, c.name, m.id, m.name
		FROM classes c JOIN majors m ON m.id = c.major_id WHERE c.id = $1`
	var cl models.Class
	var mj models.Major
	err := r.pool.QueryRow(ctx, q, classID).Scan(&cl.ID, &cl.Grade, &cl.MajorID, &cl.Name, &mj.ID, &mj.Name)
	if err != nil {
		return nil, nil, err
	}
	return &cl, &mj, nil
}
