package activity

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-lms/backend/internal/models"
)

// FeedLimit caps how many entries a feed query returns.
const FeedLimit = 50

// Repository handles the activities table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an activity repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert writes a single activity entry.
func (r *Repository) Insert(ctx context.Context, a models.Activity) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO activities (lesson_id, content, created_at, scope, user_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.LessonID, a.Content, a.CreatedAt, a.Scope, a.UserID)
	return err
}

// InsertForUsers writes one activity row per user in a single batch.
func (r *Repository) InsertForUsers(ctx context.Context, lessonID int64, content string, createdAt int64, scope models.Role, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, id := range userIDs {
		batch.Queue(
			`INSERT INTO activities (lesson_id, content, created_at, scope, user_id)
			 VALUES ($1, $2, $3, $4, $5)`,
			lessonID, content, createdAt, scope, id)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// StudentIDsForLesson returns every student enrolled in any class the lesson
// is assigned to.
func (r *Repository) StudentIDsForLesson(ctx context.Context, lessonID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT u.id FROM users u
		 JOIN class_lessons cl ON cl.class_id = u.class_id
		 WHERE cl.lesson_id = $1 AND u.role = $2`,
		lessonID, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByUser returns the most recent feed entries for a user, newest first,
// joined with the lesson title.
func (r *Repository) ListByUser(ctx context.Context, userID string, scope models.Role) ([]models.ActivityWithLesson, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.lesson_id, a.content, a.created_at, a.scope, a.user_id, l.title
		 FROM activities a JOIN lessons l ON l.id = a.lesson_id
		 WHERE a.user_id = $1 AND a.scope = $2
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT $3`,
		userID, scope, FeedLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.ActivityWithLesson, 0)
	for rows.Next() {
		var a models.ActivityWithLesson
		if err := rows.Scan(&a.ID, &a.LessonID, &a.Content, &a.CreatedAt, &a.Scope, &a.UserID, &a.LessonTitle); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
