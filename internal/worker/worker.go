// Package worker drains the activity job queue into Postgres: broadcast jobs
// fan out to every enrolled student, direct jobs write a single feed entry.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campus-lms/backend/internal/activity"
	"github.com/campus-lms/backend/internal/models"
	"github.com/campus-lms/backend/pkg/queue"
)

const retryBackoff = 2 * time.Second

// ActivityProcessor executes activity fan-out jobs.
type ActivityProcessor struct {
	repo   *activity.Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewActivityProcessor creates an activity processor.
func NewActivityProcessor(repo *activity.Repository, q *queue.Queue, logger *zap.Logger) *ActivityProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityProcessor{repo: repo, queue: q, logger: logger}
}

// Process executes one job.
func (p *ActivityProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeActivityBroadcast:
		var payload queue.ActivityBroadcastPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		students, err := p.repo.StudentIDsForLesson(ctx, payload.LessonID)
		if err != nil {
			return fmt.Errorf("resolve students: %w", err)
		}
		err = p.repo.InsertForUsers(ctx, payload.LessonID, payload.Content,
			time.Now().Unix(), models.RoleStudent, students)
		if err != nil {
			return fmt.Errorf("insert activities: %w", err)
		}
		p.logger.Info("activity broadcast delivered",
			zap.Int64("lesson_id", payload.LessonID), zap.Int("recipients", len(students)))
		return nil

	case queue.JobTypeActivityDirect:
		var payload queue.ActivityDirectPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		err := p.repo.Insert(ctx, models.Activity{
			LessonID:  payload.LessonID,
			Content:   payload.Content,
			CreatedAt: time.Now().Unix(),
			Scope:     models.Role(payload.Scope),
			UserID:    payload.UserID,
		})
		if err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ActivityProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("activity worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(retryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(retryBackoff)
		}
	}
}
