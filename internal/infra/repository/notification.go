package repository

import (
	"context"
	"time"

	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"

	"github.com/google/uuid"
)

type NotificationRepository struct {
	db db.DBTX
}

func NewNotificationRepository(dbtx db.DBTX) *NotificationRepository {
	return &NotificationRepository{db: dbtx}
}

// CreateJob enqueues a delivery job in the same transaction as the alert that
// caused it; the dispatcher picks it up out of band.
func (r *NotificationRepository) CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notification_jobs (id, kind, topic, payload, run_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), kind, topic, payload, runAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create notification job", err)
	}
	return nil
}

// ClaimDueJob atomically claims the oldest due job so multiple dispatcher
// workers never double-send.
func (r *NotificationRepository) ClaimDueJob(ctx context.Context, now time.Time) (*NotificationJob, error) {
	var job NotificationJob
	err := r.db.QueryRow(ctx, `
		UPDATE notification_jobs SET claimed_at = $1
		WHERE id = (
			SELECT id FROM notification_jobs
			WHERE done_at IS NULL AND claimed_at IS NULL AND run_at <= $1
			ORDER BY run_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, kind, topic, payload`, now).
		Scan(&job.ID, &job.Kind, &job.Topic, &job.Payload)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *NotificationRepository) MarkJobDone(ctx context.Context, id uuid.UUID, now time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE notification_jobs SET done_at = $2 WHERE id = $1`, id, now); err != nil {
		return infra.WrapRepoErr("failed to mark notification job done", err)
	}
	return nil
}

type NotificationJob struct {
	ID      uuid.UUID
	Kind    string
	Topic   string
	Payload []byte
}
