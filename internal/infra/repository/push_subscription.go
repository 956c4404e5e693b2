package repository

import (
	"context"
	"time"

	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/usecase/shared"
)

type PushSubscriptionRepository struct {
	db db.DBTX
}

func NewPushSubscriptionRepository(dbtx db.DBTX) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{db: dbtx}
}

// Upsert keys on the endpoint URL: re-registering refreshes the keys instead
// of piling up dead rows.
func (r *PushSubscriptionRepository) Upsert(ctx context.Context, sub shared.PushSubscriptionRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO push_subscriptions (id, operator_id, endpoint, p256dh, auth, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (endpoint) DO UPDATE
		SET operator_id = EXCLUDED.operator_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth`,
		sub.ID, sub.OperatorID, sub.Endpoint, sub.P256dh, sub.Auth, time.Now(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to upsert push subscription", err)
	}
	return nil
}

func (r *PushSubscriptionRepository) ListAll(ctx context.Context) ([]shared.PushSubscriptionRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, operator_id, endpoint, p256dh, auth FROM push_subscriptions`)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list push subscriptions", err)
	}
	defer rows.Close()

	var subs []shared.PushSubscriptionRecord
	for rows.Next() {
		var s shared.PushSubscriptionRecord
		if err := rows.Scan(&s.ID, &s.OperatorID, &s.Endpoint, &s.P256dh, &s.Auth); err != nil {
			return nil, infra.WrapRepoErr("failed to scan push subscription", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate push subscriptions", err)
	}
	return subs, nil
}

func (r *PushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint); err != nil {
		return infra.WrapRepoErr("failed to delete push subscription", err)
	}
	return nil
}
