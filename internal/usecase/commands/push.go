package commands

import (
	"context"

	"vendfleet/internal/pkg/errs"
	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
)

type PushCommands interface {
	Subscribe(ctx context.Context, actor shared.Actor, endpoint, p256dh, auth string) error
	Unsubscribe(ctx context.Context, endpoint string) error
}

type pushCommandsImpl struct {
	subs shared.PushSubscriptionRepository
}

func NewPushCommands(subs shared.PushSubscriptionRepository) PushCommands {
	return &pushCommandsImpl{subs: subs}
}

func (uc *pushCommandsImpl) Subscribe(ctx context.Context, actor shared.Actor, endpoint, p256dh, auth string) error {
	rec := shared.PushSubscriptionRecord{
		ID:         uuid.New(),
		OperatorID: actor.ID,
		Endpoint:   endpoint,
		P256dh:     p256dh,
		Auth:       auth,
	}
	if err := uc.subs.Upsert(ctx, rec); err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}

func (uc *pushCommandsImpl) Unsubscribe(ctx context.Context, endpoint string) error {
	if err := uc.subs.DeleteByEndpoint(ctx, endpoint); err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}
