//go:build unit

package commands_test

import (
	"context"
	"testing"

	"vendfleet/internal/usecase/commands"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushSubscriptions(t *testing.T) {
	ctx := context.Background()
	repo := newStubPushSubscriptionRepo()
	uc := commands.NewPushCommands(repo)
	actor := managerActor()

	require.NoError(t, uc.Subscribe(ctx, actor, "https://push.example.com/ep1", "p256dh-key", "auth-secret"))

	subs, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, actor.ID, subs[0].OperatorID)
	assert.Equal(t, "https://push.example.com/ep1", subs[0].Endpoint)

	t.Run("resubscribing the same endpoint replaces it", func(t *testing.T) {
		require.NoError(t, uc.Subscribe(ctx, actor, "https://push.example.com/ep1", "rotated-key", "auth-secret"))
		subs, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "rotated-key", subs[0].P256dh)
	})

	t.Run("unsubscribe removes the endpoint", func(t *testing.T) {
		require.NoError(t, uc.Unsubscribe(ctx, "https://push.example.com/ep1"))
		subs, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, subs)
	})
}
