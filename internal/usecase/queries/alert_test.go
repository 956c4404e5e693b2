//go:build unit

package queries_test

import (
	"context"
	"testing"

	"vendfleet/internal/domain/operator"
	"vendfleet/internal/usecase/queries"
	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAlertViewRepo struct {
	lastFilter queries.AlertFilter
}

func (r *stubAlertViewRepo) Find(_ context.Context, filter queries.AlertFilter) ([]*queries.AlertView, error) {
	r.lastFilter = filter
	return nil, nil
}

func TestListAlerts(t *testing.T) {
	ctx := context.Background()
	actor := shared.Actor{ID: uuid.New(), Role: operator.RoleViewer}
	repo := &stubAlertViewRepo{}
	q := queries.NewAlertQueries(repo)

	t.Run("default limit", func(t *testing.T) {
		_, err := q.List(ctx, queries.AlertFilter{}, actor)
		require.NoError(t, err)
		assert.Equal(t, 50, repo.lastFilter.Limit)
	})

	t.Run("oversized limit is clamped", func(t *testing.T) {
		_, err := q.List(ctx, queries.AlertFilter{Limit: 1000}, actor)
		require.NoError(t, err)
		assert.Equal(t, 50, repo.lastFilter.Limit)
	})

	t.Run("explicit filter passes through", func(t *testing.T) {
		machineID := uuid.New()
		_, err := q.List(ctx, queries.AlertFilter{MachineID: &machineID, UnresolvedOnly: true, Limit: 20}, actor)
		require.NoError(t, err)
		assert.Equal(t, 20, repo.lastFilter.Limit)
		assert.True(t, repo.lastFilter.UnresolvedOnly)
		require.NotNil(t, repo.lastFilter.MachineID)
		assert.Equal(t, machineID, *repo.lastFilter.MachineID)
	})
}
