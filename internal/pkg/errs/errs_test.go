//go:build unit

package errs_test

import (
	"fmt"
	"testing"

	"vendfleet/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMark(t *testing.T) {
	sentinel := errs.New("machine not found")
	cause := errs.New("no rows in result set")

	t.Run("sentinel matches through errors.Is", func(t *testing.T) {
		err := errs.Mark(cause, sentinel)

		require.ErrorIs(t, err, sentinel)
		require.ErrorIs(t, err, cause)
	})

	t.Run("message stays the cause message", func(t *testing.T) {
		err := errs.Mark(cause, sentinel)

		assert.Equal(t, cause.Error(), err.Error())
	})

	t.Run("nil cause yields the sentinel itself", func(t *testing.T) {
		assert.Equal(t, sentinel, errs.Mark(nil, sentinel))
	})

	t.Run("marks survive further wrapping", func(t *testing.T) {
		err := errs.Wrap(errs.Mark(cause, sentinel), "saving machine")

		require.ErrorIs(t, err, sentinel)
		assert.Contains(t, fmt.Sprintf("%v", err), "saving machine")
	})
}
