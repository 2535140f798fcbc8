package retailers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thamani/backend/internal/domain"
)

func TestNew(t *testing.T) {
	rot := testRotator()

	t.Run("builds every known retailer", func(t *testing.T) {
		for _, name := range Known() {
			adapter, err := New(name, rot, Options{})
			require.NoError(t, err, "retailer %s", name)
			assert.Equal(t, name, adapter.Name())
		}
	})

	t.Run("unknown retailer is rejected", func(t *testing.T) {
		_, err := New("amazon", rot, Options{})
		assert.ErrorIs(t, err, domain.ErrUnknownRetailer)
	})
}

func TestFromNames(t *testing.T) {
	rot := testRotator()

	t.Run("preserves configuration order", func(t *testing.T) {
		adapters, err := FromNames([]string{"kilimall", "jumia"}, rot, Options{})
		require.NoError(t, err)
		require.Len(t, adapters, 2)
		assert.Equal(t, "kilimall", adapters[0].Name())
		assert.Equal(t, "jumia", adapters[1].Name())
	})

	t.Run("fails on any unknown name", func(t *testing.T) {
		_, err := FromNames([]string{"jumia", "ebay"}, rot, Options{})
		assert.ErrorIs(t, err, domain.ErrUnknownRetailer)
	})
}
