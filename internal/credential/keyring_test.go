package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	s := New(keyring.NewArrayKeyring(nil))

	require.NoError(t, s.Set(KeyChatAPIKey, "sk-or-123"))
	v, err := s.Get(KeyChatAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-or-123", v)

	require.NoError(t, s.Delete(KeyChatAPIKey))
	_, err = s.Get(KeyChatAPIKey)
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
}

func TestResolve(t *testing.T) {
	s := New(keyring.NewArrayKeyring([]keyring.Item{{Key: KeyWeatherAPIKey, Data: []byte("from-ring")}}))

	v, err := s.Resolve("from-config", KeyWeatherAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "from-config", v)

	v, err = s.Resolve("", KeyWeatherAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "from-ring", v)

	v, err = s.Resolve("", KeyResendAPIKey)
	require.NoError(t, err)
	assert.Empty(t, v)

	var nilStore *Store
	v, err = nilStore.Resolve("", KeyResendAPIKey)
	require.NoError(t, err)
	assert.Empty(t, v)
}
