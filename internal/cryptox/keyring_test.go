package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64Key(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.URLEncoding.EncodeToString(key)
}

func TestParseKeyring(t *testing.T) {
	k1, k2 := b64Key(t), b64Key(t)

	keys, err := ParseKeyring([]string{"1:" + k1, "2:base64:" + k2, ""})
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Len(t, keys[1], 32)
	assert.Len(t, keys[2], 32)

	c, err := New(keys)
	require.NoError(t, err)
	assert.Equal(t, 2, c.ActiveVersion())
}

func TestParseKeyring_LegacyVersionZero(t *testing.T) {
	k0, k1 := b64Key(t), b64Key(t)

	keys, err := ParseKeyring([]string{"0:" + k0, "1:" + k1})
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Len(t, keys[0], 32)

	// the parsed ring must carry the legacy slot all the way into a Cipher
	c, err := New(keys)
	require.NoError(t, err)
	assert.Equal(t, 1, c.ActiveVersion())
	assert.Equal(t, []int{0, 1}, c.Versions())
}

func TestParseKeyring_Errors(t *testing.T) {
	good := b64Key(t)

	tests := []struct {
		name    string
		entries []string
	}{
		{name: "empty", entries: nil},
		{name: "only blanks", entries: []string{"", "  "}},
		{name: "no separator", entries: []string{good}},
		{name: "bad version", entries: []string{"x:" + good}},
		{name: "negative version", entries: []string{"-1:" + good}},
		{name: "duplicate version", entries: []string{"1:" + good, "1:" + good}},
		{name: "short key", entries: []string{"1:" + base64.URLEncoding.EncodeToString([]byte("short"))}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseKeyring(tc.entries)
			assert.Error(t, err)
		})
	}
}
