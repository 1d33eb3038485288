package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuzkabot/sellerbot/internal/cryptox"
	"github.com/kuzkabot/sellerbot/internal/server/config"
)

func newTestApp() (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return NewApp(cfg, out), out
}

func TestRun_UnknownCommand(t *testing.T) {
	app, out := newTestApp()
	err := app.Run(context.Background(), []string{"frobnicate"})
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_NoArgsShowsUsage(t *testing.T) {
	app, out := newTestApp()
	require.NoError(t, app.Run(context.Background(), nil))
	assert.Contains(t, out.String(), "genkey")
	assert.Contains(t, out.String(), "checktoken")
	assert.Contains(t, out.String(), "setwebhook")
}

func TestGenKey_ProducesUsableKeyringEntry(t *testing.T) {
	app, out := newTestApp()
	require.NoError(t, app.Run(context.Background(), []string{"genkey"}))

	var entry string
	for _, line := range strings.Split(out.String(), "\n") {
		if rest, ok := strings.CutPrefix(line, "Keyring entry: "); ok {
			entry = rest
		}
	}
	require.NotEmpty(t, entry)

	keys, err := cryptox.ParseKeyring([]string{entry})
	require.NoError(t, err)
	assert.Len(t, keys[1], 32)
}

func TestGenKey_KeysAreUnique(t *testing.T) {
	app, out := newTestApp()
	require.NoError(t, app.genKey())
	first := out.String()
	out.Reset()
	require.NoError(t, app.genKey())
	assert.NotEqual(t, first, out.String())
}

func TestCheckToken_RejectsMalformedKey(t *testing.T) {
	old := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("not a jwt"), nil }
	defer func() { readPassword = old }()

	app, _ := newTestApp()
	err := app.checkToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key rejected")
}

func TestSetWebhook_RequiresConfig(t *testing.T) {
	app, _ := newTestApp()
	app.config.BotToken = ""
	err := app.setWebhook(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot token")

	app.config.BotToken = "123:abc"
	app.config.WebhookSecret = ""
	err = app.setWebhook(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook secret")
}
