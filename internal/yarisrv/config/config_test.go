package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodConfig = `
format_version = "0.1.0"
server_hostname = "localhost"
server_port = "8080"
handle_cors = true
cors_allowed_origins = "http://localhost:5173"

[auth]
token_signing_key = "secret"

[db]
host = "localhost"
port = 5432
dbname = "yari"
user = "yari"
password = "yari"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yarisrv.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, goodConfig)
	require.NoError(t, LoadConfig(path))

	c := Config()
	assert.Equal(t, "8080", c.ServerPort)
	assert.True(t, c.HandleCORS)
	assert.Contains(t, c.DSN(), "dbname=yari")

	// Defaults filled during validation.
	assert.Equal(t, int64(1<<20), c.MaxRequestBodySize)
	assert.Equal(t, "disable", c.DB.SSLMode)
	assert.Equal(t, 64, c.Relay.WriteBufferSize)
	assert.Equal(t, "https://meet.yari.app", c.Meeting.LinkBaseURL)

	timeout, err := c.GetRequestTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		mutate  string
		wantErr string
	}{
		{"missing file", "", "config filename is required"},
		{"bad version", `format_version = "9.9.9"` + "\n" + `server_port = "8080"`, "unsupported config file format version"},
		{"missing port", `format_version = "0.1.0"`, "server_port is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.mutate == "" {
				err = LoadConfig("")
			} else {
				err = LoadConfig(writeConfig(t, tt.mutate))
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigMissingSigningKey(t *testing.T) {
	content := `
format_version = "0.1.0"
server_port = "8080"

[db]
host = "localhost"
port = 5432
dbname = "yari"
user = "yari"
`
	err := LoadConfig(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.token_signing_key is required")
}

func TestTestInit(t *testing.T) {
	TestInit()
	assert.True(t, IsTest())
	assert.NotNil(t, Config())
	assert.Equal(t, "test-user-token", Config().Auth.TestUserToken)
}
