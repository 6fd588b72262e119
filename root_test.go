package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/msservices/internal/apierr"
	"github.com/tonimelisma/msservices/internal/config"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their defaults. Tests either set
// globals after newRootCmd() returns or let Cobra parse them via SetArgs.

func TestLogLevel(t *testing.T) {
	debugCfg := config.DefaultConfig()
	debugCfg.LogLevel = "debug"

	warnCfg := config.DefaultConfig()
	warnCfg.LogLevel = "warn"

	tests := []struct {
		name    string
		cfg     *config.Config
		verbose bool
		quiet   bool
		want    slog.Level
	}{
		{"no config", nil, false, false, slog.LevelInfo},
		{"config debug", debugCfg, false, false, slog.LevelDebug},
		{"config warn", warnCfg, false, false, slog.LevelWarn},
		{"verbose wins over config", warnCfg, true, false, slog.LevelDebug},
		{"quiet wins over verbose", debugCfg, true, true, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logLevel(tt.cfg, tt.verbose, tt.quiet))
		})
	}
}

func TestNewLogger_Format(t *testing.T) {
	cfg := config.DefaultConfig()

	t.Run("auto off a terminal is JSON", func(t *testing.T) {
		var buf bytes.Buffer

		newLogger(&buf, cfg, false, false, false).Info("hello", "k", "v")
		assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())), buf.String())
	})

	t.Run("auto on a terminal is text", func(t *testing.T) {
		var buf bytes.Buffer

		newLogger(&buf, cfg, true, false, false).Info("hello", "k", "v")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("explicit text", func(t *testing.T) {
		textCfg := config.DefaultConfig()
		textCfg.LogFormat = "text"

		var buf bytes.Buffer

		newLogger(&buf, textCfg, false, false, false).Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("quiet suppresses info", func(t *testing.T) {
		var buf bytes.Buffer

		newLogger(&buf, cfg, true, false, true).Info("hello")
		assert.Empty(t, buf.String())
	})
}

func TestSplitRemotePath(t *testing.T) {
	assert.Nil(t, splitRemotePath(""))
	assert.Nil(t, splitRemotePath("/"))
	assert.Equal(t, []string{"a", "b"}, splitRemotePath("/a/b/"))
}

func TestParseWhen(t *testing.T) {
	got, err := parseWhen("2024-05-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), got)

	got, err = parseWhen("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Day())

	_, err = parseWhen("next tuesday")
	require.Error(t, err)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{
		"token", "verify", "ls", "ls-id", "stat", "get", "put", "mkdir", "mv", "rename", "rm",
		"mail", "calendar", "users",
	} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

// clearEnv keeps the developer's environment out of config resolution.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range []string{
		config.EnvConfig, config.EnvTenantID, config.EnvClientID, config.EnvClientSecret, config.EnvDriveID,
	} {
		t.Setenv(k, "")
	}
}

// fakeCloud serves both the identity endpoint and the Graph API.
func fakeCloud(t *testing.T, tokenRequests *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /tenant-1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"app-token","token_type":"Bearer","expires_in":3600}`))
	})

	mux.HandleFunc("GET /users/jane@example.com", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer app-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u1","displayName":"Jane","userPrincipalName":"jane@example.com"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestExecute_UsersGetEndToEnd(t *testing.T) {
	clearEnv(t)

	var tokenRequests atomic.Int32

	srv := fakeCloud(t, &tokenRequests)

	cfgPath := writeConfig(t, fmt.Sprintf(`
tenant_id = "tenant-1"
client_id = "client-1"
client_secret = "secret"
delegation_mode = "application"
graph_url = %q
login_url = %q
log_level = "error"
`, srv.URL, srv.URL))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--json", "users", "get", "jane@example.com"})

	require.NoError(t, cmd.ExecuteContext(t.Context()))
	assert.Equal(t, int32(1), tokenRequests.Load())
}

func TestExecute_FilesCommandRequiresDrive(t *testing.T) {
	clearEnv(t)

	cfgPath := writeConfig(t, `
tenant_id = "tenant-1"
client_id = "client-1"
client_secret = "secret"
`)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "ls"})

	err := cmd.ExecuteContext(t.Context())
	require.ErrorIs(t, err, apierr.ErrConfiguration)
	assert.Contains(t, err.Error(), "Drive id is required")
}

func TestExecute_MissingCredentials(t *testing.T) {
	clearEnv(t)

	cfgPath := writeConfig(t, "log_level = \"error\"\n")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "token"})

	err := cmd.ExecuteContext(t.Context())
	require.ErrorIs(t, err, apierr.ErrConfiguration)
	assert.Contains(t, err.Error(), "Client ID is required")
}

func TestExecute_UnknownConfigKey(t *testing.T) {
	clearEnv(t)

	cfgPath := writeConfig(t, "tennant_id = \"x\"\n")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "token"})

	err := cmd.ExecuteContext(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "tenant_id"`)
}
