package files

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/msservices/internal/apierr"
)

// staticToken is a test TokenProvider that returns a fixed token.
type staticToken string

func (t staticToken) AccessToken(context.Context) (string, error) {
	return string(t), nil
}

// failingToken is a test TokenProvider whose acquisition always fails.
type failingToken struct{}

func (failingToken) AccessToken(context.Context) (string, error) {
	return "", apierr.New(apierr.ErrAuth, 401, "invalid_client", nil)
}

const testDriveID = "d1"

// newTestService starts handler as the Graph API and returns a Service
// bound to it with the given base path.
func newTestService(t *testing.T, basePath string, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := New(Options{
		DriveID:         testDriveID,
		RootBasePath:    basePath,
		ScratchDir:      t.TempDir(),
		FragmentTimeout: 5 * time.Second,
	}, staticToken("test-token"), srv.URL, srv.Client(), slog.Default())

	return svc, srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":{"code":"itemNotFound","message":"The resource could not be found."}}`))
}

func fileJSON(id, name string, size int64) map[string]any {
	return map[string]any{
		"id":   id,
		"name": name,
		"size": size,
		"file": map[string]any{"mimeType": "application/octet-stream"},
		"parentReference": map[string]any{
			"id":      "parent",
			"driveId": "D1",
		},
		"lastModifiedDateTime": "2024-05-01T10:00:00Z",
	}
}

func folderJSON(id, name string, childCount int) map[string]any {
	return map[string]any{
		"id":     id,
		"name":   name,
		"folder": map[string]any{"childCount": childCount},
	}
}

func page(items ...map[string]any) map[string]any {
	if items == nil {
		items = []map[string]any{}
	}

	return map[string]any{"value": items}
}
