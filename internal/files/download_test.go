package files

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/msservices/internal/apierr"
	"github.com/tonimelisma/msservices/pkg/quickxorhash"
)

func downloadServer(t *testing.T, content, hash string, downloads *atomic.Int32) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		self := "http://" + r.Host

		switch r.URL.Path {
		case "/drives/d1/items/i1":
			it := fileJSON("i1", "report.txt", int64(len(content)))
			it["@microsoft.graph.downloadUrl"] = self + "/dl/i1?tempauth=secret"

			if hash != "" {
				it["file"] = map[string]any{"hashes": map[string]any{"quickXorHash": hash}}
			}

			writeJSON(t, w, http.StatusOK, it)
		case "/dl/i1":
			downloads.Add(1)
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(content))
		default:
			notFound(w)
		}
	}
}

func TestDownloadByID_WritesAndSkipsExisting(t *testing.T) {
	var downloads atomic.Int32

	sum, err := quickxorhash.Base64(strings.NewReader("quarterly numbers"))
	require.NoError(t, err)

	svc, _ := newTestService(t, "", downloadServer(t, "quarterly numbers", sum, &downloads))
	dir := filepath.Join(t.TempDir(), "nested", "dir")

	path, err := svc.DownloadByID(t.Context(), "i1", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "i1", "report.txt"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "quarterly numbers", string(got))

	_, err = os.Stat(path + partialSuffix)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	again, err := svc.DownloadByID(t.Context(), "i1", dir)
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, int32(1), downloads.Load())
}

func TestDownloadByID_HashMismatch(t *testing.T) {
	var downloads atomic.Int32

	svc, _ := newTestService(t, "", downloadServer(t, "tampered", "AAAAAAAAAAAAAAAAAAAAAAAAAAA=", &downloads))
	dir := t.TempDir()

	_, err := svc.DownloadByID(t.Context(), "i1", dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrUpstream))
	assert.Contains(t, err.Error(), "content hash mismatch")

	_, statErr := os.Stat(filepath.Join(dir, "i1", "report.txt"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestDownloadByID_NotFound(t *testing.T) {
	var downloads atomic.Int32

	svc, _ := newTestService(t, "", downloadServer(t, "", "", &downloads))

	_, err := svc.DownloadByID(t.Context(), "other", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrNotFound))
}

func TestDownloadByID_DirectoryBlocked(t *testing.T) {
	var downloads atomic.Int32

	svc, _ := newTestService(t, "", downloadServer(t, "x", "", &downloads))

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := svc.DownloadByID(t.Context(), "i1", blocker)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrLocalIO))
	assert.Equal(t, int32(0), downloads.Load())
}
