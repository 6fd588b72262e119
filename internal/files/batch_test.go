package files

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadBatch_MergesInRequestOrder(t *testing.T) {
	var inFlight, peak atomic.Int32

	svc, _ := newTestService(t, "", func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/drives/d1/root:/"), ":/content")

		// Finish out of order: earlier files answer later.
		if name == "f0.txt" {
			time.Sleep(50 * time.Millisecond)
		}

		if name == "f2.txt" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":{"code":"nameAlreadyExists","message":"exists"}}`))

			return
		}

		writeJSON(t, w, http.StatusCreated, fileJSON("id-"+name, name, 1))
	})

	dir := t.TempDir()

	var reqs []UploadRequest

	for i := range 4 {
		p := filepath.Join(dir, "f"+string(rune('0'+i))+".txt")
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
		reqs = append(reqs, UploadRequest{LocalPath: p, Policy: ConflictFail})
	}

	out := svc.UploadBatch(t.Context(), reqs, 2)

	require.Len(t, out.Files, 3)
	assert.Equal(t, "id-f0.txt", out.Files[0].ID)
	assert.Equal(t, "id-f1.txt", out.Files[1].ID)
	assert.Equal(t, "id-f3.txt", out.Files[2].ID)

	require.Len(t, out.Errors, 1)
	assert.Equal(t, http.StatusConflict, out.Errors[0].Code)
	assert.True(t, strings.HasPrefix(out.Errors[0].Message, "f2.txt did not upload."))

	assert.LessOrEqual(t, peak.Load(), int32(2))
}
