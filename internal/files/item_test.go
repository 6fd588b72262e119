package files

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/msservices/internal/apierr"
)

func TestToItem_Normalizes(t *testing.T) {
	var dir driveItemResponse
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "1",
		"name": "report.pdf",
		"size": 42,
		"eTag": "e",
		"createdDateTime": "not-a-time",
		"lastModifiedDateTime": "2024-05-01T10:00:00Z",
		"parentReference": {"id": "p", "driveId": "B!AbC"},
		"file": {"mimeType": "application/pdf", "hashes": {"quickXorHash": "qx=="}},
		"@microsoft.graph.downloadUrl": "https://download.example/secret"
	}`), &dir))

	item := dir.toItem(slog.Default())

	assert.Equal(t, "1", item.ID)
	assert.Equal(t, "b!abc", item.DriveID)
	assert.Equal(t, "p", item.ParentID)
	assert.Equal(t, "application/pdf", item.MimeType)
	assert.Equal(t, "qx==", item.QuickXorHash)
	assert.False(t, item.IsFolder)
	assert.Equal(t, ChildCountUnknown, item.ChildCount)
	assert.True(t, item.CreatedAt.IsZero())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), item.ModifiedAt)

	out, err := json.Marshal(item)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "download.example")
}

func TestToItem_PackageIsNotContainer(t *testing.T) {
	var dir driveItemResponse
	require.NoError(t, json.Unmarshal([]byte(`{"id":"n","name":"Notebook","folder":{"childCount":3},"package":{"type":"oneNote"}}`), &dir))

	item := dir.toItem(slog.Default())
	assert.False(t, item.IsFolder)
	assert.Equal(t, 3, item.ChildCount)
}

func TestItemPath(t *testing.T) {
	svc := New(Options{DriveID: "d1", RootBasePath: "/Shared/Uploads/"}, staticToken("x"), "http://x", nil, nil)

	assert.Equal(t, "/drives/d1/root:/Shared/Uploads:", svc.itemPath())
	assert.Equal(t, "/drives/d1/root:/Shared/Uploads/a%20b/c%23d:", svc.itemPath("a b", "c#d"))
	assert.Equal(t, "/drives/d1/root:/Shared/Uploads/x/y:", svc.itemPath("x/y"))

	// Decomposed e + combining acute becomes the precomposed form.
	assert.Equal(t, "/drives/d1/root:/Shared/Uploads/caf%C3%A9:", svc.itemPath("cafe\u0301"))

	bare := New(Options{DriveID: "d1"}, staticToken("x"), "http://x", nil, nil)
	assert.Equal(t, "/drives/d1/root", bare.itemPath())
	assert.Equal(t, "/drives/d1/items/abc", bare.itemIDPath("abc"))
}

func TestGet_ByPath(t *testing.T) {
	svc, _ := newTestService(t, "Base", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/drives/d1/root:/Base/Docs/a.txt:", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, fileJSON("f1", "a.txt", 3))
	})

	item, err := svc.Get(t.Context(), "Docs", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "f1", item.ID)
	assert.Equal(t, "d1", item.DriveID)
}

func TestGetByID_NotFoundPropagates(t *testing.T) {
	svc, _ := newTestService(t, "", func(w http.ResponseWriter, _ *http.Request) {
		notFound(w)
	})

	_, err := svc.GetByID(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, apierr.StatusCode(err))
	assert.Contains(t, err.Error(), "The resource could not be found.")
}

func TestGetByID_Empty(t *testing.T) {
	svc := New(Options{DriveID: "d1"}, staticToken("x"), "http://x", nil, nil)

	_, err := svc.GetByID(t.Context(), "")
	assert.ErrorIs(t, err, ErrEmptyArgument)
}

func TestMoveAndRename(t *testing.T) {
	var bodies []string

	svc, _ := newTestService(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/drives/d1/items/i1", r.URL.Path)

		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		writeJSON(t, w, http.StatusOK, fileJSON("i1", "renamed.txt", 1))
	})

	_, err := svc.Move(t.Context(), "i1", "p2")
	require.NoError(t, err)

	item, err := svc.Rename(t.Context(), "i1", "renamed.txt")
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", item.Name)

	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"parentReference":{"id":"p2"}}`, bodies[0])
	assert.JSONEq(t, `{"name":"renamed.txt"}`, bodies[1])
}

func TestRename_RejectsPath(t *testing.T) {
	svc := New(Options{DriveID: "d1"}, staticToken("x"), "http://x", nil, nil)

	_, err := svc.Rename(t.Context(), "i1", "a/b")
	assert.ErrorIs(t, err, ErrEmptyArgument)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/drives/d1/items/i1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, svc.Delete(t.Context(), "i1"))
}

func TestDelete_UpstreamErrorKeepsStatus(t *testing.T) {
	svc, _ := newTestService(t, "", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"accessDenied","message":"Access denied"}}`))
	})

	err := svc.Delete(t.Context(), "i1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrUpstream))
	assert.Equal(t, http.StatusForbidden, apierr.StatusCode(err))
	assert.Contains(t, err.Error(), "Access denied")
}

func TestCreateFolder(t *testing.T) {
	svc, _ := newTestService(t, "Base", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/drives/d1/root:/Base/Docs:/children", r.URL.Path)

		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"New","folder":{"childCount":0},"@microsoft.graph.conflictBehavior":"fail"}`, string(b))
		writeJSON(t, w, http.StatusCreated, folderJSON("nf", "New", 0))
	})

	item, err := svc.CreateFolder(t.Context(), "New", "Docs")
	require.NoError(t, err)
	assert.True(t, item.IsFolder)
}

func TestEnsureFolders_CreatesOnlyMissing(t *testing.T) {
	var created []string

	svc, _ := newTestService(t, "", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/drives/d1/root:/a:":
			writeJSON(t, w, http.StatusOK, folderJSON("a", "a", 0))
		case r.Method == http.MethodGet:
			notFound(w)
		case r.Method == http.MethodPost:
			var req createFolderRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			created = append(created, r.URL.Path+"|"+req.Name)
			writeJSON(t, w, http.StatusCreated, folderJSON(req.Name, req.Name, 0))
		}
	})

	item, err := svc.EnsureFolders(t.Context(), "a/b", "c")
	require.NoError(t, err)
	assert.Equal(t, "c", item.ID)
	assert.Equal(t, []string{
		"/drives/d1/root:/a:/children|b",
		"/drives/d1/root:/a/b:/children|c",
	}, created)
}

func TestOperations_TokenFailure(t *testing.T) {
	svc := New(Options{DriveID: "d1"}, failingToken{}, "http://unused", nil, nil)

	_, err := svc.Get(t.Context(), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrAuth))
	assert.Equal(t, 401, apierr.StatusCode(err))
}
