package users

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/msservices/internal/apierr"
)

type staticToken string

func (t staticToken) AccessToken(context.Context) (string, error) {
	return string(t), nil
}

type failingToken struct{}

func (failingToken) AccessToken(context.Context) (string, error) {
	return "", apierr.New(apierr.ErrAuth, http.StatusUnauthorized, "invalid_client", nil)
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(staticToken("tok"), srv.URL, srv.Client(), slog.Default()), srv
}

func user(id string) map[string]any {
	return map[string]any{"id": id, "displayName": "User " + id, "userPrincipalName": id + "@example.com"}
}

func TestAllInOrganization_FollowsNextLinks(t *testing.T) {
	var srvURL string

	svc, srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/users":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"value":           []any{user("u1"), user("u2")},
				"@odata.nextLink": srvURL + "/users/page2",
			})
		case "/users/page2":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"value":           []any{user("u3")},
				"@odata.nextLink": srvURL + "/users/page3",
			})
		case "/users/page3":
			_ = json.NewEncoder(w).Encode(map[string]any{"value": []any{user("u4")}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	srvURL = srv.URL

	got, err := svc.AllInOrganization(t.Context())
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, u := range got {
		ids = append(ids, u.ID)
	}

	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, ids)
}

func TestAllInOrganization_TailFailure(t *testing.T) {
	var srvURL string

	svc, srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value":           []any{user("u1")},
			"@odata.nextLink": srvURL + "/users/page2",
		})
	})
	srvURL = srv.URL

	got, err := svc.AllInOrganization(t.Context())
	require.ErrorIs(t, err, apierr.ErrUpstream)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "page 2 failed")
}

func TestByUserPrincipalName(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/jane@example.com", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "u1", "displayName": "Jane", "userPrincipalName": "jane@example.com",
			"mail": "jane@example.com", "businessPhones": []string{"+1 555"},
		})
	})

	u, err := svc.ByUserPrincipalName(t.Context(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane", u.DisplayName)
	assert.Equal(t, []string{"+1 555"}, u.BusinessPhones)
}

func TestByUserPrincipalName_NotFound(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"Request_ResourceNotFound","message":"Resource does not exist."}}`))
	})

	_, err := svc.ByUserPrincipalName(t.Context(), "ghost@example.com")
	require.ErrorIs(t, err, apierr.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, apierr.StatusCode(err))
}

func TestByUserPrincipalName_Empty(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := svc.ByUserPrincipalName(t.Context(), " ")
	require.ErrorIs(t, err, apierr.ErrConfiguration)
}

func TestByFilter(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "startswith(displayName,'J')", r.URL.Query().Get("$filter"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"value": []any{user("u1")}})
	})

	got, err := svc.ByFilter(t.Context(), "startswith(displayName,'J')")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1@example.com", got[0].UserPrincipalName)
}

func TestTokenFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	svc := New(failingToken{}, srv.URL, srv.Client(), nil)

	_, err := svc.AllInOrganization(t.Context())
	require.ErrorIs(t, err, apierr.ErrAuth)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusCode(err))
}
