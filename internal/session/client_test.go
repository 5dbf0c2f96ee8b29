package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-variant-service/internal/variant"
)

func newSessionServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL+"/", "api/auth/session", 2*time.Second)
}

func TestClient_Lookup_ForwardsCookies(t *testing.T) {
	_, client := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/session", r.URL.Path)
		ck, err := r.Cookie("sid")
		if assert.NoError(t, err) {
			assert.Equal(t, "abc", ck.Value)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user_id": 3, "store_id": 7, "role": "customer"}`))
	})

	s, err := client.Lookup(context.Background(), []*http.Cookie{{Name: "sid", Value: "abc"}})
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.StoreID)
	assert.Equal(t, int64(3), s.UserID)
	assert.Equal(t, "customer", s.Role)
}

func TestClient_Lookup_Unauthenticated(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		_, client := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		})
		_, err := client.Lookup(context.Background(), nil)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}
}

func TestClient_Lookup_NoStore(t *testing.T) {
	_, client := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user_id": 3}`))
	})
	_, err := client.Lookup(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestClient_Lookup_ServerError(t *testing.T) {
	_, client := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := client.Lookup(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

func TestClient_Lookup_BadJSON(t *testing.T) {
	_, client := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})
	_, err := client.Lookup(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestClient_Lookup_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "/session", time.Second).Lookup(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestClient_Source(t *testing.T) {
	_, client := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("sid"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"store_id": 12}`))
	})

	id, err := client.Source([]*http.Cookie{{Name: "sid", Value: "x"}}).StoreID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	var src variant.StoreIDSource = client.Source(nil)
	_, err = src.StoreID(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
