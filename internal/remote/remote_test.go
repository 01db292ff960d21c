package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"revayat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReturnsNilWithoutEndpoint(t *testing.T) {
	t.Parallel()
	assert.Nil(t, New("", time.Second))
	assert.Nil(t, New("   ", time.Second))
	assert.NotNil(t, New("http://example.test", time.Second))
}

func TestCollectionFetchAll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantLen int
		wantErr bool
	}{
		{"array", http.StatusOK, `[{"id":"a1","username":"sara"},{"id":"a2"}]`, 2, false},
		{"empty array", http.StatusOK, `[]`, 0, false},
		{"object document", http.StatusOK, `{"error":"nope"}`, 0, false},
		{"empty body", http.StatusOK, ``, 0, false},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, 0, true},
		{"malformed", http.StatusOK, `[{"id":`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, PathAccountsRead, r.URL.Path)
				assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			gw := New(srv.URL+"/", time.Second)
			items, err := gw.Accounts.FetchAll(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Len(t, items, tt.wantLen)
		})
	}
}

func TestCollectionFetchAllStatusError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Stories.FetchAll(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
}

func TestCollectionPushAll(t *testing.T) {
	t.Parallel()

	var got []models.ExplorePost
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathExploreStore, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	gw := New(srv.URL, time.Second)
	posts := []models.ExplorePost{{ID: "p1", Caption: "سلام", Likes: []string{"u1"}, Origin: models.OriginUser}}
	require.NoError(t, gw.Explore.PushAll(context.Background(), posts))
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, []string{"u1"}, got[0].Likes)
}

func TestCollectionPushAllSendsEmptyArrayForNil(t *testing.T) {
	t.Parallel()

	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL, time.Second).Stories.PushAll(context.Background(), nil))
	assert.Equal(t, "[]", raw)
}

func TestUploader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathUploadImage, r.URL.Path)
		var req UploadRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Reference == "broken" {
			_, _ = io.WriteString(w, `{}`)
			return
		}
		_ = json.NewEncoder(w).Encode(UploadResponse{URL: "https://cdn.test/uploads/" + req.Reference + ".png"})
	}))
	defer srv.Close()

	up := New(srv.URL, time.Second).Images
	url, err := up.Upload(context.Background(), "data:image/png;base64,AAAA", "post-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/uploads/post-1.png", url)

	_, err = up.Upload(context.Background(), "data:image/png;base64,AAAA", "broken")
	assert.Error(t, err)

	_, err = up.Upload(context.Background(), "https://already.hosted/x.png", "post-1")
	assert.Error(t, err)
}

func TestFetchHonoursContextCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL, time.Second).Accounts.FetchAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
