package server

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"revayat/internal/config"
	"revayat/internal/models"
	"revayat/internal/remote"
	"revayat/internal/storage"
	"revayat/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:                  "test",
		Port:                 "0",
		StorageDriver:        config.StorageMemory,
		UploadDir:            t.TempDir(),
		PublicBaseURL:        "https://cdn.revayat.test",
		ImageMaxUploadSizeMB: 1,
		SyncTimeoutSeconds:   5,
		AllowedOrigins:       "*",
	}
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *storage.MemoryStore) {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	docs := storage.NewMemoryStore()
	return NewServer(cfg, docs, nil), docs
}

func do(t *testing.T, s *Server, method, path string, body io.Reader, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestDocumentsStartEmpty(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)

	for _, path := range []string{remote.PathAccountsRead, remote.PathExploreRead, remote.PathStoriesRead} {
		resp, body := do(t, s, http.MethodGet, path, nil, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "[]", body, path)
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	}
}

func TestDocumentStoreThenRead(t *testing.T) {
	t.Parallel()
	s, docs := newTestServer(t, nil)

	resp, body := do(t, s, http.MethodPost, remote.PathExploreStore,
		strings.NewReader(`[ {"id": "p1", "caption": "سلام"} ]`), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, body)

	_, body = do(t, s, http.MethodGet, remote.PathExploreRead, nil, nil)
	assert.Equal(t, `[{"id":"p1","caption":"سلام"}]`, body)

	raw, err := docs.Get(t.Context(), "explore-posts.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"p1","caption":"سلام"}]`, string(raw))

	// Other collections are untouched.
	_, body = do(t, s, http.MethodGet, remote.PathStoriesRead, nil, nil)
	assert.Equal(t, "[]", body)
}

func TestDocumentStoreRejectsNonArrays(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "object", body: `{"id":"a"}`, status: fiber.StatusBadRequest, message: "Payload must be an array."},
		{name: "string", body: `"x"`, status: fiber.StatusBadRequest, message: "Payload must be an array."},
		{name: "broken json", body: `[{"id":`, status: fiber.StatusBadRequest, message: "Invalid JSON body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, docs := newTestServer(t, nil)

			resp, body := do(t, s, http.MethodPost, remote.PathAccountsStore, strings.NewReader(tt.body), nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.JSONEq(t, `{"error":"`+tt.message+`"}`, body)

			_, err := docs.Get(t.Context(), "accounts.json")
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

func TestDocumentStoreEmptyBodyClears(t *testing.T) {
	t.Parallel()
	s, docs := newTestServer(t, nil)
	require.NoError(t, docs.Set(t.Context(), "stories.json", []byte(`[{"id":"s1"}]`)))

	resp, _ := do(t, s, http.MethodPost, remote.PathStoriesStore, strings.NewReader(""), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, body := do(t, s, http.MethodGet, remote.PathStoriesRead, nil, nil)
	assert.Equal(t, "[]", body)
}

func TestDocumentReadCorruptReadsEmpty(t *testing.T) {
	t.Parallel()
	s, docs := newTestServer(t, nil)
	require.NoError(t, docs.Set(t.Context(), "accounts.json", []byte(`{"not":"an array"}`)))

	_, body := do(t, s, http.MethodGet, remote.PathAccountsRead, nil, nil)
	assert.Equal(t, "[]", body)
}

func TestEndpointCORSAndMethods(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)

	resp, body := do(t, s, http.MethodOptions, remote.PathAccountsStore, nil, map[string]string{
		"Origin":                        "https://app.revayat.test",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)
	assert.Equal(t, "https://app.revayat.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST,OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, corsAllowHeaders, resp.Header.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "false", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, resp.Header.Get("Vary"), "Origin")

	resp, body = do(t, s, http.MethodPost, remote.PathAccountsRead, strings.NewReader("[]"), nil)
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, body)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = do(t, s, http.MethodGet, remote.PathUploadImage, nil, nil)
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)

	resp, body = do(t, s, http.MethodOptions, remote.PathUploadImage, nil, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)
	assert.Equal(t, "false", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestEndpointCORSAllowList(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, func(c *config.Config) {
		c.AllowedOrigins = "https://a.test, https://b.test"
	})

	resp, _ := do(t, s, http.MethodGet, remote.PathAccountsRead, nil, map[string]string{"Origin": "https://b.test"})
	assert.Equal(t, "https://b.test", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = do(t, s, http.MethodGet, remote.PathAccountsRead, nil, map[string]string{"Origin": "https://evil.test"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func uploadBody(t *testing.T, data, reference string) io.Reader {
	t.Helper()
	raw, err := json.Marshal(remote.UploadRequest{Data: data, Reference: reference})
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestUploadRelayStoresImageAndPreview(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	png := testutil.TinyPNG(t, 960, 640)

	resp, body := do(t, s, http.MethodPost, remote.PathUploadImage,
		uploadBody(t, testutil.PNGDataURL(png), "Story Photo!"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	var out remote.UploadResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))

	filename := UploadFilename("Story Photo!", png, "png")
	assert.True(t, strings.HasPrefix(filename, "storyphoto-"))
	assert.Equal(t, "https://cdn.revayat.test/uploads/"+filename, out.URL)
	assert.Equal(t, "https://cdn.revayat.test/uploads/"+strings.TrimSuffix(filename, ".png")+".preview.webp", out.Preview)

	stored, err := os.ReadFile(filepath.Join(s.config.UploadDir, filename))
	require.NoError(t, err)
	assert.Equal(t, png, stored)

	preview, err := os.Open(filepath.Join(s.config.UploadDir, strings.TrimSuffix(filename, ".png")+".preview.webp"))
	require.NoError(t, err)
	defer func() { _ = preview.Close() }()
	cfg, format, err := image.DecodeConfig(preview)
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
	assert.Equal(t, PreviewMaxSize, cfg.Width)
	assert.Equal(t, 320, cfg.Height)

	resp, _ = do(t, s, http.MethodGet, "/uploads/"+filename, nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUploadRelayJPEGExtension(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	dataURL := "data:image/JPEG;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	resp, body := do(t, s, http.MethodPost, remote.PathUploadImage, uploadBody(t, dataURL, ""), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	var out remote.UploadResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.True(t, strings.HasSuffix(out.URL, ".jpg"), out.URL)
	assert.Contains(t, out.URL, "/uploads/photo-")
}

func TestUploadRelayRejects(t *testing.T) {
	t.Parallel()

	notAnImage := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("plain text"))
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "missing data", body: `{"reference":"x"}`, message: "Image data is required."},
		{name: "empty body", body: ``, message: "Image data is required."},
		{name: "webp data url", body: `{"data":"data:image/webp;base64,AAAA"}`, message: "Only GIF/JPEG/PNG base64 data URLs are supported."},
		{name: "remote url", body: `{"data":"https://example.com/a.png"}`, message: "Only GIF/JPEG/PNG base64 data URLs are supported."},
		{name: "bad base64", body: `{"data":"data:image/png;base64,@@@"}`, message: "Invalid base64 payload."},
		{name: "not an image", body: `{"data":"` + notAnImage + `"}`, message: "Image data could not be decoded."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, _ := newTestServer(t, nil)

			resp, body := do(t, s, http.MethodPost, remote.PathUploadImage, strings.NewReader(tt.body), nil)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.JSONEq(t, `{"error":"`+tt.message+`"}`, body)

			entries, err := os.ReadDir(s.config.UploadDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestUploadRelayTooLarge(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	s.uploads.maxBytes = 16

	resp, _ := do(t, s, http.MethodPost, remote.PathUploadImage,
		uploadBody(t, testutil.PNGDataURL(testutil.TinyPNG(t, 4, 4)), "big"), nil)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
}

// hugePNG returns a small PNG whose header declares w x h pixels.
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	raw := testutil.TinyPNG(t, 1, 1)
	binary.BigEndian.PutUint32(raw[16:20], w)
	binary.BigEndian.PutUint32(raw[20:24], h)
	binary.BigEndian.PutUint32(raw[29:33], crc32.ChecksumIEEE(raw[12:29]))
	return raw
}

func TestUploadRelayRejectsHugeDimensions(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)

	resp, body := do(t, s, http.MethodPost, remote.PathUploadImage,
		uploadBody(t, testutil.PNGDataURL(hugePNG(t, 100_000, 100_000)), "bomb"), nil)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Image dimensions are too large."}`, body)

	entries, err := os.ReadDir(s.config.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitizeReference(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "story-a_1", SanitizeReference("Story-A_1", "photo"))
	assert.Equal(t, "abc", SanitizeReference("a/b\\c", "photo"))
	got := SanitizeReference("روایت", "photo")
	assert.True(t, strings.HasPrefix(got, "photo-"), got)
	assert.Regexp(t, `^[a-z0-9\-_]+$`, got)
}

func TestUploadFilenameIsContentAddressed(t *testing.T) {
	t.Parallel()
	a := UploadFilename("ref", []byte("one"), "gif")
	b := UploadFilename("ref", []byte("one"), "gif")
	c := UploadFilename("ref", []byte("two"), "gif")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^ref-[0-9a-f]{8}\.gif$`, a)
}

func TestProxyUnconfigured(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)

	resp, body := do(t, s, http.MethodGet, "/api/remote/read.php", nil, nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Remote API base URL is not configured."}`, body)
}

func TestProxyForwardsRequests(t *testing.T) {
	t.Parallel()

	type seen struct {
		method, path, body, connection string
	}
	got := make(chan seen, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		got <- seen{method: r.Method, path: r.URL.Path, body: string(raw), connection: r.Header.Get("X-Custom")}
		w.Header().Set("Cache-Control", "max-age=3600")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(upstream.Close)

	s, _ := newTestServer(t, func(c *config.Config) { c.RemoteAPIBaseURL = upstream.URL })

	resp, body := do(t, s, http.MethodPost, "/api/remote/explore-store.php", strings.NewReader(`[1,2]`),
		map[string]string{"X-Custom": "kept"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, body)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	select {
	case r := <-got:
		assert.Equal(t, http.MethodPost, r.method)
		assert.Equal(t, "/explore-store.php", r.path)
		assert.Equal(t, `[1,2]`, r.body)
		assert.Equal(t, "kept", r.connection)
	case <-time.After(5 * time.Second):
		t.Fatal("upstream never received the request")
	}
}

func TestProxyUpstreamDown(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, func(c *config.Config) { c.RemoteAPIBaseURL = "http://127.0.0.1:1" })

	resp, body := do(t, s, http.MethodGet, "/api/remote/read.php", nil, nil)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Failed to reach remote API."}`, body)
}

func TestHealthChecks(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)

	resp, body := do(t, s, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"up"`)

	resp, body = do(t, s, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"redis":"disabled"`)
}

func TestReadinessFailsWhenRedisDown(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	kv := storage.NewRedisStoreFromClient(rdb, "collab")
	s := NewServer(testConfig(t), kv, rdb)

	resp, _ := do(t, s, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	mr.Close()
	resp, body := do(t, s, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, `"storage":"unhealthy"`)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)

	do(t, s, http.MethodPost, remote.PathStoriesStore, strings.NewReader("[]"), nil)
	resp, body := do(t, s, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "revayat_document_writes_total")
}

// The remote client and the collaborator agree on the wire format.
func TestRemoteClientRoundTrip(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	app := s.App()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	gw := remote.New("http://"+ln.Addr().String(), 5*time.Second)
	require.NotNil(t, gw)

	accounts, err := gw.Accounts.FetchAll(t.Context())
	require.NoError(t, err)
	assert.Empty(t, accounts)

	want := []models.Account{{ID: "u1", Username: "sara", Phone: "0912", Role: models.RoleUser, Gender: models.GenderFemale}}
	require.NoError(t, gw.Accounts.PushAll(t.Context(), want))

	accounts, err = gw.Accounts.FetchAll(t.Context())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "sara", accounts[0].Username)

	url, err := gw.Images.Upload(t.Context(), testutil.PNGDataURL(testutil.TinyPNG(t, 2, 2)), "story-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.revayat.test/uploads/story-1-"), url)
}
