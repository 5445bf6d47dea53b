package web

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/JosKno/CapaIntermedia/config"
	"github.com/JosKno/CapaIntermedia/database"
	"github.com/JosKno/CapaIntermedia/util/photo"
	"github.com/JosKno/CapaIntermedia/web/cache"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("CAPA_SESSION_SECRET", "web-test-secret-0123456789abcdef")

	cfg := config.GetDefaultDatabaseConfig()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "capa.db")
	require.NoError(t, database.InitDB(cfg))
	t.Cleanup(func() { _ = database.CloseDB() })

	require.NoError(t, cache.InitRedis(""))
	t.Cleanup(func() { _ = cache.Close() })

	return NewServer().initRouter()
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var m struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	assert.False(t, m.Success)
	return m.Message
}

func TestUnknownRouteAndMethod(t *testing.T) {
	r := newTestRouter(t)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/nothing-here", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Resource not found", message(t, rec))

	rec = serve(r, httptest.NewRequest(http.MethodPut, "/api/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", message(t, rec))
}

func TestLegacyRedirects(t *testing.T) {
	r := newTestRouter(t)

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/login.php", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/api/login", rec.Header().Get("Location"))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/get_photo.php?id=7&t=99", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/api/photo/7?t=99", rec.Header().Get("Location"))
}

func TestRequestIdAndCompression(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := serve(r, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/api/photo/1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec = serve(r, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestOversizedPhotoIsRejected(t *testing.T) {
	r := newTestRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"full_name":     "Ana Lopez",
		"birth_date":    "1990-05-01",
		"gender":        "female",
		"birth_country": "Mexico",
		"nationality":   "Mexican",
		"email":         "ana@example.com",
		"password":      "Secret1!",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("photo", "huge.jpg")
	require.NoError(t, err)
	_, err = fw.Write(make([]byte, photo.MaxUploadSize+512<<10))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/register", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(r, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Image error: The file is too large. Maximum allowed: 5.00MB", message(t, rec))
}
