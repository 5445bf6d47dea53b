package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	UseClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = Close() })
	return mr
}

func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := setupRedis(t)
	store := NewRedisStore(GetClient(), []byte("0123456789abcdef0123456789abcdef"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.New(req, "capa_session")
	require.NoError(t, err)
	assert.True(t, sess.IsNew)

	sess.Values["user_id"] = 7
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(req, rec, sess))
	assert.True(t, mr.Exists(sessionPrefix+sess.ID))

	cookie := cookieFrom(t, rec, "capa_session")
	assert.True(t, cookie.HttpOnly)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	loaded, err := store.New(req2, "capa_session")
	require.NoError(t, err)
	assert.False(t, loaded.IsNew)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, 7, loaded.Values["user_id"])
}

func TestRedisStoreRegeneratesId(t *testing.T) {
	mr := setupRedis(t)
	store := NewRedisStore(GetClient(), []byte("0123456789abcdef0123456789abcdef"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := store.New(req, "s")
	sess.Values["theme"] = "dark"
	require.NoError(t, store.Save(req, httptest.NewRecorder(), sess))
	oldID := sess.ID

	sess.Values[RegenerateKey] = true
	sess.Values["user_id"] = 1
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(req, rec, sess))

	assert.NotEqual(t, oldID, sess.ID)
	assert.False(t, mr.Exists(sessionPrefix+oldID))
	assert.True(t, mr.Exists(sessionPrefix+sess.ID))
	assert.NotContains(t, sess.Values, RegenerateKey)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookieFrom(t, rec, "s"))
	loaded, _ := store.New(req2, "s")
	assert.Equal(t, 1, loaded.Values["user_id"])
	assert.NotContains(t, loaded.Values, RegenerateKey)
}

func TestRedisStoreDeleteOnNegativeMaxAge(t *testing.T) {
	mr := setupRedis(t)
	store := NewRedisStore(GetClient(), []byte("0123456789abcdef0123456789abcdef"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := store.New(req, "s")
	sess.Values["user_id"] = 3
	require.NoError(t, store.Save(req, httptest.NewRecorder(), sess))
	require.True(t, mr.Exists(sessionPrefix+sess.ID))

	sess.Options.MaxAge = -1
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(req, rec, sess))

	assert.False(t, mr.Exists(sessionPrefix+sess.ID))
	cookie := cookieFrom(t, rec, "s")
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestRedisStoreIgnoresForgedCookie(t *testing.T) {
	setupRedis(t)
	store := NewRedisStore(GetClient(), []byte("0123456789abcdef0123456789abcdef"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "s", Value: "not-a-signed-value"})
	sess, err := store.New(req, "s")
	require.NoError(t, err)
	assert.True(t, sess.IsNew)
	assert.Empty(t, sess.ID)
}

func TestRedisStoreExpiredRecord(t *testing.T) {
	mr := setupRedis(t)
	store := NewRedisStore(GetClient(), []byte("0123456789abcdef0123456789abcdef"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := store.New(req, "s")
	sess.Values["user_id"] = 9
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(req, rec, sess))

	mr.FastForward(defaultMaxAge*time.Second + time.Second)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookieFrom(t, rec, "s"))
	loaded, _ := store.New(req2, "s")
	assert.True(t, loaded.IsNew)
	assert.Empty(t, loaded.Values)
}

func TestGetOrSet(t *testing.T) {
	setupRedis(t)

	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"ana", "bob"}, nil
	}

	var got []string
	require.NoError(t, GetOrSet(KeyUserList, &got, time.Minute, load))
	require.NoError(t, GetOrSet(KeyUserList, &got, time.Minute, load))
	assert.Equal(t, []string{"ana", "bob"}, got)
	assert.Equal(t, 1, calls)

	InvalidateUserList()
	require.NoError(t, GetOrSet(KeyUserList, &got, time.Minute, load))
	assert.Equal(t, 2, calls)
}

func TestGetOrSetSkipsWriteAfterInvalidate(t *testing.T) {
	mr := setupRedis(t)

	stale := func() ([]string, error) {
		InvalidateUserList()
		return []string{"ana"}, nil
	}
	var got []string
	require.NoError(t, GetOrSet(KeyUserList, &got, time.Minute, stale))
	assert.Equal(t, []string{"ana"}, got)
	assert.False(t, mr.Exists(KeyUserList))

	fresh := func() ([]string, error) { return []string{"ana", "bob"}, nil }
	require.NoError(t, GetOrSet(KeyUserList, &got, time.Minute, fresh))
	assert.True(t, mr.Exists(KeyUserList))

	InvalidateUserList()
	assert.False(t, mr.Exists(KeyUserList))
	gen, err := mr.Get(KeyUserList + ":gen")
	require.NoError(t, err)
	assert.Equal(t, "2", gen)
}

func TestGetOrSetWithoutRedis(t *testing.T) {
	require.NoError(t, Close())

	var got int
	require.NoError(t, GetOrSet("answer", &got, time.Minute, func() (int, error) { return 42, nil }))
	assert.Equal(t, 42, got)
}

func TestCounters(t *testing.T) {
	mr := setupRedis(t)

	n, err := Incr("hits")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, _ = Incr("hits")
	assert.EqualValues(t, 2, n)

	require.NoError(t, Expire("hits", time.Minute))
	ttl, err := TTL("hits")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(2 * time.Minute)
	_, err = Get("hits")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestInitRedisEmbedded(t *testing.T) {
	require.NoError(t, InitRedis(""))
	t.Cleanup(func() { _ = Close() })

	assert.True(t, IsEmbedded())
	require.NoError(t, Set("k", "v", 0))
	v, err := Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
