package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"veinwise/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	store, err := NewStore(testSecret, opts, zap.NewNop())
	require.NoError(t, err)
	return store
}

func testIdentity() domain.Identity {
	return domain.Identity{ID: "u1", Email: "alice@example.com", Name: "Alice"}
}

// replay construye una request nueva con las cookies que dejo la respuesta anterior.
func replay(t *testing.T, rec *httptest.ResponseRecorder) (*httptest.ResponseRecorder, *Jar) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	next := httptest.NewRecorder()
	return next, NewJar(next, req)
}

func TestNewStore_RejectsShortSecret(t *testing.T) {
	_, err := NewStore("short", Options{}, nil)
	assert.ErrorIs(t, err, ErrSecretTooShort)
}

func TestStore_CreateThenRead(t *testing.T) {
	store := newTestStore(t, Options{})
	rec := httptest.NewRecorder()
	jar := NewJar(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

	created, err := store.Create(jar, testIdentity())
	require.NoError(t, err)
	assert.True(t, created.IsLoggedIn)
	assert.Equal(t, TTL.Milliseconds(), created.ExpiresAt-created.CreatedAt)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 604800, c.MaxAge)
	assert.Equal(t, "/", c.Path)
	assert.NotContains(t, c.Value, "alice@example.com")

	_, nextJar := replay(t, rec)
	got := store.Read(nextJar)
	assert.Equal(t, created, got)
	assert.Equal(t, testIdentity(), got.Identity())
}

func TestStore_ReadSeesWriteInSameRequest(t *testing.T) {
	store := newTestStore(t, Options{})
	jar := NewJar(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := store.Create(jar, testIdentity())
	require.NoError(t, err)
	assert.True(t, store.Read(jar).IsLoggedIn)

	store.Destroy(jar)
	assert.False(t, store.Read(jar).IsLoggedIn)
}

func TestStore_SecureInProduction(t *testing.T) {
	store := newTestStore(t, Options{Secure: true})
	rec := httptest.NewRecorder()
	jar := NewJar(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := store.Create(jar, testIdentity())
	require.NoError(t, err)
	assert.True(t, rec.Result().Cookies()[0].Secure)
}

func TestStore_ExpiredSessionIsDestroyedOnRead(t *testing.T) {
	expired := 0
	store := newTestStore(t, Options{OnExpired: func() { expired++ }})
	rec := httptest.NewRecorder()
	jar := NewJar(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	store.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	_, err := store.Create(jar, testIdentity())
	require.NoError(t, err)
	store.now = time.Now

	nextRec, nextJar := replay(t, rec)
	got := store.Read(nextJar)
	assert.False(t, got.IsLoggedIn)
	assert.Empty(t, got.UserID)
	assert.Equal(t, 1, expired)

	// La segunda lectura en la misma peticion tampoco ve la sesion.
	assert.False(t, store.Read(nextJar).IsLoggedIn)

	cookies := nextRec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)

	// Y la siguiente peticion ya no trae cookie de sesion.
	_, thirdJar := replay(t, nextRec)
	assert.False(t, store.Read(thirdJar).IsLoggedIn)
}

func TestStore_ForgedCookieReadsAsLoggedOut(t *testing.T) {
	store := newTestStore(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged-value"})
	rec := httptest.NewRecorder()
	jar := NewJar(rec, req)

	assert.False(t, store.Read(jar).IsLoggedIn)

	// La cookie que no abre se borra para que el navegador deje de enviarla.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
	assert.False(t, store.Read(jar).IsLoggedIn)
}

func TestStore_ExpiryFollowsExpiresAtNotCookieAge(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the sealed cookie to age")
	}
	expired := 0
	store := newTestStore(t, Options{TTL: time.Second, OnExpired: func() { expired++ }})
	rec := httptest.NewRecorder()
	jar := NewJar(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := store.Create(jar, testIdentity())
	require.NoError(t, err)

	time.Sleep(2100 * time.Millisecond)

	nextRec, nextJar := replay(t, rec)
	assert.False(t, store.Read(nextJar).IsLoggedIn)
	assert.Equal(t, 1, expired)
	cookies := nextRec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestStore_AgedCookieWithLiveExpiresAtStaysLoggedIn(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the sealed cookie to age")
	}
	store := newTestStore(t, Options{TTL: 2 * time.Second})
	rec := httptest.NewRecorder()
	jar := NewJar(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	// expiresAt queda una hora adelante aunque el sello tenga el TTL corto.
	store.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err := store.Create(jar, testIdentity())
	require.NoError(t, err)
	store.now = time.Now

	time.Sleep(3100 * time.Millisecond)

	_, nextJar := replay(t, rec)
	got := store.Read(nextJar)
	assert.True(t, got.IsLoggedIn)
	assert.Equal(t, "u1", got.UserID)
}

func TestStore_OtherSecretCannotOpen(t *testing.T) {
	store := newTestStore(t, Options{})
	rec := httptest.NewRecorder()
	jar := NewJar(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := store.Create(jar, testIdentity())
	require.NoError(t, err)

	other, err := NewStore("ffffffffffffffffffffffffffffffff", Options{}, nil)
	require.NoError(t, err)
	_, nextJar := replay(t, rec)
	assert.False(t, other.Read(nextJar).IsLoggedIn)
}

func TestStore_ExtendPushesExpiry(t *testing.T) {
	store := newTestStore(t, Options{})
	base := time.Now()
	store.now = func() time.Time { return base }

	rec := httptest.NewRecorder()
	jar := NewJar(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	created, err := store.Create(jar, testIdentity())
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(2 * 24 * time.Hour) }
	extended, err := store.Extend(jar)
	require.NoError(t, err)
	assert.True(t, extended.IsLoggedIn)
	assert.Equal(t, created.CreatedAt, extended.CreatedAt)
	assert.Equal(t, base.Add(2*24*time.Hour).Add(TTL).UnixMilli(), extended.ExpiresAt)
}

func TestStore_ExtendWhenLoggedOutIsNoop(t *testing.T) {
	store := newTestStore(t, Options{})
	rec := httptest.NewRecorder()
	jar := NewJar(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	got, err := store.Extend(jar)
	require.NoError(t, err)
	assert.False(t, got.IsLoggedIn)
	assert.Empty(t, rec.Result().Cookies())
}

func TestJarContext(t *testing.T) {
	_, ok := JarFromContext(context.Background())
	assert.False(t, ok)

	jar := NewJar(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	got, ok := JarFromContext(WithJar(context.Background(), jar))
	assert.True(t, ok)
	assert.Same(t, jar, got)
}
