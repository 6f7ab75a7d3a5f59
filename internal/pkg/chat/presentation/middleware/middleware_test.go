package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"go-chatsync/internal/infrastructure/auth"
	chat "go-chatsync/internal/pkg/chat/application/domain"
)

type countingSyncer struct {
	calls int
	err   error
}

func (s *countingSyncer) Execute(ctx context.Context, u chat.User) error {
	s.calls++
	return s.err
}

func newEngine(t *testing.T, syncer UserSyncer) (*gin.Engine, *auth.Verifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	v, err := auth.NewVerifier("secret", "")
	require.NoError(t, err)
	r := gin.New()
	r.Use(Authenticate(v, syncer, zap.NewNop()))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return r, v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthenticate(t *testing.T) {
	syncer := &countingSyncer{}
	r, v := newEngine(t, syncer)
	tok, err := v.Issue(auth.Identity{UserID: "u-1", Username: "alice"}, time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u-1"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?access_token="+tok, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, syncer.calls)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, w))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_SyncMemoIsBounded(t *testing.T) {
	prevSize, prevTTL := syncCacheSize, syncCacheTTL
	syncCacheSize, syncCacheTTL = 2, time.Hour
	t.Cleanup(func() { syncCacheSize, syncCacheTTL = prevSize, prevTTL })

	syncer := &countingSyncer{}
	r, v := newEngine(t, syncer)
	get := func(id, name string) {
		tok, err := v.Issue(auth.Identity{UserID: id, Username: name}, time.Minute)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	get("u-1", "alice")
	get("u-1", "alice")
	assert.Equal(t, 1, syncer.calls)

	get("u-2", "bob")
	get("u-3", "carol")
	assert.Equal(t, 3, syncer.calls)

	// u-1 was the least recently used entry and got evicted.
	get("u-1", "alice")
	assert.Equal(t, 4, syncer.calls)
	get("u-3", "carol")
	assert.Equal(t, 4, syncer.calls)
}

func TestAuthenticate_SyncMemoExpires(t *testing.T) {
	prevTTL := syncCacheTTL
	syncCacheTTL = 20 * time.Millisecond
	t.Cleanup(func() { syncCacheTTL = prevTTL })

	syncer := &countingSyncer{}
	r, v := newEngine(t, syncer)
	tok, err := v.Issue(auth.Identity{UserID: "u-1", Username: "alice"}, time.Minute)
	require.NoError(t, err)
	get := func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	get()
	get()
	assert.Equal(t, 1, syncer.calls)

	time.Sleep(60 * time.Millisecond)
	get()
	assert.Equal(t, 2, syncer.calls)
}

func TestAuthenticate_SyncFailureIsInternal(t *testing.T) {
	r, v := newEngine(t, &countingSyncer{err: errors.New("db down")})
	tok, err := v.Issue(auth.Identity{UserID: "u-1", Username: "alice"}, time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", errorCode(t, w))
}

func TestRequestLoggerAndRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	r := gin.New()
	r.Use(RequestLogger(log), Recovery(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", errorCode(t, w))

	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	requests := logs.FilterMessage("request").All()
	require.Len(t, requests, 2)
	assert.Equal(t, int64(http.StatusNoContent), requests[0].ContextMap()["status"])
}
