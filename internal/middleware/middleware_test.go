package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter() *gin.Engine {
	log, _ := test.NewNullLogger()
	r := gin.New()
	r.GET("/me", AuthRequired(secret, log), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"customer": c.GetString(CustomerIDKey), "email": c.GetString(EmailKey)})
	})
	return r
}

func get(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := authRouter()
	token, err := IssueToken(secret, "alice", "alice@example.com", time.Hour)
	require.NoError(t, err)

	w := get(r, "/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"customer":"alice","email":"alice@example.com"}`, w.Body.String())

	w = get(r, "/me?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRejects(t *testing.T) {
	r := authRouter()
	expired, err := IssueToken(secret, "alice", "a@b.c", -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("other"), "alice", "a@b.c", time.Hour)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "alice"}).SignedString(secret)
	require.NoError(t, err)
	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)

	tests := map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"garbage":      "Bearer abc",
		"expired":      "Bearer " + expired,
		"wrong secret": "Bearer " + foreign,
		"no exp":       "Bearer " + noExp,
		"no user":      "Bearer " + noUser,
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			w := get(r, "/me", header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://shop.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	get(r, "/ok", "")
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "/ok", hook.LastEntry().Data["path"])

	get(r, "/missing", "")
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, http.StatusNotFound, hook.LastEntry().Data["status"])
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	log, _ := test.NewNullLogger()

	r := gin.New()
	r.Use(RateLimit(client, 2, time.Minute, log))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/x", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	key := "api_requests:192.0.2.1"
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(10 * time.Second)
	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
	assert.Equal(t, 50*time.Second, mr.TTL(key), "later hits keep the window")
	w = get(r, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "retry_after")

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
}

func TestRateLimitCounterAlwaysExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	log, _ := test.NewNullLogger()

	r := gin.New()
	r.Use(RateLimit(client, 1, time.Minute, log))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		get(r, "/x", "")
		assert.True(t, mr.TTL("api_requests:192.0.2.1") > 0)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/x", "").Code)

	mr.FastForward(time.Minute)
	assert.False(t, mr.Exists("api_requests:192.0.2.1"))
	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	log, hook := test.NewNullLogger()
	mr.Close()

	r := gin.New()
	r.Use(RateLimit(client, 1, time.Minute, log))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
