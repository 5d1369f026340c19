package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"queueline-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authRouter() *gin.Engine {
	m := NewAuthMiddleware(jwt.NewVerifier("secret", "queueline"))
	r := gin.New()
	r.GET("/dash/:businessId", m.Auth(), m.RequireBusinessParam("businessId"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuth(t *testing.T) {
	gen := jwt.NewGenerator("secret", "queueline", time.Hour)
	operator, _, err := gen.GenerateOperatorToken("alice", "biz-1")
	require.NoError(t, err)
	admin, _, err := gen.GenerateAdminToken("root")
	require.NoError(t, err)

	r := authRouter()

	assert.Equal(t, http.StatusUnauthorized, perform(r, "GET", "/dash/biz-1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "GET", "/dash/biz-1", "garbage").Code)
	assert.Equal(t, http.StatusOK, perform(r, "GET", "/dash/biz-1", operator).Code)
	assert.Equal(t, http.StatusForbidden, perform(r, "GET", "/dash/biz-2", operator).Code)
	assert.Equal(t, http.StatusOK, perform(r, "GET", "/dash/biz-2", admin).Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := perform(r, "GET", "/boom", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestRateLimiter(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, "join", 2, time.Minute, nil)

	r := gin.New()
	r.POST("/join", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	key := "ratelimit:join:10.0.0.1"
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectIncr(key).SetVal(3)

	assert.Equal(t, http.StatusCreated, perform(r, "POST", "/join", "").Code)
	w := perform(r, "POST", "/join", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = perform(r, "POST", "/join", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, "join", 2, time.Minute, nil)

	r := gin.New()
	r.POST("/join", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	mock.ExpectIncr("ratelimit:join:10.0.0.1").SetErr(errors.New("connection refused"))

	assert.Equal(t, http.StatusCreated, perform(r, "POST", "/join", "").Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_DisabledWithoutRedis(t *testing.T) {
	limiter := NewRateLimiter(nil, "join", 1, time.Minute, nil)

	r := gin.New()
	r.POST("/join", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, perform(r, "POST", "/join", "").Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
