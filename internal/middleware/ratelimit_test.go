package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authservice/internal/cache"
	apperrors "authservice/internal/errors"
	"authservice/internal/ratelimit"
)

func newRateLimitedEcho(t *testing.T, limit int) (*echo.Echo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := ratelimit.NewLimiter(cache.NewWithClient(rdb), nil)

	e := echo.New()
	e.HTTPErrorHandler = apperrors.Handler(false)
	e.POST("/login", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, RateLimit(limiter, limit, time.Minute))
	e.POST("/register", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, RateLimit(limiter, limit, time.Minute))
	return e, mr
}

func post(e *echo.Echo, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = ip + ":40000"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_HeadersAndRejection(t *testing.T) {
	e, _ := newRateLimitedEcho(t, 3)
	before := time.Now().Unix()

	for i := 1; i <= 3; i++ {
		rec := post(e, "/login", "198.51.100.1")
		require.Equal(t, http.StatusNoContent, rec.Code, "request %d", i)
		assert.Equal(t, "3", rec.Header().Get(HeaderRateLimitLimit))
		assert.Equal(t, strconv.Itoa(3-i), rec.Header().Get(HeaderRateLimitRemaining))

		reset, err := strconv.ParseInt(rec.Header().Get(HeaderRateLimitReset), 10, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, reset, before+59)
	}

	rec := post(e, "/login", "198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	assert.NotEmpty(t, rec.Header().Get(HeaderRateLimitReset))
	assert.Contains(t, rec.Body.String(), "Too many requests")

	// Other clients and other routes keep their own budget.
	assert.Equal(t, http.StatusNoContent, post(e, "/login", "198.51.100.2").Code)
	assert.Equal(t, http.StatusNoContent, post(e, "/register", "198.51.100.1").Code)
}

func TestRateLimit_WindowExpiry(t *testing.T) {
	e, mr := newRateLimitedEcho(t, 1)

	assert.Equal(t, http.StatusNoContent, post(e, "/login", "198.51.100.9").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(e, "/login", "198.51.100.9").Code)

	mr.FastForward(61 * time.Second)

	rec := post(e, "/login", "198.51.100.9")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	e, mr := newRateLimitedEcho(t, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		rec := post(e, "/login", "198.51.100.3")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get(HeaderRateLimitLimit))
	}
}
