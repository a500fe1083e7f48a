package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != 500 {
		t.Fatalf("code=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Internal server error") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRateLimiter(t *testing.T) {
	cases := []struct {
		name   string
		reqs   int
		lim    int
		expect int
	}{
		{name: "within limit", reqs: 2, lim: 3, expect: http.StatusOK},
		{name: "exceed limit", reqs: 5, lim: 3, expect: http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			rateLimiterLock.Lock()
			clients = make(map[string]*client)
			window = time.Millisecond * 100
			limit = tc.lim
			rateLimiterLock.Unlock()
			r.Use(RateLimiter())
			r.GET("/", func(c *gin.Context) { c.String(200, "ok") })
			var last int
			for i := 0; i < tc.reqs; i++ {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
				last = w.Code
			}
			if last != tc.expect {
				t.Fatalf("expected %d, got %d", tc.expect, last)
			}
		})
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rateLimiterLock.Lock()
	clients = make(map[string]*client)
	window = time.Millisecond * 20
	limit = 1
	rateLimiterLock.Unlock()
	r.Use(RateLimiter())
	r.GET("/", func(c *gin.Context) { c.String(200, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request code=%d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request code=%d, want 429", w.Code)
	}

	time.Sleep(30 * time.Millisecond)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("request after window code=%d, want 200", w.Code)
	}
}
