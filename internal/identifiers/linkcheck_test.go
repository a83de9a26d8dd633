package identifiers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestLinkChecker_Live(t *testing.T) {
	var heads, gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			heads.Add(1)
		} else {
			gets.Add(1)
		}
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/moved":
			http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
		case "/nohead":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/throttled":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/bot-wall":
			w.WriteHeader(statusLinkedInBlocked)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewLinkChecker(srv.Client())
	ctx := context.Background()

	assert.True(t, c.Live(ctx, srv.URL+"/ok"))
	assert.True(t, c.Live(ctx, srv.URL+"/moved"))
	assert.True(t, c.Live(ctx, srv.URL+"/throttled"))
	assert.True(t, c.Live(ctx, srv.URL+"/bot-wall"))

	heads.Store(0)
	gets.Store(0)
	assert.True(t, c.Live(ctx, srv.URL+"/nohead"))
	assert.Equal(t, int32(1), heads.Load())
	assert.Equal(t, int32(1), gets.Load())

	assert.False(t, c.Live(ctx, srv.URL+"/gone"))
	assert.False(t, c.Live(ctx, "ftp://example.com/x"))
	assert.False(t, c.Live(ctx, "::not a url"))
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	a := NewAdaptiveLimiter(10, 10)
	for range 10 {
		a.OnSuccess()
	}
	assert.InDelta(t, float64(20), float64(a.Limit()), 1e-9)

	for range 10 {
		a.OnRateLimit()
	}
	assert.InDelta(t, float64(rate.Limit(2.5)), float64(a.Limit()), 1e-9)
}
