package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-orders/internal/auth"
	"storefront-orders/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "mw-secret"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withIdentity(r *http.Request, id uint, email, role string) *http.Request {
	return r.WithContext(utils.SetUserContext(r.Context(), id, email, role))
}

func TestAuthenticate(t *testing.T) {
	var gotID uint
	var gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = utils.GetUserIDFromContext(r.Context())
		gotEmail = utils.GetUserEmailFromContext(r.Context())
	})
	handler := Authenticate(secret)(next)

	t.Run("Valid token", func(t *testing.T) {
		tok, err := auth.GenerateToken(secret, 12, "u@shop.io", "USER", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, uint(12), gotID)
		assert.Equal(t, "u@shop.io", gotEmail)
	})

	t.Run("Invalid token stays anonymous", func(t *testing.T) {
		gotID = 0
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Zero(t, gotID)
	})

	t.Run("No token", func(t *testing.T) {
		gotID = 0
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Zero(t, gotID)
	})
}

func TestRequireUser(t *testing.T) {
	handler := RequireUser(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), 1, "a@b", "USER"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin([]string{"ops@shop.io"})(okHandler())

	tests := []struct {
		name string
		req  func() *http.Request
		code int
	}{
		{"anonymous", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) }, http.StatusUnauthorized},
		{"plain user", func() *http.Request {
			return withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), 1, "u@shop.io", "USER")
		}, http.StatusForbidden},
		{"admin role", func() *http.Request {
			return withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), 2, "x@shop.io", "ADMIN")
		}, http.StatusOK},
		{"allow-listed email", func() *http.Request {
			return withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), 3, "Ops@Shop.io", "USER")
		}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, tt.req())
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"http://localhost:3000", "https://shop.io"})(okHandler())

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("Preflight from allowed origin", func(t *testing.T) {
		w := preflight("https://shop.io")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://shop.io", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "PATCH", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("Preflight from unknown origin", func(t *testing.T) {
		w := preflight("https://evil.example")

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Normal request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Normal request from unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("Strict tier for order placement", func(t *testing.T) {
		handler := NewRateLimiter().Middleware(okHandler())

		codes := map[int]int{}
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes[w.Code]++
		}

		assert.Equal(t, burstStrict, codes[http.StatusOK])
		assert.Equal(t, 1, codes[http.StatusTooManyRequests])
	})

	t.Run("Identities are separate", func(t *testing.T) {
		handler := NewRateLimiter().Middleware(okHandler())

		for i := 0; i < burstStrict; i++ {
			req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/orders", nil), 1, "", "")
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, withIdentity(httptest.NewRequest(http.MethodPost, "/api/orders", nil), 2, "", ""))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Evicts idle visitors", func(t *testing.T) {
		l := NewRateLimiter()
		l.getVisitor("ip:1", limitGeneral, burstGeneral)

		l.evict(time.Now().Add(visitorTTL + time.Second))
		assert.Empty(t, l.visitors)
	})

	t.Run("Cleanup stops with context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, NewRateLimiter().Cleanup(ctx))
	})
}
