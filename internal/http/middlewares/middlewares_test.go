package middlewares_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/todolist/internal/actorctx"
	"github.com/geocoder89/todolist/internal/auth"
	"github.com/geocoder89/todolist/internal/http/middlewares"
	"github.com/geocoder89/todolist/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	verifyFn func(token string) (*auth.Claims, error)
}

func (f fakeVerifier) Verify(token string) (*auth.Claims, error) {
	return f.verifyFn(token)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body.Error
}

func TestRequireAuth(t *testing.T) {
	verifier := fakeVerifier{verifyFn: func(token string) (*auth.Claims, error) {
		if token != "good" {
			return nil, auth.ErrInvalidToken
		}
		return &auth.Claims{
			Email:            "ada@example.com",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		}, nil
	}}

	r := gin.New()
	r.GET("/protected", middlewares.NewAuthMiddleware(verifier).RequireAuth(), func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		ctxID, _ := actorctx.UserIDFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": id, "ctx_id": ctxID})
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"no header", "", http.StatusUnauthorized, "Authentication required"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Authentication required"},
		{"lowercase bearer", "bearer good", http.StatusUnauthorized, "Authentication required"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "Invalid or expired token"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "Invalid or expired token"},
		{"valid", "Bearer good", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			r.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", rr.Code, tt.wantStatus)
			}

			if tt.wantError != "" {
				if got := decodeError(t, rr); got != tt.wantError {
					t.Fatalf("got error %q, want %q", got, tt.wantError)
				}
				return
			}

			var body map[string]string
			_ = json.Unmarshal(rr.Body.Bytes(), &body)
			if body["id"] != "user-1" || body["ctx_id"] != "user-1" {
				t.Fatalf("identity not propagated: %v", body)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequestID())
	r.GET("/", func(c *gin.Context) {
		id, _ := actorctx.RequestIDFrom(c.Request.Context())
		c.String(http.StatusOK, id)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-Id") != "abc-123" || rr.Body.String() != "abc-123" {
		t.Fatalf("incoming request id should be kept, got header %q body %q",
			rr.Header().Get("X-Request-Id"), rr.Body.String())
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a generated request id")
	}
}

type fakeLimiter struct {
	d   ratelimit.Decision
	err error
}

func (f fakeLimiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	return f.d, f.err
}

func TestRateLimit(t *testing.T) {
	newRouter := func(l ratelimit.Limiter) *gin.Engine {
		r := gin.New()
		r.POST("/login", middlewares.RateLimit(l, middlewares.KeyByIP), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	t.Run("limited", func(t *testing.T) {
		r := newRouter(fakeLimiter{d: ratelimit.Decision{Allowed: false, RetryAfter: 1500 * time.Millisecond}})
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))

		if rr.Code != http.StatusTooManyRequests {
			t.Fatalf("got %d, want 429", rr.Code)
		}
		if rr.Header().Get("Retry-After") != "2" {
			t.Fatalf("got Retry-After %q, want 2", rr.Header().Get("Retry-After"))
		}
		if got := decodeError(t, rr); got != "Too many requests. Please try again shortly." {
			t.Fatalf("unexpected error %q", got)
		}
	})

	t.Run("limiter failure lets request through", func(t *testing.T) {
		r := newRouter(fakeLimiter{d: ratelimit.Decision{Allowed: true}, err: errors.New("redis down")})
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("got %d, want 200", rr.Code)
		}
	})

	t.Run("memory limiter", func(t *testing.T) {
		r := newRouter(ratelimit.NewMemoryLimiter(1, time.Minute))

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("first request got %d", rr.Code)
		}

		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
		if rr.Code != http.StatusTooManyRequests {
			t.Fatalf("second request got %d, want 429", rr.Code)
		}
	})
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequireJSON())
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("got %d, want 415", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("bodiless request got %d, want 200", rr.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.CORSMiddleware([]string{"http://localhost:5173"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight got %d, want 204", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("allowed origin not echoed")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unknown origin must not be echoed")
	}
}
