package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/todohub/internal/auth"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/gin-gonic/gin"
)

type fakeVerifier struct {
	verifyFn func(token string) (*auth.Claims, error)
}

func (f fakeVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	return f.verifyFn(token)
}

func newAuthRouter(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", NewAuthMiddleware(v).RequireAuth(), func(c *gin.Context) {
		id, _ := UserIDFromContext(c)
		c.String(http.StatusOK, id)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	verifier := fakeVerifier{verifyFn: func(token string) (*auth.Claims, error) {
		if token == "good" {
			return &auth.Claims{UserID: "user-1"}, nil
		}
		return nil, errors.New("bad token")
	}}

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantBody   string
	}{
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "bearer_ok", header: "Bearer good", wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "bearer_bad", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "wrong_scheme", header: "Basic abc", cookie: "good", wantStatus: http.StatusUnauthorized},
		{name: "empty_bearer", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "cookie_ok", cookie: "good", wantStatus: http.StatusOK, wantBody: "user-1"},
	}

	r := newAuthRouter(verifier)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Fatalf("got body %q, want %q", w.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusUnauthorized && !strings.Contains(w.Body.String(), `"code":"unauthorized"`) {
				t.Fatalf("expected unauthorized envelope, got %s", w.Body.String())
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/login", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do(); w.Code != http.StatusOK {
			t.Fatalf("request %d got %d", i, w.Code)
		}
	}

	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", w.Header().Get("Retry-After"))
	}

	now = now.Add(61 * time.Second)
	if w := do(); w.Code != http.StatusOK {
		t.Fatalf("expected a new window to allow, got %d", w.Code)
	}
}

func TestRateLimiter_KeysByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(1, time.Minute)
	r := gin.New()
	r.POST("/api/todos", func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(CtxUserID, id)
		}
	}, rl.RateLimiterMiddleware(KeyByUserOrIP), func(c *gin.Context) { c.Status(http.StatusCreated) })

	do := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/todos", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Test-User", userID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := do("alice"); got != http.StatusCreated {
		t.Fatalf("alice first write got %d", got)
	}
	if got := do("alice"); got != http.StatusTooManyRequests {
		t.Fatalf("alice second write got %d, want 429", got)
	}
	// same address, different account
	if got := do("bob"); got != http.StatusCreated {
		t.Fatalf("a second account gets a separate budget, got %d", got)
	}
}

func TestRequireAuth_TagsRequestContext(t *testing.T) {
	verifier := fakeVerifier{verifyFn: func(string) (*auth.Claims, error) {
		return &auth.Claims{UserID: "user-1"}, nil
	}}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", NewAuthMiddleware(verifier).RequireAuth(), func(c *gin.Context) {
		requestID, userID := observability.RequestFields(c.Request.Context())
		c.String(http.StatusOK, requestID+"|"+userID)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("X-Request-Id", "req-9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != "req-9|user-1" {
		t.Fatalf("request context not tagged, got %q", w.Body.String())
	}
}

func TestRequireJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name string
		body string
		ct   string
		want int
	}{
		{"json", `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"form", `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"no_body", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			if tt.ct != "" {
				req.Header.Set("Content-Type", tt.ct)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders("prod"))
	r.GET("/docs", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/todos", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))
	if !strings.Contains(w.Header().Get("Content-Security-Policy"), "unpkg.com") {
		t.Fatalf("docs should allow swagger assets, got %q", w.Header().Get("Content-Security-Policy"))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/todos", nil))
	if w.Header().Get("Content-Security-Policy") != defaultCSP {
		t.Fatalf("unexpected CSP %q", w.Header().Get("Content-Security-Policy"))
	}
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("expected HSTS in prod")
	}
}
