package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/store"
)

type identities map[uint]*models.Identity

func (m identities) FindIdentity(_ context.Context, id uint) (*models.Identity, error) {
	if i, ok := m[id]; ok {
		return i, nil
	}
	return nil, store.ErrNotFound
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(auth *AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.GET("/me", auth.AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentIdentityID(c)})
	})
	r.GET("/admin", auth.AuthRequired(), RoleRequired(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	student := &models.Identity{ID: 1, Role: models.RoleStudent, Active: true}
	inactive := &models.Identity{ID: 2, Role: models.RoleStudent, Active: false}
	admin := &models.Identity{ID: 3, Role: models.RoleAdmin, Active: true}
	auth := NewAuthMiddleware(identities{1: student, 2: inactive, 3: admin}, "test-secret", time.Hour)
	r := newRouter(auth)

	studentToken, _, err := auth.GenerateToken(student)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	inactiveToken, _, _ := auth.GenerateToken(inactive)
	adminToken, _, _ := auth.GenerateToken(admin)

	if w := do(r, "/me", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := do(r, "/me", "garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}
	if w := do(r, "/me", studentToken); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := do(r, "/me", inactiveToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive account, got %d", w.Code)
	}
	if w := do(r, "/admin", studentToken); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student on admin route, got %d", w.Code)
	}
	if w := do(r, "/admin", adminToken); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for admin, got %d", w.Code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	student := &models.Identity{ID: 1, Role: models.RoleStudent, Active: true}
	auth := NewAuthMiddleware(identities{1: student}, "test-secret", time.Minute)
	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := auth.GenerateToken(student)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	auth.now = time.Now

	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestAPIKey(t *testing.T) {
	r := gin.New()
	r.POST("/scan", NewAPIKeyMiddleware(true, []string{"gate-a"}).APIKeyRequired(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for key, want := range map[string]int{"": http.StatusUnauthorized, "nope": http.StatusUnauthorized, "gate-a": http.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/scan", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("key %q: expected %d, got %d", key, want, w.Code)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc" {
		t.Fatalf("expected inbound id echoed, got %q", got)
	}
}
