package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/auth"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/rbac"
	"go.uber.org/zap"
)

const testSecret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSource struct {
	perms []string
	err   error
	calls int
}

func (s *stubSource) Context(context.Context, uuid.UUID, uuid.UUID) (*models.PermissionContext, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.PermissionContext{Permissions: s.perms}, nil
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(uuid.New(), uuid.New(), "u@example.com", role, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

func newRouter(src rbac.ContextSource, policy rbac.AccessPolicy) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(testSecret))
	r.GET("/thing", RequireAccess(src, policy, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":   GetUserID(c),
			"tenant_id": GetTenantID(c),
			"role":      GetRole(c),
		})
	})
	return r
}

func do(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/thing", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareRejects(t *testing.T) {
	r := newRouter(&stubSource{}, rbac.Require(rbac.All, nil))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"bad token", "Bearer not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(r, tt.header); w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestRequireAccess(t *testing.T) {
	tests := []struct {
		name   string
		source *stubSource
		policy rbac.AccessPolicy
		role   string
		want   int
	}{
		{
			name:   "permission granted",
			source: &stubSource{perms: []string{"skills:read"}},
			policy: rbac.Require(rbac.All, []string{"skills:read"}),
			role:   "user",
			want:   http.StatusOK,
		},
		{
			name:   "permission missing",
			source: &stubSource{perms: []string{"skills:read"}},
			policy: rbac.Require(rbac.All, []string{"skills:create"}),
			role:   "user",
			want:   http.StatusForbidden,
		},
		{
			name:   "legacy role override",
			source: &stubSource{},
			policy: rbac.Require(rbac.All, []string{"skills:create"}, "admin"),
			role:   "admin",
			want:   http.StatusOK,
		},
		{
			name:   "lookup failure",
			source: &stubSource{err: errors.New("db down")},
			policy: rbac.Require(rbac.All, []string{"skills:read"}),
			role:   "user",
			want:   http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(tt.source, tt.policy), bearer(t, tt.role))
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestLegacyOverrideSkipsLookup(t *testing.T) {
	src := &stubSource{}
	w := do(newRouter(src, rbac.Require(rbac.All, []string{"x:y"}, "admin")), bearer(t, "admin"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if src.calls != 0 {
		t.Errorf("expected no permission lookup, got %d", src.calls)
	}
}
