package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(tokens *auth.TokenManager, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{TraceID(), Authenticate(zap.NewNop(), tokens)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":  c.MustGet(pkg.UserId).(uuid.UUID).String(),
			"role":  c.MustGet(pkg.UserRole),
			"trace": c.GetString(pkg.TraceId),
		})
	})
	r.GET("/me", handlers...)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkg.ErrorResponse {
	t.Helper()
	var resp pkg.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "test")
	userID := uuid.New()
	token, err := tokens.Issue(userID, "a@b.c", pkg.RoleUser, time.Minute)
	require.NoError(t, err)
	r := newRouter(tokens)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(pkg.HeaderAuthorization, "Bearer "+token)
		req.Header.Set(pkg.HeaderTraceId, "trace-abc")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "trace-abc", w.Header().Get(pkg.HeaderTraceId))
		assert.Contains(t, w.Body.String(), userID.String())
	})

	t.Run("query token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me?access_token="+token, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(pkg.HeaderTraceId))
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, pkg.ErrUnauthorizedCode.Code, decodeError(t, w).Code)
	})

	t.Run("tampered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(pkg.HeaderAuthorization, "Bearer "+token+"x")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "test")
	r := newRouter(tokens, RequireRole(zap.NewNop(), pkg.RoleAdmin))

	userToken, err := tokens.Issue(uuid.New(), "", pkg.RoleUser, time.Minute)
	require.NoError(t, err)
	adminToken, err := tokens.Issue(uuid.New(), "", pkg.RoleAdmin, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(pkg.HeaderAuthorization, "Bearer "+userToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, pkg.ErrForbiddenCode.Code, decodeError(t, w).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(pkg.HeaderAuthorization, "Bearer "+adminToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

type countingLimiter struct {
	allow int
	keys  []string
}

func (l *countingLimiter) Allow(_ context.Context, key string) bool {
	l.keys = append(l.keys, key)
	l.allow--
	return l.allow >= 0
}

func TestRateLimit_KeysByUser(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "test")
	limiter := &countingLimiter{allow: 1}
	r := newRouter(tokens, RateLimit(zap.NewNop(), limiter))
	userID := uuid.New()
	token, err := tokens.Issue(userID, "", pkg.RoleUser, time.Minute)
	require.NoError(t, err)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(pkg.HeaderAuthorization, "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, []string{userID.String(), userID.String()}, limiter.keys)
}

type recordingEnsurer struct {
	calls []uuid.UUID
	email string
	role  pkg.Role
	err   error
}

func (e *recordingEnsurer) EnsureProfile(_ context.Context, _ string, userID uuid.UUID, email string, role pkg.Role) error {
	e.calls = append(e.calls, userID)
	e.email, e.role = email, role
	return e.err
}

func TestEnsureProfile(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "test")
	adminID := uuid.New()
	token, err := tokens.Issue(adminID, "ops@resilient.bank", pkg.RoleAdmin, time.Minute)
	require.NoError(t, err)

	t.Run("ensures the token subject before the handler", func(t *testing.T) {
		ensurer := &recordingEnsurer{}
		r := newRouter(tokens, EnsureProfile(zap.NewNop(), ensurer))
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(pkg.HeaderAuthorization, "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []uuid.UUID{adminID}, ensurer.calls)
		assert.Equal(t, "ops@resilient.bank", ensurer.email)
		assert.Equal(t, pkg.RoleAdmin, ensurer.role)
	})

	t.Run("failure stops the request", func(t *testing.T) {
		ensurer := &recordingEnsurer{err: pkg.NewCodeError(pkg.ErrSQLUnknownCode)}
		r := newRouter(tokens, EnsureProfile(zap.NewNop(), ensurer))
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(pkg.HeaderAuthorization, "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, pkg.ErrSQLUnknownCode.Status, w.Code)
		assert.NotContains(t, w.Body.String(), adminID.String())
	})

	t.Run("unauthenticated requests never reach it", func(t *testing.T) {
		ensurer := &recordingEnsurer{}
		r := newRouter(tokens, EnsureProfile(zap.NewNop(), ensurer))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, ensurer.calls)
	})
}
