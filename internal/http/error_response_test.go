package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.ValidationField("email", "bad"), http.StatusBadRequest},
		{apperrors.MethodNotSupported("password"), http.StatusBadRequest},
		{apperrors.Unauthenticated(), http.StatusUnauthorized},
		{apperrors.InvalidCredentials(), http.StatusUnauthorized},
		{apperrors.UserNotFound(), http.StatusNotFound},
		{apperrors.PasswordGrantNotFound(), http.StatusNotFound},
		{apperrors.UserAlreadyExists("Email"), http.StatusConflict},
		{apperrors.Conflict("dup"), http.StatusConflict},
		{apperrors.CodeOutdated(), http.StatusGone},
		{apperrors.CodeNotActive(), http.StatusUnprocessableEntity},
		{apperrors.ProviderExchangeFailed("google", errors.New("boom")), http.StatusBadGateway},
		{fmt.Errorf("login: %w", apperrors.InvalidCredentials()), http.StatusUnauthorized},
		{errors.New("plain"), http.StatusInternalServerError},
		{apperrors.GenerationExhausted(20), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}

func TestWriteAppError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/password/register", nil)

	w := httptest.NewRecorder()
	WriteAppError(w, req, nil, apperrors.ValidationFields(map[string]string{
		"email":    "Email has an invalid format.",
		"password": "Password is required.",
	}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation", body.Error)
	assert.Equal(t, "email", body.Field)
	assert.Len(t, body.Details, 2)

	w = httptest.NewRecorder()
	WriteAppError(w, req, nil, fmt.Errorf("insert user: %w", errors.New("pq: connection refused")))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal", body.Error)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

type resolverFunc func(ctx context.Context, rc ports.RequestContext) (string, error)

func (f resolverFunc) CurrentUserID(ctx context.Context, rc ports.RequestContext) (string, error) {
	return f(ctx, rc)
}

func TestRequireAuth(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	resolver := resolverFunc(func(_ context.Context, rc ports.RequestContext) (string, error) {
		token, ok := rc.Cookie("token")
		switch {
		case !ok:
			return "", nil
		case token == "broken":
			return "", errors.New("db down")
		default:
			return "user-" + token, nil
		}
	})
	h := RequireAuth(resolver, CookieOptions{})(next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "broken"})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "1"})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "user-1", seen)
}

func TestRecover(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSafeRedirectPath(t *testing.T) {
	assert.Equal(t, "/", safeRedirectPath(""))
	assert.Equal(t, "/", safeRedirectPath("https://evil.example"))
	assert.Equal(t, "/", safeRedirectPath("//evil.example"))
	assert.Equal(t, "/", safeRedirectPath("relative"))
	assert.Equal(t, "/app?x=1", safeRedirectPath("/app?x=1"))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
