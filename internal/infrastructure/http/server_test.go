package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/portal-billing/internal/config"
	"github.com/wekeepgrowing/portal-billing/internal/domain/provider"
	"github.com/wekeepgrowing/portal-billing/internal/middleware/auth"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.JWT.Secret = testSecret
	return NewServer(cfg, zap.NewNop(), Services{
		Verifier: provider.NewDisabled("not configured"),
	})
}

func token(t *testing.T, role string) string {
	t.Helper()
	claims := auth.Claims{
		Email: "user@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		bearer string
		want   int
	}{
		{name: "health is public", method: http.MethodGet, target: "/health", want: http.StatusOK},
		{name: "webhook without gateway", method: http.MethodPost, target: "/webhook/stripe", want: http.StatusServiceUnavailable},
		{name: "payments need a token", method: http.MethodGet, target: "/api/v1/payments", want: http.StatusUnauthorized},
		{name: "invoices need a token", method: http.MethodGet, target: "/api/v1/invoices", want: http.StatusUnauthorized},
		{name: "notification stream needs a token", method: http.MethodGet, target: "/api/v1/notifications/stream", want: http.StatusUnauthorized},
		{name: "admin payments reject clients", method: http.MethodGet, target: "/api/v1/payments/admin/all", bearer: token(t, "client"), want: http.StatusForbidden},
		{name: "invoice creation rejects clients", method: http.MethodPost, target: "/api/v1/invoices", bearer: token(t, "client"), want: http.StatusForbidden},
		{name: "invoice deletion rejects clients", method: http.MethodDelete, target: "/api/v1/invoices/1", bearer: token(t, "client"), want: http.StatusForbidden},
		{name: "unknown route", method: http.MethodGet, target: "/api/v2/payments", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader("{}"))
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
