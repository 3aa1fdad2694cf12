package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func createJWT(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(sub, role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   sub,
		"email": "client@example.com",
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
}

func serve(t *testing.T, mw echo.MiddlewareFunc, authHeader string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := mw(handler)(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestJWTMiddleware_SuccessfulAuthentication(t *testing.T) {
	userID := uuid.New()
	mw := JWTMiddleware(JWTConfig{Secret: testSecret, Logger: zap.NewNop()})
	token := createJWT(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(userID.String(), "client"))

	rec := serve(t, mw, "Bearer "+token, func(c echo.Context) error {
		user, err := GetUserFromContext(c)
		require.NoError(t, err)
		assert.Equal(t, userID, user.UserID)
		assert.Equal(t, "client@example.com", user.Email)
		assert.Equal(t, "client", user.Role)
		assert.False(t, user.IsAdmin())
		assert.Equal(t, userID.String(), c.Get("user_id"))
		return c.NoContent(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	userID := uuid.New().String()

	expired := validClaims(userID, "client")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "MISSING_AUTH_HEADER"},
		{"not bearer", "Token abc", "INVALID_AUTH_FORMAT"},
		{"garbage token", "Bearer not-a-jwt", "INVALID_TOKEN"},
		{"wrong secret", "Bearer " + createJWT(t, jwt.SigningMethodHS256, []byte("other"), validClaims(userID, "client")), "INVALID_TOKEN"},
		{"expired", "Bearer " + createJWT(t, jwt.SigningMethodHS256, []byte(testSecret), expired), "INVALID_TOKEN"},
		{"wrong algorithm", "Bearer " + createJWT(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims(userID, "client")), "INVALID_TOKEN"},
		{"subject not a uuid", "Bearer " + createJWT(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user-1", "client")), "INVALID_CLAIMS"},
	}

	mw := JWTMiddleware(JWTConfig{Secret: testSecret, Logger: zap.NewNop()})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, mw, tt.header, func(c echo.Context) error {
				t.Fatal("handler must not run")
				return nil
			})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}

func TestJWTMiddleware_Issuer(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{Secret: testSecret, Issuer: "portal", Logger: zap.NewNop()})
	claims := validClaims(uuid.New().String(), "client")

	rec := serve(t, mw, "Bearer "+createJWT(t, jwt.SigningMethodHS256, []byte(testSecret), claims), okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	claims["iss"] = "portal"
	rec = serve(t, mw, "Bearer "+createJWT(t, jwt.SigningMethodHS256, []byte(testSecret), claims), okHandler)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware_SkipPaths(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{Secret: testSecret, Logger: zap.NewNop(), SkipPaths: []string{"/api/v1"}})

	rec := serve(t, mw, "", okHandler)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	logger := zap.NewNop()
	chain := func(next echo.HandlerFunc) echo.HandlerFunc {
		return JWTMiddleware(JWTConfig{Secret: testSecret, Logger: logger})(RequireRole(logger, RoleAdmin)(next))
	}

	admin := createJWT(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(uuid.New().String(), RoleAdmin))
	rec := serve(t, chain, "Bearer "+admin, okHandler)
	assert.Equal(t, http.StatusOK, rec.Code)

	client := createJWT(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(uuid.New().String(), "client"))
	rec = serve(t, chain, "Bearer "+client, okHandler)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, RequireRole(logger, RoleAdmin), "", okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	_, err := RequireAuth(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)

	user := &AuthUser{UserID: uuid.New(), Role: RoleAdmin}
	c.SetRequest(req.WithContext(WithUser(req.Context(), user)))
	got, err := RequireAuth(c)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
}
