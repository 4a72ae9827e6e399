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
)

func invokeMiddleware(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Middleware(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return rec, c, handler(c)
}

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	secret, err := jwtSecretFromEnv()
	require.NoError(t, err)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func requireUnauthorized(t *testing.T, err error) {
	t.Helper()
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	userID := uuid.New()
	token, err := generateToken(userID)
	require.NoError(t, err)

	rec, c, err := invokeMiddleware(t, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	got, err := GetUserIDFromContext(c)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	_, _, err := invokeMiddleware(t, "")
	requireUnauthorized(t, err)
}

func TestMiddlewareRejectsWrongScheme(t *testing.T) {
	_, _, err := invokeMiddleware(t, "Token abc123")
	requireUnauthorized(t, err)
}

func TestMiddlewareRejectsGarbageToken(t *testing.T) {
	_, _, err := invokeMiddleware(t, "Bearer not-a-jwt")
	requireUnauthorized(t, err)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	token := mintToken(t, jwt.MapClaims{
		"sub": uuid.New().String(),
		"iat": time.Now().Add(-48 * time.Hour).Unix(),
		"exp": time.Now().Add(-24 * time.Hour).Unix(),
	})
	_, _, err := invokeMiddleware(t, "Bearer "+token)
	requireUnauthorized(t, err)
}

func TestMiddlewareRejectsNonUUIDSubject(t *testing.T) {
	token := mintToken(t, jwt.MapClaims{
		"sub": "not-a-uuid",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, _, err := invokeMiddleware(t, "Bearer "+token)
	requireUnauthorized(t, err)
}

func TestGetUserIDFromContextMissing(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := GetUserIDFromContext(c)
	assert.Error(t, err)
}
