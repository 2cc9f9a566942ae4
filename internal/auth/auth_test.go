package auth

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, expiresAt, err := tm.GenerateToken("ana@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Subject)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsMissingSubject(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 5).ParseToken(signed)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ana@example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 5).ParseToken(signed)
	assert.Error(t, err)
}

func newProtectedApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).SendString(err.Error())
		},
	})
	app.Get("/me", NewAuthMiddleware(tm).Handle, func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(identity.Email + "|" + identity.Token)
	})
	return app
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, _, err := tm.GenerateToken("ana@example.com")
	require.NoError(t, err)
	forwarded, _, err := tm.GenerateToken("gateway-user@example.com")
	require.NoError(t, err)
	app := newProtectedApp(tm)

	cases := []struct {
		name    string
		headers map[string]string
		status  int
		body    string
	}{
		{"authorization header", map[string]string{"Authorization": "Bearer " + token}, 200, "ana@example.com|" + token},
		{"forwarded header wins", map[string]string{
			"Authorization":              "Bearer gateway-credential",
			"X-Forwarded-Authorization": "Bearer " + forwarded,
		}, 200, "gateway-user@example.com|" + forwarded},
		{"missing header", nil, 401, "missing authorization header"},
		{"wrong scheme", map[string]string{"Authorization": "Basic abc"}, 401, "invalid authorization header"},
		{"bad token", map[string]string{"Authorization": "Bearer nope"}, 401, "invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.body, string(body))
		})
	}
}
