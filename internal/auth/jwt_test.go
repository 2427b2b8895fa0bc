package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	auther := NewAuthenticator("secret")

	token, err := auther.Sign("user-1")
	require.NoError(t, err)

	uid, err := auther.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewAuthenticator("secret").Sign("user-1")
	require.NoError(t, err)

	_, err = NewAuthenticator("other").Verify(token)
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	auther := NewAuthenticator("secret")
	e := echo.New()

	h := RequireAuth(auther)(func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		err := h(e.NewContext(req, rec))
		assert.ErrorIs(t, err, echo.ErrUnauthorized)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := auther.Sign("user-9")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()

		require.NoError(t, h(e.NewContext(req, rec)))
		assert.Equal(t, "user-9", rec.Body.String())
	})
}

func TestOptionalAuth_AnonymousPasses(t *testing.T) {
	auther := NewAuthenticator("secret")
	e := echo.New()

	h := OptionalAuth(auther)(func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Equal(t, "", rec.Body.String())
}
