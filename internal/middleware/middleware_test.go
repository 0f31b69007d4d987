package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfriends/recoverysystem-golang/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runMiddleware(t *testing.T, mw gin.HandlerFunc, authHeader string, seed func(*gin.Context)) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		c.Request.Header.Set("Authorization", authHeader)
	}
	if seed != nil {
		seed(c)
	}

	mw(c)
	return c, w
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	c, w := runMiddleware(t, AuthMiddleware(), "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, c.IsAborted())
}

func TestAuthMiddleware_NotBearer(t *testing.T) {
	c, w := runMiddleware(t, AuthMiddleware(), "Basic dXNlcjpwYXNz", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, c.IsAborted())
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	c, w := runMiddleware(t, AuthMiddleware(), "Bearer not-a-real-token", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, c.IsAborted())
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token, err := auth.GenerateToken(7)
	require.NoError(t, err)

	c, w := runMiddleware(t, AuthMiddleware(), "Bearer "+token, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, c.IsAborted())

	userID, exists := c.Get("userID")
	require.True(t, exists)
	assert.Equal(t, int64(7), userID)
}

func TestOptionalAuthMiddleware_NoHeader(t *testing.T) {
	c, w := runMiddleware(t, OptionalAuthMiddleware(), "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, c.IsAborted())

	_, exists := c.Get("userID")
	assert.False(t, exists)
}

func TestOptionalAuthMiddleware_BadTokenContinuesAnonymously(t *testing.T) {
	c, w := runMiddleware(t, OptionalAuthMiddleware(), "Bearer garbage", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, c.IsAborted())

	_, exists := c.Get("userID")
	assert.False(t, exists)
}

func TestRequireRoles_Allowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery(`SELECT role FROM users WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))

	c, w := runMiddleware(t, RequireRoles(db, "admin", "superadmin"), "", func(c *gin.Context) {
		c.Set("userID", int64(7))
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, c.IsAborted())

	role, _ := c.Get("userRole")
	assert.Equal(t, "admin", role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireRoles_Denied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery(`SELECT role FROM users WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("customer"))

	c, w := runMiddleware(t, RequireRoles(db, "admin", "superadmin"), "", func(c *gin.Context) {
		c.Set("userID", int64(7))
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, c.IsAborted())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireRoles_NoIdentity(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c, w := runMiddleware(t, RequireRoles(db, "admin"), "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, c.IsAborted())
}
