package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(testSecret, "user-uid", "alice@example.com", true)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ValidateToken(testSecret, token)
	assert.NoError(t, err)
	assert.Equal(t, "user-uid", claims.UserUid)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, "user-uid", "alice@example.com", false)
	assert.NoError(t, err)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken(testSecret, "not-a-token")
	assert.Error(t, err)
}

func TestRequireUserMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)

	RequireUser(testSecret)(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, c.IsAborted())
}

func TestRequireUserSetsIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	token, _ := GenerateToken(testSecret, "user-uid", "alice@example.com", false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("Authorization", "Bearer "+token)

	RequireUser(testSecret)(c)

	assert.False(t, c.IsAborted())
	assert.Equal(t, "user-uid", c.GetString(CtxUserUid))
	assert.False(t, c.GetBool(CtxIsAdmin))
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Set(CtxIsAdmin, false)

	RequireAdmin()(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, c.IsAborted())
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Set(CtxIsAdmin, true)

	RequireAdmin()(c)

	assert.False(t, c.IsAborted())
}
