package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/smartcommerce/notification-service/utils"
)

func identityRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/me", func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		roles, _ := c.Get("roles")
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "roles": roles})
	})
	return r
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	router := identityRouter(AuthMiddleware())

	token, err := utils.GenerateToken(42, []string{"customer"})
	assert.NoError(t, err)

	req, _ := http.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":42`)
	assert.Contains(t, w.Body.String(), `"customer"`)
}

func TestAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	router := identityRouter(AuthMiddleware())

	token, err := utils.GenerateToken(7, nil)
	assert.NoError(t, err)

	req, _ := http.NewRequest("GET", "/me?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
}

func TestAuthMiddlewareRejectsMissingOrGarbageToken(t *testing.T) {
	router := identityRouter(AuthMiddleware())

	req, _ := http.NewRequest("GET", "/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req, _ = http.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsRevokedToken(t *testing.T) {
	router := identityRouter(AuthMiddleware())

	token, err := utils.GenerateToken(13, []string{"customer"})
	assert.NoError(t, err)

	req, _ := http.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	utils.BlacklistToken(token)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketAuthMiddlewareQueryToken(t *testing.T) {
	router := identityRouter(WebSocketAuthMiddleware())

	token, err := utils.GenerateToken(21, []string{"customer"})
	assert.NoError(t, err)

	req, _ := http.NewRequest("GET", "/me?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":21`)

	req, _ = http.NewRequest("GET", "/me", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("roles", []string{"service"})
		c.Next()
	})
	r.GET("/svc", RequireRole("service"), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/adm", RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest("GET", "/svc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest("GET", "/adm", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
