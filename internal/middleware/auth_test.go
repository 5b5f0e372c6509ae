package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/student-attendance-api/internal/models"
	appErrors "github.com/noah-isme/student-attendance-api/pkg/errors"
)

type staticAuthenticator struct{ token string }

func (s staticAuthenticator) Authenticate(credential string) (*models.Principal, error) {
	if credential != s.token {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.Principal{Subject: "shared", Method: models.AuthMethodStaticToken}, nil
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(staticAuthenticator{token: "secret"}))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, "%s", CurrentPrincipal(c).Method)
	})
	return r
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	newAuthRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token secret")
	rec := httptest.NewRecorder()
	newAuthRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid authorization header")
}

func TestAuthRejectsWrongToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	newAuthRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthStoresPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "bearer secret")
	rec := httptest.NewRecorder()
	newAuthRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AuthMethodStaticToken, rec.Body.String())
}

func TestSetCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	SetCacheHit(c, true)

	hit, ok := CacheHit(c)
	assert.True(t, ok)
	assert.True(t, hit)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}
