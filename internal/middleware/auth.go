package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-attendance-api/internal/models"
	appErrors "github.com/noah-isme/student-attendance-api/pkg/errors"
	"github.com/noah-isme/student-attendance-api/pkg/response"
)

// ContextPrincipalKey is the gin context key storing the authenticated caller.
const ContextPrincipalKey = "currentPrincipal"

type authenticator interface {
	Authenticate(credential string) (*models.Principal, error)
}

// Auth protects routes by requiring "Authorization: Bearer <credential>".
func Auth(auth authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		principal, err := auth.Authenticate(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

// CurrentPrincipal returns the caller stored by Auth.
func CurrentPrincipal(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil
	}
	principal, _ := value.(*models.Principal)
	return principal
}
