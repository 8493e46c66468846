package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/platform/identity"
)

// IdentityKey is the key used to store the authenticated caller in the context
const IdentityKey = "identity"

// RequireAuth verifies the bearer token and stores the caller identity
func RequireAuth(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		caller, err := verifier.Verify(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			return
		}

		c.Set(IdentityKey, caller)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed. Must run after RequireAuth.
func RequireRole(roles ...account.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := GetIdentity(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		for _, role := range roles {
			if caller.Role == role {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, "FORBIDDEN", "role "+string(caller.Role)+" may not access this resource")
	}
}

// GetIdentity retrieves the authenticated caller from the gin context if present
func GetIdentity(c *gin.Context) (*identity.Identity, bool) {
	if value, exists := c.Get(IdentityKey); exists {
		if caller, ok := value.(*identity.Identity); ok {
			return caller, true
		}
	}
	return nil, false
}

func abortWithError(c *gin.Context, status int, code, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, response)
}
