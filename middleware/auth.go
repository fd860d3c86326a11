package middleware

import (
	"net/http"
	"strings"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"
	"dost-pmns-api/services"

	"github.com/gin-gonic/gin"
)

const (
	ctxUser   = "currentUser"
	ctxClaims = "tokenClaims"
)

// AuthMiddleware validates the bearer token and loads the user it names.
// The user is re-read on every request so deactivation takes effect
// immediately.
func AuthMiddleware() gin.HandlerFunc {
	auth := services.NewAuthService(nil)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperror.Unauthorized("Authorization header is required"))
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
			abortWithError(c, apperror.Unauthorized("Invalid authorization header format"))
			return
		}

		claims, err := auth.ParseToken(strings.TrimSpace(tokenString))
		if err != nil {
			abortWithError(c, err)
			return
		}
		user, err := auth.Principal(claims)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(ctxClaims, claims)
		c.Set(ctxUser, user)
		c.Set("userID", user.ID)
		c.Set("role", user.Role)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// RequireRole rejects users whose role is not listed.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortWithError(c, apperror.Unauthorized(""))
			return
		}
		if !user.HasRole(roles...) {
			abortWithError(c, apperror.Forbidden("Insufficient permissions"))
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, err error) {
	ae := apperror.From(err)
	body := gin.H{"success": false, "message": ae.Message, "error": ae.Code}
	if ae.Status == http.StatusInternalServerError {
		body["message"] = "Internal server error"
	}
	c.AbortWithStatusJSON(ae.Status, body)
}
