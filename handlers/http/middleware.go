package httpHandler

import (
	"context"
	"strings"

	"safr-server/entities"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "current_user"

// TokenVerifier resolves a bearer token to its user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*entities.User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller for CurrentUser.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := verifier.Verify(c.Request.Context(), BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) *entities.User {
	user, _ := c.MustGet(currentUserKey).(*entities.User)
	return user
}
