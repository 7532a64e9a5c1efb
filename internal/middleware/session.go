package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/draftdesk/identity/internal/constants"
	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/model"
	"github.com/draftdesk/identity/internal/repository"
	"github.com/draftdesk/identity/internal/service"
)

const currentUserKey = "currentUser"

// SessionGuard authenticates requests from the accessToken cookie. A
// token that validates but carries a stale token version gets the
// distinct session-expired response, so clients know to sign in again
// rather than treat it as a bad request.
func SessionGuard(tokens *service.TokenService, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(constants.AccessTokenCookie)
		if err != nil || cookie == "" {
			abortUnauthorized(c, apperrors.ErrUnauthorized)
			return
		}

		claims, err := tokens.ValidateToken(cookie)
		if err != nil {
			abortUnauthorized(c, apperrors.ErrUnauthorized)
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil || user == nil {
			abortUnauthorized(c, apperrors.ErrUnauthorized)
			return
		}

		if user.TokenVersion != claims.TokenVersion {
			abortUnauthorized(c, apperrors.ErrSessionExpired)
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user resolved by SessionGuard, or nil.
func CurrentUser(c *gin.Context) *model.User {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*model.User)
	if !ok {
		return nil
	}
	return user
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
}
