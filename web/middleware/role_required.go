package middleware

import (
	"net/http"

	"github.com/JosKno/CapaIntermedia/web/session"

	"github.com/gin-gonic/gin"
)

// RequireAdmin lets only administrators through. Anonymous callers are
// treated as in RequireLogin; logged in users without the role get 403 or are
// sent back to the index page.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		api := isAPIRequest(c)
		switch {
		case !session.IsLogin(c):
			if api {
				abortJSON(c, http.StatusUnauthorized, "auth.unauthorized")
				return
			}
			c.Redirect(http.StatusTemporaryRedirect, LoginPage)
			c.Abort()
		case !session.IsAdmin(c):
			if api {
				abortJSON(c, http.StatusForbidden, "auth.forbidden")
				return
			}
			c.Redirect(http.StatusTemporaryRedirect, IndexPage)
			c.Abort()
		default:
			c.Next()
		}
	}
}
