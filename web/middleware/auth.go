// Package middleware holds the gin handlers that run around the API
// controllers: guards, rate limiting, request ids and access logging.
package middleware

import (
	"net/http"

	"github.com/JosKno/CapaIntermedia/web/session"

	"github.com/gin-gonic/gin"
)

const (
	LoginPage = "/login.html"
	IndexPage = "/index.html"
)

// RequireLogin stops anonymous requests. API callers get a 401 envelope and
// browser navigations are sent to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if session.IsLogin(c) {
			c.Next()
			return
		}
		if isAPIRequest(c) {
			abortJSON(c, http.StatusUnauthorized, "auth.unauthorized")
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, LoginPage)
		c.Abort()
	}
}
