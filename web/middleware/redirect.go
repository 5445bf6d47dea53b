package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// legacyRoutes maps the old script endpoints onto the current API.
var legacyRoutes = map[string]string{
	"/api/check_session.php":   "/api/session",
	"/api/login.php":           "/api/login",
	"/api/logout.php":          "/api/logout",
	"/api/register.php":        "/api/register",
	"/api/update_user.php":     "/api/profile",
	"/api/change_password.php": "/api/password",
	"/api/change_photo.php":    "/api/photo",
	"/api/get_all_users.php":   "/api/users",
}

// idRoutes take the user id from the query string.
var idRoutes = map[string]string{
	"/api/get_photo.php": "/api/photo/",
	"/api/get_user.php":  "/api/users/",
}

// RedirectMiddleware sends requests for the old .php endpoints to their
// replacements with a 308 so the method and body are kept.
func RedirectMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasSuffix(path, ".php") {
			c.Next()
			return
		}

		query := c.Request.URL.Query()
		target, ok := legacyRoutes[path]
		if !ok {
			prefix, found := idRoutes[path]
			id := query.Get("id")
			if !found || id == "" {
				c.Next()
				return
			}
			target = prefix + id
			query.Del("id")
		}

		if encoded := query.Encode(); encoded != "" {
			target += "?" + encoded
		}
		c.Redirect(http.StatusPermanentRedirect, target)
		c.Abort()
	}
}
