package middleware

import (
	"strings"
	"time"

	"github.com/JosKno/CapaIntermedia/logger"
	"github.com/JosKno/CapaIntermedia/web/session"

	"github.com/gin-gonic/gin"
)

// AuditMiddleware logs every API call once it has completed. Server errors
// are logged at error level, client errors at warning level.
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if !strings.HasPrefix(path, "/api/") {
			return
		}

		actor := "anonymous"
		if user := session.GetLoginUser(c); user != nil {
			actor = user.Email
		}
		status := c.Writer.Status()
		line := []any{
			GetRequestID(c), c.ClientIP(), actor,
			c.Request.Method, path, status, time.Since(start).Round(time.Microsecond),
		}

		switch {
		case status >= 500:
			logger.Errorf("%s %s %s %s %s -> %d (%s)", line...)
		case status >= 400:
			logger.Warningf("%s %s %s %s %s -> %d (%s)", line...)
		default:
			logger.Debugf("%s %s %s %s %s -> %d (%s)", line...)
		}
	}
}
