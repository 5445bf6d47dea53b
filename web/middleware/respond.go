package middleware

import (
	"strings"

	"github.com/JosKno/CapaIntermedia/web/entity"
	"github.com/JosKno/CapaIntermedia/web/locale"

	"github.com/gin-gonic/gin"
)

// isAPIRequest reports whether the caller expects JSON rather than a page.
func isAPIRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") ||
		c.GetHeader("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}

func abortJSON(c *gin.Context, status int, key string) {
	c.AbortWithStatusJSON(status, entity.Msg{
		Success: false,
		Message: locale.I18n(c, key),
	})
}
