package controller

import (
	"net/http"
	"strings"

	"github.com/JosKno/CapaIntermedia/logger"
	"github.com/JosKno/CapaIntermedia/web/middleware"
	"github.com/JosKno/CapaIntermedia/web/service"

	"github.com/gin-gonic/gin"
)

// maxLogLines caps a single /logs reply.
const maxLogLines = 1000

// UserAdminController exposes the administrator views over all accounts and
// the recent service log.
type UserAdminController struct {
	userService service.UserService
}

func NewUserAdminController(g *gin.RouterGroup) *UserAdminController {
	a := &UserAdminController{}
	g.GET("/users", middleware.RequireAdmin(), a.list)
	g.GET("/logs/:count", middleware.RequireAdmin(), a.logs)
	return a
}

func (a *UserAdminController) list(c *gin.Context) {
	users, err := a.userService.ListUsers()
	if err != nil {
		jsonError(c, err)
		return
	}
	jsonPayload(c, http.StatusOK, "", gin.H{"users": users, "total": len(users)})
}

// logs returns up to count recent log lines at or above the level query
// parameter (INFO when absent or unknown), newest first.
func (a *UserAdminController) logs(c *gin.Context) {
	count, ok := paramId(c, "count")
	if !ok {
		jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "request.invalidCount"))
		return
	}
	level := strings.ToUpper(c.DefaultQuery("level", "INFO"))
	if !logger.IsLevel(level) {
		level = "INFO"
	}
	lines := logger.GetLogs(min(count, maxLogLines), level)
	if lines == nil {
		lines = []string{}
	}
	jsonPayload(c, http.StatusOK, "", gin.H{"logs": lines, "level": level})
}
