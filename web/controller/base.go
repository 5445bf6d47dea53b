// Package controller provides the HTTP handlers of the JSON API: session,
// login and logout, registration, profile editing, photos and the admin
// user listing.
package controller

import (
	"strconv"

	"github.com/JosKno/CapaIntermedia/web/locale"
	"github.com/JosKno/CapaIntermedia/web/session"

	"github.com/gin-gonic/gin"
)

// BaseController provides the helpers shared by all controllers.
type BaseController struct{}

// canActOn reports whether the logged in user may read or change account id.
func (a *BaseController) canActOn(c *gin.Context, id int) bool {
	user := session.GetLoginUser(c)
	if user == nil {
		return false
	}
	return user.Id == id || user.IsAdmin
}

func (a *BaseController) currentUserId(c *gin.Context) int {
	if user := session.GetLoginUser(c); user != nil {
		return user.Id
	}
	return 0
}

// paramId parses a positive integer path parameter.
func paramId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// I18nWeb translates a message for the current request.
func I18nWeb(c *gin.Context, name string, params ...string) string {
	return locale.I18n(c, name, params...)
}
