package controller

import (
	"errors"
	"net/http"
	"strings"
	"text/template"

	"github.com/JosKno/CapaIntermedia/config"
	"github.com/JosKno/CapaIntermedia/logger"
	"github.com/JosKno/CapaIntermedia/web/middleware"
	"github.com/JosKno/CapaIntermedia/web/service"
	"github.com/JosKno/CapaIntermedia/web/session"

	"github.com/gin-gonic/gin"
)

// IndexController handles the session, login and logout routes.
type IndexController struct {
	BaseController

	userService service.UserService
}

// NewIndexController creates a new IndexController and initializes its routes.
func NewIndexController(g *gin.RouterGroup) *IndexController {
	a := &IndexController{}
	a.initRouter(g)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup) {
	limit := middleware.RateLimitMiddleware(middleware.DefaultRateLimitConfig(config.GetLoginRate()))

	g.GET("/session", a.checkSession)
	g.POST("/login", limit, a.login)
	g.POST("/logout", a.logout)
	g.GET("/logout", a.logout)
}

// checkSession reports whether the caller is logged in and who they are.
func (a *IndexController) checkSession(c *gin.Context) {
	user := session.GetLoginUser(c)
	if user == nil {
		jsonPayload(c, http.StatusOK, "", gin.H{"logged_in": false})
		return
	}
	jsonPayload(c, http.StatusOK, "", gin.H{"logged_in": true, "user": user})
}

func (a *IndexController) login(c *gin.Context) {
	var form service.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return
	}
	if strings.TrimSpace(form.Identifier) == "" || form.Password == "" {
		jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "login.required"))
		return
	}

	safeId := template.HTMLEscapeString(form.Identifier)
	user, err := a.userService.Login(form.Identifier, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrAmbiguousIdentifier) {
			logger.Warningf("failed login for %q, IP: %s", safeId, c.ClientIP())
		}
		jsonError(c, err)
		return
	}

	if err := session.Login(c, user); err != nil {
		logger.Warning("Unable to save session:", err)
		jsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "request.serverError"))
		return
	}

	logger.Infof("%s logged in successfully, IP: %s", safeId, c.ClientIP())
	jsonPayload(c, http.StatusOK, I18nWeb(c, "login.success"), gin.H{"user": session.GetLoginUser(c)})
}

// logout always succeeds, even for anonymous callers.
func (a *IndexController) logout(c *gin.Context) {
	if user := session.GetLoginUser(c); user != nil {
		logger.Infof("%s logged out successfully", user.Email)
	}
	if err := session.Logout(c); err != nil {
		logger.Warning("Unable to save session after clearing:", err)
	}
	jsonMsg(c, http.StatusOK, true, I18nWeb(c, "login.loggedOut"))
}
