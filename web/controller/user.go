package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JosKno/CapaIntermedia/config"
	"github.com/JosKno/CapaIntermedia/logger"
	"github.com/JosKno/CapaIntermedia/util/photo"
	"github.com/JosKno/CapaIntermedia/util/validator"
	"github.com/JosKno/CapaIntermedia/web/entity"
	"github.com/JosKno/CapaIntermedia/web/middleware"
	"github.com/JosKno/CapaIntermedia/web/service"
	"github.com/JosKno/CapaIntermedia/web/session"

	"github.com/gin-gonic/gin"
)

// UserController serves registration and the account routes of a user.
type UserController struct {
	BaseController

	userService service.UserService
}

func NewUserController(g *gin.RouterGroup) *UserController {
	a := &UserController{}
	a.initRouter(g)
	return a
}

func (a *UserController) initRouter(g *gin.RouterGroup) {
	limit := middleware.RateLimitMiddleware(middleware.DefaultRateLimitConfig(config.GetLoginRate()))
	g.POST("/register", limit, a.register)
	g.GET("/photo/:id", middleware.NoCache(), a.getPhoto)

	auth := g.Group("", middleware.RequireLogin())
	auth.POST("/profile", a.updateProfile)
	auth.POST("/password", a.changePassword)
	auth.POST("/photo", a.changePhoto)
	auth.GET("/users/:id", a.getUser)
}

func (a *UserController) register(c *gin.Context) {
	form := &service.RegisterForm{}
	if err := c.ShouldBind(form); err != nil {
		bindError(c, err)
		return
	}
	if missing := form.MissingFields(); len(missing) > 0 {
		jsonMsg(c, http.StatusBadRequest, false,
			I18nWeb(c, "register.missingFields", "Fields=="+strings.Join(missing, ", ")))
		return
	}

	var blob []byte
	var err error
	if isMultipart(c) {
		blob, err = processUpload(c, "photo")
		if err != nil {
			imageError(c, err, "register.imageProcess")
			return
		}
	} else if form.PhotoBase64 != "" {
		blob, err = photo.ProcessBase64Image(form.PhotoBase64, photo.MaxWidth, photo.MaxHeight)
		if err != nil {
			var verr *validator.Error
			if errors.As(err, &verr) {
				imageError(c, err, "register.base64Process")
				return
			}
			logger.Warning("base64 image processing failed:", err)
			jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "register.base64Process"))
			return
		}
	}

	id, err := a.userService.Create(form, blob)
	if errors.Is(err, service.ErrEmailTaken) {
		jsonMsg(c, http.StatusConflict, false, I18nWeb(c, "register.emailTaken"))
		return
	}
	if err != nil {
		jsonError(c, err)
		return
	}
	jsonPayload(c, http.StatusCreated, I18nWeb(c, "register.success"), gin.H{"user_id": id})
}

func (a *UserController) updateProfile(c *gin.Context) {
	form := &service.ProfileForm{}
	if err := c.ShouldBind(form); err != nil {
		bindError(c, err)
		return
	}
	if form.Id <= 0 || !a.canActOn(c, form.Id) {
		jsonMsg(c, http.StatusForbidden, false, I18nWeb(c, "profile.editForbidden"))
		return
	}
	if missing := form.MissingFields(); len(missing) > 0 {
		jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "profile.requiredField", "Field=="+missing[0]))
		return
	}

	blob, err := processUpload(c, "photo")
	if err != nil {
		imageError(c, err, "register.imageProcess")
		return
	}

	if err := a.userService.UpdateProfile(form.Id, form, blob); err != nil {
		jsonError(c, err)
		return
	}

	if form.Id == a.currentUserId(c) {
		err := session.UpdateIdentity(c, validator.Sanitize(form.FullName), strings.TrimSpace(form.Email))
		if err != nil {
			logger.Warning("Unable to refresh session identity:", err)
		}
	}
	jsonMsg(c, http.StatusOK, true, I18nWeb(c, "profile.updated"))
}

func (a *UserController) changePassword(c *gin.Context) {
	form := &service.PasswordForm{}
	if err := c.ShouldBind(form); err != nil {
		bindError(c, err)
		return
	}
	if form.Id <= 0 || form.CurrentPassword == "" || form.NewPassword == "" {
		jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "password.required"))
		return
	}
	if !a.canActOn(c, form.Id) {
		jsonMsg(c, http.StatusForbidden, false, I18nWeb(c, "auth.noPermission"))
		return
	}

	if err := a.userService.ChangePassword(form.Id, form.CurrentPassword, form.NewPassword); err != nil {
		jsonError(c, err)
		return
	}
	logger.Infof("password changed for user %d", form.Id)
	jsonMsg(c, http.StatusOK, true, I18nWeb(c, "password.changed"))
}

// changePhoto replaces the photo of the given user, or of the caller when no
// id is sent.
func (a *UserController) changePhoto(c *gin.Context) {
	id := a.currentUserId(c)
	if raw := strings.TrimSpace(c.PostForm("id")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "request.invalidId"))
			return
		}
		id = parsed
	}
	if !a.canActOn(c, id) {
		jsonMsg(c, http.StatusForbidden, false, I18nWeb(c, "auth.noPermission"))
		return
	}

	blob, err := processUpload(c, "photo")
	if err != nil {
		imageError(c, err, "register.imageProcess")
		return
	}
	if blob == nil {
		jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "photo.noFile"))
		return
	}

	if err := a.userService.UpdatePhoto(id, blob); err != nil {
		jsonError(c, err)
		return
	}
	jsonPayload(c, http.StatusOK, I18nWeb(c, "photo.updated"), gin.H{
		"photo_url": entity.PhotoURL(id, time.Now().Unix()),
	})
}

// getPhoto streams the stored photo. Users without one get the placeholder
// with a 404 status so clients can tell the difference.
func (a *UserController) getPhoto(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "request.invalidId"))
		return
	}

	blob, err := a.userService.GetProfilePhoto(id)
	if err != nil && !errors.Is(err, service.ErrUserNotFound) {
		jsonError(c, err)
		return
	}
	if len(blob) == 0 {
		c.Data(http.StatusNotFound, "image/png", photo.Placeholder())
		return
	}
	c.Data(http.StatusOK, photo.GetMimeTypeFromBlob(blob), blob)
}

func (a *UserController) getUser(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "request.invalidId"))
		return
	}
	if !a.canActOn(c, id) {
		jsonMsg(c, http.StatusForbidden, false, I18nWeb(c, "user.viewForbidden"))
		return
	}

	user, err := a.userService.GetUser(id)
	if err != nil {
		jsonError(c, err)
		return
	}
	jsonPayload(c, http.StatusOK, "", gin.H{
		"user": entity.UserView{User: user, PhotoURL: entity.PhotoURL(user.Id, time.Now().Unix())},
	})
}
