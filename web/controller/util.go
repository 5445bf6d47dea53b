package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JosKno/CapaIntermedia/logger"
	"github.com/JosKno/CapaIntermedia/util/photo"
	"github.com/JosKno/CapaIntermedia/util/validator"
	"github.com/JosKno/CapaIntermedia/web/entity"
	"github.com/JosKno/CapaIntermedia/web/service"

	"github.com/gin-gonic/gin"
)

// jsonMsg sends the bare envelope.
func jsonMsg(c *gin.Context, status int, success bool, msg string) {
	c.JSON(status, entity.Msg{Success: success, Message: msg})
}

// jsonPayload sends a successful envelope carrying extra fields.
func jsonPayload(c *gin.Context, status int, msg string, payload gin.H) {
	c.JSON(status, entity.Envelope(true, msg, payload))
}

// jsonError maps a service error onto a status code and message. Errors not
// known here are answered with a generic 500.
func jsonError(c *gin.Context, err error) {
	var verr *validator.Error
	switch {
	case errors.As(err, &verr):
		jsonMsg(c, http.StatusBadRequest, false, verr.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		jsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "login.invalidCredentials"))
	case errors.Is(err, service.ErrAmbiguousIdentifier):
		jsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "login.ambiguous"))
	case errors.Is(err, service.ErrUserNotFound):
		jsonMsg(c, http.StatusNotFound, false, I18nWeb(c, "user.notFound"))
	case errors.Is(err, service.ErrWrongPassword):
		jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "password.wrongCurrent"))
	case errors.Is(err, service.ErrEmailTaken):
		jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "profile.emailTaken"))
	default:
		if !errors.Is(err, service.ErrServer) {
			logger.Error("unhandled error:", err)
		}
		jsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "request.serverError"))
	}
}

// imageError reports a rejected or unprocessable photo.
func imageError(c *gin.Context, err error, fallbackKey string) {
	var verr *validator.Error
	if errors.As(err, &verr) {
		jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "register.imageError", "Reason=="+verr.Error()))
		return
	}
	logger.Warning("image processing failed:", err)
	jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, fallbackKey))
}

// bindError answers a request whose body could not be decoded. A body cut
// off by the size limit is reported as an upload failure.
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		_, verr := photo.ValidateImage(&photo.Upload{Err: photo.ErrUploadServerSize})
		imageError(c, verr, "register.imageProcess")
		return
	}
	jsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "request.noData"))
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// processUpload reads and processes the optional photo field of a multipart
// request. It returns nil without error when no file was sent.
func processUpload(c *gin.Context, field string) ([]byte, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	up := photo.FromRequest(c.Request, field)
	if up.Missing() {
		return nil, nil
	}
	return photo.ProcessImageForBlob(up, photo.MaxWidth, photo.MaxHeight)
}
