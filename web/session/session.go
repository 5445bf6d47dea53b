// Package session stores the authenticated identity in the gin session and
// answers the login and role questions asked by guards and handlers.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/JosKno/CapaIntermedia/config"
	"github.com/JosKno/CapaIntermedia/database/model"
	"github.com/JosKno/CapaIntermedia/web/cache"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	keyLoggedIn  = "logged_in"
	keyUserId    = "user_id"
	keyUserName  = "user_name"
	keyUserEmail = "user_email"
	keyIsAdmin   = "is_admin"
	keyLoginTime = "login_time"
)

// LoginUser is the identity snapshot kept in the session.
type LoginUser struct {
	Id        int    `json:"id"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	LoginTime int64  `json:"login_time"`
}

// Login replaces whatever the session held with the identity of user and
// forces a new session id.
func Login(c *gin.Context, user *model.User) error {
	s := sessions.Default(c)
	s.Clear()
	s.Set(keyLoggedIn, true)
	s.Set(keyUserId, user.Id)
	s.Set(keyUserName, user.FullName)
	s.Set(keyUserEmail, user.Email)
	s.Set(keyIsAdmin, user.IsAdmin)
	s.Set(keyLoginTime, time.Now().Unix())
	s.Set(cache.RegenerateKey, true)
	return s.Save()
}

// Logout clears every value, deletes the server record and expires the
// cookie.
func Logout(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.IsSecureCookie(),
		SameSite: http.SameSiteLaxMode,
	})
	return s.Save()
}

func IsLogin(c *gin.Context) bool {
	s := sessions.Default(c)
	loggedIn, _ := s.Get(keyLoggedIn).(bool)
	id, _ := s.Get(keyUserId).(int)
	return loggedIn && id > 0
}

func IsAdmin(c *gin.Context) bool {
	if !IsLogin(c) {
		return false
	}
	admin, _ := sessions.Default(c).Get(keyIsAdmin).(bool)
	return admin
}

// GetLoginUser returns the session identity, or nil for anonymous requests.
func GetLoginUser(c *gin.Context) *LoginUser {
	if !IsLogin(c) {
		return nil
	}
	s := sessions.Default(c)
	u := &LoginUser{}
	u.Id, _ = s.Get(keyUserId).(int)
	u.FullName, _ = s.Get(keyUserName).(string)
	u.Email, _ = s.Get(keyUserEmail).(string)
	u.IsAdmin, _ = s.Get(keyIsAdmin).(bool)
	u.LoginTime, _ = s.Get(keyLoginTime).(int64)
	u.FirstName = firstToken(u.FullName)
	return u
}

// FirstName returns the first word of the logged in user's name.
func FirstName(c *gin.Context) string {
	if u := GetLoginUser(c); u != nil {
		return u.FirstName
	}
	return ""
}

// UpdateIdentity refreshes the display fields after the user edited their
// own profile.
func UpdateIdentity(c *gin.Context, fullName, email string) error {
	if !IsLogin(c) {
		return nil
	}
	s := sessions.Default(c)
	s.Set(keyUserName, fullName)
	s.Set(keyUserEmail, email)
	return s.Save()
}

func firstToken(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
