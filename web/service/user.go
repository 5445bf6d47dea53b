// Package service implements the account operations behind the HTTP API on
// top of the database package.
package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/JosKno/CapaIntermedia/config"
	"github.com/JosKno/CapaIntermedia/database"
	"github.com/JosKno/CapaIntermedia/database/model"
	"github.com/JosKno/CapaIntermedia/logger"
	"github.com/JosKno/CapaIntermedia/util/crypto"
	"github.com/JosKno/CapaIntermedia/util/validator"
	"github.com/JosKno/CapaIntermedia/web/cache"
)

var (
	ErrInvalidCredentials  = errors.New("incorrect credentials")
	ErrAmbiguousIdentifier = errors.New("multiple users share that first name, please use your email address")
	ErrServer              = errors.New("server error")
	ErrEmailTaken          = errors.New("email already in use")
	ErrUserNotFound        = errors.New("user not found")
	ErrWrongPassword       = errors.New("current password is incorrect")
)

// publicColumns are the users columns safe to hand to clients.
var publicColumns = []string{
	"id", "full_name", "birth_date", "gender", "birth_country",
	"nationality", "email", "registered_at", "is_admin",
}

type UserService struct{}

func serverError(op string, err error) error {
	logger.Errorf("%s: %v", op, err)
	return fmt.Errorf("%w: %w", ErrServer, err)
}

// Login authenticates by exact email or, when enabled, by first name. Wrong
// identifiers and wrong passwords are reported identically. The returned user
// carries neither password hash nor photo.
func (s *UserService) Login(identifier, password string) (*model.User, error) {
	identifier = strings.TrimSpace(identifier)
	db := database.GetDB()

	user := &model.User{}
	err := db.Omit("photo").Where("email = ?", identifier).First(user).Error
	switch {
	case database.IsNotFound(err):
		if !config.IsNameLoginEnabled() {
			crypto.BurnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		user, err = s.findByFirstName(identifier)
		if errors.Is(err, ErrUserNotFound) {
			crypto.BurnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, serverError("login lookup", err)
	}

	if !crypto.CheckPasswordHash(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	user.Password = ""
	user.Photo = nil
	return user, nil
}

func (s *UserService) findByFirstName(name string) (*model.User, error) {
	if name == "" || strings.ContainsFunc(name, unicode.IsSpace) {
		return nil, ErrUserNotFound
	}

	var matches []model.User
	err := database.GetDB().Omit("photo").
		Where("first_name_key = ?", model.FirstNameKey(validator.Sanitize(name))).
		Limit(2).
		Find(&matches).Error
	if err != nil {
		return nil, serverError("first name lookup", err)
	}
	switch len(matches) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return &matches[0], nil
	}
	return nil, ErrAmbiguousIdentifier
}

// Create validates form, hashes the password and stores the account with the
// optional processed photo. It returns the new user id.
func (s *UserService) Create(form *RegisterForm, photo []byte) (int, error) {
	if err := form.Validate(); err != nil {
		return 0, err
	}

	hash, err := crypto.HashPasswordAsBcrypt(form.Password)
	if err != nil {
		return 0, serverError("hash password", err)
	}

	fullName := validator.Sanitize(form.FullName)
	user := &model.User{
		FullName:     fullName,
		FirstNameKey: model.FirstNameKey(fullName),
		BirthDate:    strings.TrimSpace(form.BirthDate),
		Gender:       strings.TrimSpace(form.Gender),
		BirthCountry: validator.Sanitize(form.BirthCountry),
		Nationality:  validator.Sanitize(form.Nationality),
		Email:        strings.TrimSpace(form.Email),
		Password:     hash,
		Photo:        photo,
	}

	res, err := database.RegisterUser(user)
	if err != nil {
		return 0, serverError("register user", err)
	}
	switch res.Code {
	case 201:
		cache.InvalidateUserList()
		logger.Infof("registered user %d <%s>", res.UserId, user.Email)
		return res.UserId, nil
	case 409:
		return 0, ErrEmailTaken
	}
	return 0, serverError("register user", errors.New(res.Message))
}

// GetUser returns the public fields of one user.
func (s *UserService) GetUser(id int) (*model.User, error) {
	user := &model.User{}
	err := database.GetDB().Select(publicColumns).Where("id = ?", id).First(user).Error
	if database.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, serverError("get user", err)
	}
	return user, nil
}

// ListUsers returns every user, newest first, without password or photo.
func (s *UserService) ListUsers() ([]model.User, error) {
	var users []model.User
	err := cache.GetOrSet(cache.KeyUserList, &users, cache.TTLUserList, func() ([]model.User, error) {
		var list []model.User
		err := database.GetDB().Select(publicColumns).
			Order("registered_at DESC").Order("id DESC").
			Find(&list).Error
		return list, err
	})
	if err != nil {
		return nil, serverError("list users", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// GetProfilePhoto returns the stored photo, or nil when the user has none.
func (s *UserService) GetProfilePhoto(id int) ([]byte, error) {
	user := &model.User{}
	err := database.GetDB().Select("id", "photo").Where("id = ?", id).First(user).Error
	if database.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, serverError("get photo", err)
	}
	return user.Photo, nil
}

// UpdateProfile rewrites the editable fields of user id in one statement.
// photo and the new password are only written when provided.
func (s *UserService) UpdateProfile(id int, form *ProfileForm, photo []byte) error {
	if err := form.Validate(); err != nil {
		return err
	}

	db := database.GetDB()
	email := strings.TrimSpace(form.Email)

	if _, err := s.GetUser(id); err != nil {
		return err
	}

	var taken int64
	if err := db.Model(&model.User{}).Where("email = ? AND id <> ?", email, id).Count(&taken).Error; err != nil {
		return serverError("check email", err)
	}
	if taken > 0 {
		return ErrEmailTaken
	}

	fullName := validator.Sanitize(form.FullName)
	updates := map[string]any{
		"full_name":      fullName,
		"first_name_key": model.FirstNameKey(fullName),
		"birth_date":     strings.TrimSpace(form.BirthDate),
		"gender":         strings.TrimSpace(form.Gender),
		"birth_country":  validator.Sanitize(form.BirthCountry),
		"nationality":    validator.Sanitize(form.Nationality),
		"email":          email,
	}
	if form.NewPassword != "" {
		hash, err := crypto.HashPasswordAsBcrypt(form.NewPassword)
		if err != nil {
			return serverError("hash password", err)
		}
		updates["password"] = hash
	}
	if len(photo) > 0 {
		updates["photo"] = photo
	}

	err := db.Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
	if database.IsDuplicate(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return serverError("update profile", err)
	}
	cache.InvalidateUserList()
	return nil
}

// ChangePassword replaces the password of user id after checking the
// current one.
func (s *UserService) ChangePassword(id int, current, next string) error {
	if err := validator.ValidatePassword(next); err != nil {
		return err
	}

	db := database.GetDB()
	user := &model.User{}
	err := db.Select("id", "password").Where("id = ?", id).First(user).Error
	if database.IsNotFound(err) {
		return ErrUserNotFound
	}
	if err != nil {
		return serverError("load password", err)
	}
	if !crypto.CheckPasswordHash(user.Password, current) {
		return ErrWrongPassword
	}

	hash, err := crypto.HashPasswordAsBcrypt(next)
	if err != nil {
		return serverError("hash password", err)
	}
	if err := db.Model(&model.User{}).Where("id = ?", id).Update("password", hash).Error; err != nil {
		return serverError("update password", err)
	}
	return nil
}

// UpdatePhoto stores an already processed photo for user id.
func (s *UserService) UpdatePhoto(id int, blob []byte) error {
	return s.updateColumn(id, "photo", blob)
}

// SetAdmin grants or revokes the administrator role of the user with email.
func (s *UserService) SetAdmin(email string, admin bool) error {
	res := database.GetDB().Model(&model.User{}).
		Where("email = ?", strings.TrimSpace(email)).
		Update("is_admin", admin)
	if res.Error != nil {
		return serverError("set admin", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	cache.InvalidateUserList()
	return nil
}

func (s *UserService) updateColumn(id int, column string, value any) error {
	res := database.GetDB().Model(&model.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return serverError("update "+column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
