package service

import (
	"strings"

	"github.com/JosKno/CapaIntermedia/database/model"
	"github.com/JosKno/CapaIntermedia/util/validator"
)

// LoginForm is the body of a login request. Identifier is an email address
// or a first name.
type LoginForm struct {
	Identifier string `json:"identifier" form:"identifier"`
	Password   string `json:"password" form:"password"`
}

// RegisterForm is the body of a registration request, sent either as
// multipart form data or as JSON with an optional base64 photo.
type RegisterForm struct {
	FullName     string `json:"full_name" form:"full_name"`
	BirthDate    string `json:"birth_date" form:"birth_date"`
	Gender       string `json:"gender" form:"gender"`
	BirthCountry string `json:"birth_country" form:"birth_country"`
	Nationality  string `json:"nationality" form:"nationality"`
	Email        string `json:"email" form:"email"`
	Password     string `json:"password" form:"password"`
	PhotoBase64  string `json:"photo_base64" form:"photo_base64"`
}

// MissingFields lists the required fields left blank.
func (f *RegisterForm) MissingFields() []string {
	return blank(map[string]string{
		"full_name":     f.FullName,
		"birth_date":    f.BirthDate,
		"gender":        f.Gender,
		"birth_country": f.BirthCountry,
		"nationality":   f.Nationality,
		"email":         f.Email,
		"password":      f.Password,
	}, "full_name", "birth_date", "gender", "birth_country", "nationality", "email", "password")
}

// Validate runs every check and reports all failures together.
func (f *RegisterForm) Validate() error {
	_, ageErr := validator.ValidateAge(f.BirthDate)
	return validator.Join(
		validator.ValidateTextField(f.FullName, "full name", 3),
		validator.ValidateEmail(f.Email),
		validator.ValidatePassword(f.Password),
		ageErr,
		validator.ValidateEnum(strings.TrimSpace(f.Gender), model.Genders, "gender"),
		validator.ValidateTextField(f.BirthCountry, "birth country", 2),
		validator.ValidateTextField(f.Nationality, "nationality", 2),
	)
}

// ProfileForm is the body of a profile update. NewPassword is optional.
type ProfileForm struct {
	Id           int    `json:"id" form:"id"`
	FullName     string `json:"full_name" form:"full_name"`
	BirthDate    string `json:"birth_date" form:"birth_date"`
	Gender       string `json:"gender" form:"gender"`
	BirthCountry string `json:"birth_country" form:"birth_country"`
	Nationality  string `json:"nationality" form:"nationality"`
	Email        string `json:"email" form:"email"`
	NewPassword  string `json:"new_password" form:"new_password"`
}

func (f *ProfileForm) MissingFields() []string {
	return blank(map[string]string{
		"full_name":     f.FullName,
		"birth_date":    f.BirthDate,
		"gender":        f.Gender,
		"birth_country": f.BirthCountry,
		"nationality":   f.Nationality,
		"email":         f.Email,
	}, "full_name", "birth_date", "gender", "birth_country", "nationality", "email")
}

func (f *ProfileForm) Validate() error {
	_, ageErr := validator.ValidateAge(f.BirthDate)
	var passwordErr error
	if f.NewPassword != "" {
		passwordErr = validator.ValidatePassword(f.NewPassword)
	}
	return validator.Join(
		validator.ValidateTextField(f.FullName, "full name", 3),
		validator.ValidateEmail(f.Email),
		ageErr,
		validator.ValidateEnum(strings.TrimSpace(f.Gender), model.Genders, "gender"),
		validator.ValidateTextField(f.BirthCountry, "birth country", 2),
		validator.ValidateTextField(f.Nationality, "nationality", 2),
		passwordErr,
	)
}

// PasswordForm is the body of a password change.
type PasswordForm struct {
	Id              int    `json:"id" form:"id"`
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
}

func blank(values map[string]string, order ...string) []string {
	var missing []string
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
