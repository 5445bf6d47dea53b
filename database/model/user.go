package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Gender values accepted for User.Gender.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

var Genders = []string{GenderMale, GenderFemale, GenderOther}

// User is a registered account. Password holds the bcrypt hash and Photo the
// re-encoded JPEG; neither is ever serialised.
type User struct {
	Id           int       `json:"id" gorm:"primaryKey;autoIncrement"`
	FullName     string    `json:"full_name" gorm:"not null"`
	FirstNameKey string    `json:"-" gorm:"index"`
	BirthDate    string    `json:"birth_date" gorm:"size:10;not null"`
	Gender       string    `json:"gender" gorm:"size:16;not null"`
	BirthCountry string    `json:"birth_country" gorm:"not null"`
	Nationality  string    `json:"nationality" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Password     string    `json:"-" gorm:"not null"`
	RegisteredAt time.Time `json:"registered_at" gorm:"autoCreateTime"`
	Photo        []byte    `json:"-"`
	IsAdmin      bool      `json:"is_admin" gorm:"default:false"`
}

func (User) TableName() string {
	return "users"
}

// FirstNameKey returns the case-folded first word of fullName, the value
// stored in User.FirstNameKey and matched by first-name login.
func FirstNameKey(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	return cases.Fold().String(fields[0])
}

// HasPhoto reports whether a profile photo is stored.
func (u *User) HasPhoto() bool {
	return len(u.Photo) > 0
}
