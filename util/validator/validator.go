// Package validator holds the pure input checks used by registration and
// profile updates. Every check returns nil when the input is acceptable and
// an *Error carrying a human readable message otherwise.
package validator

import (
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
)

const (
	MinPasswordLength = 8
	MinAge            = 12
	MaxAge            = 150
	DateLayout        = "2006-01-02"
	passwordSymbols   = "!@#$%^&*()_+-=[]{};:'\",.<>?/\\|`~"
)

var (
	shape          = playground.New()
	consecutiveDot = regexp.MustCompile(`\.{2,}`)
	htmlTag        = regexp.MustCompile(`<[^>]*>`)
)

// Error is the invalid outcome of one or more checks.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, ". ")
}

func invalid(format string, a ...any) error {
	return &Error{Messages: []string{fmt.Sprintf(format, a...)}}
}

// Join folds every failed check into a single *Error so all problems can be
// reported at once. It returns nil when every check passed.
func Join(errs ...error) error {
	var messages []string
	for _, err := range errs {
		if err == nil {
			continue
		}
		var verr *Error
		if errors.As(err, &verr) {
			messages = append(messages, verr.Messages...)
		} else {
			messages = append(messages, err.Error())
		}
	}
	if len(messages) == 0 {
		return nil
	}
	return &Error{Messages: messages}
}

// ValidatePassword requires at least eight characters with an uppercase
// letter, a lowercase letter, a digit and a symbol. The message lists every
// missing requirement.
func ValidatePassword(password string) error {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	var missing []string
	if len(password) < MinPasswordLength {
		missing = append(missing, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	if !hasUpper {
		missing = append(missing, "Password must contain at least one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "Password must contain at least one number")
	}
	if !hasSymbol {
		missing = append(missing, "Password must contain at least one special character (!@#$%^&* etc.)")
	}
	if len(missing) > 0 {
		return &Error{Messages: missing}
	}
	return nil
}

// ValidateEmail checks the shape of an address. Checks run in order and the
// first failure is reported.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("Email cannot be empty")
	}
	if strings.Count(email, "@") != 1 {
		return invalid("Email must contain exactly one @ symbol")
	}
	if err := shape.Var(email, "email"); err != nil {
		return invalid("Email format is not valid")
	}
	if consecutiveDot.MatchString(email) {
		return invalid("Email cannot contain consecutive dots")
	}
	local, domain, _ := strings.Cut(email, "@")
	if local == "" || domain == "" {
		return invalid("Email must look like user@domain.com")
	}
	if !strings.Contains(domain, ".") {
		return invalid("Email domain is not valid")
	}
	return nil
}

// Age returns the number of full years between birth and today.
func Age(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}

// ValidateAge checks a YYYY-MM-DD birth date against the current date.
func ValidateAge(birthDate string) (int, error) {
	return ValidateAgeAt(birthDate, time.Now())
}

// ValidateAgeAt checks a YYYY-MM-DD birth date against today and returns the
// computed age. Dates in the future, ages under 12 and ages over 150 are
// rejected.
func ValidateAgeAt(birthDate string, today time.Time) (int, error) {
	birthDate = strings.TrimSpace(birthDate)
	if birthDate == "" {
		return 0, invalid("Birth date is required")
	}
	birth, err := time.ParseInLocation(DateLayout, birthDate, today.Location())
	if err != nil {
		return 0, invalid("Invalid date format. Use YYYY-MM-DD")
	}
	y, m, d := today.Date()
	if birth.After(time.Date(y, m, d, 0, 0, 0, 0, today.Location())) {
		return 0, invalid("Birth date cannot be in the future")
	}
	age := Age(birth, today)
	if age < MinAge {
		return age, invalid("You must be at least %d years old to register", MinAge)
	}
	if age > MaxAge {
		return age, invalid("Birth date is not valid")
	}
	return age, nil
}

// ValidateTextField requires a non-blank value of at least minLength runes.
func ValidateTextField(value, fieldName string, minLength int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return invalid("The field %s is required", fieldName)
	}
	if utf8.RuneCountInString(value) < minLength {
		return invalid("The field %s must be at least %d characters long", fieldName, minLength)
	}
	return nil
}

// ValidateEnum requires value to be one of allowed.
func ValidateEnum(value string, allowed []string, fieldName string) error {
	if !slices.Contains(allowed, value) {
		return invalid("The value of %s is not valid", fieldName)
	}
	return nil
}

// Sanitize trims free text, strips markup and escapes what is left for safe
// display.
func Sanitize(s string) string {
	s = htmlTag.ReplaceAllString(s, "")
	s = strings.TrimFunc(s, unicode.IsSpace)
	return template.HTMLEscapeString(s)
}
