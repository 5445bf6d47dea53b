package service

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/JosKno/CapaIntermedia/config"
	"github.com/JosKno/CapaIntermedia/database"
	"github.com/JosKno/CapaIntermedia/util/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodPassword = "Secret1!"

func setupDB(t *testing.T) *UserService {
	t.Helper()
	cfg := config.GetDefaultDatabaseConfig()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "capa.db")
	require.NoError(t, database.InitDB(cfg))
	t.Cleanup(func() { _ = database.CloseDB() })
	return &UserService{}
}

func registerForm(name, email string) *RegisterForm {
	return &RegisterForm{
		FullName:     name,
		BirthDate:    "1990-05-01",
		Gender:       "female",
		BirthCountry: "Mexico",
		Nationality:  "Mexican",
		Email:        email,
		Password:     goodPassword,
	}
}

func mustCreate(t *testing.T, s *UserService, name, email string) int {
	t.Helper()
	id, err := s.Create(registerForm(name, email), nil)
	require.NoError(t, err)
	return id
}

func TestCreateAndLoginByEmail(t *testing.T) {
	s := setupDB(t)
	id := mustCreate(t, s, "Ana <b>Lopez</b>", "  ana@example.com ")

	user, err := s.Login("ana@example.com", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, id, user.Id)
	assert.Equal(t, "Ana Lopez", user.FullName)
	assert.Empty(t, user.Password)
	assert.False(t, user.IsAdmin)
}

func TestCreateAggregatesErrors(t *testing.T) {
	s := setupDB(t)

	form := &RegisterForm{
		FullName:     "Al",
		BirthDate:    "2999-01-01",
		Gender:       "unknown",
		BirthCountry: "M",
		Nationality:  "",
		Email:        "a@@b.com",
		Password:     "short",
	}
	_, err := s.Create(form, nil)
	require.Error(t, err)

	var verr *validator.Error
	require.True(t, errors.As(err, &verr))
	msg := err.Error()
	assert.Contains(t, msg, "full name")
	assert.Contains(t, msg, "exactly one @")
	assert.Contains(t, msg, "uppercase")
	assert.Contains(t, msg, "future")
	assert.Contains(t, msg, "gender")
	assert.Contains(t, msg, "birth country")
	assert.Contains(t, msg, "nationality")
}

func TestCreateDuplicateEmail(t *testing.T) {
	s := setupDB(t)
	mustCreate(t, s, "Ana Lopez", "ana@example.com")

	_, err := s.Create(registerForm("Other Person", "ana@example.com"), nil)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginFirstNameAmbiguity(t *testing.T) {
	s := setupDB(t)
	mustCreate(t, s, "Ana Lopez", "ana.lopez@example.com")
	mustCreate(t, s, "ana Martinez", "ana.martinez@example.com")

	_, err := s.Login("Ana", goodPassword)
	assert.ErrorIs(t, err, ErrAmbiguousIdentifier)

	user, err := s.Login("ana.martinez@example.com", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, "ana Martinez", user.FullName)
}

func TestLoginByFirstName(t *testing.T) {
	s := setupDB(t)
	id := mustCreate(t, s, "Bruno Diaz", "bruno@example.com")
	mustCreate(t, s, "Brunella Rossi", "brunella@example.com")

	user, err := s.Login("  BRUNO ", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, id, user.Id)

	_, err = s.Login("Bruno Diaz", goodPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login("%", goodPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginFirstNameFoldsAccents(t *testing.T) {
	s := setupDB(t)
	mustCreate(t, s, "Ángela López", "angela.lopez@example.com")
	mustCreate(t, s, "ángela Pérez", "angela.perez@example.com")
	id := mustCreate(t, s, "Óscar Ruiz", "oscar@example.com")

	_, err := s.Login("Ángela", goodPassword)
	assert.ErrorIs(t, err, ErrAmbiguousIdentifier)
	_, err = s.Login("ÁNGELA", goodPassword)
	assert.ErrorIs(t, err, ErrAmbiguousIdentifier)

	user, err := s.Login("óscar", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, id, user.Id)
}

func TestLoginFirstNameFollowsRename(t *testing.T) {
	s := setupDB(t)
	id := mustCreate(t, s, "Eloísa Paz", "eloisa@example.com")

	form := &ProfileForm{
		Id:           id,
		FullName:     "Íñigo Paz",
		BirthDate:    "1990-05-01",
		Gender:       "male",
		BirthCountry: "Spain",
		Nationality:  "Spanish",
		Email:        "eloisa@example.com",
	}
	require.NoError(t, s.UpdateProfile(id, form, nil))

	_, err := s.Login("eloísa", goodPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	user, err := s.Login("íñigo", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, id, user.Id)
}

func TestLoginNameDisabled(t *testing.T) {
	t.Setenv("CAPA_NAME_LOGIN", "false")
	s := setupDB(t)
	mustCreate(t, s, "Carla Ruiz", "carla@example.com")

	_, err := s.Login("Carla", goodPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	s := setupDB(t)
	mustCreate(t, s, "Dora Vega", "dora@example.com")

	_, wrongPassword := s.Login("dora@example.com", "Wrong1!!")
	_, unknownUser := s.Login("nobody@example.com", goodPassword)
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestUpdateProfile(t *testing.T) {
	s := setupDB(t)
	id := mustCreate(t, s, "Eva Soto", "eva@example.com")
	mustCreate(t, s, "Fede Paz", "fede@example.com")

	form := &ProfileForm{
		Id:           id,
		FullName:     "Eva Maria Soto",
		BirthDate:    "1991-02-03",
		Gender:       "other",
		BirthCountry: "Chile",
		Nationality:  "Chilean",
		Email:        "fede@example.com",
	}
	assert.ErrorIs(t, s.UpdateProfile(id, form, nil), ErrEmailTaken)

	form.Email = "eva@example.com"
	form.NewPassword = "Another2@"
	require.NoError(t, s.UpdateProfile(id, form, []byte{0xFF, 0xD8, 0xFF}))

	user, err := s.GetUser(id)
	require.NoError(t, err)
	assert.Equal(t, "Eva Maria Soto", user.FullName)
	assert.Equal(t, "other", user.Gender)
	assert.Empty(t, user.Password)
	assert.Nil(t, user.Photo)

	photo, err := s.GetProfilePhoto(id)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, photo)

	_, err = s.Login("eva@example.com", "Another2@")
	assert.NoError(t, err)

	form.NewPassword = "weak"
	var verr *validator.Error
	assert.True(t, errors.As(s.UpdateProfile(id, form, nil), &verr))

	form.NewPassword = ""
	assert.ErrorIs(t, s.UpdateProfile(9999, form, nil), ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	s := setupDB(t)
	id := mustCreate(t, s, "Gabi Luna", "gabi@example.com")

	assert.ErrorIs(t, s.ChangePassword(id, "Wrong1!!", "Newpass1!"), ErrWrongPassword)
	assert.ErrorIs(t, s.ChangePassword(9999, goodPassword, "Newpass1!"), ErrUserNotFound)

	var verr *validator.Error
	assert.True(t, errors.As(s.ChangePassword(id, goodPassword, "newpass"), &verr))

	require.NoError(t, s.ChangePassword(id, goodPassword, "Newpass1!"))
	_, err := s.Login("gabi@example.com", goodPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login("gabi@example.com", "Newpass1!")
	assert.NoError(t, err)
}

func TestPhotos(t *testing.T) {
	s := setupDB(t)
	id := mustCreate(t, s, "Hugo Rey", "hugo@example.com")

	photo, err := s.GetProfilePhoto(id)
	require.NoError(t, err)
	assert.Empty(t, photo)

	require.NoError(t, s.UpdatePhoto(id, []byte("jpeg")))
	photo, err = s.GetProfilePhoto(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), photo)

	assert.ErrorIs(t, s.UpdatePhoto(9999, []byte("jpeg")), ErrUserNotFound)
	_, err = s.GetProfilePhoto(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListUsersAndSetAdmin(t *testing.T) {
	s := setupDB(t)
	first := mustCreate(t, s, "Ines Mora", "ines@example.com")
	second := mustCreate(t, s, "Juan Gil", "juan@example.com")

	users, err := s.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, second, users[0].Id)
	assert.Equal(t, first, users[1].Id)
	for _, u := range users {
		assert.Empty(t, u.Password)
		assert.Empty(t, u.Photo)
	}

	require.NoError(t, s.SetAdmin("ines@example.com", true))
	user, err := s.GetUser(first)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	assert.ErrorIs(t, s.SetAdmin("ghost@example.com", true), ErrUserNotFound)
}

func TestEmptyListIsNotNil(t *testing.T) {
	s := setupDB(t)
	users, err := s.ListUsers()
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestFormMissingFields(t *testing.T) {
	f := &RegisterForm{FullName: "Ana", Email: " "}
	assert.Equal(t, []string{"birth_date", "gender", "birth_country", "nationality", "email", "password"}, f.MissingFields())

	p := &ProfileForm{FullName: "Ana", BirthDate: "1990-01-01", Gender: "female", BirthCountry: "MX", Nationality: "MX", Email: "a@b.com"}
	assert.Empty(t, p.MissingFields())
}
