package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	for _, key := range []string{"CAPA_DEBUG", "CAPA_PORT", "CAPA_SESSION_MAX_AGE", "CAPA_LOGIN_RATE", "CAPA_NAME_LOGIN", "CAPA_LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	assert.Equal(t, "capa", GetName())
	assert.NotEmpty(t, GetVersion())
	assert.Equal(t, 8080, GetPort())
	assert.Equal(t, 1440, GetSessionMaxAge())
	assert.Equal(t, 20, GetLoginRate())
	assert.True(t, IsNameLoginEnabled())
	assert.Equal(t, Info, GetLogLevel())
	assert.False(t, IsDebug())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CAPA_PORT", "9090")
	t.Setenv("CAPA_LOGIN_RATE", "0")
	t.Setenv("CAPA_NAME_LOGIN", "false")
	t.Setenv("CAPA_DEBUG", "true")

	assert.Equal(t, 9090, GetPort())
	assert.Equal(t, 0, GetLoginRate())
	assert.False(t, IsNameLoginEnabled())
	assert.Equal(t, Debug, GetLogLevel())
}

func TestInvalidIntegersFallBack(t *testing.T) {
	t.Setenv("CAPA_PORT", "eighty")
	assert.Equal(t, 8080, GetPort())

	t.Setenv("CAPA_PORT", "-1")
	assert.Equal(t, 8080, GetPort())
}

func TestDatabaseConfig(t *testing.T) {
	t.Setenv("CAPA_DEBUG", "true")
	t.Setenv("CAPA_DB_TYPE", "")
	t.Setenv("CAPA_DB_PATH", "")

	c := GetDatabaseConfig()
	assert.True(t, c.IsSQLite())
	assert.Equal(t, "db/capa.db", c.GetDSN())
	assert.NoError(t, c.ValidateConfig())

	t.Setenv("CAPA_DB_TYPE", "postgres")
	t.Setenv("CAPA_PG_HOST", "db.internal")
	t.Setenv("CAPA_PG_PORT", "6543")
	t.Setenv("CAPA_PG_PASSWORD", "s3cret")

	c = GetDatabaseConfig()
	assert.True(t, c.IsPostgreSQL())
	assert.Equal(t, "host=db.internal user=capa password=s3cret dbname=capa port=6543 sslmode=disable TimeZone=UTC", c.GetDSN())
	assert.NoError(t, c.ValidateConfig())

	c.Postgres.Port = 70000
	assert.Error(t, c.ValidateConfig())

	c.Type = "mysql"
	assert.Error(t, c.ValidateConfig())
}
