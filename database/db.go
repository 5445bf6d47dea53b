package database

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/JosKno/CapaIntermedia/config"
	"github.com/JosKno/CapaIntermedia/database/model"
	"github.com/JosKno/CapaIntermedia/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	db     *gorm.DB
	dbType config.DatabaseType
)

func initModels() error {
	models := []any{
		&model.User{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			logger.Errorf("Error auto migrating model: %v", err)
			return err
		}
	}
	return backfillFirstNameKeys()
}

// backfillFirstNameKeys fills first_name_key for rows created before the
// column existed.
func backfillFirstNameKeys() error {
	var users []model.User
	err := db.Select("id", "full_name").
		Where("first_name_key IS NULL OR first_name_key = ''").
		Find(&users).Error
	if err != nil {
		return err
	}
	for _, u := range users {
		key := model.FirstNameKey(u.FullName)
		if key == "" {
			continue
		}
		if err := db.Model(&model.User{}).Where("id = ?", u.Id).Update("first_name_key", key).Error; err != nil {
			return err
		}
	}
	if len(users) > 0 {
		logger.Infof("backfilled first name keys for %d users", len(users))
	}
	return nil
}

// InitDB opens the configured database, applies the SQLite pragmas when
// relevant and migrates the schema.
func InitDB(cfg *config.DatabaseConfig) error {
	if err := cfg.ValidateConfig(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectoryExists(); err != nil {
		return err
	}

	var gormLogger gormlogger.Interface
	if config.IsDebug() {
		gormLogger = gormlogger.Default
	} else {
		gormLogger = gormlogger.Discard
	}

	c := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}

	var err error
	if cfg.IsPostgreSQL() {
		db, err = gorm.Open(postgres.Open(cfg.GetDSN()), c)
	} else {
		dsn := cfg.GetDSN() + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
		db, err = gorm.Open(sqlite.Open(dsn), c)
	}
	if err != nil {
		return err
	}
	dbType = cfg.Type

	if cfg.IsSQLite() {
		for _, pragma := range []string{
			"PRAGMA cache_size = -64000;",
			"PRAGMA temp_store = MEMORY;",
			"PRAGMA foreign_keys = ON;",
		} {
			if err := db.Exec(pragma).Error; err != nil {
				return err
			}
		}
	}

	return initModels()
}

func CloseDB() error {
	if db == nil {
		return nil
	}
	if dbType != config.DatabaseTypePostgreSQL {
		if err := Checkpoint(); err != nil {
			logger.Warningf("error executing checkpoint: %v", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	db = nil
	return err
}

func GetDB() *gorm.DB {
	return db
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func IsSQLiteDB(file io.ReaderAt) (bool, error) {
	signature := []byte("SQLite format 3\x00")
	buf := make([]byte, len(signature))
	_, err := file.ReadAt(buf, 0)
	if err != nil {
		return false, err
	}
	return bytes.Equal(buf, signature), nil
}

// UsesSQLite reports whether the open database is SQLite.
func UsesSQLite() bool {
	return db != nil && dbType != config.DatabaseTypePostgreSQL
}

// Checkpoint flushes the SQLite write-ahead log into the main file.
func Checkpoint() error {
	return db.Exec("PRAGMA wal_checkpoint;").Error
}

// RegisterResult is the outcome reported by RegisterUser. Code follows HTTP
// semantics: 201 on success and 409 when the email is already registered.
type RegisterResult struct {
	Code    int
	UserId  int
	Message string
}

const (
	msgRegistered = "User registered successfully"
	msgEmailTaken = "The email is already registered"
)

// RegisterUser inserts u inside one transaction after checking that its
// email is free. A unique index violation raised by a concurrent insert is
// reported the same way as the pre-check.
func RegisterUser(u *model.User) (*RegisterResult, error) {
	result := &RegisterResult{}
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			result.Code = http.StatusConflict
			result.Message = msgEmailTaken
			return nil
		}
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		result.Code = http.StatusCreated
		result.UserId = u.Id
		result.Message = msgRegistered
		return nil
	})
	if IsDuplicate(err) {
		return &RegisterResult{Code: http.StatusConflict, Message: msgEmailTaken}, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
