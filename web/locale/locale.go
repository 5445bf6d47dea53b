// Package locale translates the messages returned by the HTTP API. The
// language comes from the lang cookie or the Accept-Language header.
package locale

import (
	"embed"
	"io/fs"
	"strings"
	"sync"

	"github.com/JosKno/CapaIntermedia/logger"

	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed translation/*
var translationFS embed.FS

const localizerKey = "localizer"

var (
	bundleMu   sync.Mutex
	i18nBundle *i18n.Bundle
)

// InitLocalizer parses every translation file of fsys. A nil fsys loads the
// translations compiled into the binary.
func InitLocalizer(fsys fs.FS) error {
	if fsys == nil {
		fsys = translationFS
	}
	b := i18n.NewBundle(language.MustParse("en-US"))
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	if err := parseTranslationFiles(fsys, b); err != nil {
		return err
	}

	bundleMu.Lock()
	i18nBundle = b
	bundleMu.Unlock()
	return nil
}

func bundle() *i18n.Bundle {
	bundleMu.Lock()
	b := i18nBundle
	bundleMu.Unlock()
	if b != nil {
		return b
	}
	if err := InitLocalizer(nil); err != nil {
		logger.Warning("i18n load failed:", err)
		b = i18n.NewBundle(language.MustParse("en-US"))
		bundleMu.Lock()
		i18nBundle = b
		bundleMu.Unlock()
		return b
	}
	bundleMu.Lock()
	defer bundleMu.Unlock()
	return i18nBundle
}

// LocalizerMiddleware picks the request language and stores a localizer in
// the gin context.
func LocalizerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var lang string
		if cookie, err := c.Request.Cookie("lang"); err == nil {
			lang = cookie.Value
		}
		accept := c.GetHeader("Accept-Language")

		c.Set(localizerKey, i18n.NewLocalizer(bundle(), lang, accept))
		c.Next()
	}
}

// I18n translates key for the request. params are "name==value" pairs used
// as template data. The key itself is returned when no translation exists.
func I18n(c *gin.Context, key string, params ...string) string {
	var localizer *i18n.Localizer
	if v, ok := c.Get(localizerKey); ok {
		localizer, _ = v.(*i18n.Localizer)
	}
	if localizer == nil {
		localizer = i18n.NewLocalizer(bundle())
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: createTemplateData(params),
	})
	if err != nil {
		logger.Warningf("Failed to localize message %s: %v", key, err)
		return key
	}
	return msg
}

func createTemplateData(params []string, separator ...string) map[string]any {
	sep := "=="
	if len(separator) > 0 {
		sep = separator[0]
	}

	templateData := make(map[string]any, len(params))
	for _, param := range params {
		name, value, ok := strings.Cut(param, sep)
		if !ok {
			continue
		}
		templateData[name] = value
	}
	return templateData
}

func parseTranslationFiles(fsys fs.FS, b *i18n.Bundle) error {
	return fs.WalkDir(fsys, "translation", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		_, err = b.ParseMessageFileBytes(data, path)
		return err
	})
}
