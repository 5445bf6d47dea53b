// Package common provides small helpers shared by the server packages.
package common

import (
	"errors"

	"github.com/JosKno/CapaIntermedia/logger"
)

// Combine joins the non-nil errors into one, or returns nil.
func Combine(errs ...error) error {
	return errors.Join(errs...)
}

// Recover stops a panic in the calling goroutine and logs it under msg. It
// must be deferred directly.
func Recover(msg string) any {
	panicErr := recover()
	if panicErr != nil && msg != "" {
		logger.Error(msg, "panic:", panicErr)
	}
	return panicErr
}
