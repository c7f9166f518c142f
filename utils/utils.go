package utils

import (
	"log/slog"

	"github.com/pkg/errors"
)

func Loge(e error) {
	if e != nil {
		slog.Error("", "error", e)
	}
}

func Logwe(e error) {
	if e != nil {
		slog.Warn("", "error", e)
	}
}

// Guard runs fn and turns a panic into an error so a single failing unit of
// work does not take down the loop calling it.
func Guard(name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = errors.Wrapf(e, "%s panicked", name)
			} else {
				err = errors.Errorf("%s panicked: %v", name, r)
			}
		}
	}()
	fn()
	return nil
}
