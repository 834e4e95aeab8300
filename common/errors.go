package common

import (
	"path/filepath"
	"runtime"

	"emperror.dev/errors"
	"github.com/jonas747/discordgo/v2"
)

var errMissingToken = errors.New("no bot token set")

// ErrWithCaller returns a new error with the caller prepended to the message
func ErrWithCaller(err error) error {
	pc := make([]uintptr, 1)
	runtime.Callers(3, pc)
	f := runtime.FuncForPC(pc[0])

	return errors.WithMessage(err, filepath.Base(f.Name()))
}

// DiscordError extracts the error code and message the discord api returned,
// code is 0 if err is not a discord api error
func DiscordError(err error) (code int, msg string) {
	err = errors.Cause(err)

	if rError, ok := err.(*discordgo.RESTError); ok && rError.Message != nil {
		return rError.Message.Code, rError.Message.Message
	}

	return 0, ""
}

// IsDiscordErr returns true if the error is a discord error with one of the provided codes
func IsDiscordErr(err error, codes ...int) bool {
	code, _ := DiscordError(err)

	for _, v := range codes {
		if code == v {
			return true
		}
	}

	return false
}
