// Package httperr maps service and repository errors onto HTTP errors.
package httperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carepilot/carepilot/internal/platform/blobstore"
	"github.com/carepilot/carepilot/internal/platform/db"
)

var (
	ErrInvalid  = errors.New("invalid request")
	ErrConflict = errors.New("conflict")
)

type validationError struct{ msg string }

func (e *validationError) Error() string        { return e.msg }
func (e *validationError) Is(target error) bool { return target == ErrInvalid }

// Invalidf returns a validation error whose message is shown to the caller.
func Invalidf(format string, args ...interface{}) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// From translates err into an *echo.HTTPError. Unknown errors become a 500
// with the cause attached as the internal error for logging.
func From(err error) *echo.HTTPError {
	var he *echo.HTTPError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &he):
		return he
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrNotFound), errors.Is(err, blobstore.ErrBlobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found").SetInternal(err)
	case errors.Is(err, db.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, "already exists").SetInternal(err)
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
