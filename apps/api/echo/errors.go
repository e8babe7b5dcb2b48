package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/assessment"
	"github.com/trezcool/kidcare/core/blog"
	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/counseling"
	"github.com/trezcool/kidcare/core/payment"
	"github.com/trezcool/kidcare/core/push"
	"github.com/trezcool/kidcare/core/schedule"
	"github.com/trezcool/kidcare/core/therapist"
	"github.com/trezcool/kidcare/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errCenterNotFound       = echo.NewHTTPError(http.StatusNotFound, "center not found")
	errCenterUnavailable    = echo.NewHTTPError(http.StatusForbidden, "center unavailable")
	errCenterMismatch       = echo.NewHTTPError(http.StatusForbidden, "user does not belong to this center")
	errFeedUnavailable      = echo.NewHTTPError(http.StatusBadGateway, "blog feed unavailable")
)

// notFoundErrors are the domain errors answered with a 404.
var notFoundErrors = []error{
	user.ErrNotFound,
	center.ErrNotFound,
	therapist.ErrNotFound,
	child.ErrNotFound,
	schedule.ErrNotFound,
	counseling.ErrNotFound,
	assessment.ErrNotFound,
	payment.ErrNotFound,
	push.ErrNotFound,
	blog.ErrNoFeed,
}

// conflictErrors are the domain errors of invalid state transitions.
var conflictErrors = []error{
	payment.ErrNotPending,
	payment.ErrNotPaid,
	payment.ErrNotCancelable,
}

func isOneOf(err error, errs []error) bool {
	for _, e := range errs {
		if err == e {
			return true
		}
	}
	return false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				message = origErr.FieldMap()
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
			for _, cErr := range conflictErrors {
				if core.IsValidation(origErr, cErr) {
					code = http.StatusConflict
					break
				}
			}
		default:
			switch {
			case isOneOf(cause, notFoundErrors):
				code = http.StatusNotFound
				message = cause.Error()
			case cause == center.ErrCenterInactive:
				code = http.StatusForbidden
				message = cause.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Username = claims.Username
					usr.Email = claims.Email
				}
				logArgs := []interface{}{errors.Wrap(err, msg), usr}
				if c, ok := getContextCenter(ctx); ok {
					logArgs = append(logArgs, c)
				}
				logger.Error(msg, logArgs...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
