package middleware

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/pkg/errors"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// ErrorHandler recovers panics and renders errors attached to the
// context.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Panic recovered")

				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal Server Error",
				})
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var app *errors.AppError
		if stderrors.As(err, &app) {
			c.JSON(StatusOf(app.Kind), gin.H{
				"error": app.Message,
				"kind":  string(app.Kind),
			})
			return
		}

		logger.Error().Err(err).Msg("Unhandled request error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal Server Error",
		})
	}
}

// StatusOf maps an error kind to the status the gateway answers with.
// Backend failures surface as 502: the daemon is fine, the hosted
// service is not.
func StatusOf(kind errors.Kind) int {
	switch kind {
	case errors.KindNoSession:
		return http.StatusUnauthorized
	case errors.KindInvalid:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindForbidden:
		return http.StatusForbidden
	case errors.KindConflict:
		return http.StatusConflict
	case errors.KindQuery, errors.KindStorage, errors.KindDecode:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
