package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Raed-Bourouis/VoiceUP/pkg/errors"
)

func serveWithError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/boom", func(c *gin.Context) {
		c.Error(err)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	cases := []struct {
		err    *errors.AppError
		status int
	}{
		{errors.NoSession("op"), http.StatusUnauthorized},
		{errors.Invalid("op", "bad input"), http.StatusBadRequest},
		{errors.NotFound("op", "missing"), http.StatusNotFound},
		{errors.Forbidden("op", "nope"), http.StatusForbidden},
		{errors.Conflict("op", "already there"), http.StatusConflict},
		{errors.Query("op", fmt.Errorf("down")), http.StatusBadGateway},
		{errors.Storage("op", fmt.Errorf("down")), http.StatusBadGateway},
		{errors.Decode("op", fmt.Errorf("garbage")), http.StatusBadGateway},
		{errors.Internal("op", fmt.Errorf("bug")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.err.Kind), func(t *testing.T) {
			w := serveWithError(t, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), string(tc.err.Kind))
		})
	}
}

func TestErrorHandlerMessageComesFromError(t *testing.T) {
	w := serveWithError(t, errors.NotFound("op", "chat not found"))
	assert.Contains(t, w.Body.String(), "chat not found")
}

func TestErrorHandlerForeignErrorIs500(t *testing.T) {
	w := serveWithError(t, fmt.Errorf("some library exploded"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// Internals never leak to the shell.
	assert.NotContains(t, w.Body.String(), "exploded")
}

func TestErrorHandlerRecoversPanic(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStatusOfUnknownKind(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.Kind("SOMETHING_NEW")))
}
