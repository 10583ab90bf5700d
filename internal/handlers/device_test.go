package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Raed-Bourouis/VoiceUP/internal/services"
	"github.com/Raed-Bourouis/VoiceUP/internal/store"
)

func setupDeviceRouter(t *testing.T) (*gin.Engine, *services.PushRouter) {
	t.Helper()
	db := setupTestDB(t)
	createProfile(t, db, "alice", "alice")

	pushRouter := services.NewPushRouter(staticUser("alice"), store.NewDeviceStore(db))

	router := newTestRouter()
	h := NewDeviceHandler(pushRouter)
	router.POST("/devices", h.Register)
	router.PUT("/devices/token", h.Refresh)
	router.POST("/push/should-display", h.ShouldDisplay)
	return router, pushRouter
}

func TestShouldDisplaySuppressesOpenChat(t *testing.T) {
	router, pushRouter := setupDeviceRouter(t)
	pushRouter.SetCurrentChat("c1")

	w := performJSON(t, router, http.MethodPost, "/push/should-display", `{"chatId":"c1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"display":false`)

	w = performJSON(t, router, http.MethodPost, "/push/should-display", `{"chatId":"c2"}`)
	assert.Contains(t, w.Body.String(), `"display":true`)
}

func TestRegisterDeviceValidation(t *testing.T) {
	router, _ := setupDeviceRouter(t)

	w := performJSON(t, router, http.MethodPost, "/devices", `{"token":"tok"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(t, router, http.MethodPost, "/devices", `{"token":"tok","platform":"ios"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"registered":true`)
}

func TestRefreshDeviceToken(t *testing.T) {
	router, _ := setupDeviceRouter(t)

	w := performJSON(t, router, http.MethodPost, "/devices", `{"token":"old","platform":"android"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(t, router, http.MethodPut, "/devices/token", `{"oldToken":"old","newToken":"new","platform":"android"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"refreshed":true`)
}
