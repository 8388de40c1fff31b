// handlers_health.go - Health check and page configuration handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version    string
	sessionMgr SessionManager
	backendURL string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessionMgr SessionManager, backendURL string) HealthHandler {
	return &HealthHandlerImpl{
		version:    version,
		sessionMgr: sessionMgr,
		backendURL: backendURL,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"backend": h.backendURL,
	}
	if h.sessionMgr != nil {
		resp["sessions"] = h.sessionMgr.Count()
	}
	return c.JSON(http.StatusOK, resp)
}

// PickerConfig lists what the page's file picker accepts.
type PickerConfig struct {
	Accept     string   `json:"accept"`
	MediaTypes []string `json:"mediaTypes"`
}

// PickerHandlerImpl implements the PickerHandler interface
type PickerHandlerImpl struct {
	config PickerConfig
}

// NewPickerHandler creates a handler serving a fixed picker configuration
func NewPickerHandler(config PickerConfig) PickerHandler {
	if config.MediaTypes == nil {
		config.MediaTypes = []string{}
	}
	return &PickerHandlerImpl{config: config}
}

// HandleGetPickerConfig returns the accepted file types
func (h *PickerHandlerImpl) HandleGetPickerConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.config)
}
