// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/excel-to-json/backend/internal/models"
	"github.com/excel-to-json/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// PickerHandler serves the file picker configuration
type PickerHandler interface {
	HandleGetPickerConfig(c echo.Context) error
}

// SessionHandler handles session lifecycle and input selection
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSelectFile(c echo.Context) error
	HandleResolveURL(c echo.Context) error
	HandleConvert(c echo.Context) error
	HandleReset(c echo.Context) error
}

// ResultHandler handles the converted document
type ResultHandler interface {
	HandleGetResult(c echo.Context) error
	HandleDownloadResult(c echo.Context) error
	HandleCopyResult(c echo.Context) error
}

// NotificationHandler delivers session notifications
type NotificationHandler interface {
	HandleDrainNotifications(c echo.Context) error
	HandleNotificationStream(c echo.Context) error
}

// HistoryHandler serves recorded conversions
type HistoryHandler interface {
	HandleRecentConversions(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create() *session.Controller
	Get(id string) (*session.Controller, bool)
	Delete(id string) bool
	TouchSession(id string) bool
	Count() int
}

// NotificationSource is the per-session notification feed
type NotificationSource interface {
	Drain(sessionID string) []models.Notification
	Subscribe(sessionID string) (<-chan models.Notification, func())
}

// HistoryReader reads recorded conversions
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]models.ConversionRecord, error)
	Count(ctx context.Context) (total, failed int, err error)
}
