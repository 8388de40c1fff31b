// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	SessionMgr SessionManager
	Hub        NotificationSource
	History    HistoryReader // nil when history is disabled
	Picker     PickerConfig
	BackendURL string
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health       HealthHandler
	Picker       PickerHandler
	Session      SessionHandler
	Result       ResultHandler
	Notification NotificationHandler
	History      HistoryHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(deps.Version, deps.SessionMgr, deps.BackendURL),
		Picker:       NewPickerHandler(deps.Picker),
		Session:      NewSessionHandler(deps.SessionMgr),
		Result:       NewResultHandler(deps.SessionMgr),
		Notification: NewNotificationHandler(deps.SessionMgr, deps.Hub),
		History:      NewHistoryHandler(deps.History),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	api := e.Group("/api")

	api.GET("/health", handlers.Health.HandleHealth)
	api.GET("/config/picker", handlers.Picker.HandleGetPickerConfig)

	// Session routes
	sessions := api.Group("/sessions")
	sessions.POST("", handlers.Session.HandleCreateSession)
	sessions.GET("/:id", handlers.Session.HandleGetSession)
	sessions.DELETE("/:id", handlers.Session.HandleDeleteSession)
	sessions.POST("/:id/file", handlers.Session.HandleSelectFile)
	sessions.POST("/:id/url", handlers.Session.HandleResolveURL)
	sessions.POST("/:id/convert", handlers.Session.HandleConvert)
	sessions.POST("/:id/reset", handlers.Session.HandleReset)

	// Result routes
	sessions.GET("/:id/result", handlers.Result.HandleGetResult)
	sessions.GET("/:id/result/download", handlers.Result.HandleDownloadResult)
	sessions.POST("/:id/result/copy", handlers.Result.HandleCopyResult)

	// Notification routes
	sessions.GET("/:id/notifications", handlers.Notification.HandleDrainNotifications)
	sessions.GET("/:id/ws", handlers.Notification.HandleNotificationStream)

	api.GET("/conversions/recent", handlers.History.HandleRecentConversions)
}

// MiddlewareOptions configures SetupMiddleware
type MiddlewareOptions struct {
	EnableCORS     bool
	AllowOrigins   []string
	BodyLimit      string
	RequestLogging bool
	// Timeout bounds quick endpoints; 0 disables it
	Timeout time.Duration
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	if opts.RequestLogging {
		e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				// Skip health checks and notification polling to reduce noise
				return path == "/api/health" || strings.HasSuffix(path, "/notifications")
			},
		}))
	}
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if opts.Timeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: opts.Timeout,
			Skipper: func(c echo.Context) bool {
				// Fetch and conversion run without a deadline, and the socket is long-lived
				path := c.Request().URL.Path
				return strings.HasSuffix(path, "/convert") ||
					strings.HasSuffix(path, "/url") ||
					strings.HasSuffix(path, "/file") ||
					strings.HasSuffix(path, "/ws")
			},
			ErrorMessage: "Request timeout",
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if opts.EnableCORS {
		origins := opts.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
