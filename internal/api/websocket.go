package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/excel-to-json/backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket message types for the notification protocol
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected    = "connected"
	MsgTypeNotification = "notification"
	MsgTypePong         = "pong"
	MsgTypeError        = "error"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// WSMessage is the envelope of every frame on the notification socket
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error frame
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NotificationHandlerImpl implements the NotificationHandler interface
type NotificationHandlerImpl struct {
	sessionMgr SessionManager
	hub        NotificationSource
	upgrader   websocket.Upgrader
}

// NewNotificationHandler creates a handler for polled and streamed notifications
func NewNotificationHandler(sessionMgr SessionManager, hub NotificationSource) NotificationHandler {
	return &NotificationHandlerImpl{
		sessionMgr: sessionMgr,
		hub:        hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

// HandleDrainNotifications returns and clears buffered notifications
func (h *NotificationHandlerImpl) HandleDrainNotifications(c echo.Context) error {
	ctrl, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.hub.Drain(ctrl.ID()))
}

// HandleNotificationStream upgrades to WebSocket and pushes notifications as they happen
func (h *NotificationHandlerImpl) HandleNotificationStream(c echo.Context) error {
	ctrl, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}
	id := ctrl.ID()

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	notes, cancel := h.hub.Subscribe(id)
	defer cancel()

	logRequest("WebSocket", id, "Client connected for notifications")

	// Reader goroutine: the client only sends pings, and a read error means it went away
	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					fmt.Printf("[WebSocket %s] Connection error: %v\n", shortID(id), err)
				}
				return
			}
			if msg.Type == MsgTypePing {
				h.sessionMgr.TouchSession(id)
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	if !h.send(ws, WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()}) {
		return nil
	}

	for {
		select {
		case n, ok := <-notes:
			if !ok {
				// Session went away
				h.send(ws, errorMessage("session closed", "SESSION_CLOSED"))
				logRequest("WebSocket", id, "Session closed, disconnecting")
				return nil
			}
			if !h.send(ws, notificationMessage(n)) {
				return nil
			}
		case <-pings:
			if !h.send(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()}) {
				return nil
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-closed:
			logRequest("WebSocket", id, "Client disconnected")
			return nil
		}
	}
}

// Helper methods

func (h *NotificationHandlerImpl) send(ws *websocket.Conn, msg WSMessage) bool {
	ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
		return false
	}
	return true
}

func notificationMessage(n models.Notification) WSMessage {
	return WSMessage{
		Type:      MsgTypeNotification,
		Payload:   mustJSON(n),
		Timestamp: n.Time.UnixMilli(),
	}
}

func errorMessage(message, code string) WSMessage {
	return WSMessage{
		Type:      MsgTypeError,
		Payload:   mustJSON(WSErrorResponse{Message: message, Code: code}),
		Timestamp: time.Now().UnixMilli(),
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
