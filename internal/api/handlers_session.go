// handlers_session.go - Conversion session handlers
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/excel-to-json/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessionMgr SessionManager
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(sessionMgr SessionManager) SessionHandler {
	return &SessionHandlerImpl{sessionMgr: sessionMgr}
}

// HandleCreateSession opens a session for a freshly loaded page
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	ctrl := h.sessionMgr.Create()
	return c.JSON(http.StatusCreated, ctrl.Snapshot())
}

// HandleGetSession returns the session snapshot
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	ctrl, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ctrl.Snapshot())
}

// HandleDeleteSession drops a session and its staged file
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if !h.sessionMgr.Delete(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSelectFile stages the multipart "file" field as the source file
func (h *SessionHandlerImpl) HandleSelectFile(c echo.Context) error {
	ctrl, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return NewValidationError("file")
	}

	f, err := fh.Open()
	if err != nil {
		return NewBadRequestError("failed to read uploaded file", err)
	}
	defer f.Close()

	if _, err := ctrl.SelectLocalFile(fh.Filename, fh.Header.Get(echo.HeaderContentType), f); err != nil {
		return NewInternalError("failed to stage file", err)
	}
	return c.JSON(http.StatusOK, ctrl.Snapshot())
}

// HandleResolveURL fetches a pasted link and stages it as the source file
func (h *SessionHandlerImpl) HandleResolveURL(c echo.Context) error {
	ctrl, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}

	var req resolveURLRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	// The session owns the request once started; a dropped client does not cancel it
	ctx := context.WithoutCancel(c.Request().Context())
	if _, err := ctrl.ResolveRemoteURL(ctx, req.URL); err != nil {
		apiErr := FromDomainError(err)
		if apiErr.Code == "INTERNAL_ERROR" {
			apiErr = NewUpstreamError("REMOTE_FETCH_FAILED", "failed to fetch file", err)
		}
		return apiErr
	}
	return c.JSON(http.StatusOK, ctrl.Snapshot())
}

// HandleConvert sends the staged file to the conversion backend
// Without a staged file this returns the unchanged snapshot
func (h *SessionHandlerImpl) HandleConvert(c echo.Context) error {
	ctrl, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}

	ctx := context.WithoutCancel(c.Request().Context())
	if err := ctrl.Convert(ctx); err != nil {
		return FromDomainError(err)
	}
	return c.JSON(http.StatusOK, ctrl.Snapshot())
}

// HandleReset clears the file, link and result of a session
func (h *SessionHandlerImpl) HandleReset(c echo.Context) error {
	ctrl, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}

	ctrl.Reset()
	return c.JSON(http.StatusOK, ctrl.Snapshot())
}

// Request types with validation

type resolveURLRequest struct {
	URL string `json:"url"`
}

func (r *resolveURLRequest) validate() error {
	r.URL = strings.TrimSpace(r.URL)
	if r.URL == "" {
		return NewValidationError("url")
	}
	return nil
}

// Helper functions

// lookupSession resolves the :id path parameter to a live session
func lookupSession(c echo.Context, mgr SessionManager) (*session.Controller, error) {
	id := c.Param("id")
	if id == "" {
		return nil, NewValidationError("id")
	}
	ctrl, ok := mgr.Get(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	return ctrl, nil
}

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func logRequest(component, id, format string, args ...interface{}) {
	fmt.Printf("[%s %s] %s\n", component, shortID(id), fmt.Sprintf(format, args...))
}
