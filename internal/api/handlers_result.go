// handlers_result.go - Converted document handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/excel-to-json/backend/internal/models"
	"github.com/excel-to-json/backend/internal/session"
	"github.com/excel-to-json/backend/internal/viewer"
	"github.com/labstack/echo/v4"
)

// msgCopied is shown after the page copies the document
const msgCopied = "Your JSON data has been copied to your clipboard."

// ResultHandlerImpl implements the ResultHandler interface
type ResultHandlerImpl struct {
	sessionMgr SessionManager
}

// NewResultHandler creates a new result handler instance
func NewResultHandler(sessionMgr SessionManager) ResultHandler {
	return &ResultHandlerImpl{sessionMgr: sessionMgr}
}

// HandleGetResult returns the viewer payload {src, name}
func (h *ResultHandlerImpl) HandleGetResult(c echo.Context) error {
	ctrl, doc, err := h.result(c)
	if err != nil {
		return err
	}

	view, err := viewer.NewView(doc, sourceName(ctrl))
	if err != nil {
		return NewInternalError("failed to format document", err)
	}
	return c.JSON(http.StatusOK, view)
}

// HandleDownloadResult returns the document as an attachment
// Query: format=json|yaml|msgpack (default json)
func (h *ResultHandlerImpl) HandleDownloadResult(c echo.Context) error {
	ctrl, doc, err := h.result(c)
	if err != nil {
		return err
	}

	enc, err := viewer.Encode(doc, c.QueryParam("format"))
	if err != nil {
		return FromDomainError(err)
	}

	name := viewer.DownloadName(viewer.FilenameStem(sourceName(ctrl)), enc.Extension)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	logRequest("Result", ctrl.ID(), "Download %s (%d bytes)", name, len(enc.Data))
	return c.Blob(http.StatusOK, enc.ContentType, enc.Data)
}

// HandleCopyResult returns the formatted text for the clipboard and confirms it
func (h *ResultHandlerImpl) HandleCopyResult(c echo.Context) error {
	ctrl, doc, err := h.result(c)
	if err != nil {
		return err
	}

	src, err := viewer.Pretty(doc)
	if err != nil {
		return NewInternalError("failed to format document", err)
	}
	ctrl.Notify(models.NotificationInfo, msgCopied)
	return c.JSON(http.StatusOK, map[string]string{"text": src})
}

func (h *ResultHandlerImpl) result(c echo.Context) (*session.Controller, json.RawMessage, error) {
	ctrl, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return nil, nil, err
	}
	doc, ok := ctrl.Result()
	if !ok {
		return nil, nil, NewNotFoundError("result", ctrl.ID())
	}
	return ctrl, doc, nil
}

// sourceName is the staged file name, empty when none is staged
func sourceName(ctrl *session.Controller) string {
	file, ok := ctrl.SourceFile()
	if !ok {
		return ""
	}
	return file.Name
}
