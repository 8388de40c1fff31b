package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/excel-to-json/backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	records []models.ConversionRecord
	err     error
	limit   int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]models.ConversionRecord, error) {
	f.limit = limit
	return f.records, f.err
}

func (f *fakeHistory) Count(context.Context) (int, int, error) {
	failed := 0
	for _, r := range f.records {
		if r.State == models.RequestStateFailed {
			failed++
		}
	}
	return len(f.records), failed, f.err
}

func newTestServer(t *testing.T, env *testEnv, history HistoryReader) *httptest.Server {
	t.Helper()
	e := echo.New()
	SetupMiddleware(e, MiddlewareOptions{EnableCORS: true, BodyLimit: "1M"})
	RegisterRoutes(e, NewHandlers(&Dependencies{
		SessionMgr: env.mgr,
		Hub:        env.hub,
		History:    history,
		Picker:     PickerConfig{Accept: ".csv,.xls,.xlsx", MediaTypes: []string{"application/vnd.ms-excel"}},
		BackendURL: env.backend.URL(),
		Version:    "test",
	}))

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutes_HealthAndPicker(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, `{}`)
	srv := newTestServer(t, env, nil)
	env.mgr.Create()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["version"])
	assert.EqualValues(t, 1, health["sessions"])

	resp, err = http.Get(srv.URL + "/api/config/picker")
	require.NoError(t, err)
	defer resp.Body.Close()

	var picker PickerConfig
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&picker))
	assert.Equal(t, ".csv,.xls,.xlsx", picker.Accept)
	assert.Equal(t, []string{"application/vnd.ms-excel"}, picker.MediaTypes)
}

func TestRoutes_ConversionFlow(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, `{"status":201,"data":[{"a":"1"}]}`)
	srv := newTestServer(t, env, nil)

	resp, err := http.Post(srv.URL+"/api/sessions", echo.MIMEApplicationJSON, nil)
	require.NoError(t, err)
	var snap models.SessionSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	base := srv.URL + "/api/sessions/" + snap.ID

	req := multipartRequest(t, base+"/file", "sheet.csv", "a\n1\n")
	req.RequestURI = ""
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(base+"/convert", echo.MIMEApplicationJSON, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/result/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, `attachment; filename="sheet.json"`, resp.Header.Get(echo.HeaderContentDisposition))

	// Unknown session renders the structured error body
	resp, err = http.Get(srv.URL + "/api/sessions/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var apiErr APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestRoutes_RecentConversions(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, `{}`)

	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, env, nil)
		resp, err := http.Get(srv.URL + "/api/conversions/recent")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("lists records", func(t *testing.T) {
		history := &fakeHistory{records: []models.ConversionRecord{
			{ID: "r1", FileName: "a.csv", State: models.RequestStateSucceeded},
			{ID: "r2", FileName: "b.csv", State: models.RequestStateFailed},
		}}
		srv := newTestServer(t, env, history)

		resp, err := http.Get(srv.URL + "/api/conversions/recent?limit=500")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, maxRecentLimit, history.limit)

		var body struct {
			Conversions []models.ConversionRecord `json:"conversions"`
			Total       int                       `json:"total"`
			Failed      int                       `json:"failed"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body.Conversions, 2)
		assert.Equal(t, 2, body.Total)
		assert.Equal(t, 1, body.Failed)
	})

	t.Run("bad limit", func(t *testing.T) {
		srv := newTestServer(t, env, &fakeHistory{})
		resp, err := http.Get(srv.URL + "/api/conversions/recent?limit=abc")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("store error", func(t *testing.T) {
		srv := newTestServer(t, env, &fakeHistory{err: errors.New("db closed")})
		resp, err := http.Get(srv.URL + "/api/conversions/recent")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestRoutes_NotificationSocket(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, `{}`)
	srv := newTestServer(t, env, nil)
	ctrl := env.mgr.Create()

	// Buffered before the socket opens, replayed on subscribe
	ctrl.Notify(models.NotificationInfo, "queued")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + ctrl.ID() + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	readMsg := func() WSMessage {
		var msg WSMessage
		require.NoError(t, ws.ReadJSON(&msg))
		return msg
	}

	assert.Equal(t, MsgTypeConnected, readMsg().Type)

	msg := readMsg()
	require.Equal(t, MsgTypeNotification, msg.Type)
	var n models.Notification
	require.NoError(t, json.Unmarshal(msg.Payload, &n))
	assert.Equal(t, "queued", n.Message)

	ctrl.Notify(models.NotificationError, "live")
	msg = readMsg()
	require.Equal(t, MsgTypeNotification, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Payload, &n))
	assert.Equal(t, "live", n.Message)
	assert.Equal(t, models.NotificationError, n.Kind)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
	assert.Equal(t, MsgTypePong, readMsg().Type)

	// Dropping the session closes the stream
	env.mgr.Delete(ctrl.ID())
	assert.Equal(t, MsgTypeError, readMsg().Type)
}

func TestRoutes_NotificationSocketUnknownSession(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, `{}`)
	srv := newTestServer(t, env, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
