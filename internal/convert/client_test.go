package convert

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/excel-to-json/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Convert_Success(t *testing.T) {
	backend := testutil.NewFakeBackend(http.StatusOK, `{"status":201,"data":[{"a":1}]}`)
	defer backend.Close()

	client := NewClient(backend.URL()+"/", nil)
	doc, err := client.Convert(context.Background(), "sheet.csv", "text/csv", strings.NewReader("a\n1\n"))

	require.NoError(t, err)
	assert.JSONEq(t, `[{"a":1}]`, string(doc))

	uploads := backend.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "/csv-to-json", uploads[0].Path)
	assert.Equal(t, "sheet.csv", uploads[0].FileName)
	assert.Equal(t, "sheet.csv", uploads[0].FormFileName)
	assert.Equal(t, "text/csv", uploads[0].FileMediaType)
	assert.Equal(t, "a\n1\n", string(uploads[0].FileContent))
}

func TestClient_Convert_ScalarAndObjectData(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"object", `{"status":201,"data":{"rows":2}}`, `{"rows":2}`},
		{"scalar", `{"status":201,"data":42}`, `42`},
		{"string", `{"status":201,"data":"ok"}`, `"ok"`},
		{"empty array", `{"status":201,"data":[]}`, `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend(http.StatusCreated, tt.body)
			defer backend.Close()

			doc, err := NewClient(backend.URL(), nil).Convert(context.Background(), "a.csv", "", strings.NewReader("x"))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(doc))
		})
	}
}

func TestClient_Convert_Failures(t *testing.T) {
	tests := []struct {
		name       string
		httpStatus int
		body       string
		bodyStatus int
	}{
		{"http 500", http.StatusInternalServerError, `{"status":500}`, 0},
		{"http 404", http.StatusNotFound, `not found`, 0},
		{"body status 400", http.StatusOK, `{"status":400,"data":"bad file"}`, 400},
		{"body status 200", http.StatusOK, `{"status":200,"data":[]}`, 200},
		{"missing status", http.StatusOK, `{"data":[1]}`, 0},
		{"not json", http.StatusOK, `<html>oops</html>`, 0},
		{"null data", http.StatusOK, `{"status":201,"data":null}`, 201},
		{"missing data", http.StatusOK, `{"status":201}`, 201},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend(tt.httpStatus, tt.body)
			defer backend.Close()

			doc, err := NewClient(backend.URL(), nil).Convert(context.Background(), "a.csv", "text/csv", strings.NewReader("x"))
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, ErrConversionRequestFailed))

			var convErr *ConversionError
			require.True(t, errors.As(err, &convErr))
			assert.Equal(t, tt.bodyStatus, convErr.BodyStatus)
			assert.Len(t, backend.Uploads(), 1, "exactly one request, no retry")
		})
	}
}

func TestClient_Convert_NetworkError(t *testing.T) {
	backend := testutil.NewFakeBackend(http.StatusOK, `{}`)
	url := backend.URL()
	backend.Close()

	_, err := NewClient(url, nil).Convert(context.Background(), "a.csv", "text/csv", strings.NewReader("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionRequestFailed)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, 0, convErr.HTTPStatus)
	assert.NotNil(t, convErr.Unwrap())
}

func TestClient_Convert_ContextCancelled(t *testing.T) {
	backend := testutil.NewFakeBackend(http.StatusOK, `{"status":201,"data":[]}`)
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(backend.URL(), nil).Convert(ctx, "a.csv", "text/csv", strings.NewReader("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrConversionRequestFailed)
}

func TestNewClient_TrimsSlash(t *testing.T) {
	c := NewClient("http://example.com/api///", nil)
	assert.Equal(t, "http://example.com/api", c.BaseURL())
}
