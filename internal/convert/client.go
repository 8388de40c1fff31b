// Package convert talks to the external spreadsheet-to-JSON conversion API.
package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// ConvertPath is appended to the base URL for conversion requests.
const ConvertPath = "/csv-to-json"

// StatusCreated is the body-level status the backend reports on success.
const StatusCreated = 201

// ErrConversionRequestFailed is matched by every ConversionError.
var ErrConversionRequestFailed = errors.New("conversion request failed")

// ConversionError describes why a conversion request did not produce a document.
type ConversionError struct {
	Reason     string
	HTTPStatus int // 0 when no response was received
	BodyStatus int // status field of the response body, 0 when absent
	Err        error
}

func (e *ConversionError) Error() string {
	msg := "conversion failed: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConversionRequestFailed) hold.
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversionRequestFailed
}

// response is the envelope returned by the backend.
type response struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Client posts files to the conversion backend.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Convert uploads the file as multipart fields "file" and "fileName" with a single POST
// and returns the "data" value of a status-201 response untouched.
func (c *Client) Convert(ctx context.Context, fileName, mediaType string, r io.Reader) (json.RawMessage, error) {
	body, contentType, err := buildForm(fileName, mediaType, r)
	if err != nil {
		return nil, &ConversionError{Reason: "building request body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ConvertPath, body)
	if err != nil {
		return nil, &ConversionError{Reason: "building request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ConversionError{Reason: "request error", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &ConversionError{
			Reason:     fmt.Sprintf("http status %d", resp.StatusCode),
			HTTPStatus: resp.StatusCode,
		}
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ConversionError{Reason: "invalid response body", HTTPStatus: resp.StatusCode, Err: err}
	}

	if parsed.Status != StatusCreated {
		return nil, &ConversionError{
			Reason:     fmt.Sprintf("unexpected status %d", parsed.Status),
			HTTPStatus: resp.StatusCode,
			BodyStatus: parsed.Status,
		}
	}

	data := bytes.TrimSpace(parsed.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, &ConversionError{
			Reason:     "empty data",
			HTTPStatus: resp.StatusCode,
			BodyStatus: parsed.Status,
		}
	}

	return json.RawMessage(data), nil
}

func buildForm(fileName, mediaType string, r io.Reader) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(fileName)))
	h.Set("Content-Type", mediaType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("fileName", fileName); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
