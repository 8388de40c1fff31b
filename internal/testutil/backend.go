// backend.go - Fake conversion backend for testing
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// ReceivedUpload is one multipart request seen by the fake backend.
type ReceivedUpload struct {
	Path          string
	FileName      string // filename of the "file" part
	FileMediaType string
	FileContent   []byte
	FormFileName  string // the "fileName" field
}

// FakeBackend serves POST /csv-to-json with a canned reply.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	uploads  []ReceivedUpload
	block    chan struct{}
	received chan struct{}
}

// NewFakeBackend starts a backend replying with HTTP status and body.
func NewFakeBackend(status int, body string) *FakeBackend {
	fb := &FakeBackend{
		status:   status,
		body:     body,
		received: make(chan struct{}, 16),
	}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.handle))
	return fb
}

// URL returns the base URL to configure the client with.
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// Close shuts the server down.
func (fb *FakeBackend) Close() {
	fb.Release()
	fb.Server.Close()
}

// SetReply changes the canned reply.
func (fb *FakeBackend) SetReply(status int, body string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.status = status
	fb.body = body
}

// Hold makes subsequent requests wait until Release is called.
func (fb *FakeBackend) Hold() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.block = make(chan struct{})
}

// Release lets held requests complete.
func (fb *FakeBackend) Release() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.block != nil {
		close(fb.block)
		fb.block = nil
	}
}

// Received is signalled once per request after its body has been read.
func (fb *FakeBackend) Received() <-chan struct{} {
	return fb.received
}

// Uploads returns a copy of the recorded requests.
func (fb *FakeBackend) Uploads() []ReceivedUpload {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]ReceivedUpload(nil), fb.uploads...)
}

func (fb *FakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	up := ReceivedUpload{Path: r.URL.Path}
	if err := r.ParseMultipartForm(32 << 20); err == nil {
		up.FormFileName = r.FormValue("fileName")
		if f, hdr, err := r.FormFile("file"); err == nil {
			up.FileName = hdr.Filename
			up.FileMediaType = hdr.Header.Get("Content-Type")
			up.FileContent, _ = io.ReadAll(f)
			f.Close()
		}
	}

	fb.mu.Lock()
	fb.uploads = append(fb.uploads, up)
	block := fb.block
	fb.mu.Unlock()

	select {
	case fb.received <- struct{}{}:
	default:
	}

	if block != nil {
		<-block
	}

	fb.mu.Lock()
	status, body := fb.status, fb.body
	fb.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
