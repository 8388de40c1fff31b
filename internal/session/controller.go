package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/excel-to-json/backend/internal/models"
	"github.com/excel-to-json/backend/internal/notify"
	"github.com/excel-to-json/backend/internal/source"
	"github.com/google/uuid"
)

var (
	// ErrBusy is returned when a fetch or conversion is already outstanding.
	ErrBusy = errors.New("a request is already in flight")

	// ErrDiscarded is returned when a reset or a new selection superseded the request.
	ErrDiscarded = errors.New("request superseded")
)

// User-facing notification texts.
const (
	msgUnsupportedSource = "Unsupported File Type."
	msgFetchFailed       = "An error occurred while fetching the file. Check the server log for details."
	msgConvertFailed     = "An error occurred during conversion. Check the server log for details."
	msgConverted         = "Your file has been converted to JSON."
)

// BlobStore persists staged source files.
type BlobStore interface {
	Save(name, mediaType string, r io.Reader) (*models.FileInfo, error)
	Open(id string) (io.ReadCloser, error)
	Delete(id string) error
}

// Converter sends a file to the conversion backend.
type Converter interface {
	Convert(ctx context.Context, fileName, mediaType string, r io.Reader) (json.RawMessage, error)
}

// Fetcher downloads a remote document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Classifier derives a file extension from a pasted URL.
type Classifier interface {
	Classify(raw string) (string, error)
}

// Recorder keeps a history of settled conversions.
type Recorder interface {
	Record(ctx context.Context, rec models.ConversionRecord) error
}

// Deps bundles the collaborators of a Controller. Notifier and Recorder are optional.
type Deps struct {
	Store      BlobStore
	Converter  Converter
	Fetcher    Fetcher
	Classifier Classifier
	Notifier   notify.Notifier
	Recorder   Recorder
	Now        func() time.Time
}

// state is the single mutable unit of a conversion session.
type state struct {
	sourceFile     *models.SourceFile
	sourceURL      string
	requestState   models.RequestState
	resultDocument json.RawMessage
	lastError      string
	updatedAt      time.Time
}

// Controller owns one conversion session and is the only writer of its state.
type Controller struct {
	id   string
	deps Deps

	mu sync.Mutex
	st state
	// generation is bumped whenever the staged input changes or the session is reset;
	// a request whose generation no longer matches settles without touching state.
	generation uint64
}

// NewController creates a controller in the Idle state with no file and no result.
func NewController(id string, deps Deps) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	c := &Controller{id: id, deps: deps}
	c.st = state{requestState: models.RequestStateIdle, updatedAt: deps.Now()}
	return c
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.id
}

// SelectLocalFile stages a blob as the source file, clears any result and returns to Idle.
// The media type is recorded as declared and not validated.
func (c *Controller) SelectLocalFile(name, mediaType string, r io.Reader) (*models.SourceFile, error) {
	info, err := c.deps.Store.Save(name, mediaType, r)
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", name, err)
	}

	file := &models.SourceFile{
		ID:           info.ID,
		Name:         info.Name,
		MediaType:    info.MediaType,
		Size:         info.Size,
		LastModified: c.deps.Now(),
		Origin:       models.OriginLocal,
	}

	c.mu.Lock()
	old := c.stageLocked(file)
	c.mu.Unlock()

	c.deleteBlob(old)
	fmt.Printf("[Session %s] Selected file %s (%d bytes, %s)\n", shortID(c.id), file.Name, file.Size, file.MediaType)
	return file, nil
}

// ResolveRemoteURL classifies raw, fetches it and stages the body as data.<ext>.
// Unsupported URLs fail without a fetch and without changing state.
func (c *Controller) ResolveRemoteURL(ctx context.Context, raw string) (*models.SourceFile, error) {
	ext, err := c.deps.Classifier.Classify(raw)
	if err != nil {
		fmt.Printf("[Session %s] Unsupported source %q\n", shortID(c.id), raw)
		c.notify(models.NotificationError, msgUnsupportedSource)
		return nil, err
	}

	c.mu.Lock()
	if c.st.requestState.IsBusy() {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	prev := c.st.requestState
	c.st.requestState = models.RequestStateInFlight
	c.st.updatedAt = c.deps.Now()
	gen := c.generation
	c.mu.Unlock()

	fmt.Printf("[Session %s] Fetching %s as %s\n", shortID(c.id), raw, ext)

	file, err := c.fetchAndStore(ctx, raw, ext)

	c.mu.Lock()
	if gen != c.generation {
		// Reset or a new selection happened meanwhile; drop this result
		c.mu.Unlock()
		if file != nil {
			c.deleteBlob(file)
		}
		fmt.Printf("[Session %s] Discarding stale fetch of %s\n", shortID(c.id), raw)
		return nil, ErrDiscarded
	}
	if err != nil {
		c.st.requestState = prev
		c.st.updatedAt = c.deps.Now()
		c.mu.Unlock()

		fmt.Printf("[Session %s] Fetch failed: %v\n", shortID(c.id), err)
		var fetchErr *source.RemoteFetchError
		if errors.As(err, &fetchErr) {
			c.notify(models.NotificationError, fetchErr.Error())
		} else {
			c.notify(models.NotificationError, msgFetchFailed)
		}
		return nil, err
	}
	old := c.stageLocked(file)
	c.st.sourceURL = raw
	c.mu.Unlock()

	c.deleteBlob(old)
	fmt.Printf("[Session %s] Fetched %s (%d bytes)\n", shortID(c.id), file.Name, file.Size)
	return file, nil
}

func (c *Controller) fetchAndStore(ctx context.Context, raw, ext string) (*models.SourceFile, error) {
	data, err := c.deps.Fetcher.Fetch(ctx, raw)
	if err != nil {
		return nil, err
	}

	name := source.BlobName(ext)
	mediaType := source.MediaTypeFor(ext)
	info, err := c.deps.Store.Save(name, mediaType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", name, err)
	}

	return &models.SourceFile{
		ID:           info.ID,
		Name:         info.Name,
		MediaType:    info.MediaType,
		Size:         info.Size,
		LastModified: c.deps.Now(),
		Origin:       models.OriginRemote,
	}, nil
}

// Convert posts the staged file to the conversion backend. It is a no-op without a
// staged file and returns ErrBusy while another request is outstanding. The state
// always leaves InFlight before Convert returns.
func (c *Controller) Convert(ctx context.Context) error {
	c.mu.Lock()
	if c.st.sourceFile == nil {
		c.mu.Unlock()
		return nil
	}
	if c.st.requestState.IsBusy() {
		c.mu.Unlock()
		return ErrBusy
	}
	file := *c.st.sourceFile
	c.st.requestState = models.RequestStateInFlight
	c.st.resultDocument = nil
	c.st.lastError = ""
	c.st.updatedAt = c.deps.Now()
	gen := c.generation
	c.mu.Unlock()

	start := c.deps.Now()
	fmt.Printf("[Session %s] Converting %s\n", shortID(c.id), file.Name)

	var (
		doc json.RawMessage
		err error
	)
	settled := false
	defer func() {
		if !settled {
			// A collaborator panicked; never leave the session InFlight
			c.settle(gen, nil, errors.New("conversion aborted"))
		}
	}()

	doc, err = c.convertBlob(ctx, file)
	applied := c.settle(gen, doc, err)
	settled = true

	if !applied {
		fmt.Printf("[Session %s] Discarding stale conversion of %s\n", shortID(c.id), file.Name)
		return ErrDiscarded
	}

	c.record(ctx, file, doc, err, c.deps.Now().Sub(start))

	if err != nil {
		fmt.Printf("[Session %s] Conversion failed: %v\n", shortID(c.id), err)
		c.notify(models.NotificationError, msgConvertFailed)
		return err
	}

	fmt.Printf("[Session %s] Conversion complete: %d bytes of JSON\n", shortID(c.id), len(doc))
	c.notify(models.NotificationSuccess, msgConverted)
	return nil
}

func (c *Controller) convertBlob(ctx context.Context, file models.SourceFile) (json.RawMessage, error) {
	rc, err := c.deps.Store.Open(file.ID)
	if err != nil {
		return nil, fmt.Errorf("opening staged file: %w", err)
	}
	defer rc.Close()

	return c.deps.Converter.Convert(ctx, file.Name, file.MediaType, rc)
}

// settle applies the outcome of a conversion if gen is still current.
func (c *Controller) settle(gen uint64, doc json.RawMessage, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}

	c.st.updatedAt = c.deps.Now()
	if err != nil {
		c.st.requestState = models.RequestStateFailed
		c.st.resultDocument = nil
		c.st.lastError = err.Error()
		return true
	}
	c.st.requestState = models.RequestStateSucceeded
	c.st.resultDocument = doc
	c.st.lastError = ""
	return true
}

// Reset clears the file, url and result and returns to Idle. Calling it again is a no-op.
func (c *Controller) Reset() {
	c.mu.Lock()
	old := c.st.sourceFile
	c.generation++
	c.st = state{requestState: models.RequestStateIdle, updatedAt: c.deps.Now()}
	c.mu.Unlock()

	c.deleteBlob(old)
}

// Close releases the staged blob. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.Reset()
}

// Snapshot returns the current state as a value safe to serialize.
func (c *Controller) Snapshot() models.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := models.SessionSnapshot{
		ID:        c.id,
		State:     c.st.requestState,
		SourceURL: c.st.sourceURL,
		HasResult: c.st.resultDocument != nil,
		Error:     c.st.lastError,
		UpdatedAt: c.st.updatedAt,
	}
	if c.st.sourceFile != nil {
		file := *c.st.sourceFile
		snap.SourceFile = &file
	}
	return snap
}

// State returns the current request state.
func (c *Controller) State() models.RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.requestState
}

// Result returns the converted document when the session has succeeded.
func (c *Controller) Result() (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st.requestState != models.RequestStateSucceeded || c.st.resultDocument == nil {
		return nil, false
	}
	return append(json.RawMessage(nil), c.st.resultDocument...), true
}

// SourceFile returns the staged file, if any.
func (c *Controller) SourceFile() (models.SourceFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st.sourceFile == nil {
		return models.SourceFile{}, false
	}
	return *c.st.sourceFile, true
}

// Notify sends a notification on behalf of the session.
func (c *Controller) Notify(kind models.NotificationKind, message string) {
	c.notify(kind, message)
}

// stageLocked installs file as the source and returns the file it replaced.
// The caller holds c.mu.
func (c *Controller) stageLocked(file *models.SourceFile) *models.SourceFile {
	old := c.st.sourceFile
	c.generation++
	c.st.sourceFile = file
	c.st.resultDocument = nil
	c.st.lastError = ""
	c.st.requestState = models.RequestStateIdle
	c.st.updatedAt = c.deps.Now()
	return old
}

func (c *Controller) deleteBlob(file *models.SourceFile) {
	if file == nil {
		return
	}
	if err := c.deps.Store.Delete(file.ID); err != nil {
		fmt.Printf("[Session %s] Warning: failed to delete staged file %s: %v\n", shortID(c.id), file.ID, err)
	}
}

func (c *Controller) notify(kind models.NotificationKind, message string) {
	c.deps.Notifier.Notify(models.Notification{
		SessionID: c.id,
		Kind:      kind,
		Message:   message,
		Time:      c.deps.Now(),
	})
}

func (c *Controller) record(ctx context.Context, file models.SourceFile, doc json.RawMessage, convErr error, elapsed time.Duration) {
	if c.deps.Recorder == nil {
		return
	}

	rec := models.ConversionRecord{
		ID:          uuid.New().String(),
		SessionID:   c.id,
		FileName:    file.Name,
		Origin:      file.Origin,
		State:       models.RequestStateSucceeded,
		DurationMs:  elapsed.Milliseconds(),
		ResultBytes: int64(len(doc)),
		CreatedAt:   c.deps.Now(),
	}
	if convErr != nil {
		rec.State = models.RequestStateFailed
		rec.Error = convErr.Error()
	}

	// History must outlive a cancelled request context
	if err := c.deps.Recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		fmt.Printf("[Session %s] Warning: failed to record conversion: %v\n", shortID(c.id), err)
	}
}
