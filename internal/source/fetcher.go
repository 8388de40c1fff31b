package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrRemoteFetchFailed is matched by every RemoteFetchError.
var ErrRemoteFetchFailed = errors.New("remote fetch failed")

// RemoteFetchError reports a non-success HTTP status from the remote host.
type RemoteFetchError struct {
	URL    string
	Status int
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("Failed to fetch file. Status: %d", e.Status)
}

// Is makes errors.Is(err, ErrRemoteFetchFailed) hold.
func (e *RemoteFetchError) Is(target error) bool {
	return target == ErrRemoteFetchFailed
}

// Fetcher downloads remote documents.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher. A nil client uses http.DefaultClient.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// Fetch issues a single GET for url and returns the response body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &RemoteFetchError{URL: url, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", url, err)
	}
	return data, nil
}
