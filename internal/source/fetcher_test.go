package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Success(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/file/d/abc123/view", r.URL.Path)
		w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	data, err := f.Fetch(context.Background(), srv.URL+"/file/d/abc123/view")

	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetcher_NonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			_, err := NewFetcher(nil).Fetch(context.Background(), srv.URL+"/file/x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRemoteFetchFailed))

			var fetchErr *RemoteFetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, status, fetchErr.Status)
		})
	}
}

func TestFetcher_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewFetcher(nil).Fetch(context.Background(), url+"/file/x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRemoteFetchFailed))
}

func TestFetcher_InvalidURL(t *testing.T) {
	_, err := NewFetcher(nil).Fetch(context.Background(), "://bad")
	assert.Error(t, err)
}
