package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/vidgrab-go/internal/domain"
)

func newTestFetcher(streaming bool, chunkSize int) *HTTPFetcher {
	return NewHTTPFetcher(&domain.DownloadConfig{Streaming: streaming, ChunkSize: chunkSize}, nil)
}

func recordProgress() (*[]int, domain.ProgressFunc) {
	var got []int
	return &got, func(p int) { got = append(got, p) }
}

func TestHTTPFetcher_KnownLengthProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("v"), 10_000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer server.Close()

	got, progress := recordProgress()
	data, err := newTestFetcher(true, 1000).Fetch(context.Background(), server.URL, domain.ProgressRange{Lo: 10, Hi: 90}, progress)

	require.NoError(t, err)
	assert.Equal(t, payload, data)
	require.NotEmpty(t, *got)
	assert.GreaterOrEqual(t, (*got)[0], 10)
	assert.Equal(t, 90, (*got)[len(*got)-1])
	for i := 1; i < len(*got); i++ {
		assert.GreaterOrEqual(t, (*got)[i], (*got)[i-1], "progress must not decrease")
	}
}

func TestHTTPFetcher_UnknownLengthJumpsToUpperBound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 5; i++ {
			w.Write(bytes.Repeat([]byte("x"), 512))
			flusher.Flush()
		}
	}))
	defer server.Close()

	got, progress := recordProgress()
	data, err := newTestFetcher(true, 256).Fetch(context.Background(), server.URL, domain.ProgressRange{Lo: 10, Hi: 90}, progress)

	require.NoError(t, err)
	assert.Len(t, data, 2560)
	assert.Equal(t, []int{90}, *got)
}

func TestHTTPFetcher_NonStreamingBuffersWholeBody(t *testing.T) {
	payload := []byte("whole body")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	got, progress := recordProgress()
	data, err := newTestFetcher(false, 0).Fetch(context.Background(), server.URL, domain.ProgressRange{Lo: 10, Hi: 90}, progress)

	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, []int{90}, *got)
}

func TestHTTPFetcher_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	got, progress := recordProgress()
	_, err := newTestFetcher(true, 0).Fetch(context.Background(), server.URL, domain.ProgressRange{Lo: 10, Hi: 90}, progress)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
	var netErr *domain.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusNotFound, netErr.StatusCode)
	assert.Empty(t, *got)
}

func TestHTTPFetcher_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestFetcher(true, 0).Fetch(context.Background(), url, domain.ProgressRange{Lo: 10, Hi: 90}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
}

func TestHTTPFetcher_SendsUserAgent(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.UserAgent()
	}))
	defer server.Close()

	f := NewHTTPFetcher(&domain.DownloadConfig{Streaming: true, UserAgent: "vidgrab-test"}, nil)
	_, err := f.Fetch(context.Background(), server.URL, domain.ProgressRange{}, nil)

	require.NoError(t, err)
	assert.Equal(t, "vidgrab-test", seen)
}
