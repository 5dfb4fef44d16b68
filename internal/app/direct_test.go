package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

func newTestDirect(fetcher Fetcher) (*DirectStrategy, *memWorkspace, *memStore) {
	ws := newMemWorkspace()
	store := &memStore{ws: ws}
	s := NewDirectStrategy(fetcher, ws, store, 0, zap.NewNop())
	return s, ws, store
}

func TestDirectStrategy_SavesWithGeneratedName(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("video-bytes")}
	s, ws, store := newTestDirect(fetcher)
	at := time.UnixMilli(1700000000123)
	s.now = fixedClock(at, time.Millisecond)

	progress := &progressLog{}
	req := domain.NewDownloadRequest("https://cdn.example.com/v.mp4", "My Video", domain.MediaVideo, nil, progress.Report)

	artifact, err := s.Run(context.Background(), req, domain.Decision{Strategy: domain.StrategyDirect})
	require.NoError(t, err)

	assert.Equal(t, "My_Video_1700000000123.mp4", artifact.Filename)
	assert.Regexp(t, `^My_Video_\d+\.mp4$`, artifact.Filename)
	assert.Equal(t, "video/mp4", artifact.ContentType)
	assert.Equal(t, int64(len("video-bytes")), artifact.Size)

	require.Len(t, store.saved, 1)
	assert.Equal(t, []byte("video-bytes"), store.saved[0].data)
	assert.Equal(t, []int{10, 90, 100}, progress.Values())
	assert.Zero(t, ws.Live())
	assert.Len(t, ws.released, 1)
}

func TestDirectStrategy_ImageMode(t *testing.T) {
	s, _, _ := newTestDirect(&fakeFetcher{data: []byte{0x89, 'P', 'N', 'G'}})

	req := domain.NewDownloadRequest("https://cdn.example.com/cover", "Cover Art", domain.MediaImage, nil, nil)
	artifact, err := s.Run(context.Background(), req, domain.Decision{Strategy: domain.StrategyDirect})
	require.NoError(t, err)

	assert.Regexp(t, `^Cover_Art_\d+\.png$`, artifact.Filename)
	assert.Equal(t, "image/png", artifact.ContentType)
}

func TestDirectStrategy_RepeatedRunsDifferInNameOnly(t *testing.T) {
	s, _, store := newTestDirect(&fakeFetcher{data: []byte("same")})
	s.now = fixedClock(time.UnixMilli(1700000000000), 5*time.Millisecond)

	req := domain.NewDownloadRequest("https://cdn.example.com/v.mp4", "Clip", domain.MediaVideo, nil, nil)
	first, err := s.Run(context.Background(), req, domain.Decision{})
	require.NoError(t, err)
	second, err := s.Run(context.Background(), req, domain.Decision{})
	require.NoError(t, err)

	assert.NotEqual(t, first.Filename, second.Filename)
	require.Len(t, store.saved, 2)
	assert.Equal(t, store.saved[0].data, store.saved[1].data)
}

func TestDirectStrategy_FetchFailure(t *testing.T) {
	fetchErr := &domain.NetworkError{URL: "https://cdn.example.com/v.mp4", StatusCode: 404}
	s, ws, store := newTestDirect(&fakeFetcher{err: fetchErr})

	progress := &progressLog{}
	req := domain.NewDownloadRequest("https://cdn.example.com/v.mp4", "Clip", domain.MediaVideo, nil, progress.Report)
	_, err := s.Run(context.Background(), req, domain.Decision{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
	assert.Empty(t, store.saved)
	assert.Empty(t, progress.Values())
	assert.Zero(t, ws.Live())
}

func TestDirectStrategy_SaveFailureReleasesStagedFile(t *testing.T) {
	s, ws, store := newTestDirect(&fakeFetcher{data: []byte("x")})
	store.err = fmt.Errorf("disk full")

	req := domain.NewDownloadRequest("https://cdn.example.com/v.mp4", "Clip", domain.MediaVideo, nil, nil)
	_, err := s.Run(context.Background(), req, domain.Decision{})

	assert.EqualError(t, err, "disk full")
	assert.Zero(t, ws.Live())
	assert.Len(t, ws.released, 1)
}

func TestSettle_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	settle(ctx, time.Hour)
	assert.Less(t, time.Since(start), time.Second)
}
