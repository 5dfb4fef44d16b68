package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type trimFixture struct {
	pipeline *TrimPipeline
	fetcher  *fakeFetcher
	surface  *fakeSurface
	recorder *fakeRecorder
	factory  *fakeRecorderFactory
	ws       *memWorkspace
	store    *memStore
	progress *progressLog

	mu     sync.Mutex
	states []TrimState
}

func newTrimFixture(duration float64, segments ...string) *trimFixture {
	f := &trimFixture{
		fetcher:  &fakeFetcher{data: []byte("source-video")},
		surface:  newFakeSurface(duration),
		recorder: newFakeRecorder(segments...),
		ws:       newMemWorkspace(),
		progress: &progressLog{},
	}
	f.factory = &fakeRecorderFactory{rec: f.recorder}
	f.store = &memStore{ws: f.ws}
	f.pipeline = NewTrimPipeline(
		f.fetcher,
		func() domain.DecodeSurface { return f.surface },
		f.factory,
		f.ws,
		f.store,
		TrimOptions{PollInterval: time.Millisecond, Timeslice: time.Millisecond},
		zap.NewNop(),
	)
	f.pipeline.now = fixedClock(time.UnixMilli(1700000000000), time.Millisecond)
	f.pipeline.onState = func(id string, state TrimState) {
		f.mu.Lock()
		f.states = append(f.states, state)
		f.mu.Unlock()
	}
	return f
}

func (f *trimFixture) run(t *testing.T, trim *domain.TrimRange, container domain.Container) (*domain.Artifact, error) {
	t.Helper()
	req := domain.NewDownloadRequest("https://cdn.example.com/media/source.MP4?sig=1", "Clip", domain.MediaVideo, trim, f.progress.Report)
	return f.pipeline.Run(context.Background(), req, domain.Decision{Strategy: domain.StrategyRecord, Container: container})
}

func (f *trimFixture) States() []TrimState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TrimState(nil), f.states...)
}

func assertNonDecreasing(t *testing.T, values []int) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1], "progress went backwards: %v", values)
	}
}

func TestTrimPipeline_RecordsWindowAsMP4(t *testing.T) {
	f := newTrimFixture(10, "seg1-", "seg2")

	artifact, err := f.run(t, &domain.TrimRange{Start: 2, End: 5}, domain.ContainerMP4)
	require.NoError(t, err)

	assert.Equal(t, "Clip_1700000000000.mp4", artifact.Filename)
	assert.Equal(t, "video/mp4", artifact.ContentType)
	require.Len(t, f.store.saved, 1)
	assert.Equal(t, []byte("seg1-seg2"), f.store.saved[0].data)

	position, seekedTo, closed := f.surface.snapshot()
	assert.Equal(t, 2.0, seekedTo)
	assert.GreaterOrEqual(t, position, 5.0)
	assert.True(t, closed)

	assert.Equal(t, domain.ContainerMP4, f.factory.opts.Container)
	assert.Equal(t, 5_000_000, f.factory.opts.BitsPerSecond)
	assert.Equal(t, 30, f.factory.fps)
	assert.Equal(t, 1, f.recorder.StopCalls())

	assert.Equal(t, []TrimState{
		TrimFetching, TrimMetadataLoaded, TrimSeeking, TrimRecording, TrimStopping, TrimDone,
	}, f.States())

	values := f.progress.Values()
	require.NotEmpty(t, values)
	assert.Equal(t, []int{5, 20, 25, 30}, values[:4])
	assert.Equal(t, []int{95, 100}, values[len(values)-2:])
	assertNonDecreasing(t, values)
	for _, v := range values[4 : len(values)-2] {
		assert.LessOrEqual(t, v, 90)
	}

	assert.Zero(t, f.ws.Live())
	assert.Len(t, f.ws.released, 2)
	assert.Contains(t, f.ws.released[0], ".mp4")
}

func TestTrimPipeline_WebMContainer(t *testing.T) {
	f := newTrimFixture(10, "webm-bytes")

	artifact, err := f.run(t, &domain.TrimRange{Start: 2, End: 5}, domain.ContainerWebM)
	require.NoError(t, err)

	assert.Regexp(t, `^Clip_\d+\.webm$`, artifact.Filename)
	assert.Equal(t, "video/webm", artifact.ContentType)
	assert.Equal(t, domain.ContainerWebM, f.factory.opts.Container)
}

func TestTrimPipeline_StopsWhenSourceEndsEarly(t *testing.T) {
	f := newTrimFixture(3, "tail")
	f.surface.step = 0
	f.surface.endOnPlay = true

	_, err := f.run(t, &domain.TrimRange{Start: 1, End: 50}, domain.ContainerMP4)
	require.NoError(t, err)
	assert.Equal(t, 1, f.recorder.StopCalls())
}

func TestTrimPipeline_Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *trimFixture)
		sentinel error
		lastGood TrimState
	}{
		{
			name:     "fetch",
			setup:    func(f *trimFixture) { f.fetcher.err = &domain.NetworkError{URL: "u", StatusCode: 500} },
			sentinel: domain.ErrNetwork,
			lastGood: TrimFetching,
		},
		{
			name:     "metadata",
			setup:    func(f *trimFixture) { f.surface.loadErr = errors.New("decode error") },
			sentinel: domain.ErrMediaLoad,
			lastGood: TrimFetching,
		},
		{
			name:     "capture",
			setup:    func(f *trimFixture) { f.surface.captureErr = errors.New("no captureStream") },
			sentinel: domain.ErrCaptureUnsupported,
			lastGood: TrimSeeking,
		},
		{
			name:     "recorder open",
			setup:    func(f *trimFixture) { f.factory.openErr = errors.New("codec") },
			sentinel: domain.ErrSink,
			lastGood: TrimSeeking,
		},
		{
			name:     "recorder start",
			setup:    func(f *trimFixture) { f.recorder.startErr = errors.New("busy") },
			sentinel: domain.ErrSink,
			lastGood: TrimSeeking,
		},
		{
			name:     "recorder error",
			setup:    func(f *trimFixture) { f.recorder.err = errors.New("encoder crashed") },
			sentinel: domain.ErrSink,
			lastGood: TrimStopping,
		},
		{
			name:     "zero output",
			setup:    func(f *trimFixture) {},
			sentinel: domain.ErrSink,
			lastGood: TrimStopping,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTrimFixture(10)
			if tt.name != "zero output" {
				f.recorder.segments = [][]byte{[]byte("data")}
			}
			tt.setup(f)

			_, err := f.run(t, &domain.TrimRange{Start: 2, End: 5}, domain.ContainerMP4)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)

			states := f.States()
			require.GreaterOrEqual(t, len(states), 2)
			assert.Equal(t, TrimError, states[len(states)-1])
			assert.Equal(t, tt.lastGood, states[len(states)-2])

			assert.Empty(t, f.store.saved)
			assert.Zero(t, f.ws.Live(), "staged files leaked")
		})
	}
}

func TestTrimPipeline_CancelStopsRecorder(t *testing.T) {
	f := newTrimFixture(100, "x")
	f.surface.step = 0

	ctx, cancel := context.WithCancel(context.Background())
	f.pipeline.onState = func(id string, state TrimState) {
		if state == TrimRecording {
			cancel()
		}
	}

	req := domain.NewDownloadRequest("https://cdn.example.com/v.mp4", "Clip", domain.MediaVideo, &domain.TrimRange{Start: 1, End: 90}, nil)
	_, err := f.pipeline.Run(ctx, req, domain.Decision{Strategy: domain.StrategyRecord, Container: domain.ContainerMP4})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.recorder.StopCalls())
	assert.Zero(t, f.ws.Live())
	_, _, closed := f.surface.snapshot()
	assert.True(t, closed)
}

func TestTrimPipeline_AbortLogsRecorderStopFailure(t *testing.T) {
	playErr := errors.New("autoplay blocked")
	stopErr := errors.New("ffmpeg did not exit")

	tests := []struct {
		name    string
		setup   func(f *trimFixture, cancel context.CancelFunc)
		wantErr error
	}{
		{
			name: "play fails",
			setup: func(f *trimFixture, cancel context.CancelFunc) {
				f.surface.playErr = playErr
			},
			wantErr: playErr,
		},
		{
			name: "cancelled while recording",
			setup: func(f *trimFixture, cancel context.CancelFunc) {
				f.surface.step = 0
				f.pipeline.onState = func(id string, state TrimState) {
					if state == TrimRecording {
						cancel()
					}
				}
			},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTrimFixture(100, "x")
			f.recorder.stopErr = stopErr
			core, logs := observer.New(zap.WarnLevel)
			f.pipeline.logger = zap.New(core)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			tt.setup(f, cancel)

			req := domain.NewDownloadRequest("https://cdn.example.com/v.mp4", "Clip", domain.MediaVideo, &domain.TrimRange{Start: 1, End: 90}, nil)
			_, err := f.pipeline.Run(ctx, req, domain.Decision{Strategy: domain.StrategyRecord, Container: domain.ContainerMP4})

			assert.ErrorIs(t, err, tt.wantErr)
			entries := logs.FilterMessage("Failed to stop recorder").All()
			require.Len(t, entries, 1)
			assert.Equal(t, stopErr.Error(), entries[0].ContextMap()["error"])
			assert.Zero(t, f.ws.Live())
		})
	}
}

func TestRecordWindow(t *testing.T) {
	tests := []struct {
		name                string
		trim                *domain.TrimRange
		duration            float64
		start, end, expLen float64
	}{
		{"start and end", &domain.TrimRange{Start: 2, End: 5}, 10, 2, 5, 3},
		{"start only", &domain.TrimRange{Start: 2}, 10, 2, 10, 8},
		{"end only", &domain.TrimRange{End: 4}, 10, 0, 4, 4},
		{"inverted clamps to zero", &domain.TrimRange{Start: 6, End: 5}, 10, 6, 5, 0},
		{"no range", nil, 10, 0, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, length := recordWindow(tt.trim, tt.duration)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
			assert.Equal(t, tt.expLen, length)
		})
	}
}

func TestRecordingProgress(t *testing.T) {
	assert.Equal(t, 30, recordingProgress(0, 3))
	assert.Equal(t, 60, recordingProgress(1500*time.Millisecond, 3))
	assert.Equal(t, 90, recordingProgress(3*time.Second, 3))
	assert.Equal(t, 90, recordingProgress(time.Minute, 3))
	assert.Equal(t, 90, recordingProgress(0, 0))
}

func TestSourceExtension(t *testing.T) {
	assert.Equal(t, "mp4", sourceExtension("https://cdn.example.com/media/source.MP4?sig=1"))
	assert.Equal(t, "webm", sourceExtension("https://cdn.example.com/a.webm"))
	assert.Equal(t, "bin", sourceExtension("https://cdn.example.com/stream"))
	assert.Equal(t, "bin", sourceExtension("://bad"))
}
