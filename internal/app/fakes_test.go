package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

type fakeFetcher struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls int
	block chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, span domain.ProgressRange, progress domain.ProgressFunc) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	progress.Report(span.Lo)
	progress.Report(span.Hi)
	return append([]byte(nil), f.data...), nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memWorkspace struct {
	mu       sync.Mutex
	next     int
	files    map[string][]byte
	released []string
}

func newMemWorkspace() *memWorkspace {
	return &memWorkspace{files: make(map[string][]byte)}
}

func (w *memWorkspace) Stage(data []byte, ext string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next++
	path := fmt.Sprintf("/staging/stage-%d.%s", w.next, ext)
	w.files[path] = append([]byte(nil), data...)
	return path, nil
}

func (w *memWorkspace) Release(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.files, path)
	w.released = append(w.released, path)
	return nil
}

func (w *memWorkspace) Live() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.files)
}

type savedArtifact struct {
	artifact domain.Artifact
	data     []byte
}

type memStore struct {
	ws    *memWorkspace
	mu    sync.Mutex
	saved []savedArtifact
	err   error
}

func (s *memStore) Save(ctx context.Context, stagedPath string, artifact *domain.Artifact) error {
	if s.err != nil {
		return s.err
	}
	s.ws.mu.Lock()
	data, ok := s.ws.files[stagedPath]
	s.ws.mu.Unlock()
	if !ok {
		return fmt.Errorf("not staged: %s", stagedPath)
	}

	artifact.Location = "/completed/" + artifact.Filename
	s.mu.Lock()
	s.saved = append(s.saved, savedArtifact{artifact: *artifact, data: data})
	s.mu.Unlock()
	return nil
}

type fakeSurface struct {
	mu         sync.Mutex
	duration   float64
	loadErr    error
	captureErr error
	playErr    error
	step       float64
	endOnPlay  bool

	position float64
	playing  bool
	seekedTo float64
	loaded   string
	closed   bool
	ended    chan struct{}
}

func newFakeSurface(duration float64) *fakeSurface {
	return &fakeSurface{duration: duration, step: 0.5, ended: make(chan struct{})}
}

func (s *fakeSurface) Load(ctx context.Context, sourcePath string) (domain.MediaMetadata, error) {
	if s.loadErr != nil {
		return domain.MediaMetadata{}, s.loadErr
	}
	s.mu.Lock()
	s.loaded = sourcePath
	s.mu.Unlock()
	return domain.MediaMetadata{Duration: s.duration, Width: 640, Height: 360}, nil
}

func (s *fakeSurface) Seek(ctx context.Context, position float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekedTo = position
	s.position = position
	return nil
}

func (s *fakeSurface) CaptureStream(fps int) (domain.CaptureStream, error) {
	if s.captureErr != nil {
		return nil, s.captureErr
	}
	return fakeStream{fps: fps}, nil
}

func (s *fakeSurface) Play() error {
	if s.playErr != nil {
		return s.playErr
	}
	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()
	if s.endOnPlay {
		close(s.ended)
	}
	return nil
}

func (s *fakeSurface) Pause() error {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
	return nil
}

func (s *fakeSurface) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		s.position += s.step
	}
	return s.position
}

func (s *fakeSurface) Ended() <-chan struct{} { return s.ended }

func (s *fakeSurface) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSurface) snapshot() (position, seekedTo float64, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, s.seekedTo, s.closed
}

type fakeStream struct{ fps int }

func (f fakeStream) FrameRate() int { return f.fps }

type fakeRecorder struct {
	segments [][]byte
	startErr error
	stopErr  error
	err      error

	mu        sync.Mutex
	onSegment func([]byte)
	stopCalls int
	once      sync.Once
	stopped   chan struct{}
}

func newFakeRecorder(segments ...string) *fakeRecorder {
	r := &fakeRecorder{stopped: make(chan struct{})}
	for _, s := range segments {
		r.segments = append(r.segments, []byte(s))
	}
	return r
}

func (r *fakeRecorder) Start(timeslice time.Duration, onSegment func([]byte)) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.mu.Lock()
	r.onSegment = onSegment
	r.mu.Unlock()
	return nil
}

func (r *fakeRecorder) Stop() error {
	r.mu.Lock()
	r.stopCalls++
	onSegment := r.onSegment
	r.mu.Unlock()

	r.once.Do(func() {
		for _, seg := range r.segments {
			onSegment(seg)
		}
		close(r.stopped)
	})
	return r.stopErr
}

func (r *fakeRecorder) Stopped() <-chan struct{} { return r.stopped }

func (r *fakeRecorder) Err() error { return r.err }

func (r *fakeRecorder) StopCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopCalls
}

type fakeRecorderFactory struct {
	rec     *fakeRecorder
	openErr error
	opts    domain.RecorderOptions
	fps     int
}

func (f *fakeRecorderFactory) NewRecorder(stream domain.CaptureStream, opts domain.RecorderOptions) (domain.Recorder, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opts = opts
	f.fps = stream.FrameRate()
	return f.rec, nil
}

type progressLog struct {
	mu     sync.Mutex
	values []int
}

func (p *progressLog) Report(percent int) {
	p.mu.Lock()
	p.values = append(p.values, percent)
	p.mu.Unlock()
}

func (p *progressLog) Values() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.values...)
}

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := current
		current = current.Add(step)
		return t
	}
}
