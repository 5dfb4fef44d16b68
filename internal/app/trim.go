package app

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

// TrimState is a stage of the trim pipeline
type TrimState string

const (
	TrimIdle           TrimState = "IDLE"
	TrimFetching       TrimState = "FETCHING"
	TrimMetadataLoaded TrimState = "METADATA_LOADED"
	TrimSeeking        TrimState = "SEEKING"
	TrimRecording      TrimState = "RECORDING"
	TrimStopping       TrimState = "STOPPING"
	TrimDone           TrimState = "DONE"
	TrimError          TrimState = "ERROR"
)

// TrimOptions holds the capture parameters
type TrimOptions struct {
	FrameRate     int
	BitsPerSecond int
	Timeslice     time.Duration
	PollInterval  time.Duration
	SettleDelay   time.Duration
}

// TrimOptionsFromConfig builds options from configuration
func TrimOptionsFromConfig(capture domain.CaptureConfig, download domain.DownloadConfig) TrimOptions {
	return TrimOptions{
		FrameRate:     capture.FrameRate,
		BitsPerSecond: capture.BitsPerSecond,
		Timeslice:     capture.Timeslice,
		PollInterval:  capture.PollInterval,
		SettleDelay:   download.SettleDelay,
	}
}

// TrimPipeline re-encodes the [start, end] window of a video by playing it
// through a decode surface into a recorder
type TrimPipeline struct {
	fetcher    Fetcher
	newSurface func() domain.DecodeSurface
	recorders  domain.RecorderFactory
	workspace  domain.Workspace
	store      domain.ArtifactStore
	opts       TrimOptions
	logger     *zap.Logger
	now        func() time.Time

	// onState observes transitions; used by tests
	onState func(id string, state TrimState)
}

// NewTrimPipeline creates a trim pipeline. newSurface is called once per run.
func NewTrimPipeline(
	fetcher Fetcher,
	newSurface func() domain.DecodeSurface,
	recorders domain.RecorderFactory,
	workspace domain.Workspace,
	store domain.ArtifactStore,
	opts TrimOptions,
	logger *zap.Logger,
) *TrimPipeline {
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.BitsPerSecond <= 0 {
		opts.BitsPerSecond = 5_000_000
	}
	if opts.Timeslice <= 0 {
		opts.Timeslice = 100 * time.Millisecond
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	return &TrimPipeline{
		fetcher:    fetcher,
		newSurface: newSurface,
		recorders:  recorders,
		workspace:  workspace,
		store:      store,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// recordingSession owns everything a single run allocates
type recordingSession struct {
	req        *domain.DownloadRequest
	state      TrimState
	surface    domain.DecodeSurface
	sourcePath string
	outputPath string

	mu       sync.Mutex
	segments [][]byte
}

func (rs *recordingSession) collect(segment []byte) {
	rs.mu.Lock()
	rs.segments = append(rs.segments, segment)
	rs.mu.Unlock()
}

func (rs *recordingSession) assemble() []byte {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return bytes.Join(rs.segments, nil)
}

// Run executes the pipeline. Every exit path detaches the surface and
// releases both staged files.
func (p *TrimPipeline) Run(ctx context.Context, req *domain.DownloadRequest, decision domain.Decision) (*domain.Artifact, error) {
	rs := &recordingSession{req: req, state: TrimIdle}
	defer p.teardown(rs)

	artifact, err := p.run(ctx, rs, decision.Container)
	if err != nil {
		p.logger.Error("Trim pipeline failed",
			zap.String("id", req.ID),
			zap.String("state", string(rs.state)),
			zap.Error(err))
		p.transition(rs, TrimError)
		return nil, err
	}
	p.transition(rs, TrimDone)
	return artifact, nil
}

func (p *TrimPipeline) run(ctx context.Context, rs *recordingSession, container domain.Container) (*domain.Artifact, error) {
	req := rs.req
	if container == "" {
		container = domain.ContainerWebM
	}

	// FETCHING
	p.transition(rs, TrimFetching)
	req.Progress.Report(5)
	data, err := p.fetcher.Fetch(ctx, req.ResourceURL, domain.ProgressRange{Lo: 5, Hi: 5}, nil)
	if err != nil {
		return nil, err
	}
	rs.sourcePath, err = p.workspace.Stage(data, sourceExtension(req.ResourceURL))
	if err != nil {
		return nil, err
	}

	// METADATA_LOADED
	rs.surface = p.newSurface()
	meta, err := rs.surface.Load(ctx, rs.sourcePath)
	if err != nil {
		var loadErr *domain.MediaLoadError
		if !errors.As(err, &loadErr) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = &domain.MediaLoadError{Err: err}
		}
		return nil, err
	}
	p.transition(rs, TrimMetadataLoaded)
	req.Progress.Report(20)

	// SEEKING
	p.transition(rs, TrimSeeking)
	startTime, endTime, recordDuration := recordWindow(req.TrimRange, meta.Duration)
	if err := rs.surface.Seek(ctx, startTime); err != nil {
		return nil, err
	}
	req.Progress.Report(25)

	// RECORDING
	stream, err := rs.surface.CaptureStream(p.opts.FrameRate)
	if err != nil {
		var capErr *domain.CaptureUnsupportedError
		if !errors.As(err, &capErr) {
			err = &domain.CaptureUnsupportedError{Reason: err.Error()}
		}
		return nil, err
	}
	rec, err := p.recorders.NewRecorder(stream, domain.RecorderOptions{
		Container:     container,
		BitsPerSecond: p.opts.BitsPerSecond,
	})
	if err != nil {
		return nil, asSinkError("open", err)
	}
	if err := rec.Start(p.opts.Timeslice, rs.collect); err != nil {
		return nil, asSinkError("start", err)
	}
	p.transition(rs, TrimRecording)
	if err := rs.surface.Play(); err != nil {
		p.abortRecorder(req.ID, rec)
		<-rec.Stopped()
		return nil, err
	}
	req.Progress.Report(30)

	p.logger.Debug("Recording",
		zap.String("id", req.ID),
		zap.Float64("start", startTime),
		zap.Float64("end", endTime),
		zap.Float64("duration", recordDuration),
		zap.String("container", string(container)))

	if err := p.monitor(ctx, rs, rec, endTime, recordDuration); err != nil {
		return nil, err
	}

	// STOPPING
	p.transition(rs, TrimStopping)
	select {
	case <-rec.Stopped():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := rec.Err(); err != nil {
		return nil, asSinkError("stop", err)
	}

	output := rs.assemble()
	if len(output) == 0 {
		return nil, &domain.SinkError{Op: "produced no output"}
	}
	req.Progress.Report(95)

	rs.outputPath, err = p.workspace.Stage(output, container.Extension())
	if err != nil {
		return nil, err
	}
	artifact := &domain.Artifact{
		Filename:    domain.BuildFilename(req.DisplayTitle, p.now(), container.Extension()),
		ContentType: container.ContentType(),
		Size:        int64(len(output)),
	}
	if err := p.store.Save(ctx, rs.outputPath, artifact); err != nil {
		return nil, err
	}

	p.logger.Info("Trimmed download saved",
		zap.String("id", req.ID),
		zap.String("filename", artifact.Filename),
		zap.String("size", humanize.Bytes(uint64(artifact.Size))))

	req.Progress.Report(100)
	settle(ctx, p.opts.SettleDelay)
	return artifact, nil
}

// abortRecorder stops rec on a path that is already failing; the stop
// error is logged because the original failure is what gets returned
func (p *TrimPipeline) abortRecorder(id string, rec domain.Recorder) {
	if err := rec.Stop(); err != nil {
		p.logger.Warn("Failed to stop recorder", zap.String("id", id), zap.Error(err))
	}
}

// monitor polls playback until endTime or natural end, then asks the
// recorder to stop. Progress maps elapsed wall time into [30, 90].
func (p *TrimPipeline) monitor(ctx context.Context, rs *recordingSession, rec domain.Recorder, endTime, recordDuration float64) error {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	started := time.Now()
	last := 30
	stop := func() error {
		if err := rec.Stop(); err != nil {
			return asSinkError("stop", err)
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			p.abortRecorder(rs.req.ID, rec)
			return ctx.Err()

		case <-rs.surface.Ended():
			return stop()

		case <-rec.Stopped():
			// recorder finished on its own
			return nil

		case <-ticker.C:
			if pct := recordingProgress(time.Since(started), recordDuration); pct > last {
				last = pct
				rs.req.Progress.Report(pct)
			}
			if rs.surface.CurrentTime() >= endTime {
				if err := rs.surface.Pause(); err != nil {
					p.logger.Warn("Failed to pause surface", zap.Error(err))
				}
				return stop()
			}
		}
	}
}

// recordWindow resolves the trim range against the media duration. An
// unset end means the end of the media.
func recordWindow(trim *domain.TrimRange, duration float64) (start, end, length float64) {
	end = duration
	if trim != nil {
		start = trim.Start
		if trim.End > 0 {
			end = trim.End
		}
	}
	return start, end, math.Max(0, end-start)
}

// recordingProgress maps elapsed time against the recording length into
// [30, 90]
func recordingProgress(elapsed time.Duration, recordDuration float64) int {
	if recordDuration <= 0 {
		return 90
	}
	pct := 30 + int(elapsed.Seconds()/recordDuration*60)
	if pct > 90 {
		return 90
	}
	return pct
}

func (p *TrimPipeline) transition(rs *recordingSession, state TrimState) {
	rs.state = state
	if p.onState != nil {
		p.onState(rs.req.ID, state)
	}
}

func (p *TrimPipeline) teardown(rs *recordingSession) {
	if rs.surface != nil {
		if err := rs.surface.Close(); err != nil {
			p.logger.Warn("Failed to close decode surface", zap.Error(err))
		}
	}
	for _, staged := range []string{rs.sourcePath, rs.outputPath} {
		if staged == "" {
			continue
		}
		if err := p.workspace.Release(staged); err != nil {
			p.logger.Warn("Failed to release staged file", zap.String("path", staged), zap.Error(err))
		}
	}
}

func asSinkError(op string, err error) error {
	var sinkErr *domain.SinkError
	if errors.As(err, &sinkErr) {
		return err
	}
	return &domain.SinkError{Op: op, Err: err}
}

// sourceExtension returns the URL path's extension, or "bin"
func sourceExtension(resourceURL string) string {
	u, err := url.Parse(resourceURL)
	if err != nil {
		return "bin"
	}
	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" {
		return "bin"
	}
	return strings.ToLower(ext)
}
