package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/h2non/filetype"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

// FFmpegSurface is a decode surface backed by ffprobe for metadata and an
// ffmpeg recorder for playback. Playback position advances as the recorder
// reports encoded output time.
type FFmpegSurface struct {
	ffprobe string
	logger  *zap.Logger

	mu     sync.Mutex
	source string
	meta   domain.MediaMetadata
	loaded bool

	position atomic.Uint64 // float64 bits, seconds
	paused   atomic.Bool

	endOnce sync.Once
	ended   chan struct{}
}

// NewFFmpegSurface creates an empty surface
func NewFFmpegSurface(ffprobe string, logger *zap.Logger) *FFmpegSurface {
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &FFmpegSurface{
		ffprobe: ffprobe,
		logger:  logger,
		ended:   make(chan struct{}),
	}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Load probes sourcePath and waits for its metadata
func (s *FFmpegSurface) Load(ctx context.Context, sourcePath string) (domain.MediaMetadata, error) {
	s.sniff(sourcePath)

	cmd := exec.CommandContext(ctx, s.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		sourcePath,
	)
	s.logger.Debug("Probing source", zap.String("command", formatCommand(cmd.Path, cmd.Args[1:]...)))

	output, err := cmd.Output()
	if err != nil {
		return domain.MediaMetadata{}, &domain.MediaLoadError{Err: fmt.Errorf("ffprobe: %w", err)}
	}

	meta, err := parseProbeOutput(output)
	if err != nil {
		return domain.MediaMetadata{}, &domain.MediaLoadError{Err: err}
	}

	s.mu.Lock()
	s.source = sourcePath
	s.meta = meta
	s.loaded = true
	s.mu.Unlock()
	s.setPosition(0)

	return meta, nil
}

func parseProbeOutput(output []byte) (domain.MediaMetadata, error) {
	var parsed probeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return domain.MediaMetadata{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var meta domain.MediaMetadata
	hasVideo := false
	for _, stream := range parsed.Streams {
		if stream.CodecType != "video" {
			continue
		}
		hasVideo = true
		meta.Width = stream.Width
		meta.Height = stream.Height
		break
	}
	if !hasVideo {
		return meta, fmt.Errorf("no video stream")
	}

	duration, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil || duration <= 0 || math.IsInf(duration, 0) {
		return meta, fmt.Errorf("unknown duration %q", parsed.Format.Duration)
	}
	meta.Duration = duration
	return meta, nil
}

func (s *FFmpegSurface) sniff(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	head := make([]byte, 261)
	n, _ := io.ReadFull(f, head)
	if n > 0 && !filetype.IsVideo(head[:n]) {
		s.logger.Warn("Source does not look like video", zap.String("path", path))
	}
}

// Seek clamps position into the media and moves the playhead there
func (s *FFmpegSurface) Seek(ctx context.Context, position float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	duration := s.meta.Duration
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		return fmt.Errorf("seek before load")
	}

	s.setPosition(math.Max(0, math.Min(position, duration)))
	return nil
}

// CaptureStream opens a stream that records from the current position
func (s *FFmpegSurface) CaptureStream(fps int) (domain.CaptureStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, &domain.CaptureUnsupportedError{Reason: "no source loaded"}
	}
	if fps <= 0 {
		fps = 30
	}
	return &ffmpegCapture{
		surface: s,
		source:  s.source,
		start:   s.CurrentTime(),
		fps:     fps,
	}, nil
}

// Play starts playback
func (s *FFmpegSurface) Play() error {
	s.paused.Store(false)
	return nil
}

// Pause freezes the reported playback position
func (s *FFmpegSurface) Pause() error {
	s.paused.Store(true)
	return nil
}

// CurrentTime returns the playback position in seconds
func (s *FFmpegSurface) CurrentTime() float64 {
	return math.Float64frombits(s.position.Load())
}

// Ended is closed when the source plays out
func (s *FFmpegSurface) Ended() <-chan struct{} {
	return s.ended
}

// Close detaches the source
func (s *FFmpegSurface) Close() error {
	s.mu.Lock()
	s.loaded = false
	s.source = ""
	s.mu.Unlock()
	return nil
}

// advance moves the playhead unless paused
func (s *FFmpegSurface) advance(position float64) {
	if s.paused.Load() {
		return
	}
	s.setPosition(position)
}

func (s *FFmpegSurface) setPosition(position float64) {
	s.position.Store(math.Float64bits(position))
}

func (s *FFmpegSurface) markEnded() {
	s.endOnce.Do(func() { close(s.ended) })
}

// ffmpegCapture is a capture stream anchored at a source position
type ffmpegCapture struct {
	surface *FFmpegSurface
	source  string
	start   float64
	fps     int
}

func (c *ffmpegCapture) FrameRate() int { return c.fps }
