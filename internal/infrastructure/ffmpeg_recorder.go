package infrastructure

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

const stopGrace = 5 * time.Second

// FFmpegRecorderFactory opens ffmpeg encoders against surface capture streams
type FFmpegRecorderFactory struct {
	binary string
	logger *zap.Logger
}

// NewFFmpegRecorderFactory creates a factory for the given ffmpeg binary
func NewFFmpegRecorderFactory(binary string, logger *zap.Logger) *FFmpegRecorderFactory {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegRecorderFactory{binary: binary, logger: logger}
}

// NewRecorder prepares a recorder; encoding starts on Start
func (f *FFmpegRecorderFactory) NewRecorder(stream domain.CaptureStream, opts domain.RecorderOptions) (domain.Recorder, error) {
	capture, ok := stream.(*ffmpegCapture)
	if !ok {
		return nil, &domain.SinkError{Op: "open", Err: fmt.Errorf("unsupported stream %T", stream)}
	}
	if _, ok := codecArgs[opts.Container]; !ok {
		return nil, &domain.SinkError{Op: "open", Err: fmt.Errorf("unsupported container %q", opts.Container)}
	}

	return &ffmpegRecorder{
		binary:  f.binary,
		capture: capture,
		opts:    opts,
		logger:  f.logger,
		stopped: make(chan struct{}),
	}, nil
}

var codecArgs = map[domain.Container][]string{
	domain.ContainerMP4: {
		"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"-f", "mp4",
	},
	domain.ContainerWebM: {
		"-c:v", "libvpx-vp9", "-deadline", "realtime", "-cpu-used", "8",
		"-c:a", "libopus",
		"-f", "webm",
	},
}

// recorderArgs builds the ffmpeg invocation. Output is paced at native
// rate so playback position tracks wall time, and written to stdout.
func recorderArgs(capture *ffmpegCapture, opts domain.RecorderOptions) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostats",
		"-re",
		"-ss", strconv.FormatFloat(capture.start, 'f', 3, 64),
		"-i", capture.source,
		"-r", strconv.Itoa(capture.fps),
	}
	args = append(args, codecArgs[opts.Container]...)
	if opts.BitsPerSecond > 0 {
		args = append(args, "-b:v", strconv.Itoa(opts.BitsPerSecond))
	}
	return append(args, "-progress", "pipe:2", "pipe:1")
}

type ffmpegRecorder struct {
	binary  string
	capture *ffmpegCapture
	opts    domain.RecorderOptions
	logger  *zap.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu      sync.Mutex
	pending []byte

	stopOnce      sync.Once
	stopRequested bool
	stopped       chan struct{}
	err           error
}

func (r *ffmpegRecorder) Start(timeslice time.Duration, onSegment func([]byte)) error {
	if timeslice <= 0 {
		timeslice = 100 * time.Millisecond
	}

	args := recorderArgs(r.capture, r.opts)
	cmd := exec.Command(r.binary, args...)
	r.logger.Debug("Starting recorder", zap.String("command", formatCommand(r.binary, args...)))

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	r.cmd = cmd
	r.stdin = stdin

	var readers sync.WaitGroup
	var stderrTail bytes.Buffer
	readers.Add(2)
	go func() {
		defer readers.Done()
		r.readOutput(stdout)
	}()
	go func() {
		defer readers.Done()
		r.readProgress(stderr, &stderrTail)
	}()

	flushDone := make(chan struct{})
	outputDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		ticker := time.NewTicker(timeslice)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.flush(onSegment)
			case <-outputDone:
				r.flush(onSegment)
				return
			}
		}
	}()

	go func() {
		readers.Wait()
		close(outputDone)
		<-flushDone

		waitErr := cmd.Wait()

		r.mu.Lock()
		requested := r.stopRequested
		if waitErr != nil && !requested {
			msg := strings.TrimSpace(stderrTail.String())
			r.err = fmt.Errorf("ffmpeg exited: %w: %s", waitErr, msg)
		}
		r.mu.Unlock()

		if !requested {
			r.capture.surface.markEnded()
		}
		close(r.stopped)
	}()

	return nil
}

func (r *ffmpegRecorder) readOutput(stdout io.Reader) {
	buf := make([]byte, 64*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.pending = append(r.pending, buf[:n]...)
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// readProgress consumes -progress key=value lines and keeps other lines
// as the error tail
func (r *ffmpegRecorder) readProgress(stderr io.Reader, tail *bytes.Buffer) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		if elapsed, ok := parseOutTime(line); ok {
			r.capture.surface.advance(r.capture.start + elapsed)
			continue
		}
		if isProgressLine(line) {
			continue
		}
		if tail.Len() < 4096 {
			tail.WriteString(line)
			tail.WriteByte('\n')
		}
	}
}

func (r *ffmpegRecorder) flush(onSegment func([]byte)) {
	r.mu.Lock()
	segment := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(segment) > 0 {
		onSegment(segment)
	}
}

// Stop asks ffmpeg to finish the container and kills it if it does not
// exit within stopGrace
func (r *ffmpegRecorder) Stop() error {
	if r.cmd == nil {
		return errors.New("recorder not started")
	}

	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopRequested = true
		r.mu.Unlock()

		select {
		case <-r.stopped:
			return
		default:
		}

		if _, werr := io.WriteString(r.stdin, "q\n"); werr != nil {
			r.logger.Debug("Recorder stdin closed", zap.Error(werr))
		}
		r.stdin.Close()

		go func() {
			select {
			case <-r.stopped:
			case <-time.After(stopGrace):
				r.logger.Warn("Recorder did not stop in time, killing", zap.Duration("grace", stopGrace))
				err := r.cmd.Process.Kill()
				if err != nil && !errors.Is(err, os.ErrProcessDone) {
					r.logger.Error("Failed to kill recorder", zap.Error(err))
				}
			}
		}()
	})
	return nil
}

func (r *ffmpegRecorder) Stopped() <-chan struct{} { return r.stopped }

func (r *ffmpegRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// parseOutTime reads an out_time_us progress line, in seconds
func parseOutTime(line string) (float64, bool) {
	value, ok := strings.CutPrefix(line, "out_time_us=")
	if !ok {
		return 0, false
	}
	us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return float64(us) / 1e6, true
}

func isProgressLine(line string) bool {
	key, _, ok := strings.Cut(line, "=")
	return ok && !strings.ContainsAny(key, " \t:")
}
