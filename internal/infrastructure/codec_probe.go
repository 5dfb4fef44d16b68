package infrastructure

import (
	"bufio"
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

// containerEncoders lists the video encoder each container needs
var containerEncoders = map[domain.Container]string{
	domain.ContainerMP4:  "libx264",
	domain.ContainerWebM: "libvpx-vp9",
}

// probeTimeout bounds a single `ffmpeg -encoders` run
const probeTimeout = 10 * time.Second

// FFmpegCodecProber reports which containers the local ffmpeg can encode.
// A successful encoder listing is cached for the life of the process; a
// failed one is retried on the next call.
type FFmpegCodecProber struct {
	binary  string
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	encoders map[string]bool // nil until a probe succeeds
}

// NewFFmpegCodecProber creates a prober for the given ffmpeg binary
func NewFFmpegCodecProber(binary string, logger *zap.Logger) *FFmpegCodecProber {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegCodecProber{binary: binary, logger: logger, timeout: probeTimeout}
}

// SupportsContainer reports whether recording into c is possible
func (p *FFmpegCodecProber) SupportsContainer(ctx context.Context, c domain.Container) bool {
	encoder, ok := containerEncoders[c]
	if !ok {
		return false
	}
	return p.probe(ctx)[encoder]
}

// probe returns the cached encoder set, listing it first if no probe has
// succeeded yet. The caller's cancellation does not reach ffmpeg, so one
// aborted request cannot poison the cache for later ones.
func (p *FFmpegCodecProber) probe(ctx context.Context) map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.encoders != nil {
		return p.encoders
	}

	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, p.binary, "-hide_banner", "-encoders").Output()
	if err != nil {
		p.logger.Warn("Failed to list ffmpeg encoders",
			zap.String("binary", p.binary),
			zap.Error(err))
		return nil
	}

	p.encoders = parseEncoders(string(out))
	p.logger.Debug("Probed ffmpeg encoders", zap.Int("count", len(p.encoders)))
	return p.encoders
}

// parseEncoders reads `ffmpeg -encoders` output. Encoder rows look like
// " V....D libx264              libx264 H.264 ..." and follow a "------" rule.
func parseEncoders(output string) map[string]bool {
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(output))
	inTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inTable {
			inTable = strings.HasPrefix(line, "---")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		encoders[fields[1]] = true
	}
	return encoders
}
