package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

func TestParseProbeOutput(t *testing.T) {
	meta, err := parseProbeOutput([]byte(`{
		"format": {"duration": "12.500000"},
		"streams": [
			{"codec_type": "audio"},
			{"codec_type": "video", "width": 1280, "height": 720}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 12.5, meta.Duration)
	assert.Equal(t, 1280, meta.Width)
	assert.Equal(t, 720, meta.Height)

	_, err = parseProbeOutput([]byte(`{"format": {"duration": "3.0"}, "streams": [{"codec_type": "audio"}]}`))
	assert.ErrorContains(t, err, "no video stream")

	_, err = parseProbeOutput([]byte(`{"format": {"duration": "N/A"}, "streams": [{"codec_type": "video"}]}`))
	assert.ErrorContains(t, err, "unknown duration")
}

func TestFFmpegSurface_LoadFailureIsMediaLoadError(t *testing.T) {
	surface := NewFFmpegSurface("/nonexistent/ffprobe", zap.NewNop())

	_, err := surface.Load(context.Background(), "/nonexistent/source.mp4")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMediaLoad))
}

func TestFFmpegSurface_CaptureBeforeLoad(t *testing.T) {
	surface := NewFFmpegSurface("", zap.NewNop())

	_, err := surface.CaptureStream(30)
	assert.True(t, errors.Is(err, domain.ErrCaptureUnsupported))
}

func loadedSurface(duration float64) *FFmpegSurface {
	surface := NewFFmpegSurface("", zap.NewNop())
	surface.source = "/tmp/source.mp4"
	surface.meta = domain.MediaMetadata{Duration: duration}
	surface.loaded = true
	return surface
}

func TestFFmpegSurface_SeekClampsAndPauseFreezes(t *testing.T) {
	surface := loadedSurface(10)
	ctx := context.Background()

	require.NoError(t, surface.Seek(ctx, 4))
	assert.Equal(t, 4.0, surface.CurrentTime())

	require.NoError(t, surface.Seek(ctx, 99))
	assert.Equal(t, 10.0, surface.CurrentTime())

	require.NoError(t, surface.Seek(ctx, -1))
	assert.Equal(t, 0.0, surface.CurrentTime())

	surface.advance(2)
	assert.Equal(t, 2.0, surface.CurrentTime())

	require.NoError(t, surface.Pause())
	surface.advance(3)
	assert.Equal(t, 2.0, surface.CurrentTime())

	surface.markEnded()
	surface.markEnded()
	select {
	case <-surface.Ended():
	default:
		t.Fatal("ended not closed")
	}
}

func TestRecorderArgs(t *testing.T) {
	surface := loadedSurface(10)
	require.NoError(t, surface.Seek(context.Background(), 2))
	stream, err := surface.CaptureStream(30)
	require.NoError(t, err)

	args := recorderArgs(stream.(*ffmpegCapture), domain.RecorderOptions{
		Container:     domain.ContainerWebM,
		BitsPerSecond: 5_000_000,
	})

	assert.Equal(t, "-re", args[4])
	assert.Contains(t, formatCommand("ffmpeg", args...), "-ss 2.000 -i /tmp/source.mp4 -r 30")
	assert.Contains(t, args, "libvpx-vp9")
	assert.Contains(t, args, "5000000")
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func TestFFmpegRecorderFactory_RejectsForeignStream(t *testing.T) {
	factory := NewFFmpegRecorderFactory("", zap.NewNop())

	_, err := factory.NewRecorder(fakeStream{}, domain.RecorderOptions{Container: domain.ContainerMP4})
	assert.True(t, errors.Is(err, domain.ErrSink))
}

type fakeStream struct{}

func (fakeStream) FrameRate() int { return 30 }

func TestParseOutTime(t *testing.T) {
	secs, ok := parseOutTime("out_time_us=1500000")
	assert.True(t, ok)
	assert.Equal(t, 1.5, secs)

	_, ok = parseOutTime("out_time_us=N/A")
	assert.False(t, ok)

	_, ok = parseOutTime("frame=10")
	assert.False(t, ok)

	assert.True(t, isProgressLine("progress=continue"))
	assert.False(t, isProgressLine("[mp4 @ 0x1] error: bad=thing"))
}
