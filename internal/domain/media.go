package domain

import (
	"context"
	"time"
)

// MediaMetadata is what a decode surface knows once a source is loaded
type MediaMetadata struct {
	Duration float64 // seconds
	Width    int
	Height   int
}

// DecodeSurface decodes a fetched video so it can be seeked and captured.
// Load and Seek block until the surface signals completion.
type DecodeSurface interface {
	// Load attaches the staged source and waits for its metadata
	Load(ctx context.Context, sourcePath string) (MediaMetadata, error)

	// Seek moves the playback position and waits for the seek to complete
	Seek(ctx context.Context, position float64) error

	// CaptureStream opens a live frame stream at fps.
	// Returns a CaptureUnsupportedError when the runtime cannot capture.
	CaptureStream(fps int) (CaptureStream, error)

	// Play starts playback from the current position
	Play() error

	// Pause halts playback
	Pause() error

	// CurrentTime returns the playback position in seconds
	CurrentTime() float64

	// Ended is closed when playback reaches the natural end of the media
	Ended() <-chan struct{}

	// Close detaches the surface and frees its resources
	Close() error
}

// CaptureStream is a live sequence of decoded frames
type CaptureStream interface {
	FrameRate() int
}

// RecorderOptions configures a recording sink
type RecorderOptions struct {
	Container     Container
	BitsPerSecond int
}

// Recorder ingests a capture stream and emits encoded segments
type Recorder interface {
	// Start begins recording, handing buffered output to onSegment every timeslice
	Start(timeslice time.Duration, onSegment func([]byte)) error

	// Stop asks the recorder to flush and finish
	Stop() error

	// Stopped is closed once the recorder has delivered its last segment
	Stopped() <-chan struct{}

	// Err returns the terminal recorder error, if any, after Stopped is closed
	Err() error
}

// RecorderFactory opens recorders against capture streams
type RecorderFactory interface {
	NewRecorder(stream CaptureStream, opts RecorderOptions) (Recorder, error)
}
