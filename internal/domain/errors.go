package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork means the resource could not be retrieved
	ErrNetwork = errors.New("network error")

	// ErrMediaLoad means the decode surface could not load metadata
	ErrMediaLoad = errors.New("media load error")

	// ErrCaptureUnsupported means the runtime has no live-capture API
	ErrCaptureUnsupported = errors.New("capture unsupported")

	// ErrSink means the recorder failed to start or produced nothing
	ErrSink = errors.New("recording sink error")

	// ErrNoPendingDownload is returned when there is nothing deferred to dispatch
	ErrNoPendingDownload = errors.New("no pending download")

	// ErrOrchestratorStopped rejects work submitted after shutdown began
	ErrOrchestratorStopped = errors.New("orchestrator stopped")

	// ErrDownloadNotFound is returned by repositories for unknown IDs
	ErrDownloadNotFound = errors.New("download not found")
)

// NetworkError is a non-success HTTP response or transport failure
type NetworkError struct {
	URL        string
	StatusCode int // 0 for transport failures
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// MediaLoadError is raised when the decode surface errors instead of loading
type MediaLoadError struct {
	Err error
}

func (e *MediaLoadError) Error() string { return fmt.Sprintf("load media metadata: %v", e.Err) }

func (e *MediaLoadError) Unwrap() error { return e.Err }

func (e *MediaLoadError) Is(target error) bool { return target == ErrMediaLoad }

// CaptureUnsupportedError is raised when a surface cannot produce a stream
type CaptureUnsupportedError struct {
	Reason string
}

func (e *CaptureUnsupportedError) Error() string {
	return "live capture unsupported: " + e.Reason
}

func (e *CaptureUnsupportedError) Is(target error) bool { return target == ErrCaptureUnsupported }

// SinkError is raised when the recorder fails or yields zero output
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string {
	if e.Err == nil {
		return "recorder " + e.Op
	}
	return fmt.Sprintf("recorder %s: %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

func (e *SinkError) Is(target error) bool { return target == ErrSink }
