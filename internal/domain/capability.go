package domain

import "context"

// Strategy is the acquisition path chosen for a request
type Strategy string

const (
	StrategyDirect Strategy = "direct" // fetch and save as-is
	StrategyRecord Strategy = "record" // decode, seek, capture and re-encode
)

// Container is an output container format
type Container string

const (
	ContainerMP4  Container = "mp4"
	ContainerWebM Container = "webm"
)

// Extension returns the file extension for the container
func (c Container) Extension() string {
	return string(c)
}

// ContentType returns the MIME type for the container
func (c Container) ContentType() string {
	if c == ContainerWebM {
		return "video/webm"
	}
	return "video/mp4"
}

// PlatformProfile describes the caller's runtime
type PlatformProfile struct {
	IsRestrictedCapture bool      `json:"is_restricted_capture"`
	PreferredContainer  Container `json:"preferred_container"`
}

// Decision is the outcome of capability detection
type Decision struct {
	Strategy  Strategy  `json:"strategy"`
	Container Container `json:"container"`
}

// CodecProber reports whether the capture runtime can encode a container's
// target codec profile
type CodecProber interface {
	SupportsContainer(ctx context.Context, c Container) bool
}
