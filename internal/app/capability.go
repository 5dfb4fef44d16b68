package app

import (
	"context"
	"strings"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

// CapabilityDetector picks the acquisition strategy for a request
type CapabilityDetector interface {
	Decide(ctx context.Context, req *domain.DownloadRequest) domain.Decision
}

// PlatformDetector decides from the caller's user agent and the local
// encoder support
type PlatformDetector struct {
	prober domain.CodecProber
}

// NewPlatformDetector creates a detector using prober for codec support
func NewPlatformDetector(prober domain.CodecProber) *PlatformDetector {
	return &PlatformDetector{prober: prober}
}

// Decide has no side effects beyond the (cached) codec probe
func (d *PlatformDetector) Decide(ctx context.Context, req *domain.DownloadRequest) domain.Decision {
	if req.MediaMode == domain.MediaImage || !req.TrimRange.Active() {
		return domain.Decision{Strategy: domain.StrategyDirect}
	}

	profile := d.Profile(ctx, req.UserAgent)
	if profile.IsRestrictedCapture {
		return domain.Decision{Strategy: domain.StrategyDirect}
	}

	return domain.Decision{Strategy: domain.StrategyRecord, Container: profile.PreferredContainer}
}

// Profile derives the platform profile for a user agent
func (d *PlatformDetector) Profile(ctx context.Context, userAgent string) domain.PlatformProfile {
	profile := domain.PlatformProfile{
		IsRestrictedCapture: IsRestrictedCapturePlatform(userAgent),
		PreferredContainer:  domain.ContainerWebM,
	}
	if d.prober != nil && d.prober.SupportsContainer(ctx, domain.ContainerMP4) {
		profile.PreferredContainer = domain.ContainerMP4
	}
	return profile
}

// IsRestrictedCapturePlatform reports iOS-family user agents, including
// iPadOS which identifies as a Mac with a Mobile token
func IsRestrictedCapturePlatform(userAgent string) bool {
	for _, device := range []string{"iPhone", "iPad", "iPod"} {
		if strings.Contains(userAgent, device) {
			return true
		}
	}
	return strings.Contains(userAgent, "Macintosh") && strings.Contains(userAgent, "Mobile/")
}
