package app

import (
	"context"
	"time"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

// Fetcher retrieves a remote resource into memory
type Fetcher interface {
	Fetch(ctx context.Context, url string, span domain.ProgressRange, progress domain.ProgressFunc) ([]byte, error)
}

// Strategy produces and saves an artifact for a request
type Strategy interface {
	Run(ctx context.Context, req *domain.DownloadRequest, decision domain.Decision) (*domain.Artifact, error)
}

// settle waits d so a caller's progress display can show completion before
// temporary files go away. It returns early when ctx is done.
func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
