package app

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/h2non/filetype"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

var directFetchSpan = domain.ProgressRange{Lo: 10, Hi: 90}

// DirectStrategy fetches the resource and saves it unchanged
type DirectStrategy struct {
	fetcher   Fetcher
	workspace domain.Workspace
	store     domain.ArtifactStore
	settle    time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewDirectStrategy creates a direct download strategy
func NewDirectStrategy(fetcher Fetcher, workspace domain.Workspace, store domain.ArtifactStore, settleDelay time.Duration, logger *zap.Logger) *DirectStrategy {
	return &DirectStrategy{
		fetcher:   fetcher,
		workspace: workspace,
		store:     store,
		settle:    settleDelay,
		logger:    logger,
		now:       time.Now,
	}
}

// Run fetches over 10-90%, saves with a fixed content type per media mode
// and reports 100% before releasing the staged copy
func (s *DirectStrategy) Run(ctx context.Context, req *domain.DownloadRequest, _ domain.Decision) (*domain.Artifact, error) {
	data, err := s.fetcher.Fetch(ctx, req.ResourceURL, directFetchSpan, req.Progress)
	if err != nil {
		return nil, err
	}

	contentType, ext := domain.ContentTypeForMode(req.MediaMode)
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown && kind.MIME.Value != contentType {
		s.logger.Warn("Saved content type differs from detected type",
			zap.String("id", req.ID),
			zap.String("labelled", contentType),
			zap.String("detected", kind.MIME.Value))
	}

	staged, err := s.workspace.Stage(data, ext)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.workspace.Release(staged); err != nil {
			s.logger.Warn("Failed to release staged file", zap.String("path", staged), zap.Error(err))
		}
	}()

	artifact := &domain.Artifact{
		Filename:    domain.BuildFilename(req.DisplayTitle, s.now(), ext),
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	if err := s.store.Save(ctx, staged, artifact); err != nil {
		return nil, err
	}

	s.logger.Info("Direct download saved",
		zap.String("id", req.ID),
		zap.String("filename", artifact.Filename),
		zap.String("size", humanize.Bytes(uint64(artifact.Size))))

	req.Progress.Report(100)
	settle(ctx, s.settle)
	return artifact, nil
}
