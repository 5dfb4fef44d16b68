package infrastructure

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

// LocalArtifactStore saves artifacts into the completed directory
type LocalArtifactStore struct {
	completedDir string
	logger       *zap.Logger
}

// NewLocalArtifactStore creates a new local store
func NewLocalArtifactStore(completedDir string, logger *zap.Logger) *LocalArtifactStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalArtifactStore{completedDir: completedDir, logger: logger}
}

// Save copies the staged file to completedDir/artifact.Filename.
// The staged file is left in place; its owner releases it.
func (s *LocalArtifactStore) Save(ctx context.Context, stagedPath string, artifact *domain.Artifact) error {
	if err := os.MkdirAll(s.completedDir, 0755); err != nil {
		return fmt.Errorf("failed to create completed directory: %w", err)
	}

	src, err := os.Open(stagedPath)
	if err != nil {
		return fmt.Errorf("failed to open staged file: %w", err)
	}
	defer src.Close()

	dest := filepath.Join(s.completedDir, filepath.Base(artifact.Filename))
	dst, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}

	n, err := io.Copy(dst, &contextReader{ctx: ctx, r: src})
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	artifact.Location = dest
	artifact.Size = n

	s.logger.Info("Artifact saved",
		zap.String("file", dest),
		zap.String("content_type", artifact.ContentType),
		zap.String("size", humanize.Bytes(uint64(n))))

	return nil
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
