package domain

import "context"

// Artifact is a produced, saved file
type Artifact struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Location    string `json:"location"` // where the store put it (path or object URL)
}

// Workspace holds temporary, locally addressable copies of fetched and
// produced bytes until they are saved
type Workspace interface {
	// Stage writes data to a new temporary file and returns its path
	Stage(data []byte, ext string) (string, error)

	// Release removes a staged file. Releasing twice is not an error.
	Release(path string) error
}

// ArtifactStore is the "save" action for a staged file
type ArtifactStore interface {
	Save(ctx context.Context, stagedPath string, artifact *Artifact) error
}
