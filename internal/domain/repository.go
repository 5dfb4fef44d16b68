package domain

// DownloadRepository defines the interface for download history persistence
type DownloadRepository interface {
	// Create creates a new download
	Create(download *Download) error

	// Update updates an existing download
	Update(download *Download) error

	// FindByID finds a download by ID
	FindByID(id string) (*Download, error)

	// FindAll finds all downloads with optional filters
	FindAll(filters map[string]interface{}) ([]*Download, error)

	// GetStats returns download statistics
	GetStats() (*DownloadStats, error)
}

// PreferenceRepository is persistent key/value client storage
type PreferenceRepository interface {
	SetPreference(key, value string) error

	// GetPreference returns "" when the key is unset
	GetPreference(key string) (string, error)
}

// DownloadStats represents download statistics
type DownloadStats struct {
	Total        int64 `json:"total"`
	AwaitingAuth int64 `json:"awaiting_auth"`
	Processing   int64 `json:"processing"`
	Completed    int64 `json:"completed"`
	Failed       int64 `json:"failed"`
	Superseded   int64 `json:"superseded"`
}
