package domain

import (
	"time"

	"github.com/google/uuid"
)

// MediaMode is the kind of asset a caller wants to save
type MediaMode string

const (
	MediaImage MediaMode = "image"
	MediaVideo MediaMode = "video"
)

// TrimRange is the [Start, End] playback window, in seconds, to keep
type TrimRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Active reports whether the range asks for a trim at all.
// A zero range ({0, 0}) or a nil range means "whole file".
func (t *TrimRange) Active() bool {
	return t != nil && (t.Start > 0 || t.End > 0)
}

// ProgressFunc receives a 0-100 completion percentage
type ProgressFunc func(percent int)

// Report forwards percent to f when f is set
func (f ProgressFunc) Report(percent int) {
	if f != nil {
		f(percent)
	}
}

// DownloadRequest is a single user-initiated download
type DownloadRequest struct {
	ID           string       `json:"id"`
	ResourceURL  string       `json:"resource_url"`
	DisplayTitle string       `json:"display_title"`
	MediaMode    MediaMode    `json:"media_mode"`
	TrimRange    *TrimRange   `json:"trim_range,omitempty"`
	UserAgent    string       `json:"user_agent,omitempty"`  // caller platform, used for capability sniffing
	ReturnPath   string       `json:"return_path,omitempty"` // where the caller was when the download was requested
	Progress     ProgressFunc `json:"-"`
	RequestedAt  time.Time    `json:"requested_at"`
}

// NewDownloadRequest creates a request with a fresh ID
func NewDownloadRequest(url, title string, mode MediaMode, trim *TrimRange, progress ProgressFunc) *DownloadRequest {
	return &DownloadRequest{
		ID:           uuid.New().String(),
		ResourceURL:  url,
		DisplayTitle: title,
		MediaMode:    mode,
		TrimRange:    trim,
		Progress:     progress,
		RequestedAt:  time.Now(),
	}
}

// ValidateMediaMode checks if a media mode is valid
func ValidateMediaMode(mode MediaMode) bool {
	return mode == MediaImage || mode == MediaVideo
}

// DownloadStatus represents the current status of a download record
type DownloadStatus string

const (
	StatusAwaitingAuth DownloadStatus = "awaiting_auth"
	StatusProcessing   DownloadStatus = "processing"
	StatusCompleted    DownloadStatus = "completed"
	StatusFailed       DownloadStatus = "failed"
	StatusSuperseded   DownloadStatus = "superseded" // deferred request replaced by a newer one
)

// Download is the persisted history row for a DownloadRequest
type Download struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	URL          string         `json:"url" gorm:"not null"`
	Title        string         `json:"title"`
	MediaMode    MediaMode      `json:"media_mode" gorm:"not null"`
	Status       DownloadStatus `json:"status" gorm:"not null;index"`
	Strategy     Strategy       `json:"strategy,omitempty"`
	Container    Container      `json:"container,omitempty"`
	TrimStart    float64        `json:"trim_start"`
	TrimEnd      float64        `json:"trim_end"`
	Filename     string         `json:"filename,omitempty"`
	Location     string         `json:"location,omitempty"`
	SizeBytes    int64          `json:"size_bytes"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewDownloadRecord builds the history row for req
func NewDownloadRecord(req *DownloadRequest, status DownloadStatus) *Download {
	d := &Download{
		ID:        req.ID,
		URL:       req.ResourceURL,
		Title:     req.DisplayTitle,
		MediaMode: req.MediaMode,
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if req.TrimRange != nil {
		d.TrimStart = req.TrimRange.Start
		d.TrimEnd = req.TrimRange.End
	}
	return d
}

// MarkProcessing marks the download as processing with the chosen plan
func (d *Download) MarkProcessing(decision Decision) {
	d.Status = StatusProcessing
	d.Strategy = decision.Strategy
	d.Container = decision.Container
	now := time.Now()
	d.StartedAt = &now
	d.UpdatedAt = now
}

// MarkCompleted marks the download as completed
func (d *Download) MarkCompleted(artifact *Artifact) {
	d.Status = StatusCompleted
	d.Filename = artifact.Filename
	d.Location = artifact.Location
	d.SizeBytes = artifact.Size
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkFailed marks the download as failed
func (d *Download) MarkFailed(err error) {
	d.Status = StatusFailed
	d.ErrorMessage = err.Error()
	d.UpdatedAt = time.Now()
}

// IsTerminal checks if the download is in a terminal state
func (d *Download) IsTerminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed || d.Status == StatusSuperseded
}
