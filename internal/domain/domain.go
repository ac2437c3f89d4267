package domain

import (
	"errors"
	"io"
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition may occur.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task tracks one asynchronous upload. It is created by the ingestion
// pipeline, mutated only by the worker executing the upload, and read by
// any number of pollers.
type Task struct {
	TaskID     string `json:"task_id"`
	FileName   string `json:"file_name"`
	FolderPath string `json:"folder_path"`

	Status          TaskStatus `json:"status"`
	ProgressPercent int        `json:"progress_percent"`
	Message         string     `json:"message,omitempty"`

	// set only on completion
	StoredPath string `json:"stored_path,omitempty"`
	StoredSize int64  `json:"stored_size,omitempty"`

	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

type FileCategory string

const (
	CategoryDocument FileCategory = "document"
	CategoryImage    FileCategory = "image"
	CategoryVideo    FileCategory = "video"
	CategoryAudio    FileCategory = "audio"
	CategoryArchive  FileCategory = "archive"
	CategoryGeneric  FileCategory = "generic"
)

// FileInfo is a stored-file record derived from live filesystem attributes
// plus extension classification. The filesystem itself is the source of
// truth; FileInfo is immutable once returned.
type FileInfo struct {
	Name        string       `json:"name"`
	Path        string       `json:"path"` // relative to the storage root
	Size        int64        `json:"size"`
	MimeType    string       `json:"mime_type"`
	Category    FileCategory `json:"category"`
	Description string       `json:"description"`
	Extension   string       `json:"extension"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Folder struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FolderContents struct {
	Folders []Folder   `json:"folders"`
	Files   []FileInfo `json:"files"`
}

// UploadResult is delivered on the handle returned by Submit once the
// scheduled upload reaches a terminal state.
type UploadResult struct {
	File FileInfo
	Err  error
}

type DownloadResult struct {
	FileName string
	MimeType string
	Size     int64
	Content  io.ReadCloser
}

type UploadAccepted struct {
	TaskID    string `json:"task_id"`
	Message   string `json:"message"`
	StatusURL string `json:"status_url"`
}

type BatchUploadAccepted struct {
	TotalFiles int               `json:"total_files"`
	TaskIDs    map[string]string `json:"task_ids"`
	Message    string            `json:"message"`
}

type CreateFolderRequest struct {
	Name       string `json:"name"`
	ParentPath string `json:"parent_path"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var (
	ErrInvalidName   = errors.New("invalid name")
	ErrTaskNotFound  = errors.New("task not found")
	ErrNotFound      = errors.New("not found")
	ErrFolderExists  = errors.New("folder already exists")
	ErrPoolSaturated = errors.New("worker pool saturated")
)
