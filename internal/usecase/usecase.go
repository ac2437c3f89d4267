package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/you-humble/filedrive/internal/domain"
	"github.com/you-humble/filedrive/internal/infra/pool"
)

type FileStore interface {
	Store(ctx context.Context, owner string, data []byte, fileName, contentType, folderPath string) (domain.FileInfo, error)
	Open(ctx context.Context, owner, relPath string) (io.ReadCloser, domain.FileInfo, error)
	Delete(ctx context.Context, owner, relPath string) error
	Metadata(ctx context.Context, owner, relPath string) (domain.FileInfo, error)
	List(ctx context.Context, owner, folderPath string) (domain.FolderContents, error)
	CreateFolder(ctx context.Context, owner, parentPath, name string) (domain.Folder, error)
	DeleteFolder(ctx context.Context, owner, folderPath string) error
}

type TaskStore interface {
	Create(fileName, folderPath string) string
	Task(id string) (domain.Task, bool)
	Remove(id string)
	Progress(id string, status domain.TaskStatus, percent int) bool
	Complete(id, storedPath string, storedSize int64, message string) bool
	Fail(id, message string) bool
}

// Scheduler is the bounded pool surface the pipeline needs.
type Scheduler interface {
	Submit(pool.Job) error
}

type usecase struct {
	processDelay  time.Duration
	metadataDelay time.Duration

	taskStore  TaskStore
	fileStore  FileStore
	uploads    Scheduler
	enrichment Scheduler
}

func New(
	processDelay, metadataDelay time.Duration,
	taskStore TaskStore,
	fileStore FileStore,
	uploads, enrichment Scheduler,
) *usecase {
	return &usecase{
		processDelay:  processDelay,
		metadataDelay: metadataDelay,
		taskStore:     taskStore,
		fileStore:     fileStore,
		uploads:       uploads,
		enrichment:    enrichment,
	}
}

// CreateTask registers a pending upload and returns its id. A blank filename
// is rejected here, before any task exists.
func (uc *usecase) CreateTask(fileName, folderPath string) (string, error) {
	if strings.TrimSpace(fileName) == "" {
		return "", fmt.Errorf("create task: %w", domain.ErrInvalidName)
	}
	return uc.taskStore.Create(fileName, folderPath), nil
}

// Submit hands the payload to the upload pool and returns a handle that
// receives the terminal result. The payload is copied before submission: the
// request buffer it arrived in is not valid past the caller's return. The
// task is moved to in_progress before Submit returns, so a poller never sees
// an accepted upload still pending. A request whose context is already done
// is rejected up front; the job itself runs on the pool's context.
func (uc *usecase) Submit(
	ctx context.Context,
	owner string,
	payload []byte,
	fileName, contentType, folderPath, taskID string,
) (<-chan domain.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("submit upload: %w", err)
	}
	if _, ok := uc.taskStore.Task(taskID); !ok {
		return nil, domain.ErrTaskNotFound
	}

	owned := make([]byte, len(payload))
	copy(owned, payload)

	uc.taskStore.Progress(taskID, domain.StatusInProgress, 10)

	result := make(chan domain.UploadResult, 1)
	err := uc.uploads.Submit(func(ctx context.Context) {
		uc.process(ctx, owner, owned, fileName, contentType, folderPath, taskID, result)
	})
	if err != nil {
		uc.taskStore.Fail(taskID, "upload rejected: "+err.Error())
		return nil, fmt.Errorf("submit upload: %w", err)
	}

	return result, nil
}

func (uc *usecase) process(
	ctx context.Context,
	owner string,
	payload []byte,
	fileName, contentType, folderPath, taskID string,
	result chan<- domain.UploadResult,
) {
	logger := slog.With(
		slog.String("task_id", taskID),
		slog.String("file_name", fileName),
	)
	logger.Info("upload started")

	fail := func(err error) {
		uc.taskStore.Fail(taskID, "upload failed: "+err.Error())
		result <- domain.UploadResult{Err: err}
		logger.Error("upload failed", slog.String("error", err.Error()))
	}

	if uc.processDelay > 0 {
		select {
		case <-ctx.Done():
			fail(ctx.Err())
			return
		case <-time.After(uc.processDelay):
		}
	}
	uc.taskStore.Progress(taskID, domain.StatusInProgress, 50)

	record, err := uc.fileStore.Store(ctx, owner, payload, fileName, contentType, folderPath)
	if err != nil {
		fail(err)
		return
	}
	uc.taskStore.Progress(taskID, domain.StatusInProgress, 90)

	uc.taskStore.Complete(taskID, record.Path, record.Size, "File uploaded successfully")
	result <- domain.UploadResult{File: record}
	logger.Info("upload completed",
		slog.String("stored_path", record.Path),
		slog.Int64("stored_size", record.Size),
	)

	// post-ingestion enrichment is best-effort
	if err := uc.enrichment.Submit(func(ctx context.Context) {
		uc.enrich(ctx, record)
	}); err != nil {
		logger.Warn("metadata enrichment rejected", slog.String("error", err.Error()))
	}
}

// enrich models the timing contract of the metadata pipeline. Dimension,
// duration and tag extraction plug in here per category.
func (uc *usecase) enrich(ctx context.Context, record domain.FileInfo) {
	slog.Info("metadata extraction started", slog.String("path", record.Path))

	if uc.metadataDelay > 0 {
		select {
		case <-ctx.Done():
			slog.Warn("metadata extraction canceled", slog.String("path", record.Path))
			return
		case <-time.After(uc.metadataDelay):
		}
	}

	slog.Info("metadata extraction completed",
		slog.String("path", record.Path),
		slog.String("category", string(record.Category)),
	)
}

func (uc *usecase) Status(taskID string) (domain.Task, error) {
	task, ok := uc.taskStore.Task(taskID)
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return task, nil
}

func (uc *usecase) RemoveTask(taskID string) {
	uc.taskStore.Remove(taskID)
}

func (uc *usecase) Download(ctx context.Context, owner, relPath string) (domain.DownloadResult, error) {
	rc, record, err := uc.fileStore.Open(ctx, owner, relPath)
	if err != nil {
		return domain.DownloadResult{}, err
	}

	return domain.DownloadResult{
		FileName: record.Name,
		MimeType: record.MimeType,
		Size:     record.Size,
		Content:  rc,
	}, nil
}

func (uc *usecase) DeleteFile(ctx context.Context, owner, relPath string) error {
	return uc.fileStore.Delete(ctx, owner, relPath)
}

func (uc *usecase) FileMetadata(ctx context.Context, owner, relPath string) (domain.FileInfo, error) {
	return uc.fileStore.Metadata(ctx, owner, relPath)
}

func (uc *usecase) FolderContents(ctx context.Context, owner, folderPath string) (domain.FolderContents, error) {
	return uc.fileStore.List(ctx, owner, folderPath)
}

func (uc *usecase) CreateFolder(ctx context.Context, owner, parentPath, name string) (domain.Folder, error) {
	return uc.fileStore.CreateFolder(ctx, owner, parentPath, name)
}

func (uc *usecase) DeleteFolder(ctx context.Context, owner, folderPath string) error {
	return uc.fileStore.DeleteFolder(ctx, owner, folderPath)
}
