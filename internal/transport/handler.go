package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/you-humble/filedrive/internal/domain"

	"github.com/google/uuid"
)

type Usecase interface {
	CreateTask(fileName, folderPath string) (string, error)
	Submit(ctx context.Context, owner string, payload []byte, fileName, contentType, folderPath, taskID string) (<-chan domain.UploadResult, error)
	Status(taskID string) (domain.Task, error)
	RemoveTask(taskID string)

	Download(ctx context.Context, owner, relPath string) (domain.DownloadResult, error)
	DeleteFile(ctx context.Context, owner, relPath string) error
	FileMetadata(ctx context.Context, owner, relPath string) (domain.FileInfo, error)

	FolderContents(ctx context.Context, owner, folderPath string) (domain.FolderContents, error)
	CreateFolder(ctx context.Context, owner, parentPath, name string) (domain.Folder, error)
	DeleteFolder(ctx context.Context, owner, folderPath string) error
}

type handler struct {
	maxUploadBytes int64
	owner          string
	usecase        Usecase
}

func NewHandler(maxUploadMb int64, owner string, uc Usecase) *handler {
	return &handler{
		maxUploadBytes: maxUploadMb << 20,
		owner:          owner,
		usecase:        uc,
	}
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := requestLogger(r, "upload")

	payload, fileName, contentType, folderPath, ok := h.readUpload(w, r, logger)
	if !ok {
		return
	}

	taskID, err := h.usecase.CreateTask(fileName, folderPath)
	if err != nil {
		logger.Warn("create task", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "cannot create upload task: "+err.Error())
		return
	}

	if _, err := h.usecase.Submit(r.Context(), h.owner, payload, fileName, contentType, folderPath, taskID); err != nil {
		logger.Error("submit upload", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "upload rejected: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, domain.UploadAccepted{
		TaskID:    taskID,
		Message:   "File upload started",
		StatusURL: "/api/async/files/status/" + taskID,
	})
}

func (h *handler) uploadSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := requestLogger(r, "upload_sync")

	payload, fileName, contentType, folderPath, ok := h.readUpload(w, r, logger)
	if !ok {
		return
	}

	taskID, err := h.usecase.CreateTask(fileName, folderPath)
	if err != nil {
		writeError(w, statusFor(err), "cannot create upload task: "+err.Error())
		return
	}

	handle, err := h.usecase.Submit(r.Context(), h.owner, payload, fileName, contentType, folderPath, taskID)
	if err != nil {
		logger.Error("submit upload", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "upload rejected: "+err.Error())
		return
	}

	select {
	case <-r.Context().Done():
		writeError(w, http.StatusServiceUnavailable, "client gone before upload finished")
	case res := <-handle:
		if res.Err != nil {
			writeError(w, http.StatusInternalServerError, "upload failed: "+res.Err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res.File)
	}
}

func (h *handler) batchUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := requestLogger(r, "batch_upload")

	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		logger.Error("parse multipart form", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "unable to parse multipart form")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "field `files` is required")
		return
	}
	folderPath := r.FormValue("folder_path")

	// per-file outcomes: a failed part must not discard task ids already
	// handed out for earlier parts
	taskIDs := make(map[string]string, len(headers))
	for _, header := range headers {
		payload, err := readPart(header)
		if err != nil {
			logger.Warn("read batch part",
				slog.String("file_name", header.Filename),
				slog.String("error", err.Error()),
			)
			taskIDs[header.Filename] = "error: unable to read file"
			continue
		}

		taskID, err := h.usecase.CreateTask(header.Filename, folderPath)
		if err != nil {
			logger.Warn("create batch task",
				slog.String("file_name", header.Filename),
				slog.String("error", err.Error()),
			)
			taskIDs[header.Filename] = "error: " + err.Error()
			continue
		}
		if _, err := h.usecase.Submit(r.Context(), h.owner, payload, header.Filename,
			header.Header.Get("Content-Type"), folderPath, taskID); err != nil {
			logger.Error("submit upload",
				slog.String("file_name", header.Filename),
				slog.String("error", err.Error()),
			)
		}
		taskIDs[header.Filename] = taskID
	}

	writeJSON(w, http.StatusAccepted, domain.BatchUploadAccepted{
		TotalFiles: len(headers),
		TaskIDs:    taskIDs,
		Message:    "Batch upload started",
	})
}

func (h *handler) taskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimPrefix(r.URL.Path, "/api/async/files/status/")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "missing task id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		task, err := h.usecase.Status(taskID)
		if err != nil {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeJSON(w, http.StatusOK, task)

	case http.MethodDelete:
		h.usecase.RemoveTask(taskID)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "")
	}
}

func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := requestLogger(r, "download")

	relPath := r.URL.Query().Get("path")
	if relPath == "" {
		writeError(w, http.StatusBadRequest, "query parameter `path` is required")
		return
	}

	result, err := h.usecase.Download(r.Context(), h.owner, relPath)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	defer result.Content.Close()

	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, result.Content); err != nil {
		logger.Error("send file",
			slog.String("path", relPath),
			slog.String("error", err.Error()),
		)
	}
}

func (h *handler) file(w http.ResponseWriter, r *http.Request) {
	relPath := r.URL.Query().Get("path")
	if relPath == "" {
		writeError(w, http.StatusBadRequest, "query parameter `path` is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		record, err := h.usecase.FileMetadata(r.Context(), h.owner, relPath)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, record)

	case http.MethodDelete:
		if err := h.usecase.DeleteFile(r.Context(), h.owner, relPath); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "")
	}
}

func (h *handler) folders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req domain.CreateFolderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		folder, err := h.usecase.CreateFolder(r.Context(), h.owner, req.ParentPath, req.Name)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, folder)

	case http.MethodDelete:
		folderPath := r.URL.Query().Get("path")
		if err := h.usecase.DeleteFolder(r.Context(), h.owner, folderPath); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "")
	}
}

func (h *handler) folderContents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	contents, err := h.usecase.FolderContents(r.Context(), h.owner, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, contents)
}

// readUpload parses the multipart request and buffers the payload.
func (h *handler) readUpload(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (payload []byte, fileName, contentType, folderPath string, ok bool) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		logger.Error("parse multipart form", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "unable to parse multipart form")
		return nil, "", "", "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("missing file field")
		writeError(w, http.StatusBadRequest, "field `file` is required")
		return nil, "", "", "", false
	}
	defer file.Close()

	payload, err = io.ReadAll(file)
	if err != nil {
		logger.Error("read payload", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "unable to read uploaded file")
		return nil, "", "", "", false
	}

	return payload, header.Filename, header.Header.Get("Content-Type"), r.FormValue("folder_path"), true
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func requestLogger(r *http.Request, name string) *slog.Logger {
	return slog.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("handler", name),
		slog.String("remote_addr", r.RemoteAddr),
	)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrFolderExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPoolSaturated):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, domain.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response", slog.String("error", err.Error()))
	}
}
