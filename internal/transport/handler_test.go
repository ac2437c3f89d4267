package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/you-humble/filedrive/internal/domain"
	"github.com/you-humble/filedrive/internal/infra/pool"
	filestore "github.com/you-humble/filedrive/internal/infra/store/file"
	taskstore "github.com/you-humble/filedrive/internal/infra/store/task"
	"github.com/you-humble/filedrive/internal/usecase"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	files, err := filestore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	uploads := pool.New("uploads", 2, 8)
	uploads.Start(context.Background())
	enrichment := pool.New("enrichment", 1, 4)
	enrichment.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		uploads.Stop(ctx)
		enrichment.Stop(ctx)
	})

	uc := usecase.New(0, 0, taskstore.NewMemoryStore(), files, uploads, enrichment)
	h := NewHandler(10, "local", uc)

	mux := NewRouter(h).MountRoutes(http.NewServeMux())
	srv := httptest.NewServer(WithRecover(LogMiddleware(mux)))
	t.Cleanup(srv.Close)
	return srv
}

func multipartBody(t *testing.T, field, filename, folderPath string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if folderPath != "" {
		if err := mw.WriteField("folder_path", folderPath); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestUploadAndPollStatus(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, "file", "report.pdf", "docs", bytes.Repeat([]byte("x"), 1024))
	resp, err := http.Post(srv.URL+"/api/async/files/upload", contentType, body)
	if err != nil {
		t.Fatalf("POST upload: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("upload status = %d, want 202", resp.StatusCode)
	}
	accepted := decode[domain.UploadAccepted](t, resp.Body)
	if accepted.TaskID == "" || !strings.HasSuffix(accepted.StatusURL, accepted.TaskID) {
		t.Fatalf("accepted = %+v", accepted)
	}

	deadline := time.Now().Add(5 * time.Second)
	var task domain.Task
	for {
		st, err := http.Get(srv.URL + accepted.StatusURL)
		if err != nil {
			t.Fatalf("GET status: %v", err)
		}
		task = decode[domain.Task](t, st.Body)
		st.Body.Close()

		if task.Status.Terminal() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task never reached a terminal state: %+v", task)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if task.Status != domain.StatusCompleted || task.ProgressPercent != 100 {
		t.Fatalf("task = %+v", task)
	}
	if task.StoredPath != "docs/report.pdf" || task.StoredSize != 1024 {
		t.Fatalf("stored %q/%d", task.StoredPath, task.StoredSize)
	}
}

func TestUploadSyncReturnsRecord(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, "file", "photo.jpg", "", []byte("jpegdata"))
	resp, err := http.Post(srv.URL+"/api/async/files/upload-sync", contentType, body)
	if err != nil {
		t.Fatalf("POST upload-sync: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	record := decode[domain.FileInfo](t, resp.Body)
	if record.Path != "photo.jpg" || record.Category != domain.CategoryImage {
		t.Fatalf("record = %+v", record)
	}
}

func TestStatusUnknownTask(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/async/files/status/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteTask(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, "file", "a.txt", "", []byte("x"))
	resp, _ := http.Post(srv.URL+"/api/async/files/upload", contentType, body)
	accepted := decode[domain.UploadAccepted](t, resp.Body)
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+accepted.StatusURL, nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", del.StatusCode)
	}

	st, _ := http.Get(srv.URL + accepted.StatusURL)
	st.Body.Close()
	if st.StatusCode != http.StatusNotFound {
		t.Fatalf("status after delete = %d, want 404", st.StatusCode)
	}
}

func TestUploadWithoutFileField(t *testing.T) {
	srv := newTestServer(t)

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	mw.WriteField("folder_path", "docs")
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/async/files/upload", mw.FormDataContentType(), body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestBatchUpload(t *testing.T) {
	srv := newTestServer(t)

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		fw, _ := mw.CreateFormFile("files", name)
		fw.Write([]byte("content of " + name))
	}
	mw.WriteField("folder_path", "batch")
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/async/files/batch-upload", mw.FormDataContentType(), body)
	if err != nil {
		t.Fatalf("POST batch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	accepted := decode[domain.BatchUploadAccepted](t, resp.Body)
	if accepted.TotalFiles != 3 || len(accepted.TaskIDs) != 3 {
		t.Fatalf("accepted = %+v", accepted)
	}
}

func TestBatchUploadReportsPerFileFailures(t *testing.T) {
	srv := newTestServer(t)

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	for _, name := range []string{"one.txt", "   ", "two.txt"} {
		fw, _ := mw.CreateFormFile("files", name)
		fw.Write([]byte("content"))
	}
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/async/files/batch-upload", mw.FormDataContentType(), body)
	if err != nil {
		t.Fatalf("POST batch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	accepted := decode[domain.BatchUploadAccepted](t, resp.Body)
	if len(accepted.TaskIDs) != 3 {
		t.Fatalf("task ids = %+v", accepted.TaskIDs)
	}
	for _, name := range []string{"one.txt", "two.txt"} {
		id, ok := accepted.TaskIDs[name]
		if !ok || strings.HasPrefix(id, "error:") {
			t.Errorf("good file %q lost its task id: %q", name, id)
		}
	}
	if id := accepted.TaskIDs["   "]; !strings.HasPrefix(id, "error:") {
		t.Errorf("bad file outcome = %q, want error entry", id)
	}
}

func TestFolderLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// create
	reqBody, _ := json.Marshal(domain.CreateFolderRequest{Name: "docs", ParentPath: ""})
	resp, err := http.Post(srv.URL+"/api/folders", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatalf("POST folders: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	// duplicate
	resp, _ = http.Post(srv.URL+"/api/folders", "application/json", bytes.NewReader(reqBody))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", resp.StatusCode)
	}

	// list contents of root
	resp, _ = http.Get(srv.URL + "/api/folders/contents?path=")
	contents := decode[domain.FolderContents](t, resp.Body)
	resp.Body.Close()
	if len(contents.Folders) != 1 || contents.Folders[0].Name != "docs" {
		t.Fatalf("contents = %+v", contents)
	}

	// delete
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/folders?path=docs", nil)
	del, _ := http.DefaultClient.Do(req)
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", del.StatusCode)
	}

	// deleting the root is a validation error
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/folders?path=", nil)
	del, _ = http.DefaultClient.Do(req)
	del.Body.Close()
	if del.StatusCode != http.StatusBadRequest {
		t.Fatalf("delete root status = %d, want 400", del.StatusCode)
	}

	// deleting a missing folder is not found
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/folders?path=ghost", nil)
	del, _ = http.DefaultClient.Do(req)
	del.Body.Close()
	if del.StatusCode != http.StatusNotFound {
		t.Fatalf("delete missing status = %d, want 404", del.StatusCode)
	}
}

func TestDownload(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, "file", "hello.txt", "", []byte("hello world"))
	resp, _ := http.Post(srv.URL+"/api/async/files/upload-sync", contentType, body)
	resp.Body.Close()

	dl, err := http.Get(srv.URL + "/api/files/download?path=hello.txt")
	if err != nil {
		t.Fatalf("GET download: %v", err)
	}
	defer dl.Body.Close()

	if dl.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", dl.StatusCode)
	}
	if cd := dl.Header.Get("Content-Disposition"); !strings.Contains(cd, "hello.txt") {
		t.Errorf("content disposition = %q", cd)
	}
	data, _ := io.ReadAll(dl.Body)
	if string(data) != "hello world" {
		t.Errorf("downloaded %q", data)
	}

	missing, _ := http.Get(srv.URL + "/api/files/download?path=nope.txt")
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing download status = %d, want 404", missing.StatusCode)
	}
}

func TestFileMetadataAndDelete(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, "file", "song.mp3", "music", []byte("audio"))
	resp, _ := http.Post(srv.URL+"/api/async/files/upload-sync", contentType, body)
	resp.Body.Close()

	meta, _ := http.Get(srv.URL + "/api/files?path=music/song.mp3")
	record := decode[domain.FileInfo](t, meta.Body)
	meta.Body.Close()
	if record.Category != domain.CategoryAudio || record.Description != "MP3 Audio" {
		t.Fatalf("record = %+v", record)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/files?path=music/song.mp3", nil)
	del, _ := http.DefaultClient.Do(req)
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", del.StatusCode)
	}

	gone, _ := http.Get(srv.URL + "/api/files?path=music/song.mp3")
	gone.Body.Close()
	if gone.StatusCode != http.StatusNotFound {
		t.Fatalf("metadata after delete = %d, want 404", gone.StatusCode)
	}
}
