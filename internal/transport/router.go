package transport

import "net/http"

type Handler interface {
	upload(w http.ResponseWriter, r *http.Request)
	uploadSync(w http.ResponseWriter, r *http.Request)
	batchUpload(w http.ResponseWriter, r *http.Request)
	taskStatus(w http.ResponseWriter, r *http.Request)
	download(w http.ResponseWriter, r *http.Request)
	file(w http.ResponseWriter, r *http.Request)
	folders(w http.ResponseWriter, r *http.Request)
	folderContents(w http.ResponseWriter, r *http.Request)
}

type router struct {
	h Handler
}

func NewRouter(h Handler) *router {
	return &router{h: h}
}

func (r *router) MountRoutes(mux *http.ServeMux) *http.ServeMux {
	mux.HandleFunc("/api/async/files/upload", r.h.upload)
	mux.HandleFunc("/api/async/files/upload-sync", r.h.uploadSync)
	mux.HandleFunc("/api/async/files/batch-upload", r.h.batchUpload)
	mux.HandleFunc("/api/async/files/status/", r.h.taskStatus)
	mux.HandleFunc("/api/files/download", r.h.download)
	mux.HandleFunc("/api/files", r.h.file)
	mux.HandleFunc("/api/folders", r.h.folders)
	mux.HandleFunc("/api/folders/contents", r.h.folderContents)

	return mux
}
