// Package filestore implements the storage engines. The local disk engine is
// canonical: the directory tree under the storage root is the source of
// truth, and all file metadata is derived from live filesystem attributes.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/you-humble/filedrive/internal/classify"
	"github.com/you-humble/filedrive/internal/domain"
)

type localStore struct {
	root string
}

func NewLocalStore(root string) (*localStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is empty")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &localStore{root: root}, nil
}

// Store writes data under owner/folderPath, creating directories as needed.
// An occupied filename is never overwritten: candidates "name (1).ext",
// "name (2).ext", … are tried with O_EXCL until one is created, which also
// closes the check-then-write race between concurrent uploads.
func (s *localStore) Store(
	ctx context.Context,
	owner string,
	data []byte,
	fileName, contentType, folderPath string,
) (domain.FileInfo, error) {
	select {
	case <-ctx.Done():
		return domain.FileInfo{}, ctx.Err()
	default:
	}

	if strings.TrimSpace(fileName) == "" || strings.ContainsAny(fileName, `/\`) {
		return domain.FileInfo{}, fmt.Errorf("store %q: %w", fileName, domain.ErrInvalidName)
	}

	dir, err := s.fullPath(owner, folderPath)
	if err != nil {
		return domain.FileInfo{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.FileInfo{}, fmt.Errorf("create folder: %w", err)
	}

	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)

	name := fileName
	var target string
	for counter := 0; ; counter++ {
		if counter > 0 {
			name = fmt.Sprintf("%s (%d)%s", stem, counter, ext)
		}
		target = filepath.Join(dir, name)

		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return domain.FileInfo{}, fmt.Errorf("create file: %w", err)
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr == nil {
			werr = cerr
		}
		if werr != nil {
			_ = os.Remove(target)
			return domain.FileInfo{}, fmt.Errorf("write file: %w", werr)
		}
		break
	}

	info, err := os.Stat(target)
	if err != nil {
		return domain.FileInfo{}, fmt.Errorf("stat stored file: %w", err)
	}

	return fileRecord(name, path.Join(folderPath, name), info, contentType), nil
}

// Load resolves a relative path under the storage root without checking
// existence.
func (s *localStore) Load(owner, relPath string) (string, error) {
	return s.fullPath(owner, relPath)
}

// Open returns the file content along with its current record.
func (s *localStore) Open(ctx context.Context, owner, relPath string) (io.ReadCloser, domain.FileInfo, error) {
	record, err := s.Metadata(ctx, owner, relPath)
	if err != nil {
		return nil, domain.FileInfo{}, err
	}

	full, err := s.fullPath(owner, relPath)
	if err != nil {
		return nil, domain.FileInfo{}, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, domain.FileInfo{}, fmt.Errorf("open file: %w", err)
	}

	return f, record, nil
}

// Delete removes a single file; a missing path is not an error.
func (s *localStore) Delete(ctx context.Context, owner, relPath string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	full, err := s.fullPath(owner, relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// Metadata re-derives a stored-file record from live filesystem attributes.
func (s *localStore) Metadata(ctx context.Context, owner, relPath string) (domain.FileInfo, error) {
	select {
	case <-ctx.Done():
		return domain.FileInfo{}, ctx.Err()
	default:
	}

	full, err := s.fullPath(owner, relPath)
	if err != nil {
		return domain.FileInfo{}, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.FileInfo{}, fmt.Errorf("file %q: %w", relPath, domain.ErrNotFound)
		}
		return domain.FileInfo{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return domain.FileInfo{}, fmt.Errorf("file %q: %w", relPath, domain.ErrNotFound)
	}

	return fileRecord(info.Name(), path.Clean(relPath), info, ""), nil
}

// List returns the direct children of folderPath, creating it first if it
// does not exist yet. Entries unreadable at listing time are skipped.
// Subfolders and files are each sorted by name.
func (s *localStore) List(ctx context.Context, owner, folderPath string) (domain.FolderContents, error) {
	select {
	case <-ctx.Done():
		return domain.FolderContents{}, ctx.Err()
	default:
	}

	dir, err := s.fullPath(owner, folderPath)
	if err != nil {
		return domain.FolderContents{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.FolderContents{}, fmt.Errorf("create folder: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return domain.FolderContents{}, fmt.Errorf("read folder: %w", err)
	}

	contents := domain.FolderContents{
		Folders: []domain.Folder{},
		Files:   []domain.FileInfo{},
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			slog.Debug("skipping unreadable entry",
				slog.String("folder", folderPath),
				slog.String("entry", entry.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}

		childPath := path.Join(folderPath, entry.Name())
		if info.IsDir() {
			contents.Folders = append(contents.Folders, domain.Folder{
				Name:      entry.Name(),
				Path:      childPath,
				CreatedAt: info.ModTime(),
				UpdatedAt: info.ModTime(),
			})
			continue
		}
		contents.Files = append(contents.Files, fileRecord(entry.Name(), childPath, info, ""))
	}

	sort.Slice(contents.Folders, func(i, j int) bool {
		return contents.Folders[i].Name < contents.Folders[j].Name
	})
	sort.Slice(contents.Files, func(i, j int) bool {
		return contents.Files[i].Name < contents.Files[j].Name
	})

	return contents, nil
}

// CreateFolder creates a single directory under parentPath.
func (s *localStore) CreateFolder(ctx context.Context, owner, parentPath, name string) (domain.Folder, error) {
	select {
	case <-ctx.Done():
		return domain.Folder{}, ctx.Err()
	default:
	}

	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
		return domain.Folder{}, fmt.Errorf("folder name %q: %w", name, domain.ErrInvalidName)
	}

	relPath := path.Join(parentPath, name)
	full, err := s.fullPath(owner, relPath)
	if err != nil {
		return domain.Folder{}, err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return domain.Folder{}, fmt.Errorf("create parent folder: %w", err)
	}
	if err := os.Mkdir(full, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.Folder{}, fmt.Errorf("folder %q: %w", relPath, domain.ErrFolderExists)
		}
		return domain.Folder{}, fmt.Errorf("create folder: %w", err)
	}

	info, err := os.Stat(full)
	if err != nil {
		return domain.Folder{}, fmt.Errorf("stat folder: %w", err)
	}

	return domain.Folder{
		Name:      name,
		Path:      relPath,
		CreatedAt: info.ModTime(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// DeleteFolder removes folderPath and all descendants, deepest-first. The
// storage root itself cannot be deleted. Deletion is best-effort: a failed
// entry is logged and the rest proceeds.
func (s *localStore) DeleteFolder(ctx context.Context, owner, folderPath string) error {
	if strings.TrimSpace(folderPath) == "" {
		return fmt.Errorf("delete folder: refusing to delete storage root: %w", domain.ErrInvalidName)
	}

	full, err := s.fullPath(owner, folderPath)
	if err != nil {
		return err
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("folder %q: %w", folderPath, domain.ErrNotFound)
		}
		return fmt.Errorf("stat folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("folder %q: %w", folderPath, domain.ErrNotFound)
	}

	var paths []string
	err = filepath.WalkDir(full, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("delete folder: walk",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk folder: %w", err)
	}

	for i := len(paths) - 1; i >= 0; i-- {
		if err := os.Remove(paths[i]); err != nil {
			slog.Warn("delete folder: remove entry",
				slog.String("path", paths[i]),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// fullPath joins owner and a storage-relative path under the root, rejecting
// traversal outside it.
func (s *localStore) fullPath(owner, relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if clean == "." {
		clean = ""
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("path %q: %w", relPath, domain.ErrInvalidName)
	}

	return filepath.Join(s.root, owner, clean), nil
}

// fileRecord builds a stored-file record from filesystem attributes. The
// declared content type wins when present; otherwise it is guessed from the
// extension.
func fileRecord(name, relPath string, info fs.FileInfo, contentType string) domain.FileInfo {
	ext := classify.ExtensionOf(name)
	category, description := classify.Classify(ext)

	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return domain.FileInfo{
		Name:        name,
		Path:        relPath,
		Size:        info.Size(),
		MimeType:    contentType,
		Category:    category,
		Description: description,
		Extension:   ext,
		CreatedAt:   info.ModTime(),
		UpdatedAt:   info.ModTime(),
	}
}
