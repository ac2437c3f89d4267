package filestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/you-humble/filedrive/internal/domain"
	"github.com/you-humble/filedrive/internal/infra/pool"

	"golang.org/x/sync/errgroup"
)

// replicatedStore wraps the local engine and mirrors every stored file into
// an object-store replica through a bounded pool. Reads and listings stay on
// disk; the replica is only ever written to or deleted from. A full
// replication queue degrades to local-only storage, it never blocks or fails
// the upload.
type replicatedStore struct {
	local      *localStore
	remote     *minioStore
	workers    *pool.Pool
	maxRetries int
}

func NewReplicatedStore(local *localStore, remote *minioStore, workers *pool.Pool, maxRetries int) *replicatedStore {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &replicatedStore{
		local:      local,
		remote:     remote,
		workers:    workers,
		maxRetries: maxRetries,
	}
}

func (s *replicatedStore) Store(
	ctx context.Context,
	owner string,
	data []byte,
	fileName, contentType, folderPath string,
) (domain.FileInfo, error) {
	record, err := s.local.Store(ctx, owner, data, fileName, contentType, folderPath)
	if err != nil {
		return domain.FileInfo{}, err
	}

	s.enqueue(owner, record, 0)
	return record, nil
}

func (s *replicatedStore) enqueue(owner string, record domain.FileInfo, attempt int) {
	err := s.workers.Submit(func(ctx context.Context) {
		if err := s.replicate(ctx, owner, record); err != nil {
			if attempt >= s.maxRetries {
				slog.Error("replication failed, giving up",
					slog.String("path", record.Path),
					slog.Int("attempts", attempt+1),
					slog.String("error", err.Error()),
				)
				return
			}
			slog.Warn("replication failed, requeueing",
				slog.String("path", record.Path),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
			s.enqueue(owner, record, attempt+1)
		}
	})
	if err != nil {
		slog.Error("replication queue full, file stored only locally",
			slog.String("path", record.Path),
		)
	}
}

func (s *replicatedStore) replicate(ctx context.Context, owner string, record domain.FileInfo) error {
	rc, _, err := s.local.Open(ctx, owner, record.Path)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer rc.Close()

	return s.remote.Save(ctx, objectName(owner, record.Path), rc, record.Size, record.MimeType)
}

func (s *replicatedStore) Load(owner, relPath string) (string, error) {
	return s.local.Load(owner, relPath)
}

func (s *replicatedStore) Open(ctx context.Context, owner, relPath string) (io.ReadCloser, domain.FileInfo, error) {
	return s.local.Open(ctx, owner, relPath)
}

func (s *replicatedStore) Metadata(ctx context.Context, owner, relPath string) (domain.FileInfo, error) {
	return s.local.Metadata(ctx, owner, relPath)
}

func (s *replicatedStore) List(ctx context.Context, owner, folderPath string) (domain.FolderContents, error) {
	return s.local.List(ctx, owner, folderPath)
}

func (s *replicatedStore) CreateFolder(ctx context.Context, owner, parentPath, name string) (domain.Folder, error) {
	return s.local.CreateFolder(ctx, owner, parentPath, name)
}

func (s *replicatedStore) Delete(ctx context.Context, owner, relPath string) error {
	eg, eCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return s.local.Delete(eCtx, owner, relPath)
	})
	eg.Go(func() error {
		if err := s.remote.Delete(eCtx, objectName(owner, relPath)); err != nil {
			slog.Warn("delete replica object",
				slog.String("path", relPath),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})

	return eg.Wait()
}

func (s *replicatedStore) DeleteFolder(ctx context.Context, owner, folderPath string) error {
	if err := s.local.DeleteFolder(ctx, owner, folderPath); err != nil {
		return err
	}

	if err := s.remote.DeletePrefix(ctx, objectName(owner, folderPath)); err != nil {
		slog.Warn("delete replica prefix",
			slog.String("folder", folderPath),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

func objectName(owner, relPath string) string {
	return path.Join(owner, relPath)
}
