package app

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/you-humble/filedrive/internal/infra/config"
	"github.com/you-humble/filedrive/internal/infra/pool"
	filestore "github.com/you-humble/filedrive/internal/infra/store/file"
	taskstore "github.com/you-humble/filedrive/internal/infra/store/task"
	"github.com/you-humble/filedrive/internal/transport"
	"github.com/you-humble/filedrive/internal/usecase"
)

const defaultCfgPath = "./configs/local.yaml"

type Router interface {
	MountRoutes(*http.ServeMux) *http.ServeMux
}

type dependencyInjector struct {
	cfgPath string
	cfg     *config.Config
	logger  *slog.Logger

	taskStore usecase.TaskStore
	fileStore usecase.FileStore

	uploadPool     *pool.Pool
	metadataPool   *pool.Pool
	replicatorPool *pool.Pool

	usecase transport.Usecase
	handler transport.Handler
	router  Router
}

func newDI() *dependencyInjector {
	cfgPath := os.Getenv("FILEDRIVE_CONFIG")
	if cfgPath == "" {
		cfgPath = defaultCfgPath
	}
	return &dependencyInjector{cfgPath: cfgPath}
}

func (di *dependencyInjector) Config() *config.Config {
	if di.cfg == nil {
		di.cfg = config.MustLoad(di.cfgPath)
	}
	return di.cfg
}

func (di *dependencyInjector) Logger() *slog.Logger {
	if di.logger == nil {
		di.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	slog.SetDefault(di.logger)
	return di.logger
}

func (di *dependencyInjector) TaskStore() usecase.TaskStore {
	if di.taskStore == nil {
		di.taskStore = taskstore.NewMemoryStore()
	}
	return di.taskStore
}

func (di *dependencyInjector) UploadPool(ctx context.Context) *pool.Pool {
	if di.uploadPool == nil {
		cfg := di.Config().UploadPool
		di.uploadPool = pool.New("uploads", cfg.Workers, cfg.QueueCapacity)
		di.uploadPool.Start(ctx)
	}
	return di.uploadPool
}

func (di *dependencyInjector) MetadataPool(ctx context.Context) *pool.Pool {
	if di.metadataPool == nil {
		cfg := di.Config().MetadataPool
		di.metadataPool = pool.New("metadata", cfg.Workers, cfg.QueueCapacity)
		di.metadataPool.Start(ctx)
	}
	return di.metadataPool
}

func (di *dependencyInjector) FileStore(ctx context.Context) usecase.FileStore {
	if di.fileStore == nil {
		cfg := di.Config()

		local, err := filestore.NewLocalStore(cfg.StorageRoot)
		if err != nil {
			log.Fatalf("FileStore local: %+v", err)
		}
		di.Logger().Info("initialized local file store", slog.String("storage_root", cfg.StorageRoot))

		if !cfg.MinIO.Enabled {
			di.fileStore = local
			return di.fileStore
		}

		remote, err := filestore.NewMinIOStore(ctx, filestore.MinIOConfig{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKeyID,
			SecretAccessKey: cfg.MinIO.SecretAccessKey,
			UseSSL:          cfg.MinIO.UseSSL,
			Bucket:          cfg.MinIO.Bucket,
		})
		if err != nil {
			log.Fatalf("FileStore minio: %+v", err)
		}
		di.Logger().Info("initialized MinIO replica",
			slog.String("endpoint", cfg.MinIO.Endpoint),
			slog.String("bucket", cfg.MinIO.Bucket),
		)

		di.replicatorPool = pool.New("replicator", cfg.Replicator.Workers, cfg.Replicator.QueueCapacity)
		di.replicatorPool.Start(ctx)

		di.fileStore = filestore.NewReplicatedStore(local, remote, di.replicatorPool, cfg.Replicator.MaxRetries)
	}

	return di.fileStore
}

func (di *dependencyInjector) Usecase(ctx context.Context) transport.Usecase {
	if di.usecase == nil {
		cfg := di.Config()
		di.usecase = usecase.New(
			cfg.ProcessDelay,
			cfg.MetadataDelay,
			di.TaskStore(),
			di.FileStore(ctx),
			di.UploadPool(ctx),
			di.MetadataPool(ctx),
		)
	}
	return di.usecase
}

func (di *dependencyInjector) Handler(ctx context.Context) transport.Handler {
	if di.handler == nil {
		cfg := di.Config()
		di.handler = transport.NewHandler(cfg.MaxUploadMb, cfg.Owner, di.Usecase(ctx))
	}
	return di.handler
}

func (di *dependencyInjector) Router(ctx context.Context) Router {
	if di.router == nil {
		di.router = transport.NewRouter(di.Handler(ctx))
	}
	return di.router
}

// Pools returns every started pool so shutdown can drain them.
func (di *dependencyInjector) Pools() []*pool.Pool {
	var pools []*pool.Pool
	for _, p := range []*pool.Pool{di.uploadPool, di.metadataPool, di.replicatorPool} {
		if p != nil {
			pools = append(pools, p)
		}
	}
	return pools
}
