package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	StorageRoot string `yaml:"storage_root"`
	Owner       string `yaml:"owner"`

	MaxUploadMb   int64         `yaml:"max_upload_mb"`
	ProcessDelay  time.Duration `yaml:"process_delay"`
	MetadataDelay time.Duration `yaml:"metadata_delay"`

	UploadPool   Pool `yaml:"upload_pool"`
	MetadataPool Pool `yaml:"metadata_pool"`

	MinIO      MinIO      `yaml:"minio"`
	Replicator Replicator `yaml:"replicator"`
}

type Pool struct {
	Workers       int `yaml:"workers"`
	QueueCapacity int `yaml:"queue_capacity"`
}

type MinIO struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	Bucket          string `yaml:"bucket"`
}

type Replicator struct {
	Workers       int `yaml:"workers"`
	QueueCapacity int `yaml:"queue_capacity"`
	MaxRetries    int `yaml:"max_retries"`
}

func MustLoad(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("config: cannot read file %q: %v", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("config: cannot unmarshal yaml: %v", err)
	}

	if cfg.Addr == "" {
		log.Fatalf("config: addr is empty")
	}
	if cfg.StorageRoot == "" {
		log.Fatalf("config: storage_root is empty")
	}
	if cfg.MinIO.Enabled && cfg.MinIO.Endpoint == "" {
		log.Fatalf("config: minio.endpoint is empty")
	}

	if cfg.Owner == "" {
		cfg.Owner = "local"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxUploadMb <= 0 {
		cfg.MaxUploadMb = 50
	}
	if cfg.UploadPool.Workers <= 0 {
		cfg.UploadPool.Workers = 5
	}
	if cfg.UploadPool.QueueCapacity <= 0 {
		cfg.UploadPool.QueueCapacity = 100
	}
	if cfg.MetadataPool.Workers <= 0 {
		cfg.MetadataPool.Workers = 3
	}
	if cfg.MetadataPool.QueueCapacity <= 0 {
		cfg.MetadataPool.QueueCapacity = 50
	}
	if cfg.Replicator.Workers <= 0 {
		cfg.Replicator.Workers = 2
	}
	if cfg.Replicator.QueueCapacity <= 0 {
		cfg.Replicator.QueueCapacity = 100
	}
	if cfg.Replicator.MaxRetries < 0 {
		cfg.Replicator.MaxRetries = 0
	}

	return &cfg
}
