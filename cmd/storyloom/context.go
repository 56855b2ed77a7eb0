package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"storyloom/internal/blob"
	"storyloom/internal/config"
	"storyloom/internal/dispatch"
	"storyloom/internal/jobs"
	"storyloom/internal/logging"
	"storyloom/internal/pipeline"
	"storyloom/internal/services/faceswap"
	"storyloom/internal/services/vision"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}

func openBlobStore(cfg *config.Config) (blob.Store, error) {
	switch cfg.Storage.Backend {
	case "", "fs":
		return blob.NewFSStore(cfg.BlobDir())
	case "supabase":
		return blob.NewSupabaseStore(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey, cfg.Storage.SupabaseBucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// services bundles the handles most commands need. Close releases the
// database connections.
type serviceSet struct {
	cfg      *config.Config
	log      *slog.Logger
	store    *jobs.Store
	queue    *dispatch.Queue
	blobs    blob.Store
	pipeline *pipeline.Pipeline
}

func (s *serviceSet) Close() {
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (c *commandContext) openServices() (*serviceSet, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := c.logger()
	if err != nil {
		return nil, err
	}
	blobs, err := openBlobStore(cfg)
	if err != nil {
		return nil, err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, err
	}
	queue, err := dispatch.Open(cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	swap := faceswap.NewClient(cfg.FaceSwap, nil, log)
	analyzer := vision.NewClient(cfg.Vision, nil, log)
	pipe := pipeline.New(cfg, store, blobs, swap, analyzer, queue, log)

	return &serviceSet{
		cfg:      cfg,
		log:      log,
		store:    store,
		queue:    queue,
		blobs:    blobs,
		pipeline: pipe,
	}, nil
}
