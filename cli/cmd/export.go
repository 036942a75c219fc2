package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/justapithecus/assay/config"
	"github.com/justapithecus/assay/export"
	redissink "github.com/justapithecus/assay/export/redis"
	s3sink "github.com/justapithecus/assay/export/s3"
	"github.com/justapithecus/assay/export/webhook"
	"github.com/justapithecus/assay/iox"
	"github.com/justapithecus/assay/metric"
)

// buildExporter constructs the export sink named by the config. The frame
// sink writes to the configured path, or stdout when the path is empty.
func buildExporter(ctx context.Context, cfg *config.Config) (export.Exporter, func(), error) {
	noop := func() {}

	switch cfg.Export.Sink {
	case "s3":
		sink, err := s3sink.New(ctx, s3sink.Config{
			Bucket:       cfg.Export.S3.Bucket,
			Prefix:       cfg.Export.S3.Prefix,
			Region:       cfg.Export.S3.Region,
			Endpoint:     cfg.Export.S3.Endpoint,
			UsePathStyle: cfg.Export.S3.S3PathStyle,
		})
		return sink, noop, err

	case "webhook":
		sink, err := webhook.New(webhook.Config{
			URL:     cfg.Export.Webhook.URL,
			Headers: cfg.Export.Webhook.Headers,
			Timeout: cfg.Export.Webhook.Timeout.Duration,
			Retries: retriesOrDefault(cfg.Export.Webhook.Retries, webhook.DefaultRetries),
		})
		return sink, noop, err

	case "redis":
		sink, err := redissink.New(redissink.Config{
			URL:     cfg.Export.Redis.URL,
			Channel: cfg.Export.Redis.Channel,
			Timeout: cfg.Export.Redis.Timeout.Duration,
			Retries: retriesOrDefault(cfg.Export.Redis.Retries, redissink.DefaultRetries),
		})
		return sink, noop, err

	case "frame", "":
		if cfg.Export.Path == "" {
			return export.NewFrameExporter(os.Stdout), noop, nil
		}
		f, err := os.Create(cfg.Export.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create export file %q: %w", cfg.Export.Path, err)
		}
		return export.NewFrameExporter(f), func() { iox.DiscardClose(f) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown export sink %q", cfg.Export.Sink)
	}
}

func retriesOrDefault(r *int, def int) int {
	if r == nil {
		return def
	}
	return *r
}

// exportSnapshot pushes one snapshot through the configured sink.
func exportSnapshot(ctx context.Context, cfg *config.Config, ms []*metric.Metric) error {
	if ctx == nil {
		ctx = context.Background()
	}

	exp, cleanup, err := buildExporter(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	defer iox.DiscardClose(exp)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return exp.Export(ctx, ms)
}
