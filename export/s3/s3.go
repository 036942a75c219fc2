// Package s3 implements a metric snapshot sink backed by S3 or an
// S3-compatible object store.
//
// Each export writes one msgpack-framed snapshot object keyed by its
// timestamp, so a bucket prefix accumulates an append-only series of
// point-in-time snapshots.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/justapithecus/assay/export"
	"github.com/justapithecus/assay/metric"
	"github.com/justapithecus/assay/wire"
)

// Config holds configuration for the S3 snapshot sink.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// Sink writes metric snapshots to an S3 bucket.
type Sink struct {
	config Config
	client *awss3.Client
}

// New creates an S3 snapshot sink.
// Uses the AWS SDK default credential chain (env vars, shared config,
// IAM role).
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Sink{
		config: cfg,
		client: awss3.NewFromConfig(awsConfig, s3Opts...),
	}, nil
}

// Export writes one snapshot object. The object key embeds the snapshot
// timestamp: <prefix>/snapshot-20060102T150405.000Z.msgpack.
func (s *Sink) Export(ctx context.Context, ms []*metric.Metric) error {
	now := time.Now().UTC()

	frame, err := wire.EncodeSnapshot(&wire.SnapshotFrame{
		Ts:      now.Format(time.RFC3339Nano),
		Metrics: ms,
	})
	if err != nil {
		return fmt.Errorf("s3 export: %w", err)
	}

	key := SnapshotKey(s.config.Prefix, now)
	contentType := "application/msgpack"

	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      &s.config.Bucket,
		Key:         &key,
		Body:        bytes.NewReader(frame),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("s3 export: put %s: %w", key, err)
	}
	return nil
}

// SnapshotKey formats the object key for a snapshot taken at the given
// instant. Keys under one prefix sort chronologically.
func SnapshotKey(prefix string, at time.Time) string {
	name := fmt.Sprintf("snapshot-%s.msgpack", at.UTC().Format("20060102T150405.000Z"))
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Close implements the exporter interface.
func (s *Sink) Close() error { return nil }

// Verify Sink implements the exporter interface.
var _ export.Exporter = (*Sink)(nil)
