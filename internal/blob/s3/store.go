// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

// Package s3 implements photo storage on an S3-compatible backend
// (AWS S3 or MinIO).
package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/selfreg/selfreg/internal/blob"
)

// Config holds explicit construction parameters.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional; set for MinIO or other custom endpoints
	PathStyle bool
}

// Store implements blob.Store against a single S3 bucket. Object keys
// are ULID-based, prefixed with "photos/".
type Store struct {
	client *awss3.Client
	bucket string
}

// New creates an S3 photo store. Credentials come from the default AWS
// credential chain.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, oops.Code("BLOB_S3_CONFIG_INVALID").Errorf("bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, oops.Code("BLOB_S3_INIT_FAILED").
			With("operation", "load aws config").
			Wrap(err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Store uploads the photo and returns its object key as the reference.
func (s *Store) Store(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := blob.CheckConstraints(len(data), mimeType); err != nil {
		return "", err
	}

	key := fmt.Sprintf("photos/%s%s", ulid.Make().String(), blob.Extension(mimeType))
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", oops.Code("BLOB_S3_PUT_FAILED").
			With("operation", "put object").
			With("key", key).
			Wrap(err)
	}
	return key, nil
}

// Compile-time interface check.
var _ blob.Store = (*Store)(nil)
