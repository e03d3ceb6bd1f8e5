// Package storage fetches audio objects from S3-compatible blob storage and
// materializes them as ephemeral local files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	apperrors "github.com/tinkervoid/transcriber/internal/errors"
	"github.com/tinkervoid/transcriber/internal/logger"
)

// Client downloads audio objects from a single bucket.
type Client struct {
	s3     *awss3.Client
	bucket string
	log    *logger.Logger
}

// NewClient creates a blob storage client from the given config.
func NewClient(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Client{
		s3:     awss3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		log:    log.WithComponent("storage"),
	}, nil
}

// ResolveKey normalizes a file reference into an object key by stripping a
// leading "<bucket>/" prefix if present. Any other shape passes through
// unchanged; the blob store itself reports unknown keys.
func ResolveKey(fileURL, bucket string) string {
	return strings.TrimPrefix(fileURL, bucket+"/")
}

// ResolveKey normalizes a file reference against the client's bucket.
func (c *Client) ResolveKey(fileURL string) string {
	return ResolveKey(fileURL, c.bucket)
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// DownloadToFile streams the object at key into a new ephemeral local file
// and returns its path. The caller owns deleting the file.
func (c *Client) DownloadToFile(ctx context.Context, key string) (string, error) {
	out, err := c.s3.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", apperrors.AudioNotFound(key, err)
		}
		return "", apperrors.Storage("download "+key, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp("", "transcriber-audio-*"+extOf(key))
	if err != nil {
		return "", apperrors.Storage("create temp file", err)
	}

	n, err := io.Copy(tmp, out.Body)
	closeErr := tmp.Close()
	if err != nil || closeErr != nil {
		os.Remove(tmp.Name())
		if err == nil {
			err = closeErr
		}
		return "", apperrors.Storage("write "+key, err)
	}

	c.log.Info("Downloaded object", map[string]interface{}{
		"key":   key,
		"bytes": n,
	})
	return tmp.Name(), nil
}

// extOf preserves the object key's extension on the temp file so the
// normalizer's fast path can see it.
func extOf(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 && i > strings.LastIndex(key, "/") {
		return key[i:]
	}
	return ""
}

func isNotFound(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound" || code == "NoSuchBucket"
	}
	return false
}
