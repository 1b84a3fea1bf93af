// Package objstore reads objects from the S3 compatible OBS service.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/and161185/csm-probes/internal/utils"
)

// KeyFileMode is applied to every synced file.
const KeyFileMode os.FileMode = 0o600

var ErrObjectNotFound = errors.New("object not found")

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	PathStyle bool // address the bucket in the path instead of the host

	AccessKey     string
	SecretKey     string
	SecurityToken string
}

type Client struct {
	s3     *s3.Client
	bucket string
	logger *zap.SugaredLogger
}

// New builds an S3 client for the OBS endpoint using static session credentials.
func New(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SecurityToken),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	cl := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return &Client{s3: cl, bucket: cfg.Bucket, logger: logger}, nil
}

// ETag returns the object's ETag without quotes. For single part uploads
// it is the hex MD5 of the content.
func (c *Client) ETag(ctx context.Context, key string) (string, error) {
	var out *s3.HeadObjectOutput
	err := utils.WithRetry(ctx, func() error {
		var err error
		out, err = c.s3.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return "", fmt.Errorf("%w: %s/%s", ErrObjectNotFound, c.bucket, key)
		}
		return "", fmt.Errorf("head %s/%s: %w", c.bucket, key, err)
	}
	return strings.Trim(aws.ToString(out.ETag), `"`), nil
}

// Download writes the object to path through a temporary file in the same directory.
func (c *Client) Download(ctx context.Context, key, path string) error {
	var out *s3.GetObjectOutput
	err := utils.WithRetry(ctx, func() error {
		var err error
		out, err = c.s3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		var nk *types.NoSuchKey
		if errors.As(err, &nk) {
			return fmt.Errorf("%w: %s/%s", ErrObjectNotFound, c.bucket, key)
		}
		return fmt.Errorf("get %s/%s: %w", c.bucket, key, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(KeyFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// SyncFile downloads key to path unless the local MD5 already matches the
// remote ETag, then restricts the file to its owner. It reports whether a
// download happened.
func (c *Client) SyncFile(ctx context.Context, key, path string) (bool, error) {
	remote, err := c.ETag(ctx, key)
	if err != nil {
		return false, err
	}

	local, err := utils.FileMD5(path)
	if err != nil {
		return false, err
	}

	downloaded := false
	if local != remote {
		c.logger.Infow("local copy is outdated, downloading", "key", key, "path", path, "remote_md5", remote, "local_md5", local)
		if err := c.Download(ctx, key, path); err != nil {
			return false, err
		}
		downloaded = true
	} else {
		c.logger.Debugw("local copy is up to date", "key", key, "path", path)
	}

	if err := os.Chmod(path, KeyFileMode); err != nil {
		return downloaded, fmt.Errorf("chmod %s: %w", path, err)
	}
	return downloaded, nil
}
