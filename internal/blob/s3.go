package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures an S3Store. Endpoint is only needed for
// S3-compatible services such as R2 or MinIO.
type S3Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicURL, when set, is the base of the URLs returned in Refs.
	PublicURL string
}

// Complete reports whether enough is set to build a client.
func (c S3Config) Complete() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// S3Store keeps objects in an S3 bucket.
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Store builds a store from cfg. It returns (nil, nil) when cfg is
// incomplete so callers can fall back to local storage.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if !cfg.Complete() {
		slog.Debug("s3 blob store not configured")
		return nil, nil
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		// R2 and MinIO reject the streaming checksum trailers.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	slog.Info("s3 blob store initialized", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
	return &S3Store{client: client, bucket: cfg.Bucket, publicURL: cfg.PublicURL}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, contentType string) (Ref, error) {
	if err := validKey(key); err != nil {
		return Ref{}, err
	}
	// SigV4 over plain HTTP needs a seekable body.
	data, err := io.ReadAll(r)
	if err != nil {
		return Ref{}, fmt.Errorf("put %s: %w", key, err)
	}
	if contentType == "" {
		contentType = ContentType(key)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return Ref{}, fmt.Errorf("put %s: %w", key, err)
	}
	return Ref{Key: key, URL: s.url(key), Size: int64(len(data))}, nil
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) url(key string) string {
	if s.publicURL == "" {
		return "s3://" + s.bucket + "/" + key
	}
	u, err := url.Parse(s.publicURL)
	if err != nil {
		return "s3://" + s.bucket + "/" + key
	}
	u.Path = path.Join(u.Path, key)
	return u.String()
}
