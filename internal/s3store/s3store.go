// Package s3store implements the cistash object store on S3-compatible
// services, including MinIO via a custom endpoint with path-style addressing.
//
// Retry and backoff are the SDK's business; the engine above performs none
// of its own.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/cistash/cistash"
)

// Config describes the bucket to connect to. Zero-value fields fall back to
// the SDK's default resolution (shared config, environment, instance role).
type Config struct {
	Bucket   string
	Endpoint string // e.g. http://localhost:9000 for MinIO
	Region   string

	// Static credentials; leave empty to use the default chain.
	AccessKey string
	SecretKey string

	// CreateBucket creates the bucket when it does not exist. Off by
	// default: a missing bucket is an error.
	CreateBucket bool
}

// S3Store implements cistash.Store on one S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

var _ cistash.Store = (*S3Store)(nil)

// Connect builds the client and verifies the bucket exists, creating it
// when cfg.CreateBucket is set.
func Connect(ctx context.Context, cfg Config) (*S3Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	s := &S3Store{client: client, bucket: cfg.Bucket}
	if err := s.ensureBucket(ctx, cfg.CreateBucket); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *S3Store) ensureBucket(ctx context.Context, create bool) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &s.bucket})
	if err == nil {
		return nil
	}
	if !create {
		return fmt.Errorf("bucket %s: %w", s.bucket, err)
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &s.bucket}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put writes the object at key unconditionally.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := validKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// PutIfAbsent writes the object only when the key is not already present.
func (s *S3Store) PutIfAbsent(ctx context.Context, key string, r io.Reader, size int64) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err == nil {
		return false, nil
	}
	if !isNotFound(err) {
		return false, fmt.Errorf("head %s: %w", key, err)
	}
	if err := s.Put(ctx, key, r, size); err != nil {
		return false, err
	}
	return true, nil
}

// Get streams the object at key into w.
func (s *S3Store) Get(ctx context.Context, key string, w io.Writer) error {
	if err := validKey(key); err != nil {
		return err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("get %s: %w", key, cistash.ErrNotFound)
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	return nil
}

// Delete removes key. S3 deletes are idempotent: an absent key is a no-op.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// LastModified returns the object's modification time.
func (s *S3Store) LastModified(ctx context.Context, key string) (time.Time, error) {
	if err := validKey(key); err != nil {
		return time.Time{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return time.Time{}, fmt.Errorf("head %s: %w", key, cistash.ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("head %s: %w", key, err)
	}
	if out.LastModified == nil {
		return time.Time{}, fmt.Errorf("head %s: %w", key, cistash.ErrTimestampUnavailable)
	}
	return *out.LastModified, nil
}

// ListContents returns the leaf object keys directly under prefix.
func (s *S3Store) ListContents(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.list(ctx, prefix, func(page *s3.ListObjectsV2Output) {
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	})
	return keys, err
}

// ListCommonPrefixes returns the child prefixes directly under prefix.
func (s *S3Store) ListCommonPrefixes(ctx context.Context, prefix string) ([]string, error) {
	var prefixes []string
	err := s.list(ctx, prefix, func(page *s3.ListObjectsV2Output) {
		for _, p := range page.CommonPrefixes {
			prefixes = append(prefixes, aws.ToString(p.Prefix))
		}
	})
	return prefixes, err
}

func (s *S3Store) list(ctx context.Context, prefix string, collect func(*s3.ListObjectsV2Output)) error {
	if err := validKey(prefix); err != nil {
		return err
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    &s.bucket,
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list %s: %w", prefix, err)
		}
		collect(page)
	}
	return nil
}

func validKey(key string) error {
	if strings.ContainsRune(key, '\\') || !utf8.ValidString(key) {
		return fmt.Errorf("%w: key %q", cistash.ErrInvalidPath, key)
	}
	return nil
}

// isNotFound classifies the SDK's missing-object errors. HeadObject reports
// types.NotFound, GetObject reports types.NoSuchKey, and some S3-compatible
// services only set the error code.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		(apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey")
}
