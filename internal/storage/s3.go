package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
)

// DefaultUploadConcurrency is the number of parallel PutObject calls used
// when S3Config.Concurrency is not set.
const DefaultUploadConcurrency = 4

// ErrBucketRequired is returned when an S3Storage is created without a bucket.
var ErrBucketRequired = errors.New("S3 bucket is required")

// S3Config holds the configuration for S3 storage.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
	Concurrency     int
}

// Verify interface implementation at compile time.
var _ Storage = (*S3Storage)(nil)

// S3Storage wraps LocalStorage and adds S3 upload capability.
// Frames are always written locally first; UploadDir mirrors a finished
// output folder to the bucket.
type S3Storage struct {
	*LocalStorage
	client      *s3.Client
	bucket      string
	concurrency int
}

// NewS3Storage creates a new S3Storage instance.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultUploadConcurrency
	}

	return &S3Storage{
		LocalStorage: NewLocalStorage(),
		client:       s3.NewFromConfig(awsCfg, clientOpts...),
		bucket:       cfg.Bucket,
		concurrency:  concurrency,
	}, nil
}

// UploadDir uploads every regular file directly inside dir to
// keyPrefix/<file name>. Uploads run concurrently; the first failure cancels
// the remaining ones.
func (s *S3Storage) UploadDir(ctx context.Context, dir, keyPrefix string) (int, error) {
	files, err := listFiles(dir)
	if err != nil {
		return 0, err
	}

	var uploaded atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, file := range files {
		file := file
		g.Go(func() error {
			key := path.Join(keyPrefix, filepath.Base(file))
			if err := s.putFile(gctx, file, key); err != nil {
				return err
			}
			uploaded.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(uploaded.Load()), err
	}
	return int(uploaded.Load()), nil
}

func (s *S3Storage) putFile(ctx context.Context, file, key string) error {
	f, err := os.Open(file) // #nosec G304 -- file comes from listing our own output folder
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload %s to S3: %w", key, err)
	}
	return nil
}
