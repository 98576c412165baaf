package blob

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/allisson/keycore/internal/errors"
)

// S3Store implements Store on an S3-compatible object store (AWS S3, MinIO,
// Cloudflare R2).
type S3Store struct {
	client *s3.Client
	bucket string
}

// S3StoreConfig holds configuration for the S3 blob store.
type S3StoreConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Store creates a new S3Store with the given configuration.
func NewS3Store(cfg S3StoreConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	opts := s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		// S3-compatible stores generally require path-style addressing.
		opts.UsePathStyle = true
	}

	return &S3Store{
		client: s3.New(opts),
		bucket: cfg.Bucket,
	}, nil
}

// Put writes the blob, overwriting any existing blob with the same ID.
func (s *S3Store) Put(ctx context.Context, blobID string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobID),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return errors.Wrapf(errors.ErrStorage, "put blob %s: %v", blobID, err)
	}
	return nil
}

// Get reads the blob. Returns ErrNotFound if the blob does not exist.
func (s *S3Store) Get(ctx context.Context, blobID string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobID),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, errors.Wrapf(errors.ErrNotFound, "blob %s", blobID)
		}
		return nil, errors.Wrapf(errors.ErrStorage, "get blob %s: %v", blobID, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStorage, "read blob %s: %v", blobID, err)
	}
	return data, nil
}

// Delete removes the blob. S3 delete is idempotent, so a missing blob is not an error.
func (s *S3Store) Delete(ctx context.Context, blobID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobID),
	})
	if err != nil {
		return errors.Wrapf(errors.ErrStorage, "delete blob %s: %v", blobID, err)
	}
	return nil
}
