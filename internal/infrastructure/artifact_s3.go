package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

// s3PutAPI is the slice of the S3 client the store needs
type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ArtifactStore uploads artifacts to an S3 (or S3-compatible) bucket
type S3ArtifactStore struct {
	client s3PutAPI
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3ArtifactStore builds a store using the default AWS credential chain
func NewS3ArtifactStore(ctx context.Context, config *domain.StorageConfig, logger *zap.Logger) (*S3ArtifactStore, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("storage bucket not configured")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(config.Region))
	}
	if config.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(config.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = config.UsePathStyle
	})

	return newS3ArtifactStore(client, config.Bucket, config.Prefix, logger), nil
}

func newS3ArtifactStore(client s3PutAPI, bucket, prefix string, logger *zap.Logger) *S3ArtifactStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3ArtifactStore{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// Save uploads the staged file under prefix/artifact.Filename
func (s *S3ArtifactStore) Save(ctx context.Context, stagedPath string, artifact *domain.Artifact) error {
	file, err := os.Open(stagedPath)
	if err != nil {
		return fmt.Errorf("failed to open staged file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat staged file: %w", err)
	}

	key := path.Join(s.prefix, artifact.Filename)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               file,
		ContentLength:      aws.Int64(stat.Size()),
		ContentType:        aws.String(artifact.ContentType),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", artifact.Filename)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}

	artifact.Location = fmt.Sprintf("s3://%s/%s", s.bucket, key)
	artifact.Size = stat.Size()

	s.logger.Info("Artifact uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int64("size", stat.Size()))

	return nil
}
