// internal/common/aws/s3.go
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client bundles the raw S3 client with a managed uploader. The uploader
// handles multipart transfers transparently for larger batch files.
type S3Client struct {
	Client   *s3.Client
	Uploader *manager.Uploader
}

func NewS3Client(ctx context.Context, region string) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &S3Client{
		Client:   client,
		Uploader: manager.NewUploader(client),
	}, nil
}
