// internal/common/aws/bedrock.go
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
)

// BedrockClient exposes the Bedrock control plane used for model invocation
// jobs. Stages consume the inner client through narrow interfaces.
type BedrockClient struct {
	Client *bedrock.Client
}

func NewBedrockClient(ctx context.Context, region string) (*BedrockClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &BedrockClient{Client: bedrock.NewFromConfig(cfg)}, nil
}
