package mainconfig

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	appconfig "github.com/wolfman30/leadrelay/internal/config"
)

// LoadAWSConfig centralizes AWS SDK initialization so the SES channel uses the
// same LocalStack/production wiring everywhere.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}

	return awsCfg, nil
}

// NewSESClient returns an SES v2 client, or nil when the SES channel is off.
func NewSESClient(ctx context.Context, cfg *appconfig.Config) (*sesv2.Client, error) {
	if !cfg.SESEnabled {
		return nil, nil
	}
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sesv2.NewFromConfig(awsCfg), nil
}
