package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// LocalStack accepts any key pair; these are used when none is configured.
const (
	localStackAccessKey = "test"
	localStackSecretKey = "test"
)

// LoadAWSConfig loads the default AWS config. When AWS_ENDPOINT is set (for
// example a LocalStack edge URL) every client built from the returned config
// targets that endpoint instead of AWS and signs with static credentials.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region := os.Getenv("AWS_REGION"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	endpoint := CustomEndpoint()
	if endpoint != "" {
		// Static keys so a developer machine without a profile still signs
		opts = append(opts, config.WithCredentialsProvider(staticCredentials()))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	if endpoint != "" {
		cfg.BaseEndpoint = sdkaws.String(endpoint)
	}
	return cfg, nil
}

// CustomEndpoint returns the endpoint override, if any.
func CustomEndpoint() string {
	return os.Getenv("AWS_ENDPOINT")
}

// staticCredentials uses AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY when both
// are set and the LocalStack defaults otherwise.
func staticCredentials() credentials.StaticCredentialsProvider {
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey == "" || secretKey == "" {
		accessKey, secretKey = localStackAccessKey, localStackSecretKey
	}
	return credentials.NewStaticCredentialsProvider(accessKey, secretKey, os.Getenv("AWS_SESSION_TOKEN"))
}
