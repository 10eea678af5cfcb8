package aws

import (
	"context"
	"errors"
	"os"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	sdkconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const (
	defaultRegion     = "us-east-1"
	AssumeRoleSession = "ec2roles-assume-role"
	envRegion         = "AWS_REGION"
	envDefaultRegion  = "AWS_DEFAULT_REGION"
)

// Credentials selects how region clients authenticate: static keys or an
// assume-role exchange seeded from the instance profile.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	RoleARN         string
}

func ResolveRegion(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		region = strings.TrimSpace(os.Getenv(envRegion))
	}
	if region == "" {
		region = strings.TrimSpace(os.Getenv(envDefaultRegion))
	}
	return region
}

func LoadConfig(ctx context.Context, region string, creds Credentials) (sdkaws.Config, error) {
	loadOpts := []func(*sdkconfig.LoadOptions) error{}
	if region = ResolveRegion(region); region != "" {
		loadOpts = append(loadOpts, sdkconfig.WithRegion(region))
	}
	roleARN := strings.TrimSpace(creds.RoleARN)
	switch {
	case roleARN != "":
		loadOpts = append(loadOpts, sdkconfig.WithCredentialsProvider(sdkaws.NewCredentialsCache(ec2rolecreds.New())))
	case creds.AccessKeyID != "":
		loadOpts = append(loadOpts, sdkconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		))
	default:
		return sdkaws.Config{}, errors.New("no credentials configured: set static keys or a role ARN")
	}
	cfg, err := sdkconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return cfg, err
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = defaultRegion
	}
	if roleARN != "" {
		cfg.Credentials = AssumeRole(sts.NewFromConfig(cfg), roleARN)
	}
	return cfg, nil
}

// AssumeRole wraps an STS assume-role exchange in a refreshing credentials cache.
func AssumeRole(client stscreds.AssumeRoleAPIClient, roleARN string) sdkaws.CredentialsProvider {
	provider := stscreds.NewAssumeRoleProvider(client, roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = AssumeRoleSession
	})
	return sdkaws.NewCredentialsCache(provider)
}
