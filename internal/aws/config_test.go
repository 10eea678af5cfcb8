package aws

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
)

func isolateSharedConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"config", "credentials"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("[default]\n"), 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_DEFAULT_PROFILE", "")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
}

func TestResolveRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "us-west-2")
	if region := ResolveRegion(""); region != "us-west-2" {
		t.Fatalf("expected env region, got %q", region)
	}
	if region := ResolveRegion(" eu-central-1 "); region != "eu-central-1" {
		t.Fatalf("expected explicit region, got %q", region)
	}
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "ca-central-1")
	if region := ResolveRegion(""); region != "ca-central-1" {
		t.Fatalf("expected default env region, got %q", region)
	}
}

func TestLoadConfigStaticCredentials(t *testing.T) {
	isolateSharedConfig(t)
	cfg, err := LoadConfig(context.Background(), "ap-south-1", Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Region != "ap-south-1" {
		t.Fatalf("expected region ap-south-1, got %q", cfg.Region)
	}
	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if creds.AccessKeyID != "AKID" || creds.SecretAccessKey != "SECRET" {
		t.Fatalf("unexpected credentials: %#v", creds)
	}
}

func TestLoadConfigDefaultRegion(t *testing.T) {
	isolateSharedConfig(t)
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	cfg, err := LoadConfig(context.Background(), "", Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Region != defaultRegion {
		t.Fatalf("expected default region, got %q", cfg.Region)
	}
}

func TestLoadConfigRequiresCredentials(t *testing.T) {
	isolateSharedConfig(t)
	if _, err := LoadConfig(context.Background(), "us-east-1", Credentials{}); err == nil {
		t.Fatalf("expected error without credentials")
	}
}

func TestLoadConfigRoleUsesCredentialsCache(t *testing.T) {
	isolateSharedConfig(t)
	cfg, err := LoadConfig(context.Background(), "eu-west-1", Credentials{RoleARN: "arn:aws:iam::123456789012:role/deploy"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, ok := cfg.Credentials.(*sdkaws.CredentialsCache); !ok {
		t.Fatalf("expected credentials cache, got %T", cfg.Credentials)
	}
}

type fakeSTS struct {
	input *sts.AssumeRoleInput
	err   error
}

func (f *fakeSTS) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	expires := time.Now().Add(time.Hour)
	return &sts.AssumeRoleOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     sdkaws.String("ASIATEMP"),
			SecretAccessKey: sdkaws.String("temp-secret"),
			SessionToken:    sdkaws.String("session"),
			Expiration:      &expires,
		},
	}, nil
}

func (f *fakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{
		Account: sdkaws.String("123456789012"),
		Arn:     sdkaws.String("arn:aws:sts::123456789012:assumed-role/deploy/ec2roles-assume-role"),
		UserId:  sdkaws.String("AROAEXAMPLE:ec2roles-assume-role"),
	}, nil
}

func TestAssumeRole(t *testing.T) {
	client := &fakeSTS{}
	provider := AssumeRole(client, "arn:aws:iam::123456789012:role/deploy")
	creds, err := provider.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if creds.AccessKeyID != "ASIATEMP" || creds.SessionToken != "session" {
		t.Fatalf("unexpected credentials: %#v", creds)
	}
	if sdkaws.ToString(client.input.RoleArn) != "arn:aws:iam::123456789012:role/deploy" {
		t.Fatalf("unexpected role arn: %v", sdkaws.ToString(client.input.RoleArn))
	}
	if sdkaws.ToString(client.input.RoleSessionName) != AssumeRoleSession {
		t.Fatalf("unexpected session name: %v", sdkaws.ToString(client.input.RoleSessionName))
	}
}

func TestAssumeRoleError(t *testing.T) {
	provider := AssumeRole(&fakeSTS{err: errors.New("denied")}, "arn:aws:iam::123456789012:role/deploy")
	if _, err := provider.Retrieve(context.Background()); err == nil {
		t.Fatalf("expected assume role error")
	}
}

func TestCallerIdentity(t *testing.T) {
	identity, err := CallerIdentity(context.Background(), &fakeSTS{}, "us-east-1")
	if err != nil {
		t.Fatalf("caller identity: %v", err)
	}
	if identity.Account != "123456789012" || identity.Region != "us-east-1" {
		t.Fatalf("unexpected identity: %#v", identity)
	}
	if _, err := CallerIdentity(context.Background(), &fakeSTS{err: errors.New("expired")}, "us-east-1"); err == nil {
		t.Fatalf("expected identity error")
	}
}
