package publishers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// AWSAuth optionally pins the credentials an AWS sink uses. Empty falls back
// to the default chain (env, shared files, instance role).
type AWSAuth struct {
	Profile         string `json:"profile,omitempty" yaml:"profile"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty" yaml:"session_token"`
}

func (a AWSAuth) sanitize() AWSAuth {
	return AWSAuth{
		Profile:         strings.TrimSpace(a.Profile),
		AccessKeyID:     strings.TrimSpace(a.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(a.SecretAccessKey),
		SessionToken:    strings.TrimSpace(a.SessionToken),
	}
}

func (a AWSAuth) validate() error {
	if (a.AccessKeyID == "") != (a.SecretAccessKey == "") {
		return errors.New("access_key_id and secret_access_key must be set together")
	}
	if a.AccessKeyID != "" && a.Profile != "" {
		return errors.New("profile and static keys are mutually exclusive")
	}
	return nil
}

func loadAWSConfig(ctx context.Context, region string, auth AWSAuth) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	switch {
	case auth.AccessKeyID != "":
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(auth.AccessKeyID, auth.SecretAccessKey, auth.SessionToken),
		))
	case auth.Profile != "":
		opts = append(opts, awscfg.WithSharedConfigProfile(auth.Profile))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config for %s: %w", region, err)
	}
	return cfg, nil
}
