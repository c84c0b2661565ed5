package awsclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Role and session names provisioned by the account setup
const (
	UploaderRoleName    = "PostgresMetricsUploader"
	UploaderSession     = "MetricsCollection"
	CentralRoleName     = "CrossAccountS3Access"
	CentralSession      = "CentralBucketAccess"
	CentralBucketRegion = "us-east-1"
)

// ErrNoRegion is returned when no usable region can be resolved
var ErrNoRegion = errors.New("AWS region is not configured")

var accountIDPattern = regexp.MustCompile(`^\d{12}$`)

// ValidAccountID reports whether id is a 12 digit account number
func ValidAccountID(id string) bool {
	return accountIDPattern.MatchString(id)
}

// RoleARN builds the IAM role ARN for a role name in an account
func RoleARN(accountID, roleName string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, roleName)
}

// CentralBucket returns the name of the central metrics bucket
func CentralBucket(centralAccountID string) string {
	return "postgres-cw-metrics-central-" + centralAccountID
}

// LoadConfig loads the default credential chain, pinning region when it is set
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// ResolveRegion picks AWS_REGION, then AWS_DEFAULT_REGION, then the SDK-resolved region.
// The global pseudo-region is rejected.
func ResolveRegion(sdkRegion string) (string, error) {
	return resolveRegion(os.Getenv("AWS_REGION"), os.Getenv("AWS_DEFAULT_REGION"), sdkRegion)
}

func resolveRegion(candidates ...string) (string, error) {
	for _, r := range candidates {
		if r == "" {
			continue
		}
		if r == "aws-global" {
			return "", fmt.Errorf("%w: %q is not a regional endpoint", ErrNoRegion, r)
		}
		return r, nil
	}
	return "", ErrNoRegion
}

// AssumeRole returns a copy of cfg whose credentials come from the given role
func AssumeRole(cfg aws.Config, roleARN, sessionName string) aws.Config {
	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = sessionName
	})

	assumed := cfg.Copy()
	assumed.Credentials = aws.NewCredentialsCache(provider)
	return assumed
}

// CallerIdentityAPI is the part of the STS client used to identify the account
type CallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// CallerAccount returns the account id of the active credentials
func CallerAccount(ctx context.Context, client CallerIdentityAPI) (string, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	account := aws.ToString(out.Account)
	if account == "" {
		return "", errors.New("caller identity has no account")
	}
	return account, nil
}

// Session bundles the configs used for one run
type Session struct {
	Region    string
	AccountID string
	// Collection reads RDS, CloudWatch and Pricing in the source account
	Collection aws.Config
	// Central reads and writes the central bucket
	Central aws.Config
}

// Options controls role chaining
type Options struct {
	Region           string
	CentralAccountID string
	AssumeUploader   bool
	AssumeCentral    bool
}

// NewSession resolves region and account and applies the configured role chain
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	base, err := LoadConfig(ctx, opts.Region)
	if err != nil {
		return nil, err
	}

	region, err := resolveRegion(opts.Region, os.Getenv("AWS_REGION"), os.Getenv("AWS_DEFAULT_REGION"), base.Region)
	if err != nil {
		return nil, err
	}
	base.Region = region

	account, err := CallerAccount(ctx, sts.NewFromConfig(base))
	if err != nil {
		return nil, err
	}

	collection := base
	if opts.AssumeUploader {
		collection = AssumeRole(base, RoleARN(account, UploaderRoleName), UploaderSession)
	}

	central := collection.Copy()
	central.Region = CentralBucketRegion
	if opts.AssumeCentral {
		central = AssumeRole(central, RoleARN(opts.CentralAccountID, CentralRoleName), CentralSession)
	}

	return &Session{
		Region:     region,
		AccountID:  account,
		Collection: collection,
		Central:    central,
	}, nil
}
