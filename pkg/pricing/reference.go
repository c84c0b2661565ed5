package pricing

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Reference object keys in the central bucket
const (
	FallbackObjectKey = "reference/rds_aurora_pricing.csv"
	SpecsObjectKey    = "reference/instance_specifications.json"
)

// ObjectGetter is the part of the S3 client used to read reference data
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// OpenReference opens a local path, an s3://bucket/key URL, or the given key in the default bucket
func OpenReference(ctx context.Context, getter ObjectGetter, defaultBucket, location string) (io.ReadCloser, error) {
	bucket, key, isS3 := parseS3URL(location)
	if !isS3 {
		if _, err := os.Stat(location); err == nil {
			return os.Open(location)
		}
		bucket, key = defaultBucket, location
	}

	if getter == nil || bucket == "" {
		return nil, fmt.Errorf("reference %s not found locally and no bucket configured", location)
	}

	out, err := getter.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// LoadFallbackTable reads the reference price table from location
func LoadFallbackTable(ctx context.Context, getter ObjectGetter, defaultBucket, location string) (*FallbackTable, error) {
	body, err := OpenReference(ctx, getter, defaultBucket, location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return LoadFallbackCSV(body)
}

// LoadSpecs reads the instance specification table from location
func LoadSpecs(ctx context.Context, getter ObjectGetter, defaultBucket, location string) (*SpecTable, error) {
	body, err := OpenReference(ctx, getter, defaultBucket, location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return LoadSpecTable(body)
}

func parseS3URL(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
