package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/opscart/rds-metrics-collector/pkg/awsclient"
)

const (
	keyPrefix       = "cloudwatch_detail_metrics/raw"
	fileTimeLayout  = "20060102_150405"
	allClustersDir  = "all_clusters"
	singleTargetDir = "single_cluster"
)

var contentTypes = map[string]string{
	".csv":     "text/csv",
	".parquet": "application/vnd.apache.parquet",
}

// Uploader ships a finished artifact to the central bucket
type Uploader interface {
	Upload(ctx context.Context, localPath string, dest Destination) (string, error)
}

// PutObjectAPI is the part of the S3 client the uploader needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Destination identifies where a run's artifact lands
type Destination struct {
	Region           string
	AccountID        string
	CentralAccountID string
	Target           string
}

// FileName builds the artifact name for a run
func FileName(region, target string, ts time.Time, ext string) string {
	return fmt.Sprintf("postgres_metrics_%s_%s_%s%s", region, target, ts.Format(fileTimeLayout), ext)
}

// ObjectKey builds the bucket key for an artifact
func ObjectKey(dest Destination, fileName string) string {
	scope := singleTargetDir
	if strings.EqualFold(dest.Target, "all") {
		scope = allClustersDir
	}
	return path.Join(keyPrefix, dest.Region, dest.AccountID, scope, fileName)
}

// S3Uploader writes artifacts with server-side encryption
type S3Uploader struct {
	client PutObjectAPI
	open   func(string) (io.ReadCloser, error)
	logger *zap.Logger
}

// NewS3Uploader creates an uploader over an S3 client bound to the central bucket region
func NewS3Uploader(client PutObjectAPI, logger *zap.Logger) *S3Uploader {
	return &S3Uploader{
		client: client,
		open:   func(name string) (io.ReadCloser, error) { return os.Open(name) },
		logger: logger.Named("uploader"),
	}
}

// NewS3UploaderFromConfig builds the client from the central session config
func NewS3UploaderFromConfig(cfg aws.Config, logger *zap.Logger) *S3Uploader {
	return NewS3Uploader(s3.NewFromConfig(cfg), logger)
}

// Upload puts the file under its object key and returns the s3:// URI
func (u *S3Uploader) Upload(ctx context.Context, localPath string, dest Destination) (string, error) {
	ext := strings.ToLower(filepath.Ext(localPath))
	contentType, ok := contentTypes[ext]
	if !ok {
		return "", fmt.Errorf("unsupported artifact type %q", ext)
	}
	if !awsclient.ValidAccountID(dest.CentralAccountID) {
		return "", fmt.Errorf("invalid central account id %q", dest.CentralAccountID)
	}

	body, err := u.open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer body.Close()

	bucket := awsclient.CentralBucket(dest.CentralAccountID)
	key := ObjectKey(dest, filepath.Base(localPath))

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(bucket),
		Key:                  aws.String(key),
		Body:                 body,
		ContentType:          aws.String(contentType),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
	}

	uri := fmt.Sprintf("s3://%s/%s", bucket, key)
	u.logger.Info("uploaded artifact", zap.String("uri", uri))
	return uri, nil
}
