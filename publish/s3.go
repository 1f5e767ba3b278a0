package publish

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// S3Options configures an S3Uploader. Empty credentials fall back to the
// default AWS credential chain. A custom Endpoint switches to path style
// addressing so S3 compatible stores can be used.
type S3Options struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Uploader stores the seed list as an object in an S3 bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
	key    string
}

var _ Uploader = (*S3Uploader)(nil)

// NewS3Uploader loads the AWS configuration and creates the client.
func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	if opts.Bucket == "" || opts.Key == "" {
		return nil, errors.New("bucket and key are required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{client: client, bucket: opts.Bucket, key: opts.Key}, nil
}

// UploadSeedFile implements Uploader.
func (u *S3Uploader) UploadSeedFile(ctx context.Context, _ Directory, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(u.key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("text/plain"),
		CacheControl:  aws.String("no-cache"),
	})
	if err != nil {
		return "", errors.Wrapf(err, "put s3://%s/%s", u.bucket, u.key)
	}
	return fmt.Sprintf("stored %d bytes at s3://%s/%s", info.Size(), u.bucket, u.key), nil
}
