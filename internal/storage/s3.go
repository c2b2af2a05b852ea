// Package storage issues pre-signed S3 uploads for option images.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "pickmate-backend/internal/config"
)

// UploadExpiry is how long a pre-signed upload URL stays valid
const UploadExpiry = 5 * time.Minute

// PresignedUpload is a URL the client PUTs the file to
type PresignedUpload struct {
	URL       string
	Method    string
	ExpiresIn time.Duration
}

// S3Store signs uploads into one bucket
type S3Store struct {
	presign  *s3.PresignClient
	bucket   string
	region   string
	endpoint string
	baseURL  string
}

// NewS3 creates a store. Static keys and a custom endpoint are optional; when
// the keys are empty the default AWS credential chain is used.
func NewS3(ctx context.Context, cfg appconfig.AWSConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.S3Bucket,
		region:   cfg.Region,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// PresignPut signs a PUT of key with the given content type
func (s *S3Store) PresignPut(ctx context.Context, key, contentType string) (*PresignedUpload, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = UploadExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &PresignedUpload{
		URL:       req.URL,
		Method:    req.Method,
		ExpiresIn: UploadExpiry,
	}, nil
}

// PublicURL is where the object is readable once uploaded
func (s *S3Store) PublicURL(key string) string {
	switch {
	case s.baseURL != "":
		return s.baseURL + "/" + key
	case s.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
}
