package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultReadExpiry is how long presigned GET URLs stay valid when the
// bucket has no public URL.
const DefaultReadExpiry = time.Hour

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Region   string
	Bucket   string
	Prefix   string
	Endpoint string // non-empty for R2, MinIO and friends
	// PublicURL serves objects directly (CDN or public bucket) when set.
	PublicURL       string
	AccessKeyID     string
	SecretAccessKey string
}

// S3 stores objects in a bucket.
type S3 struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	prefix    string
	publicURL string
}

// NewS3 builds a client from static credentials when given, otherwise
// from the default AWS credential chain.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var client *s3.Client
	if cfg.AccessKeyID != "" {
		opts := s3.Options{
			Region:      cfg.Region,
			Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		}
		if cfg.Endpoint != "" {
			opts.BaseEndpoint = aws.String(cfg.Endpoint)
			opts.UsePathStyle = true
		}
		client = s3.New(opts)
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, err
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		prefix:    prefix,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

func (s *S3) objectKey(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return s.prefix + k, nil
}

// Put uploads r as key.
func (s *S3) Put(ctx context.Context, key string, r io.Reader, size int64, opts *PutOptions) error {
	k, err := s.objectKey(key)
	if err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
		Body:   r,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if opts != nil {
		if opts.ContentType != "" {
			in.ContentType = aws.String(opts.ContentType)
		}
		if opts.CacheControl != "" {
			in.CacheControl = aws.String(opts.CacheControl)
		}
	}
	_, err = s.client.PutObject(ctx, in)
	return err
}

// Delete removes key.
func (s *S3) Delete(ctx context.Context, key string) error {
	k, err := s.objectKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(k)})
	return err
}

// URL returns the public URL when configured, else a presigned GET.
func (s *S3) URL(ctx context.Context, key string) (string, error) {
	k, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	if s.publicURL != "" {
		return s.publicURL + "/" + k, nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	}, s3.WithPresignExpires(DefaultReadExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignPut returns a URL the client can upload key to.
func (s *S3) PresignPut(ctx context.Context, key string, opts *PresignOptions) (string, error) {
	k, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	expires := 5 * time.Minute
	in := &s3.PutObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(k)}
	if opts != nil {
		if opts.Expires > 0 {
			expires = opts.Expires
		}
		if opts.ContentType != "" {
			in.ContentType = aws.String(opts.ContentType)
		}
	}
	req, err := s.presign.PresignPutObject(ctx, in, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
