package templates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures an S3 template source.
type S3Config struct {
	Region         string        `json:"region" yaml:"region"`
	Bucket         string        `json:"bucket" yaml:"bucket"`
	Prefix         string        `json:"prefix" yaml:"prefix"`
	Endpoint       string        `json:"endpoint" yaml:"endpoint"`
	ForcePathStyle bool          `json:"force_path_style" yaml:"force_path_style"`
	AccessKey      string        `json:"access_key" yaml:"access_key"`
	SecretKey      string        `json:"secret_key" yaml:"secret_key"`
	SessionToken   string        `json:"session_token" yaml:"session_token"`
	MaxObjectBytes int64         `json:"max_object_bytes" yaml:"max_object_bytes"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
}

// objectAPI is the part of the S3 client the source uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Source reads templates from a bucket with the same layout as DirSource.
type S3Source struct {
	config *S3Config
	client objectAPI
}

func validateS3Config(config *S3Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if config.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	if config.MaxObjectBytes == 0 {
		config.MaxObjectBytes = 10 * 1024 * 1024
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Prefix != "" && !strings.HasSuffix(config.Prefix, "/") {
		config.Prefix += "/"
	}
	return nil
}

// NewS3Source loads the AWS configuration and creates the client.
func NewS3Source(ctx context.Context, cfg *S3Config) (*S3Source, error) {
	if err := validateS3Config(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		options.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			options.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Source{config: cfg, client: client}, nil
}

// Load returns the named template.
func (s *S3Source) Load(ctx context.Context, name string) (Template, error) {
	if err := validName(name); err != nil {
		return Template{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	combined, err := s.get(ctx, s.config.Prefix+name+Extension)
	if err == nil {
		return FromCombined(name, combined)
	}
	if !errors.Is(err, ErrNotFound) {
		return Template{}, err
	}

	domain, err := s.get(ctx, s.config.Prefix+name+"/"+DomainFile)
	if err != nil {
		return Template{}, err
	}
	problem, err := s.get(ctx, s.config.Prefix+name+"/"+ProblemFile)
	if err != nil {
		return Template{}, err
	}
	t := Template{Name: name, Domain: strings.TrimSpace(domain), Problem: strings.TrimSpace(problem)}
	return t, t.Validate()
}

func (s *S3Source) get(ctx context.Context, key string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return "", fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.config.Bucket, key)
		}
		return "", fmt.Errorf("get s3://%s/%s: %w", s.config.Bucket, key, err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(out.Body, s.config.MaxObjectBytes+1))
	if err != nil {
		return "", fmt.Errorf("read s3://%s/%s: %w", s.config.Bucket, key, err)
	}
	if int64(len(payload)) > s.config.MaxObjectBytes {
		return "", fmt.Errorf("s3://%s/%s exceeds %d bytes", s.config.Bucket, key, s.config.MaxObjectBytes)
	}
	return string(payload), nil
}

// List returns the names of the stored templates.
func (s *S3Source) List(ctx context.Context) ([]string, error) {
	names := make(map[string]struct{})
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.Bucket),
		Prefix: aws.String(s.config.Prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.config.Bucket, s.config.Prefix, err)
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), s.config.Prefix)
			if name, ok := templateName(rel); ok {
				names[name] = struct{}{}
			}
		}
	}
	return sortedNames(names), nil
}
