package platform

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	config "github.com/mckzv/channelpilot/configs"
)

// Storage wraps the Cloudflare R2 bucket that holds raw and processed media.
type Storage struct {
	config *config.Config
	client *s3.Client
}

func NewStorage(cfg *config.Config) (*Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2.AccessKey, cfg.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2.AccountID))
	})

	return &Storage{config: cfg, client: client}, nil
}

func (s *Storage) Upload(ctx context.Context, key string, file []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.config.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// PublicURL returns the bucket-relative key as a fetchable URL.
func (s *Storage) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(s.config.R2.PublicURL, "/"), key)
}
