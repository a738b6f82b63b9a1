// internal/storage/r2.go
package storage

import (
	"context"
	"fmt"
	"strings"

	"partner-payouts/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

type objectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// R2 removes uploaded images from the cloudflare R2 bucket behind the public domain.
type R2 struct {
	client       objectDeleter
	bucket       string
	publicDomain string
	logger       *zap.Logger
}

func NewR2(cfg config.R2Config, logger *zap.Logger) *R2 {
	client := s3.New(s3.Options{
		Region:       "auto",
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: true,
	})
	return NewR2WithClient(client, cfg.Bucket, cfg.PublicDomain, logger)
}

func NewR2WithClient(client objectDeleter, bucket, publicDomain string, logger *zap.Logger) *R2 {
	return &R2{
		client:       client,
		bucket:       bucket,
		publicDomain: strings.TrimSuffix(publicDomain, "/"),
		logger:       logger,
	}
}

// KeyFor maps a public object url to its bucket key. Urls on other hosts are
// not ours to delete and report false.
func (r *R2) KeyFor(url string) (string, bool) {
	if r.publicDomain == "" || !strings.HasPrefix(url, r.publicDomain+"/") {
		return "", false
	}
	key := strings.TrimPrefix(url, r.publicDomain+"/")
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}

// DeleteURLs deletes every stored object among urls, continuing past failures.
func (r *R2) DeleteURLs(ctx context.Context, urls []string) error {
	var failed []string
	for _, u := range urls {
		key, ok := r.KeyFor(u)
		if !ok {
			continue
		}
		_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			r.logger.Warn("failed to delete r2 object", zap.String("key", key), zap.Error(err))
			failed = append(failed, key)
			continue
		}
		r.logger.Debug("r2 object deleted", zap.String("key", key))
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to delete %d r2 object(s): %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}
