package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	uploadURLExpiration = 30 * time.Minute
	r2EndpointFormat    = "https://%s.r2.cloudflarestorage.com"
)

// AWSServiceProvider talks to the R2 bucket holding garment photos.
type AWSServiceProvider interface {
	InitPresignClient(ctx context.Context) error
	PresignLink(ctx context.Context, bucketName string, fileName string) (string, error)
	GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error)
}

// AWSService presigns photo uploads and downloads against Cloudflare R2
// through its S3-compatible API.
type AWSService struct {
	S3PresignClient *s3.PresignClient
}

type r2Config struct {
	accountID string
	keyID     string
	secret    string
}

func r2ConfigFromEnv() (r2Config, error) {
	cfg := r2Config{
		accountID: GetEnv("R2_ACCOUNT_ID", ""),
		keyID:     GetEnv("R2_ACCESS_KEY_ID", ""),
		secret:    GetEnv("R2_ACCESS_KEY_SECRET", ""),
	}
	if cfg.accountID == "" || cfg.keyID == "" || cfg.secret == "" {
		return cfg, fmt.Errorf("R2_ACCOUNT_ID, R2_ACCESS_KEY_ID and R2_ACCESS_KEY_SECRET must be set")
	}
	return cfg, nil
}

func (awsService *AWSService) InitPresignClient(ctx context.Context) error {
	r2, err := r2ConfigFromEnv()
	if err != nil {
		return err
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.keyID, r2.secret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.EndpointResolver = s3.EndpointResolverFromURL(fmt.Sprintf(r2EndpointFormat, r2.accountID))
	})
	awsService.S3PresignClient = s3.NewPresignClient(client)
	log.Printf("[R2] Presign client ready for account %s\n", r2.accountID)
	return nil
}

// PresignLink returns a PUT link for a garment photo. Known image types are
// signed with their content type, so the upload must send the same one.
func (awsService *AWSService) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	input := &s3.PutObjectInput{Bucket: aws.String(bucketName), Key: aws.String(fileName)}
	if contentType := ImageContentType(fileName); contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	request, err := awsService.S3PresignClient.PresignPutObject(ctx, input, s3.WithPresignExpires(uploadURLExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload of %s: %w", fileName, err)
	}
	return request.URL, nil
}

func (awsService *AWSService) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	request, err := awsService.S3PresignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(fileKey),
	}, s3.WithPresignExpires(presignedURLExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign read of %s: %w", fileKey, err)
	}
	return request.URL, nil
}
