package ingest

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/ingest/entity"
)

// Archiver copies a captured payload somewhere outside the database.
type Archiver interface {
	Archive(ctx context.Context, raw *entity.RawIngestion) error
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes raw payloads to an S3-compatible bucket.
type S3Archiver struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewS3Archiver uses the default AWS credential chain. A custom endpoint
// switches to path-style addressing for S3-compatible stores.
func NewS3Archiver(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// ObjectKey is <prefix><user>/<yyyy>/<mm>/<dd>/<raw id>.json.
func (a *S3Archiver) ObjectKey(raw *entity.RawIngestion) string {
	day := raw.CreatedAt.UTC().Format("2006/01/02")
	return a.prefix + path.Join(raw.UserID.String(), day, raw.ID.String()+".json")
}

func (a *S3Archiver) Archive(ctx context.Context, raw *entity.RawIngestion) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.ObjectKey(raw)),
		Body:        bytes.NewReader(raw.Payload),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"payload-hash": raw.PayloadHash,
			"user-id":      raw.UserID.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, a.ObjectKey(raw), err)
	}
	return nil
}
