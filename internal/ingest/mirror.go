package ingest

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Mirror keeps a remote copy of the document library.
type Mirror interface {
	Upload(ctx context.Context, lib *Library, name string) error
	Delete(ctx context.Context, name string) error
}

// S3API is the subset of the S3 client used by S3Mirror.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

const documentsPrefix = "documents/"

// S3Mirror copies uploaded documents to a bucket. With no bucket configured
// every operation is a no-op.
type S3Mirror struct {
	client S3API
	bucket string
	logger *logging.Logger
}

func NewS3Mirror(client S3API, bucket string, logger *logging.Logger) *S3Mirror {
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Mirror{client: client, bucket: strings.TrimSpace(bucket), logger: logger}
}

// Enabled reports whether a bucket and client are configured.
func (m *S3Mirror) Enabled() bool {
	return m != nil && m.bucket != "" && m.client != nil
}

func objectKey(name string) string {
	return documentsPrefix + name
}

func contentType(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// Upload copies the named library document to the bucket.
func (m *S3Mirror) Upload(ctx context.Context, lib *Library, name string) error {
	if !m.Enabled() {
		return nil
	}
	f, err := os.Open(lib.Path(name))
	if err != nil {
		return fmt.Errorf("ingest: open %s for upload: %w", name, err)
	}
	defer f.Close()

	if _, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(objectKey(name)),
		Body:        f,
		ContentType: aws.String(contentType(name)),
	}); err != nil {
		return fmt.Errorf("ingest: s3 put %s: %w", name, err)
	}
	m.logger.Info("document mirrored to s3", "document", name, "bucket", m.bucket)
	return nil
}

// Delete removes the named document from the bucket.
func (m *S3Mirror) Delete(ctx context.Context, name string) error {
	if !m.Enabled() {
		return nil
	}
	if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(objectKey(name)),
	}); err != nil {
		return fmt.Errorf("ingest: s3 delete %s: %w", name, err)
	}
	return nil
}

// Restore downloads every mirrored document missing from lib. It returns the
// names that were restored.
func (m *S3Mirror) Restore(ctx context.Context, lib *Library) ([]string, error) {
	if !m.Enabled() {
		return nil, nil
	}

	var restored []string
	var token *string
	for {
		out, err := m.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(m.bucket),
			Prefix:            aws.String(documentsPrefix),
			ContinuationToken: token,
		})
		if err != nil {
			return restored, fmt.Errorf("ingest: s3 list: %w", err)
		}
		for _, obj := range out.Contents {
			name := path.Base(aws.ToString(obj.Key))
			if _, err := CleanName(name); err != nil || lib.Has(name) {
				continue
			}
			if err := m.download(ctx, lib, name); err != nil {
				return restored, err
			}
			restored = append(restored, name)
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	if len(restored) > 0 {
		m.logger.Info("documents restored from s3", "count", len(restored))
	}
	return restored, nil
}

func (m *S3Mirror) download(ctx context.Context, lib *Library, name string) error {
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(objectKey(name)),
	})
	if err != nil {
		return fmt.Errorf("ingest: s3 get %s: %w", name, err)
	}
	defer out.Body.Close()

	if _, err := lib.Save(name, out.Body); err != nil {
		return err
	}
	return nil
}
