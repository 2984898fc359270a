package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clinicware/clinic-pos/pkg/logging"
)

// Kind classifies a stored clinic document.
const (
	KindLabReport       = "lab-report"
	KindPrescriptionPDF = "prescription"
	KindSaleReceipt     = "receipt"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store keeps clinic documents (lab reports, prescription PDFs, receipts)
// in S3, keyed by org and date.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewStore creates a document store. If bucket is empty, all operations are
// no-ops so deployments without document storage keep working.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if document storage is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Put stores a document and returns its S3 key.
func (s *Store) Put(ctx context.Context, orgID, kind, refID, contentType string, body []byte) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	if err := validateKind(kind); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("documents/v1/%s/%s/%d/%02d/%02d/%s",
		orgID, kind, now.Year(), now.Month(), now.Day(), refID)

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("documents: s3 put %s: %w", key, err)
	}

	s.logger.Info("documents: stored",
		"org_id", orgID,
		"kind", kind,
		"s3_key", key,
		"bytes", len(body),
	)
	return key, nil
}

// Get fetches a document by its S3 key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	if !s.Enabled() {
		return nil, "", fmt.Errorf("documents: storage not configured")
	}

	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("documents: s3 get %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("documents: read %s: %w", key, err)
	}

	contentType := ""
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}
	return data, contentType, nil
}

func validateKind(kind string) error {
	switch kind {
	case KindLabReport, KindPrescriptionPDF, KindSaleReceipt:
		return nil
	}
	if strings.TrimSpace(kind) == "" {
		return fmt.Errorf("documents: empty kind")
	}
	return fmt.Errorf("documents: unknown kind %q", kind)
}
