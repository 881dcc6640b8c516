// Package archive keeps raw webhook bodies in S3 so deliveries can be audited and replayed.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/wolfman30/botpe-relay/pkg/logging"
)

const keyPrefix = "webhooks/v1/"

// ErrDisabled is returned by Fetch when no bucket is configured.
var ErrDisabled = errors.New("archive: not configured")

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store archives raw webhook bodies. If bucket is empty, all operations are no-ops.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
	newID    func() string
}

func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		bucket:   strings.TrimSpace(bucket),
		s3Client: s3Client,
		logger:   logger,
		newID:    func() string { return uuid.NewString() },
	}
}

// Enabled returns true if archival is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Key builds the object key for a body received on account at t.
func Key(account, id string, t time.Time) string {
	t = t.UTC()
	if strings.TrimSpace(account) == "" {
		account = "unknown"
	}
	return fmt.Sprintf("%s%s/%d/%02d/%02d/%s.json", keyPrefix, account, t.Year(), t.Month(), t.Day(), id)
}

// Archive writes body to S3 and returns its key.
func (s *Store) Archive(ctx context.Context, account string, body []byte, receivedAt time.Time) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	key := Key(account, s.newID(), receivedAt)
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"account":     account,
			"received-at": receivedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	return key, nil
}

// Fetch reads an archived body back for replay.
func (s *Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, keyPrefix) {
		return nil, fmt.Errorf("archive: key %q outside webhook archive", key)
	}
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", key, err)
	}
	return data, nil
}

// AccountFromKey returns the account segment of an archive key.
func AccountFromKey(key string) string {
	rest := strings.TrimPrefix(key, keyPrefix)
	if rest == key {
		return ""
	}
	account, _, _ := strings.Cut(rest, "/")
	return account
}
