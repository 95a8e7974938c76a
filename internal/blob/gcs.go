package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
)

var (
	errMissingClient = errors.New("blob: storage client is required")
	errMissingBucket = errors.New("blob: bucket name is required")
)

const defaultAPIHost = "https://storage.googleapis.com"

// Store persists binaries in a Google Cloud Storage bucket and hands out
// JSON-API download URLs that carry the alt=media flag.
type Store struct {
	client  *storage.Client
	bucket  string
	apiHost string
}

// NewStore wraps an existing storage client for a single bucket. The API host
// override exists for tests and private endpoints.
func NewStore(client *storage.Client, bucket, apiHost string) (*Store, error) {
	if client == nil {
		return nil, errMissingClient
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errMissingBucket
	}
	host := strings.TrimRight(strings.TrimSpace(apiHost), "/")
	if host == "" {
		host = defaultAPIHost
	}
	return &Store{client: client, bucket: bucket, apiHost: host}, nil
}

// Upload writes the reader's content to the given object path.
func (s *Store) Upload(ctx context.Context, path, contentType string, reader io.Reader) error {
	writer := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := io.Copy(writer, reader); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// DownloadURL returns the durable media URL for an object path.
func (s *Store) DownloadURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", s.apiHost, s.bucket, url.PathEscape(path))
}

// Delete removes the object at the given path.
func (s *Store) Delete(ctx context.Context, path string) error {
	return s.client.Bucket(s.bucket).Object(path).Delete(ctx)
}

// PathFromURL recovers the object path from a download URL produced by this
// store. It reports false for URLs that do not reference this bucket.
func (s *Store) PathFromURL(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	prefix := fmt.Sprintf("/storage/v1/b/%s/o/", s.bucket)
	if !strings.HasPrefix(parsed.Path, prefix) {
		return "", false
	}
	escaped := strings.TrimPrefix(parsed.Path, prefix)
	path, err := url.PathUnescape(escaped)
	if err != nil || path == "" {
		return "", false
	}
	return path, true
}
