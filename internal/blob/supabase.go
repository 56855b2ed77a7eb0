package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// SupabaseStore persists blobs in a Supabase storage bucket.
type SupabaseStore struct {
	client *storage.Client
	bucket string
}

// NewSupabaseStore builds a store against the given project URL and service
// role key. The URL is the project base; the storage API path is appended.
func NewSupabaseStore(projectURL, serviceKey, bucket string) (*SupabaseStore, error) {
	base := strings.TrimRight(strings.TrimSpace(projectURL), "/")
	if base == "" {
		return nil, errors.New("blob: supabase url is empty")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("blob: supabase bucket is empty")
	}
	client := storage.NewClient(base+"/storage/v1", serviceKey, nil)
	return &SupabaseStore{client: client, bucket: bucket}, nil
}

func (s *SupabaseStore) Read(_ context.Context, locator string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, locator)
	if err != nil {
		if strings.Contains(err.Error(), "not_found") || strings.Contains(err.Error(), "404") {
			return nil, fmt.Errorf("blob: %s: %w", locator, ErrNotFound)
		}
		return nil, fmt.Errorf("blob: download %s: %w", locator, err)
	}
	return data, nil
}

func (s *SupabaseStore) Write(_ context.Context, key string, data []byte, meta Metadata) (string, error) {
	contentType := contentTypeFor(key, meta)
	upsert := true
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("blob: upload %s: %w", key, err)
	}
	return key, nil
}

func (s *SupabaseStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := s.client.DownloadFile(s.bucket, key)
	if err != nil {
		if strings.Contains(err.Error(), "not_found") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, fmt.Errorf("blob: probe %s: %w", key, err)
	}
	return true, nil
}

func contentTypeFor(key string, meta Metadata) string {
	if ct, ok := meta["content-type"]; ok && ct != "" {
		return ct
	}
	lower := strings.ToLower(key)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
