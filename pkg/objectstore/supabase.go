package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
)

// storageAPI is the part of the Supabase storage client used here.
type storageAPI interface {
	UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	DownloadFile(bucketId string, filePath string, urlOptions ...storage_go.UrlOptions) ([]byte, error)
	GetPublicUrl(bucketId string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

type Supabase struct {
	storage storageAPI
	bucket  string
}

func NewSupabase(url, key, bucket string) (*Supabase, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Supabase{storage: client.Storage, bucket: bucket}, nil
}

func (s *Supabase) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	upsert := true
	_, err := s.storage.UploadFile(s.bucket, path, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	return path, nil
}

func (s *Supabase) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.storage.DownloadFile(s.bucket, ref)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, ref)
		}
		return nil, fmt.Errorf("download %s: %w", ref, err)
	}
	return data, nil
}

func (s *Supabase) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.storage.GetPublicUrl(s.bucket, ref).SignedURL
}
