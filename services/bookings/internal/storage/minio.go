package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	MaxImageBytes = 5 << 20
	idProofPrefix = "id-proofs/"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrImageTooLarge    = errors.New("image exceeds 5 MiB")
	ErrUnsupportedImage = errors.New("image must be JPEG, PNG, GIF or WebP")
	ErrMalformedImage   = errors.New("image must be a data URI or base64 string")
	ErrForeignURL       = errors.New("image URL is not hosted by this service")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MinioStore keeps identity-proof images in a MinIO bucket and hands out
// public URLs for them.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket, publicBaseURL string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/") + "/" + bucket + "/",
	}, nil
}

// UploadImage stores raw and returns its public URL. raw is a data URI or a
// bare base64 string. A URL for an ID proof already in this bucket is returned
// unchanged with created false; any other URL is rejected.
func (s *MinioStore) UploadImage(ctx context.Context, raw string) (url string, created bool, err error) {
	if IsHostedURL(raw) {
		url = strings.TrimSpace(raw)
		if _, ok := s.keyFor(url); !ok {
			return "", false, ErrForeignURL
		}
		return url, false, nil
	}

	data, contentType, err := DecodeImage(raw)
	if err != nil {
		return "", false, err
	}

	key := idProofPrefix + uuid.NewString() + extensions[contentType]
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", false, fmt.Errorf("put object: %w", err)
	}
	return s.baseURL + key, true, nil
}

// Remove deletes an object previously returned by UploadImage. URLs this
// store did not issue are ignored.
func (s *MinioStore) Remove(ctx context.Context, url string) error {
	key, ok := s.keyFor(url)
	if !ok {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioStore) keyFor(url string) (string, bool) {
	if !strings.HasPrefix(url, s.baseURL) {
		return "", false
	}
	key := strings.TrimPrefix(url, s.baseURL)
	if strings.Contains(key, "..") || strings.ContainsAny(key, "?#") {
		return "", false
	}
	return key, strings.HasPrefix(key, idProofPrefix) && len(key) > len(idProofPrefix)
}

func IsHostedURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "http://")
}

// DecodeImage unpacks a data URI or bare base64 payload and sniffs its type.
// The declared MIME type of a data URI is not trusted.
func DecodeImage(raw string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, "", ErrEmptyImage
	}

	payload := raw
	if strings.HasPrefix(raw, "data:") {
		meta, body, ok := strings.Cut(raw, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, "", ErrMalformedImage
		}
		payload = body
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return nil, "", ErrImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", ErrMalformedImage
		}
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	if len(data) > MaxImageBytes {
		return nil, "", ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	if _, ok := extensions[contentType]; !ok {
		return nil, "", ErrUnsupportedImage
	}
	return data, contentType, nil
}
