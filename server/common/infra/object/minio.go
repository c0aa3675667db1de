package object

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	thumbnailWidth  = 320
	thumbnailHeight = 320
)

func NewClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

func EnsureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}

type StoredMedia struct {
	ObjectKey    string
	URL          string
	ThumbnailKey string
	ThumbnailURL string
}

type MediaStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewMediaStore serves objects under publicBaseURL. When publicBaseURL is
// empty the MinIO endpoint and bucket form the URL.
func NewMediaStore(client *minio.Client, bucket, publicBaseURL string) *MediaStore {
	baseURL := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if baseURL == "" && client != nil {
		baseURL = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + bucket
	}
	return &MediaStore{client: client, bucket: bucket, baseURL: baseURL, now: time.Now}
}

// Upload stores data under prefix. Images additionally get a JPEG thumbnail;
// a thumbnail failure leaves the original upload in place.
func (s *MediaStore) Upload(ctx context.Context, prefix, filename, contentType string, data []byte) (StoredMedia, error) {
	key := ObjectKey(prefix, filename, s.now())
	reader := bytes.NewReader(data)
	if _, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return StoredMedia{}, fmt.Errorf("upload media: %w", err)
	}
	out := StoredMedia{ObjectKey: key, URL: s.URL(key)}
	if !strings.HasPrefix(contentType, "image/") {
		return out, nil
	}

	thumb, err := MakeThumbnail(data)
	if err != nil {
		return out, nil
	}
	thumbKey := ThumbnailKey(key)
	thumbReader := bytes.NewReader(thumb)
	if _, err := s.client.PutObject(ctx, s.bucket, thumbKey, thumbReader, int64(thumbReader.Len()), minio.PutObjectOptions{ContentType: "image/jpeg"}); err != nil {
		return out, fmt.Errorf("upload thumb: %w", err)
	}
	out.ThumbnailKey = thumbKey
	out.ThumbnailURL = s.URL(thumbKey)
	return out, nil
}

func (s *MediaStore) URL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(key, "/")
}

func MakeThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Thumbnail(img, thumbnailWidth, thumbnailHeight, imaging.Lanczos)
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ObjectKey returns prefix/yyyy/mm/<uuid><ext> with the extension taken from filename.
func ObjectKey(prefix, filename string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "media"
	}
	return fmt.Sprintf("%s/%s/%s%s", prefix, at.UTC().Format("2006/01"), uuid.NewString(), ext)
}

func ThumbnailKey(objectKey string) string {
	ext := filepath.Ext(objectKey)
	return strings.TrimSuffix(objectKey, ext) + "_thumb.jpg"
}
