package services

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MediaService stores and removes category image assets. The object name is
// the asset id recorded on the image row.
type MediaService interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, assetID string) error
	ListAssetIDs(ctx context.Context) ([]string, error)
	EnsureBucketExists(ctx context.Context) error
}

type minioMediaService struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinioMediaService(endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (MediaService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioMediaService{client: client, bucket: bucket, publicURL: publicURL}, nil
}

func (m *minioMediaService) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", m.publicURL, m.bucket, objectName), nil
}

func (m *minioMediaService) Delete(ctx context.Context, assetID string) error {
	return m.client.RemoveObject(ctx, m.bucket, assetID, minio.RemoveObjectOptions{})
}

func (m *minioMediaService) ListAssetIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return nil, object.Err
		}
		ids = append(ids, object.Key)
	}
	return ids, nil
}

func (m *minioMediaService) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}
