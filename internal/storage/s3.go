package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/mfenderov/pic-harvest/pkg/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string // "pic-harvest"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client wraps the MinIO/S3 client for mirroring harvested images.
type Client struct {
	minioClient *minio.Client
	bucket      string
}

// New creates a new S3/MinIO client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		minioClient: minioClient,
		bucket:      config.Bucket,
	}, nil
}

// NewPrefix returns a unique prefix for one harvest run:
// harvests/{site}/{timestamp}-{shortid}
func NewPrefix(site, pageURL string, at time.Time) string {
	timestamp := at.UTC().Format("2006-01-02T15-04-05")
	shortID := models.GenerateImageID(pageURL, fmt.Sprintf("%d", at.UnixNano()))[:8]
	return fmt.Sprintf("harvests/%s/%s-%s", site, timestamp, shortID)
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	err = c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Manifest describes one mirrored harvest run.
type Manifest struct {
	PageURL    string          `json:"page_url"`
	Site       string          `json:"site"`
	Timestamp  string          `json:"timestamp"`
	ImageCount int             `json:"image_count"`
	Failed     int             `json:"failed"`
	Images     []ManifestEntry `json:"images"`
}

// ManifestEntry is one mirrored image.
type ManifestEntry struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// PutImage writes image bytes to S3 under {prefix}/images/{filename}.
func (c *Client) PutImage(ctx context.Context, prefix, filename string, data []byte, contentType string) error {
	objectName := path.Join(prefix, "images", filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.minioClient.PutObject(ctx, c.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put image: %w", err)
	}
	return nil
}

// PutManifest writes the harvest manifest JSON to S3.
func (c *Client) PutManifest(ctx context.Context, prefix string, manifest Manifest) error {
	objectName := path.Join(prefix, "manifest.json")

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	reader := bytes.NewReader(data)
	_, err = c.minioClient.PutObject(ctx, c.bucket, objectName, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to put manifest: %w", err)
	}
	return nil
}

// ListImages returns the file names of all images under a prefix.
func (c *Client) ListImages(ctx context.Context, prefix string) ([]string, error) {
	imagesPrefix := path.Join(prefix, "images") + "/"
	var files []string

	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    imagesPrefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		files = append(files, path.Base(object.Key))
	}

	return files, nil
}

// GetImage reads image bytes from S3.
func (c *Client) GetImage(ctx context.Context, prefix, filename string) ([]byte, error) {
	objectName := path.Join(prefix, "images", filename)

	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// GetManifest reads the harvest manifest from S3.
func (c *Client) GetManifest(ctx context.Context, prefix string) (*Manifest, error) {
	objectName := path.Join(prefix, "manifest.json")

	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	return &manifest, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
