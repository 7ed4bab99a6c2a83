package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/avtools/playout/pkg/logger"
	"google.golang.org/api/option"
)

type GCSClient struct {
	bucket *storage.BucketHandle
	name   string
	log    *logger.Logger
}

// NewGCSClient returns a Google Cloud Storage client.
// With no key file it falls back to the application default credentials.
func NewGCSClient(bucket string, keyFile string, log *logger.Logger) (*GCSClient, error) {
	ctx := context.Background()
	var opts []option.ClientOption
	if keyFile != "" {
		opts = append(opts, option.WithCredentialsFile(keyFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	handle := client.Bucket(bucket)
	if _, err := handle.Attrs(ctx); err != nil {
		return nil, err
	}

	return &GCSClient{bucket: handle, name: bucket, log: log}, nil
}

// Save saves a file to GCS.
func (c *GCSClient) Save(path string) (string, error) {
	if c == nil || c.bucket == nil {
		return "", errors.New("gcs client was not initialised")
	}

	reader, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = reader.Close() }()

	name := filepath.Base(path)
	wc := c.bucket.Object(name).NewWriter(context.Background())
	if _, err = io.Copy(wc, reader); err != nil {
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}

	c.log.Debug().Msgf("Uploaded: %v", name)
	return fmt.Sprintf("https://storage.googleapis.com/%v/%v", c.name, name), nil
}

// Load loads a file from GCS.
func (c *GCSClient) Load(name string) (data []byte, err error) {
	if c == nil || c.bucket == nil {
		return nil, errors.New("gcs client was not initialised")
	}

	rc, err := c.bucket.Object(name).NewReader(context.Background())
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, rc.Close()) }()

	return io.ReadAll(rc)
}

func (c *GCSClient) Has(name string) bool {
	if c == nil || c.bucket == nil {
		return false
	}
	_, err := c.bucket.Object(name).Attrs(context.Background())
	return err == nil
}
