package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/avtools/playout/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Client struct {
	c      *minio.Client
	bucket string
	log    *logger.Logger
}

func NewS3Client(endpoint, bucket, key, secret string, log *logger.Logger) (*S3Client, error) {
	s3Client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(key, secret, ""),
		Secure: true,
	})
	if err != nil {
		return nil, err
	}

	exists, err := s3Client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New("bucket doesn't exist")
	}

	return &S3Client{bucket: bucket, c: s3Client, log: log}, nil
}

func (s *S3Client) Save(path string) (string, error) {
	if s == nil || s.c == nil {
		return "", errors.New("s3 client was not initialised")
	}
	name := filepath.Base(path)
	opts := minio.PutObjectOptions{
		ContentType:    "application/octet-stream",
		SendContentMd5: true,
	}

	info, err := s.c.FPutObject(context.Background(), s.bucket, name, path, opts)
	if err != nil {
		return "", err
	}
	s.log.Debug().Msgf("Uploaded: %v", info)
	return fmt.Sprintf("%v/%v/%v", s.c.EndpointURL(), s.bucket, name), nil
}

func (s *S3Client) Load(name string) (data []byte, err error) {
	if s == nil || s.c == nil {
		return nil, errors.New("s3 client was not initialised")
	}

	r, err := s.c.GetObject(context.Background(), s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, r.Close()) }()

	return io.ReadAll(r)
}

func (s *S3Client) Has(name string) bool {
	if s == nil || s.c == nil {
		return false
	}
	_, err := s.c.StatObject(context.Background(), s.bucket, name, minio.GetObjectOptions{})
	return err == nil
}
