package storage

import (
	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
)

type Storage interface {
	// Save uploads a local file and returns its remote address.
	Save(path string) (url string, err error)
	// Load pulls a stored file as bytes.
	Load(name string) (data []byte, err error)
	Has(name string) bool
}

func Store(conf config.Storage, log *logger.Logger) (Storage, error) {
	switch conf.Provider {
	case "s3":
		return NewS3Client(conf.S3Endpoint, conf.S3BucketName, conf.S3AccessKeyId, conf.S3SecretAccessKey, log)
	case "gcs":
		return NewGCSClient(conf.Bucket, conf.Key, log)
	case "oracle":
		return NewOracleDataStorageClient(conf.AccessURL)
	default:
		return Nop{}, nil
	}
}

// Nop is a discarding storage for when no provider is configured.
type Nop struct{}

func (Nop) Save(string) (string, error) { return "", nil }
func (Nop) Load(string) ([]byte, error) { return nil, nil }
func (Nop) Has(string) bool             { return false }
