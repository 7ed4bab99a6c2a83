package storage

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/avtools/playout/pkg/logger"
)

func TestS3(t *testing.T) {
	t.Skip()

	s3, err := NewS3Client(
		"s3.tebi.io",
		"playout-001",
		"",
		"",
		logger.Default(),
	)
	if err != nil {
		t.Error(err)
	}

	buf := make([]byte, 1024*4)
	_, err = rand.Read(buf)
	if err != nil {
		t.Error(err)
	}

	path := filepath.Join(t.TempDir(), "test")
	if err = os.WriteFile(path, buf, 0o644); err != nil {
		t.Error(err)
	}

	url, err := s3.Save(path)
	if err != nil {
		t.Error(err)
	}
	if url == "" {
		t.Errorf("should be something")
	}

	exists := s3.Has("test")
	if !exists {
		t.Errorf("don't exist, but shuld")
	}

	ne := s3.Has("test123213")
	if ne {
		t.Errorf("exists, but shouldn't")
	}

	dat, err := s3.Load("test")
	if err != nil {
		t.Error(err)
	}

	if len(dat) == 0 {
		t.Errorf("should be something")
	}
}
