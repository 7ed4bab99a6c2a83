package recorder

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const writeBufSize = 4096

// file is a buffered sequential writer with a one-shot header patch.
type file struct {
	sync.Mutex

	f *os.File
	w *bufio.Writer
}

func newFile(dir string, name string) (*file, error) {
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &file{f: f, w: bufio.NewWriterSize(f, writeBufSize)}, nil
}

func (f *file) Flush() error {
	f.Lock()
	defer f.Unlock()
	return f.w.Flush()
}

func (f *file) Close() error { return f.f.Close() }

func (f *file) Size() (int64, error) {
	f.Lock()
	defer f.Unlock()
	inf, err := f.f.Stat()
	if err != nil {
		return -1, err
	}
	return inf.Size(), nil
}

func (f *file) Write(data []byte) error {
	f.Lock()
	defer f.Unlock()
	n, err := f.w.Write(data)
	if err != nil && n < len(data) {
		return fmt.Errorf("partial write %v of %v bytes: %w", n, len(data), err)
	}
	return err
}

// WriteAtStart overwrites the head of the file keeping the cursor in place.
func (f *file) WriteAtStart(data []byte) error {
	f.Lock()
	defer f.Unlock()
	_, err := f.f.WriteAt(data, 0)
	return err
}

func (f *file) WriteString(s string) (int, error) {
	f.Lock()
	defer f.Unlock()
	return f.w.WriteString(s)
}
