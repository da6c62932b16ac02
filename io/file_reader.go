package io

import (
	"errors"
	"fmt"
	stdio "io"
	"os"
)

var ErrNotOpened = errors.New("file not opened")

// FileReader is a random access view over one file on disk.
type FileReader struct {
	path   string
	file   *os.File
	opened bool

	size int64
}

func NewFileReader(path string) *FileReader {
	return &FileReader{path: path}
}

func (f *FileReader) Path() string {
	return f.path
}

func (f *FileReader) Open(readOnly bool) (topErr error) {

	var perm os.FileMode = 0644

	if readOnly {
		f.file, topErr = os.OpenFile(f.path, os.O_RDONLY, perm)
	} else {
		f.file, topErr = os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY, perm)
	}

	if topErr != nil {
		return topErr
	}

	stat, topErr := f.file.Stat()
	if topErr != nil {
		f.file.Close()
		return fmt.Errorf("unable to stat %s: %s", f.path, topErr.Error())
	}

	f.size = stat.Size()
	f.opened = true

	return nil
}

func (f *FileReader) Size() int64 {
	return f.size
}

func (f *FileReader) Close() error {
	if !f.opened {
		return nil
	}

	f.opened = false
	return f.file.Close()
}

// ReadAt fills out[:length] from offset off.
func (f *FileReader) ReadAt(out []byte, off int64, length int) (err error) {
	if !f.opened {
		return ErrNotOpened
	}

	if off < 0 || off+int64(length) > f.size {
		return fmt.Errorf("read of %d bytes at %d is past the end of %s (%d bytes)", length, off, f.path, f.size)
	}

	var readBytes int
	readBytes, err = f.file.ReadAt(out[:length], off)

	if readBytes != length {
		return fmt.Errorf("read bytes mismatch, got %d of %d: %v", readBytes, length, err)
	}

	return nil
}

// Section exposes [off, off+n) as a sequential reader.
func (f *FileReader) Section(off, n int64) (*stdio.SectionReader, error) {
	if !f.opened {
		return nil, ErrNotOpened
	}
	return stdio.NewSectionReader(f.file, off, n), nil
}
