package filedev

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

var _ io.ReadWriteSeeker = &FileDev{}

// FileDev uses a file handle as an archive device.
type FileDev struct {
	file *os.File
}

// New returns new filedev.
func New(file *os.File) *FileDev {
	return &FileDev{
		file: file,
	}
}

// Seek seeks the position.
func (fd *FileDev) Seek(offset int64, whence int) (int64, error) {
	n, err := fd.file.Seek(offset, whence)
	if err != nil {
		return n, errors.WithStack(err)
	}
	return n, nil
}

// Read reads data from the file.
func (fd *FileDev) Read(p []byte) (int, error) {
	n, err := fd.file.Read(p)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, io.EOF
		}
		return n, errors.WithStack(err)
	}
	return n, nil
}

// Write writes data to the file.
func (fd *FileDev) Write(p []byte) (int, error) {
	n, err := fd.file.Write(p)
	if err != nil {
		return n, errors.WithStack(err)
	}
	return n, nil
}

// Sync syncs data to the file.
func (fd *FileDev) Sync() error {
	if err := fd.file.Sync(); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Size returns the current byte size of the file. Archives grow as blocks are
// appended, so the size is read from the file on every call.
func (fd *FileDev) Size() int64 {
	info, err := fd.file.Stat()
	if err != nil {
		panic(errors.WithStack(err))
	}
	return info.Size()
}

// Close closes the underlying file handle.
func (fd *FileDev) Close() error {
	if err := fd.file.Close(); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
