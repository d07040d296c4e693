package memdev

import (
	"io"

	"github.com/pkg/errors"
)

var (
	_ io.Seeker = &MemDev{}
	_ io.Reader = &MemDev{}
	_ io.Writer = &MemDev{}
)

// MemDev simulates archive device io operations in memory. It grows on writes
// past its end, the way an archive file grows block by block.
type MemDev struct {
	offset int64
	data   []byte
}

// New returns new memdev.
func New() *MemDev {
	return &MemDev{}
}

// Seek seeks the position. Seeking past the end is legal, the gap is filled
// with zero bytes once something is written there.
func (md *MemDev) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = md.offset + offset
	case io.SeekEnd:
		offset = int64(len(md.data)) + offset
	}

	if offset < 0 {
		return 0, errors.Errorf("invalid offset: %d", offset)
	}

	md.offset = offset
	return offset, nil
}

// Read reads data from the memdev.
func (md *MemDev) Read(p []byte) (int, error) {
	if md.offset >= int64(len(md.data)) {
		return 0, io.EOF
	}
	n := copy(p, md.data[md.offset:])
	md.offset += int64(n)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Write writes data to the memdev, growing it if needed.
func (md *MemDev) Write(p []byte) (int, error) {
	if end := md.offset + int64(len(p)); end > int64(len(md.data)) {
		grown := make([]byte, end)
		copy(grown, md.data)
		md.data = grown
	}
	n := copy(md.data[md.offset:], p)
	md.offset += int64(n)
	return n, nil
}

// Sync is a no-op, memory needs no flushing.
func (md *MemDev) Sync() error {
	return nil
}

// Size returns the byte size of the device.
func (md *MemDev) Size() int64 {
	return int64(len(md.data))
}
