package processor

import (
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/shaikh58/arc/blocks"
)

// LZ4Tag identifies the LZ4 processor in block headers.
const LZ4Tag = "lz4"

// LZ4 trades compression ratio for speed.
type LZ4 struct{}

// NewLZ4 returns the LZ4 processor.
func NewLZ4() *LZ4 {
	return &LZ4{}
}

// Tag implements Processor.
func (l *LZ4) Tag() string {
	return LZ4Tag
}

// Process compresses srcPath into its processed sibling.
func (l *LZ4) Process(srcPath string) (string, error) {
	dstPath, err := ProcessedPath(srcPath)
	if err != nil {
		return "", err
	}

	err = transformFile(srcPath, dstPath, func(dst io.Writer, src io.Reader) error {
		zw := lz4.NewWriter(dst)
		if _, err := copyChunked(zw, src); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return errors.WithMessagef(blocks.ErrFileWrite, "flushing lz4 stream: %s", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return dstPath, nil
}

// ReverseProcess decompresses the reverse sibling of dstPath into dstPath.
func (l *LZ4) ReverseProcess(dstPath string) error {
	srcPath, err := ReversePath(dstPath)
	if err != nil {
		return err
	}

	return transformFile(srcPath, dstPath, func(dst io.Writer, src io.Reader) error {
		_, err := copyChunked(dst, lz4.NewReader(src))
		return err
	})
}
