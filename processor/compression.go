package processor

import (
	"io"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"

	"github.com/shaikh58/arc/blocks"
)

// CompressionTag identifies the DEFLATE processor in block headers.
const CompressionTag = "comp"

// Compression is the built-in DEFLATE processor.
type Compression struct {
	level int
}

// NewCompression returns the DEFLATE processor at the default compression level.
func NewCompression() *Compression {
	return &Compression{
		level: flate.DefaultCompression,
	}
}

// Tag implements Processor.
func (c *Compression) Tag() string {
	return CompressionTag
}

// Process compresses srcPath into its processed sibling.
func (c *Compression) Process(srcPath string) (string, error) {
	dstPath, err := ProcessedPath(srcPath)
	if err != nil {
		return "", err
	}

	err = transformFile(srcPath, dstPath, func(dst io.Writer, src io.Reader) error {
		zw, err := flate.NewWriter(dst, c.level)
		if err != nil {
			return errors.WithMessagef(blocks.ErrBadProcessor, "creating deflate writer: %s", err)
		}
		if _, err := copyChunked(zw, src); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return errors.WithMessagef(blocks.ErrFileWrite, "flushing deflate stream: %s", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return dstPath, nil
}

// ReverseProcess inflates the reverse sibling of dstPath into dstPath.
func (c *Compression) ReverseProcess(dstPath string) error {
	srcPath, err := ReversePath(dstPath)
	if err != nil {
		return err
	}

	return transformFile(srcPath, dstPath, func(dst io.Writer, src io.Reader) error {
		zr := flate.NewReader(src)
		if _, err := copyChunked(dst, zr); err != nil {
			return err
		}
		if err := zr.Close(); err != nil {
			return errors.WithMessagef(blocks.ErrFileRead, "closing deflate stream: %s", err)
		}
		return nil
	})
}

// transformFile streams src through transform into dst with both handles
// released on every path.
func transformFile(srcPath, dstPath string, transform func(dst io.Writer, src io.Reader) error) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return errors.WithMessagef(blocks.ErrFileOpen, "opening %q: %s", srcPath, err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return errors.WithMessagef(blocks.ErrFileOpen, "creating %q: %s", dstPath, err)
	}
	defer dst.Close()

	if err := transform(dst, src); err != nil {
		return err
	}

	if err := dst.Close(); err != nil {
		return errors.WithMessagef(blocks.ErrFileClose, "closing %q: %s", dstPath, err)
	}
	return nil
}

// copyChunked copies src to dst through a payload-sized buffer, the same unit
// the archive stores.
func copyChunked(dst io.Writer, src io.Reader) (int64, error) {
	n, err := io.CopyBuffer(dst, src, make([]byte, blocks.PayloadCapacity))
	if err != nil {
		return n, errors.WithMessagef(blocks.ErrFileRead, "streaming payload: %s", err)
	}
	return n, nil
}
