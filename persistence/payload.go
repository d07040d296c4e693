package persistence

import (
	"io"

	"github.com/pkg/errors"

	"github.com/shaikh58/arc/blocks"
)

// ReadPayload fills the block's payload area with up to PayloadCapacity bytes
// read from a plain stream. The header's data length records the bytes actually
// read and the block is marked non-empty.
func ReadPayload(r io.Reader, block *blocks.Block) error {
	n, err := io.ReadFull(r, block.Data[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.WithMessagef(blocks.ErrFileRead, "reading payload: %s", err)
	}
	for i := n; i < len(block.Data); i++ {
		block.Data[i] = 0
	}
	block.Header.DataLen = uint64(n)
	block.Header.Empty = false
	return nil
}

// WritePayload writes exactly the valid payload bytes of the block to a plain
// stream. No header, no padding.
func WritePayload(w io.Writer, block *blocks.Block) error {
	if _, err := w.Write(block.Payload()); err != nil {
		return errors.WithMessagef(blocks.ErrFileWrite, "writing payload: %s", err)
	}
	return nil
}
