package blocks

import (
	"bytes"

	"github.com/pkg/errors"
)

// New returns a block positioned at the given index with the chain link pointing
// at next. A block whose link points at itself is the last one of its chain.
func New(index, next BlockAddress) Block {
	return Block{
		Header: Header{
			BlockIndex:     index,
			NextBlockIndex: next,
		},
	}
}

// IsLast tells whether the block terminates its chain.
func (b *Block) IsLast() bool {
	return b.Header.NextBlockIndex == b.Header.BlockIndex
}

// Payload returns the valid payload bytes of the block.
func (b *Block) Payload() []byte {
	return b.Data[:b.Header.DataLen]
}

// SetFileName stores the file name in the header. Names which don't fit the
// fixed-size field, NUL terminator included, are rejected.
func (b *Block) SetFileName(name string) error {
	if name == "" || len(name) >= FileNameSize {
		return errors.WithMessagef(ErrBadFilename, "file name %q does not fit in %d bytes", name, FileNameSize)
	}
	b.Header.FileName = [FileNameSize]byte{}
	copy(b.Header.FileName[:], name)
	return nil
}

// FileName returns the file name stored in the header.
func (b *Block) FileName() string {
	return fieldString(b.Header.FileName[:])
}

// SetProcessorTag marks the block as processed and stores the tag of the
// processor which produced its payload.
func (b *Block) SetProcessorTag(tag string) error {
	if tag == "" || len(tag) >= ProcessorTagSize {
		return errors.WithMessagef(ErrBadProcessor, "processor tag %q does not fit in %d bytes", tag, ProcessorTagSize)
	}
	b.Header.Processed = true
	b.Header.ProcessorTag = [ProcessorTagSize]byte{}
	copy(b.Header.ProcessorTag[:], tag)
	return nil
}

// ProcessorTag returns the processor tag stored in the header.
func (b *Block) ProcessorTag() string {
	return fieldString(b.Header.ProcessorTag[:])
}

// Tombstone marks the block as empty and available for reuse. The file name is
// kept so that debug dumps still show which file used to own the block.
func (b *Block) Tombstone() {
	b.Header.Empty = true
	b.Header.DataLen = 0
	b.Header.NextBlockIndex = b.Header.BlockIndex
	b.Data = [PayloadCapacity]byte{}
}

func fieldString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		return string(field[:i])
	}
	return string(field)
}
