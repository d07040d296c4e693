package blocks

import "unsafe"

// BlockSize is the size of the on-disk data unit used by the archive.
const BlockSize int64 = 1024 // 1 KiB

const (
	// FileNameSize is the capacity of the file name field in the block header,
	// including the NUL terminator.
	FileNameSize = 30

	// ProcessorTagSize is the capacity of the processor tag field in the block header:
	// four ASCII characters plus the NUL terminator.
	ProcessorTagSize = 5
)

// BlockAddress is the address (index) of a block inside the archive.
type BlockAddress uint64

// Header stores the metadata of a block. Its on-disk form is its in-memory layout,
// so field order and sizes must stay stable.
type Header struct {
	BlockIndex     BlockAddress
	NextBlockIndex BlockAddress
	DataLen        uint64
	Empty          bool
	Processed      bool
	ProcessorTag   [ProcessorTagSize]byte
	FileName       [FileNameSize]byte
}

const (
	// HeaderSize is the size of the serialized block header.
	HeaderSize = int64(unsafe.Sizeof(Header{}))

	// PayloadCapacity is the number of payload bytes a single block can carry.
	PayloadCapacity = BlockSize - HeaderSize
)

// Block is the on-disk record: a header followed by the payload. Only the first
// Header.DataLen payload bytes are valid, the rest stays NUL.
type Block struct {
	Header Header
	Data   [PayloadCapacity]byte
}
