package persistence

import (
	"io"

	"github.com/outofforest/photon"
	"github.com/pkg/errors"

	"github.com/shaikh58/arc/blocks"
)

// Dev is the interface required from the device keeping the archive.
type Dev interface {
	io.ReadWriteSeeker
	Sync() error
	Size() int64
}

// Store transfers raw blocks between memory and the archive device. It knows
// nothing about chains, the TOC or processors.
type Store struct {
	dev Dev
}

// OpenStore opens the block store on the device.
func OpenStore(dev Dev) (*Store, error) {
	if dev.Size()%blocks.BlockSize != 0 {
		return nil, errors.WithMessagef(blocks.ErrBadArchive,
			"archive size %d is not a multiple of the block size %d", dev.Size(), blocks.BlockSize)
	}
	return &Store{
		dev: dev,
	}, nil
}

// NBlocks returns the number of blocks currently on the device.
func (s *Store) NBlocks() int64 {
	return s.dev.Size() / blocks.BlockSize
}

// ReadBlock reads the block stored at the given address.
func (s *Store) ReadBlock(address blocks.BlockAddress) (blocks.Block, error) {
	if int64(address) >= s.NBlocks() {
		return blocks.Block{}, errors.WithMessagef(blocks.ErrBadBlockIndex,
			"block %d does not exist, archive has %d blocks", address, s.NBlocks())
	}

	if _, err := s.dev.Seek(int64(address)*blocks.BlockSize, io.SeekStart); err != nil {
		return blocks.Block{}, errors.WithMessagef(blocks.ErrFileSeek, "seeking block %d: %s", address, err)
	}

	b := photon.NewFromValue(&blocks.Block{})
	n, err := io.ReadFull(s.dev, b.B)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF) && int64(address) == s.NBlocks()-1:
		// A truncated final block is tolerated, the missing tail reads as NUL.
		for i := n; i < len(b.B); i++ {
			b.B[i] = 0
		}
	default:
		return blocks.Block{}, errors.WithMessagef(blocks.ErrFileRead, "reading block %d: %s", address, err)
	}

	if b.V.Header.BlockIndex != address {
		return blocks.Block{}, errors.WithMessagef(blocks.ErrBadBlockIndex,
			"block at position %d claims index %d", address, b.V.Header.BlockIndex)
	}
	if b.V.Header.DataLen > uint64(blocks.PayloadCapacity) {
		return blocks.Block{}, errors.WithMessagef(blocks.ErrBadBlockDataLength,
			"block %d claims %d payload bytes, capacity is %d", address, b.V.Header.DataLen, blocks.PayloadCapacity)
	}

	return *b.V, nil
}

// WriteBlock writes the block at the address recorded in its header. The full
// block size is written regardless of the payload length.
func (s *Store) WriteBlock(block *blocks.Block) error {
	if block.Header.DataLen > uint64(blocks.PayloadCapacity) {
		return errors.WithMessagef(blocks.ErrBadBlockDataLength,
			"block %d claims %d payload bytes, capacity is %d", block.Header.BlockIndex, block.Header.DataLen, blocks.PayloadCapacity)
	}

	if _, err := s.dev.Seek(int64(block.Header.BlockIndex)*blocks.BlockSize, io.SeekStart); err != nil {
		return errors.WithMessagef(blocks.ErrFileSeek, "seeking block %d: %s", block.Header.BlockIndex, err)
	}

	if _, err := s.dev.Write(photon.NewFromValue(block).B); err != nil {
		return errors.WithMessagef(blocks.ErrFileWrite, "writing block %d: %s", block.Header.BlockIndex, err)
	}
	return nil
}

// Sync forces written blocks down to the device.
func (s *Store) Sync() error {
	if err := s.dev.Sync(); err != nil {
		return errors.WithMessagef(blocks.ErrFileWrite, "syncing archive: %s", err)
	}
	return nil
}
