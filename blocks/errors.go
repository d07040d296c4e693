package blocks

import "github.com/pkg/errors"

// Error kinds surfaced by the archive. Operations return the first kind hit;
// callers match them with errors.Is.
var (
	// ErrFileNotFound is returned if the requested file is not present in the archive.
	ErrFileNotFound = errors.New("file not found in archive")

	// ErrFileExists is returned if a file with the same name is already archived.
	ErrFileExists = errors.New("file already exists in archive")

	// ErrFileOpen is returned if a file or archive cannot be opened.
	ErrFileOpen = errors.New("file open failed")

	// ErrFileRead is returned if reading from a stream fails or comes up short.
	ErrFileRead = errors.New("file read failed")

	// ErrFileWrite is returned if writing to a stream fails.
	ErrFileWrite = errors.New("file write failed")

	// ErrFileClose is returned if closing a stream fails.
	ErrFileClose = errors.New("file close failed")

	// ErrFileSeek is returned if positioning a stream fails.
	ErrFileSeek = errors.New("file seek failed")

	// ErrBadFilename is returned if a file name does not fit the header field.
	ErrBadFilename = errors.New("bad file name")

	// ErrBadPath is returned if a path cannot be resolved.
	ErrBadPath = errors.New("bad path")

	// ErrBadArchive is returned if the archive file is not a whole number of blocks
	// or if the archive has been closed.
	ErrBadArchive = errors.New("bad archive")

	// ErrBadBlock is returned if a block violates the chain invariants.
	ErrBadBlock = errors.New("bad block")

	// ErrBadBlockIndex is returned if a block index points outside the archive
	// or disagrees with the block's position.
	ErrBadBlockIndex = errors.New("bad block index")

	// ErrBadBlockDataLength is returned if a block claims more payload than fits.
	ErrBadBlockDataLength = errors.New("bad block data length")

	// ErrBadProcessor is returned if a processor tag cannot be resolved.
	ErrBadProcessor = errors.New("bad processor")
)
