// Package arc implements a fixed-block file archive: an arbitrary number of
// user files stored inside a single host file organized as an array of
// fixed-size blocks. Multi-block files are kept as linked chains of blocks,
// removed files leave tombstoned blocks behind which are reused by later adds
// and eliminated by compaction.
package arc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/shaikh58/arc/blocks"
	"github.com/shaikh58/arc/persistence"
	"github.com/shaikh58/arc/pkg/filedev"
	"github.com/shaikh58/arc/processor"
	"github.com/shaikh58/arc/toc"
)

// Suffix is appended to archive paths which don't carry it yet.
const Suffix = ".arc"

// Archive is the façade over a single archive file. Exactly one Archive
// instance may own a given file at a time.
type Archive struct {
	path     string
	folder   string
	dev      *filedev.FileDev
	store    *persistence.Store
	contents *toc.TOC
	registry *processor.Registry

	// free keeps the tombstoned block addresses available for reuse, lowest first.
	free []blocks.BlockAddress

	observers      []observerReg
	nextObserverID uint64
	closed         bool
}

// Create creates a new archive at the path, truncating any existing content.
// The Suffix is appended if the path doesn't carry it.
func Create(path string) (*Archive, error) {
	return newArchive(path, true)
}

// Open opens an existing archive and rebuilds its table of contents by
// scanning every block.
func Open(path string) (*Archive, error) {
	return newArchive(path, false)
}

func newArchive(path string, truncate bool) (*Archive, error) {
	path = withSuffix(path)

	flags := os.O_RDWR
	if truncate {
		flags |= os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, errors.WithMessagef(blocks.ErrFileOpen, "opening archive %q: %s", path, err)
	}

	dev := filedev.New(f)
	store, err := persistence.OpenStore(dev)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}

	a := &Archive{
		path:     path,
		folder:   filepath.Dir(path),
		dev:      dev,
		store:    store,
		contents: toc.New(),
		registry: processor.NewRegistry(),
	}
	if err := a.reload(); err != nil {
		_ = dev.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the archive file handle. Further operations fail.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if err := a.dev.Close(); err != nil {
		return errors.WithMessagef(blocks.ErrFileClose, "closing archive %q: %s", a.path, err)
	}
	return nil
}

// Path returns the path of the archive file.
func (a *Archive) Path() string {
	return a.path
}

// NBlocks returns the number of blocks in the archive, tombstoned ones included.
func (a *Archive) NBlocks() int64 {
	return a.store.NBlocks()
}

// Registry returns the processor registry of the archive.
func (a *Archive) Registry() *processor.Registry {
	return a.registry
}

// Add archives the file at fileName. If proc is non-nil the file's payload is
// transformed before it is chunked into blocks and the processor tag is
// recorded in every block of the chain.
func (a *Archive) Add(fileName string, proc processor.Processor) error {
	err := a.add(fileName, proc)
	a.notify(ActionAdded, fileName, err == nil)
	return err
}

func (a *Archive) add(fileName string, proc processor.Processor) error {
	if err := a.requireOpen(); err != nil {
		return err
	}

	name := a.normalize(fileName)
	if name == "" || len(name) >= blocks.FileNameSize {
		return errors.WithMessagef(blocks.ErrBadFilename, "file name %q does not fit in %d bytes", name, blocks.FileNameSize)
	}
	if _, exists := a.contents.Lookup(name); exists {
		return errors.WithMessagef(blocks.ErrFileExists, "%q is already archived", name)
	}

	srcPath := fileName
	if proc != nil {
		processedPath, err := proc.Process(fileName)
		if err != nil {
			return err
		}
		defer os.Remove(processedPath)
		srcPath = processedPath
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return errors.WithMessagef(blocks.ErrFileOpen, "opening %q: %s", srcPath, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errors.WithMessagef(blocks.ErrFileRead, "sizing %q: %s", srcPath, err)
	}

	nChunks := (info.Size() + blocks.PayloadCapacity - 1) / blocks.PayloadCapacity
	if nChunks == 0 {
		// A zero-byte file still occupies one block.
		nChunks = 1
	}

	addresses := a.allocate(nChunks)
	if err := a.writeChain(src, name, proc, addresses); err != nil {
		a.rollback(addresses)
		return err
	}
	if err := a.store.Sync(); err != nil {
		a.rollback(addresses)
		return err
	}

	a.contents.Insert(name, addresses[0])
	return nil
}

// allocate hands out block addresses for a chain, draining the free pool
// before growing the archive.
func (a *Archive) allocate(n int64) []blocks.BlockAddress {
	addresses := make([]blocks.BlockAddress, 0, n)
	reused := int64(len(a.free))
	if reused > n {
		reused = n
	}
	addresses = append(addresses, a.free[:reused]...)
	a.free = a.free[reused:]

	next := blocks.BlockAddress(a.store.NBlocks())
	for int64(len(addresses)) < n {
		addresses = append(addresses, next)
		next++
	}
	return addresses
}

func (a *Archive) writeChain(src io.Reader, name string, proc processor.Processor, addresses []blocks.BlockAddress) error {
	for i, address := range addresses {
		next := address
		if i < len(addresses)-1 {
			next = addresses[i+1]
		}

		b := blocks.New(address, next)
		if err := b.SetFileName(name); err != nil {
			return err
		}
		if proc != nil {
			if err := b.SetProcessorTag(proc.Tag()); err != nil {
				return err
			}
		}
		if err := persistence.ReadPayload(src, &b); err != nil {
			return err
		}
		if err := a.store.WriteBlock(&b); err != nil {
			return err
		}
	}
	return nil
}

// rollback tombstones the blocks of a failed add so they are reusable. Blocks
// which never made it to the device are simply forgotten.
func (a *Archive) rollback(addresses []blocks.BlockAddress) {
	nBlocks := blocks.BlockAddress(a.store.NBlocks())
	for _, address := range addresses {
		if address >= nBlocks {
			continue
		}
		b := blocks.New(address, address)
		b.Tombstone()
		if err := a.store.WriteBlock(&b); err != nil {
			continue
		}
		a.free = append(a.free, address)
	}
	sortAddresses(a.free)
}

// Extract materializes the archived file at outPath. If the chain was
// processed, the inverse processor reconstructs the original bytes.
func (a *Archive) Extract(fileName, outPath string) error {
	err := a.extract(fileName, outPath)
	a.notify(ActionExtracted, fileName, err == nil)
	return err
}

func (a *Archive) extract(fileName, outPath string) error {
	if err := a.requireOpen(); err != nil {
		return err
	}

	name := a.normalize(fileName)
	first, exists := a.contents.Lookup(name)
	if !exists {
		return errors.WithMessagef(blocks.ErrFileNotFound, "%q is not archived", name)
	}

	head, err := a.store.ReadBlock(first)
	if err != nil {
		return err
	}

	// Processed chains are staged in the reverse sibling of outPath, the
	// inverse processor turns the staged bytes into the final file.
	dstPath := outPath
	if head.Header.Processed {
		dstPath, err = processor.ReversePath(outPath)
		if err != nil {
			return err
		}
	}

	if err := a.writeChainTo(dstPath, name, first); err != nil {
		return err
	}

	if head.Header.Processed {
		defer os.Remove(dstPath)
		proc, err := a.registry.Get(head.ProcessorTag())
		if err != nil {
			return err
		}
		if err := proc.ReverseProcess(outPath); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) writeChainTo(dstPath, name string, first blocks.BlockAddress) error {
	dst, err := os.Create(dstPath)
	if err != nil {
		return errors.WithMessagef(blocks.ErrFileOpen, "creating %q: %s", dstPath, err)
	}
	defer dst.Close()

	if err := a.walkChain(name, first, func(b *blocks.Block) error {
		return persistence.WritePayload(dst, b)
	}); err != nil {
		return err
	}

	if err := dst.Close(); err != nil {
		return errors.WithMessagef(blocks.ErrFileClose, "closing %q: %s", dstPath, err)
	}
	return nil
}

// walkChain visits every block of a chain in order. Chains longer than the
// archive indicate a link cycle and fail.
func (a *Archive) walkChain(name string, first blocks.BlockAddress, visit func(b *blocks.Block) error) error {
	address := first
	for steps := int64(0); ; steps++ {
		if steps >= a.store.NBlocks() {
			return errors.WithMessagef(blocks.ErrBadBlock, "chain of %q does not terminate", name)
		}

		b, err := a.store.ReadBlock(address)
		if err != nil {
			return err
		}
		if b.Header.Empty || b.FileName() != name {
			return errors.WithMessagef(blocks.ErrBadBlock, "block %d does not belong to %q", address, name)
		}

		// The link is read before visiting, visit may rewrite the block.
		last, next := b.IsLast(), b.Header.NextBlockIndex
		if err := visit(&b); err != nil {
			return err
		}
		if last {
			return nil
		}
		address = next
	}
}

// Remove tombstones every block of the archived file and drops it from the
// table of contents. The space is reused by later adds.
func (a *Archive) Remove(fileName string) error {
	err := a.remove(fileName)
	a.notify(ActionRemoved, fileName, err == nil)
	return err
}

func (a *Archive) remove(fileName string) error {
	if err := a.requireOpen(); err != nil {
		return err
	}

	name := a.normalize(fileName)
	first, exists := a.contents.Lookup(name)
	if !exists {
		return errors.WithMessagef(blocks.ErrFileNotFound, "%q is not archived", name)
	}

	freed := make([]blocks.BlockAddress, 0, 1)
	if err := a.walkChain(name, first, func(b *blocks.Block) error {
		b.Tombstone()
		if err := a.store.WriteBlock(b); err != nil {
			return err
		}
		freed = append(freed, b.Header.BlockIndex)
		return nil
	}); err != nil {
		return err
	}
	if err := a.store.Sync(); err != nil {
		return err
	}

	a.contents.Erase(name)
	a.free = append(a.free, freed...)
	sortAddresses(a.free)
	return nil
}

// List writes the base name of every archived file to the sink, one per line,
// followed by two marker lines, and returns the number of entries.
func (a *Archive) List(w io.Writer) (int, error) {
	n, err := a.list(w)
	a.notify(ActionListed, "", err == nil)
	return n, err
}

func (a *Archive) list(w io.Writer) (int, error) {
	if err := a.requireOpen(); err != nil {
		return 0, err
	}

	var err error
	a.contents.Iterate(func(name string, _ blocks.BlockAddress) bool {
		_, err = fmt.Fprintf(w, "%s\n", filepath.Base(name))
		return err == nil
	})
	if err == nil {
		_, err = io.WriteString(w, "#\n#\n")
	}
	if err != nil {
		return 0, errors.WithMessagef(blocks.ErrFileWrite, "writing listing: %s", err)
	}
	return a.contents.Len(), nil
}

// DebugDump writes one line per block, tombstoned ones included, and returns
// the total block count.
func (a *Archive) DebugDump(w io.Writer) (int64, error) {
	n, err := a.debugDump(w)
	a.notify(ActionDumped, "", err == nil)
	return n, err
}

func (a *Archive) debugDump(w io.Writer) (int64, error) {
	if err := a.requireOpen(); err != nil {
		return 0, err
	}

	nBlocks := a.store.NBlocks()
	for i := int64(0); i < nBlocks; i++ {
		b, err := a.store.ReadBlock(blocks.BlockAddress(i))
		if err != nil {
			return 0, err
		}
		if _, err := fmt.Fprintf(w, "%d %t %s\n", b.Header.BlockIndex, b.Header.Empty, filepath.Base(b.FileName())); err != nil {
			return 0, errors.WithMessagef(blocks.ErrFileWrite, "writing dump: %s", err)
		}
	}
	return nBlocks, nil
}

// Compact rewrites the archive without its tombstoned blocks and returns the
// number of surviving blocks. Chains are remapped to the new block addresses,
// the archive file is replaced atomically.
func (a *Archive) Compact() (int64, error) {
	n, err := a.compact()
	a.notify(ActionCompacted, "", err == nil)
	return n, err
}

func (a *Archive) compact() (int64, error) {
	if err := a.requireOpen(); err != nil {
		return 0, err
	}

	nBlocks := a.store.NBlocks()
	remap := make(map[blocks.BlockAddress]blocks.BlockAddress, nBlocks)
	survivors := make([]blocks.BlockAddress, 0, nBlocks)
	for i := int64(0); i < nBlocks; i++ {
		address := blocks.BlockAddress(i)
		b, err := a.store.ReadBlock(address)
		if err != nil {
			return 0, err
		}
		if b.Header.Empty {
			continue
		}
		remap[address] = blocks.BlockAddress(len(survivors))
		survivors = append(survivors, address)
	}

	tmp, err := os.CreateTemp(a.folder, ".compact-*"+Suffix)
	if err != nil {
		return 0, errors.WithMessagef(blocks.ErrFileOpen, "creating temporary archive: %s", err)
	}
	tmpPath := tmp.Name()
	tmpDev := filedev.New(tmp)
	defer func() {
		_ = tmpDev.Close()
		_ = os.Remove(tmpPath)
	}()

	tmpStore, err := persistence.OpenStore(tmpDev)
	if err != nil {
		return 0, err
	}

	for _, address := range survivors {
		b, err := a.store.ReadBlock(address)
		if err != nil {
			return 0, err
		}
		newNext, exists := remap[b.Header.NextBlockIndex]
		if !exists {
			return 0, errors.WithMessagef(blocks.ErrBadBlock, "block %d links to tombstoned block %d", address, b.Header.NextBlockIndex)
		}
		b.Header.BlockIndex = remap[address]
		b.Header.NextBlockIndex = newNext
		if err := tmpStore.WriteBlock(&b); err != nil {
			return 0, err
		}
	}
	if err := tmpStore.Sync(); err != nil {
		return 0, err
	}
	if err := tmpDev.Close(); err != nil {
		return 0, errors.WithMessagef(blocks.ErrFileClose, "closing temporary archive: %s", err)
	}

	if err := a.dev.Close(); err != nil {
		return 0, errors.WithMessagef(blocks.ErrFileClose, "closing archive %q: %s", a.path, err)
	}
	if err := os.Rename(tmpPath, a.path); err != nil {
		return 0, errors.WithMessagef(blocks.ErrFileWrite, "replacing archive %q: %s", a.path, err)
	}

	f, err := os.OpenFile(a.path, os.O_RDWR, 0o644)
	if err != nil {
		return 0, errors.WithMessagef(blocks.ErrFileOpen, "reopening archive %q: %s", a.path, err)
	}
	a.dev = filedev.New(f)
	a.store, err = persistence.OpenStore(a.dev)
	if err != nil {
		return 0, err
	}
	if err := a.reload(); err != nil {
		return 0, err
	}
	return int64(len(survivors)), nil
}

// PayloadChecksum returns the digest of the bytes stored for the file, after
// any processing, as they sit in the archive. Useful to compare archives
// without extracting.
func (a *Archive) PayloadChecksum(fileName string) (blocks.Hash, error) {
	if err := a.requireOpen(); err != nil {
		return 0, err
	}

	name := a.normalize(fileName)
	first, exists := a.contents.Lookup(name)
	if !exists {
		return 0, errors.WithMessagef(blocks.ErrFileNotFound, "%q is not archived", name)
	}

	digest := xxhash.New()
	if err := a.walkChain(name, first, func(b *blocks.Block) error {
		_, err := digest.Write(b.Payload())
		return errors.WithStack(err)
	}); err != nil {
		return 0, err
	}
	return blocks.Hash(digest.Sum64()), nil
}

// Verify audits the structure of the archive: every block must be readable and
// sized consistently, every chain link must stay within the file it belongs to
// and every table-of-contents entry must resolve.
func (a *Archive) Verify() error {
	if err := a.requireOpen(); err != nil {
		return err
	}

	nBlocks := a.store.NBlocks()
	for i := int64(0); i < nBlocks; i++ {
		b, err := a.store.ReadBlock(blocks.BlockAddress(i))
		if err != nil {
			return err
		}
		if b.Header.Empty || b.IsLast() {
			continue
		}

		next, err := a.store.ReadBlock(b.Header.NextBlockIndex)
		if err != nil {
			return err
		}
		if next.Header.Empty || next.FileName() != b.FileName() ||
			next.Header.Processed != b.Header.Processed || next.ProcessorTag() != b.ProcessorTag() {
			return errors.WithMessagef(blocks.ErrBadBlock, "block %d links to foreign block %d", i, b.Header.NextBlockIndex)
		}
	}

	var err error
	a.contents.Iterate(func(name string, address blocks.BlockAddress) bool {
		err = a.walkChain(name, address, func(*blocks.Block) error { return nil })
		return err == nil
	})
	return err
}

// reload rebuilds the table of contents and the free pool by scanning every
// block header. Because freed blocks are reused, a chain may skip over blocks
// of other files, so the head of a chain is taken to be the block no other
// block links to rather than being found by position.
func (a *Archive) reload() error {
	a.contents = toc.New()
	a.free = a.free[:0]

	nBlocks := a.store.NBlocks()
	headers := make([]blocks.Header, nBlocks)
	linked := make(map[blocks.BlockAddress]struct{}, nBlocks)
	for i := int64(0); i < nBlocks; i++ {
		b, err := a.store.ReadBlock(blocks.BlockAddress(i))
		if err != nil {
			return err
		}
		headers[i] = b.Header
		if b.Header.Empty {
			a.free = append(a.free, b.Header.BlockIndex)
			continue
		}
		if !b.IsLast() {
			linked[b.Header.NextBlockIndex] = struct{}{}
		}
	}

	for i := int64(0); i < nBlocks; i++ {
		h := headers[i]
		if h.Empty {
			continue
		}
		if _, isLinked := linked[h.BlockIndex]; isLinked {
			// Reachable through its predecessor, not a chain head.
			continue
		}
		b := blocks.Block{Header: h}
		a.contents.Insert(b.FileName(), h.BlockIndex)
	}
	return nil
}

// normalize prepends the archive's parent folder to names which don't carry it.
func (a *Archive) normalize(name string) string {
	name = filepath.Clean(name)
	if a.folder == "." {
		return name
	}
	if strings.HasPrefix(name, a.folder+string(os.PathSeparator)) {
		return name
	}
	return filepath.Join(a.folder, name)
}

func (a *Archive) requireOpen() error {
	if a.closed {
		return errors.WithMessagef(blocks.ErrBadArchive, "archive %q is closed", a.path)
	}
	return nil
}

func withSuffix(path string) string {
	if strings.HasSuffix(path, Suffix) {
		return path
	}
	return path + Suffix
}

func sortAddresses(addresses []blocks.BlockAddress) {
	sort.Slice(addresses, func(i, j int) bool { return addresses[i] < addresses[j] })
}
