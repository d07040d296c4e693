// Package toc keeps the in-memory table of contents of an archive: the relation
// between archived file names and the first block of their chains. It is
// rebuilt by scanning block headers whenever an archive is opened.
package toc

import (
	"sort"

	"github.com/shaikh58/arc/blocks"
)

// TOC maps file names to first block addresses. Keys are unique, chain data
// beyond the first block lives in the block headers.
type TOC struct {
	entries map[string]blocks.BlockAddress
}

// New returns new empty TOC.
func New() *TOC {
	return &TOC{
		entries: map[string]blocks.BlockAddress{},
	}
}

// Insert maps a file name to the first block of its chain. Inserting a name
// already present reports false and leaves the existing mapping untouched.
func (t *TOC) Insert(name string, address blocks.BlockAddress) bool {
	if _, exists := t.entries[name]; exists {
		return false
	}
	t.entries[name] = address
	return true
}

// Erase removes the mapping of the file name.
func (t *TOC) Erase(name string) {
	delete(t.entries, name)
}

// Lookup returns the first block address of the file.
func (t *TOC) Lookup(name string) (blocks.BlockAddress, bool) {
	address, exists := t.entries[name]
	return address, exists
}

// Len returns the number of archived files.
func (t *TOC) Len() int {
	return len(t.entries)
}

// Iterate calls fn for every entry in name order. Returning false stops the
// iteration.
func (t *TOC) Iterate(fn func(name string, address blocks.BlockAddress) bool) {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !fn(name, t.entries[name]) {
			return
		}
	}
}
