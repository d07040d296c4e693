// Package processor defines the payload transforms applied on the archive write
// path and inverted on the read path. A processor is identified by a short
// ASCII tag stored in every block header it produced, so the inverse transform
// can be reconstructed from the archive alone.
package processor

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/shaikh58/arc/blocks"
)

// Processor transforms a file on its way into the archive and recovers the
// original on the way out. Transforms must be deterministic, ReverseProcess
// applied to the output of Process yields the original bytes.
type Processor interface {
	// Tag returns the identifier stored in block headers, at most four ASCII
	// characters.
	Tag() string

	// Process reads srcPath and writes the transformed sibling file, returning
	// its path. The sibling is named by inserting "_processed" before the final
	// four characters of srcPath.
	Process(srcPath string) (string, error)

	// ReverseProcess reads the sibling of dstPath named by inserting
	// "_reverse_process" before its final four characters and materializes the
	// recovered content at dstPath.
	ReverseProcess(dstPath string) error
}

// Factory produces a fresh processor instance.
type Factory func() Processor

// Registry maps processor tags to factories. Extraction uses it to rebuild the
// processor named by a block header.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in processors registered.
func NewRegistry() *Registry {
	r := &Registry{
		factories: map[string]Factory{},
	}
	must(r.Register(CompressionTag, func() Processor { return NewCompression() }))
	must(r.Register(LZ4Tag, func() Processor { return NewLZ4() }))
	return r
}

// Register adds a processor factory under its tag.
func (r *Registry) Register(tag string, factory Factory) error {
	if tag == "" || len(tag) >= blocks.ProcessorTagSize {
		return errors.WithMessagef(blocks.ErrBadProcessor, "processor tag %q does not fit in %d bytes", tag, blocks.ProcessorTagSize)
	}
	if _, exists := r.factories[tag]; exists {
		return errors.WithMessagef(blocks.ErrBadProcessor, "processor tag %q already registered", tag)
	}
	r.factories[tag] = factory
	return nil
}

// Get returns a fresh processor for the tag.
func (r *Registry) Get(tag string) (Processor, error) {
	factory, exists := r.factories[tag]
	if !exists {
		return nil, errors.WithMessagef(blocks.ErrBadProcessor, "unknown processor tag %q", tag)
	}
	return factory(), nil
}

// Tags returns the registered tags in stable order.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
