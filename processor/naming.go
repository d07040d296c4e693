package processor

import (
	"github.com/pkg/errors"

	"github.com/shaikh58/arc/blocks"
)

const (
	processedMarker = "_processed"
	reverseMarker   = "_reverse_process"

	// extensionLen is the number of trailing path characters the markers are
	// inserted before, a dot plus a three character extension.
	extensionLen = 4
)

// ProcessedPath derives the sibling a processor writes its forward output to.
func ProcessedPath(path string) (string, error) {
	return insertMarker(path, processedMarker)
}

// ReversePath derives the sibling ReverseProcess reads its input from.
func ReversePath(path string) (string, error) {
	return insertMarker(path, reverseMarker)
}

func insertMarker(path, marker string) (string, error) {
	if len(path) <= extensionLen {
		return "", errors.WithMessagef(blocks.ErrBadPath, "path %q is too short to carry the %q marker", path, marker)
	}
	cut := len(path) - extensionLen
	return path[:cut] + marker + path[cut:], nil
}
