package dispatch

import (
	"github.com/matzehuels/tilelayout/pkg/geometry"
)

// WindowID identifies a window to the compositor.
type WindowID uint64

// Assignment maps windows to their rectangles for one output.
type Assignment map[WindowID]geometry.Rect

// WindowRegistry knows which windows are laid out on an output.
type WindowRegistry interface {
	// ActiveTags returns the active tag set of the output.
	ActiveTags(output string) []uint32
	// Windows returns the tiled windows visible with the given tags, in
	// layout order. Window i of the list is placed by window index i.
	Windows(output string, tags []uint32) []WindowID
}

// OutputRegistry knows the usable area of each output.
type OutputRegistry interface {
	// WorkingArea returns the rectangle available for tiling. ok is false
	// for unknown outputs.
	WorkingArea(output string) (area geometry.Rect, ok bool)
}

// Sink receives the final geometry of a layout round. Apply is called from
// the engine goroutine and should not block for long.
type Sink interface {
	Apply(output string, a Assignment)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(output string, a Assignment)

// Apply calls f.
func (f SinkFunc) Apply(output string, a Assignment) { f(output, a) }
