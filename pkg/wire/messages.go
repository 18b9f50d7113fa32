package wire

import "github.com/matzehuels/tilelayout/pkg/tree"

// Prompt asks the layout client for a tree for one output.
type Prompt struct {
	RequestID   uint64
	Output      string
	WindowCount uint32
	Tags        []uint32
}

// TreeResponse answers a prompt.
type TreeResponse struct {
	RequestID uint64
	TreeID    uint32
	Root      tree.Node
	Output    string
}

// Tree returns the response as a layout tree.
func (r *TreeResponse) Tree() tree.Tree {
	return tree.Tree{Root: r.Root, ID: r.TreeID}
}

// ForceLayout is a client request to lay out an output again.
type ForceLayout struct {
	Output string
}

// Answer is a message from the layout client. Exactly one field is set.
type Answer struct {
	Tree  *TreeResponse
	Force *ForceLayout
}

// Output returns the output the answer refers to.
func (a *Answer) Output() string {
	switch {
	case a.Tree != nil:
		return a.Tree.Output
	case a.Force != nil:
		return a.Force.Output
	}
	return ""
}

const (
	flexDirUnspecified = 0
	flexDirRow         = 1
	flexDirColumn      = 2
)
