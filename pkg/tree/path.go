package tree

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Path addresses a node by the positions of the children taken from the
// root. The empty path is the root.
type Path []int

// Child returns a new path extended by position i. The receiver is not
// modified.
func (p Path) Child(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, i)
}

// Parent returns the path of the parent node. The root is its own parent.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return slices.Clone(p[:len(p)-1])
}

// IsRoot reports whether p addresses the root.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Equal reports whether p and q address the same node.
func (p Path) Equal(q Path) bool { return slices.Equal(p, q) }

// HasPrefix reports whether q is an ancestor of (or equal to) p.
func (p Path) HasPrefix(q Path) bool {
	return len(q) <= len(p) && slices.Equal(p[:len(q)], q)
}

// Key returns a dotted form suitable as a map key, e.g. "0.1.0".
// The root key is the empty string.
func (p Path) Key() string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, len(p))
	for i, pos := range p {
		parts[i] = strconv.Itoa(pos)
	}
	return strings.Join(parts, ".")
}

// String returns the dotted form, or "root" for the empty path.
func (p Path) String() string {
	if len(p) == 0 {
		return "root"
	}
	return p.Key()
}

// ParsePath parses the output of [Path.Key] or [Path.String].
func ParsePath(s string) (Path, error) {
	if s == "" || s == "root" {
		return Path{}, nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, len(parts))
	for i, part := range parts {
		pos, err := strconv.Atoi(part)
		if err != nil || pos < 0 {
			return nil, fmt.Errorf("invalid path %q", s)
		}
		p[i] = pos
	}
	return p, nil
}
