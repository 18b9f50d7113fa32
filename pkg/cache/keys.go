package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// treeKeyVersion changes whenever the stored tree encoding does.
const treeKeyVersion = 1

// DefaultKeyer generates readable keys of the form "tree:v1:<output>", so
// entries in Redis or MongoDB can be found by output name.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// TreeKey returns the key of an output's last applied tree.
func (DefaultKeyer) TreeKey(output string) string {
	return fmt.Sprintf("tree:v%d:%s", treeKeyVersion, output)
}

// ScopedKeyer prefixes the keys of another keyer. Shared backends use it to
// keep the size memory of different seats apart.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "tilelayout:seat0:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the default keyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// TreeKey returns the prefixed key.
func (k *ScopedKeyer) TreeKey(output string) string {
	return k.prefix + k.inner.TreeKey(output)
}

// entryPath maps a key to a file below dir. Keys may contain separators,
// so files are named by digest and fanned out over 256 directories.
func entryPath(dir, key string) string {
	sum := sha256.Sum256([]byte(key))
	h := hex.EncodeToString(sum[:])
	return filepath.Join(dir, h[:2], h[2:]+".json")
}
