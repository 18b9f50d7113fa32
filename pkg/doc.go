// Package pkg provides the core libraries of the Tilelayout tiling engine.
//
// # Overview
//
// Tilelayout is the dynamic tiling part of a Wayland compositor. It does not
// decide layouts itself: an external layout client answers each prompt with
// a tree of row and column splits, and the engine turns that tree into one
// rectangle per window. Resizes done by the user are folded back into the
// tree so they survive the next layout.
//
// # Architecture
//
// The data flow of one layout round:
//
//	window registry / output registry
//	         ↓
//	    [dispatch] prompt the client (request id, window count, tags)
//	         ↓
//	    [transport] + [wire] length-delimited protobuf answer
//	         ↓
//	    [tree] validate, [diff] reconcile with the previous tree
//	         ↓
//	    [geometry] resolve rectangles, [assign] pair windows with leaves
//	         ↓
//	    window geometry sink
//
// # Quick Start
//
// Resolve a tree without a compositor:
//
//	import (
//	    "github.com/matzehuels/tilelayout/pkg/assign"
//	    "github.com/matzehuels/tilelayout/pkg/geometry"
//	    "github.com/matzehuels/tilelayout/pkg/tree"
//	)
//
//	root := tree.NewSplit(tree.Row, tree.NewLeaf(), tree.NewLeaf())
//	area := geometry.NewRect(0, 0, 1920, 1080)
//	resolved := geometry.Resolve(&root, area)
//	for i, leaf := range assign.Assign(&root, 2) {
//	    rect, _ := resolved.LeafRect(leaf)
//	    fmt.Println(i, rect)
//	}
//
// # Main Packages
//
// ## Layout Model
//
// [tree] - Layout tree nodes, paths, validation and the JSON file format.
//
// [geometry] - Rectangles and the resolver that splits an area along a tree,
// including per-leaf gaps.
//
// [assign] - The order in which windows are given to leaves.
//
// [diff] - Carries user-adjusted proportions from the previous tree to a new
// one and applies interactive tile resizes.
//
// ## Engine
//
// [dispatch] - The request dispatcher: one event loop that issues prompts,
// drops stale or late answers and applies layouts per output.
//
// [wire] - Protobuf wire codec for prompts and answers.
//
// [transport] - Framed channels to the layout client over any stream, plus an
// in-memory pipe for tests.
//
// ## Infrastructure
//
// [cache] - Size memory backends (file, Redis, MongoDB) behind one interface.
//
// [config] - TOML configuration.
//
// [observability] - Hooks for layout events.
//
// [inspect] - HTTP API exposing engine state.
//
// [render] - Graphviz rendering of resolved trees.
//
// [errors] - Error codes shared by all packages.
//
// [tree]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/tree
// [geometry]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/geometry
// [assign]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/assign
// [diff]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/diff
// [dispatch]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/dispatch
// [wire]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/wire
// [transport]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/transport
// [cache]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/observability
// [inspect]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/inspect
// [render]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/render
// [errors]: https://pkg.go.dev/github.com/matzehuels/tilelayout/pkg/errors
package pkg
