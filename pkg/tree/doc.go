// Package tree defines the layout tree supplied by the layout client.
//
// A layout tree describes how an output's working area subdivides
// spatially. Interior nodes split their content box along a [Direction]
// among their children in proportion to each child's SizeProportion;
// leaves are the slots that windows are assigned to.
//
// # Identity
//
// Trees cross a process boundary on every layout round and carry no stable
// object identity. Nodes are addressed by [Path], the sequence of child
// positions from the root, and optionally by a client-chosen Label. The
// Tree ID is an opaque cache tag chosen by the client and is never used
// for structural matching.
//
// # Values
//
// [Node] and [Tree] are plain values. Operations that derive a new tree
// ([Node.Clone], diff transfer, resize) never mutate their input.
//
// # Files
//
// [ReadFile] and [WriteFile] use a JSON representation that mirrors the
// wire shape:
//
//	{
//	  "direction": "row",
//	  "gaps": {"left": 4, "right": 4, "top": 4, "bottom": 4},
//	  "children": [
//	    {"label": "master", "size_proportion": 2},
//	    {"direction": "column", "children": [{}, {}]}
//	  ]
//	}
package tree
