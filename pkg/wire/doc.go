// Package wire encodes the layout protocol messages in protobuf wire
// format.
//
// The compositor streams [Prompt] messages to the layout client and reads
// back [Answer] messages, each either a tree response or a client-side
// request to re-run a layout. Field numbers:
//
//	LayoutPrompt       1 request_id, 2 output_name, 3 window_count, 4 tag_ids (packed)
//	LayoutAnswer       oneof: 1 tree_response, 2 force_layout
//	TreeResponse       1 request_id, 2 tree_id, 3 root_node, 4 output_name
//	ForceLayout        1 output_name
//	LayoutNode         1 label (optional), 2 traversal_index,
//	                   3 traversal_overrides (map<uint32, TraversalOverrides>),
//	                   4 style, 5 children
//	NodeStyle          1 flex_dir (1 row, 2 column), 2 size_proportion, 3 gaps
//	Gaps               1 left, 2 right, 3 top, 4 bottom
//	TraversalOverrides 1 overrides (packed)
//
// Decoding follows proto3 rules: unknown fields are skipped and repeated
// scalars are accepted packed or unpacked. An absent size proportion
// decodes to [tree.DefaultProportion] and an absent traversal index to the
// node's sibling position. The encoder writes a traversal index whenever
// it differs from the sibling position, even when it is zero, so a decoded
// tree equals the encoded one.
package wire
