// Package dispatch runs the layout request lifecycle of a compositor.
//
// An [Engine] asks an external layout client for a tree whenever an output
// needs a new layout, and turns the client's answer into window
// rectangles:
//
//	trigger -> prompt -> (client) -> answer -> diff.Reconcile
//	        -> geometry.Resolve -> assign.Assign -> Sink.Apply
//
// All requests and answers share one [transport.Channel]. Each output has
// its own monotonically increasing request id; only the answer to the
// newest id of an output is ever applied, which makes an older in-flight
// request implicitly cancelled. A request without an answer within
// the request timeout is reported as timed out but stays the newest, so a
// late answer to it is still applied unless a newer request superseded it.
//
// Every per-output decision happens on the single goroutine running
// [Engine.Run]. The public methods only enqueue work and never block on the
// layout client, so a slow or dead client can never stall the
// caller. Whatever goes wrong, an output keeps its last good geometry.
//
// Applied trees are the size memory of an output: a later tree is
// reconciled against them, and [Engine.ResizeTile] mutates them directly.
// With a [cache.Cache] configured, they also survive engine restarts.
package dispatch
