// Package server implements the MCP (Model Context Protocol) server that
// exposes the page tracker.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Book:
//   - book_open: Parse a book directory and train the tracker on its pages
//   - book_media: Media files attached to a page
//
// Training:
//   - training_add: Register one reference image under a page number
//   - training_finalize: Extract features and enable recognition
//   - training_clear: Drop every reference image
//
// Recognition:
//   - frame_process: Recognize the page in a frame
//   - frame_annotate: Recognize and return the frame with the page outlined
//   - frame_crop_page: Recognize and return the page's bounding box cut from the frame
//   - tracker_status: Provider, parameters, training set and prediction
//
// # Frame Sequences
//
// The tracker remembers the last recognized page, so frame_process and
// frame_annotate calls form one video sequence. Requests are served one at a
// time in arrival order.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A frame in which no page is recognized is not an error; its result has
// page -1.
package server
