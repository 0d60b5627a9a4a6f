// Package server is the JSON-RPC 2.0 WebSocket transport in front of the
// procedure registry: connection handling, the bounded call queue, the
// worker pool, and the mapping of dispatch errors onto wire error codes.
package server
