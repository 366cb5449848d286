// Package ipc implements ports.Endpoint over local byte-stream channels.
//
// On Unix-like systems the endpoint is a Unix domain socket; on Windows it is a
// byte-mode named pipe created through github.com/Microsoft/go-winio. Both are
// addressed by the same well-known name, resolved by [Address].
package ipc

// DefaultName is the well-known endpoint name shared with sensor clients.
const DefaultName = "tigraSkyQuality"
