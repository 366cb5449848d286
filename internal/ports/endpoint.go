package ports

import (
	"context"
	"net"
)

// Endpoint creates local byte-stream listening endpoints bound to a well-known name.
// Listen is called once per accept cycle; the returned listener is closed by the
// caller after a single client has been accepted.
type Endpoint interface {
	// Listen creates a fresh endpoint instance.
	Listen(ctx context.Context) (net.Listener, error)

	// Address returns the resolved OS-level address (socket path or pipe name).
	Address() string
}

// PeerIdentifier is optionally implemented by an Endpoint that can describe the
// process on the other end of an accepted connection.
type PeerIdentifier interface {
	// Peer returns a short description such as "pid=42 uid=1000", or "" if unknown.
	Peer(conn net.Conn) string
}
