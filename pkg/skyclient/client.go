// Package skyclient is the sensor side of the sky condition endpoint.
// It connects to a running server and writes one condition per line.
package skyclient

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/tigra-astronomy/skycondition/internal/adapters/ipc"
)

// Client is a connection to a sky condition server.
// Methods are safe for concurrent use; lines are never interleaved.
type Client struct {
	address string

	mu   sync.Mutex
	conn net.Conn
}

// Address returns the socket path or pipe name for an endpoint name.
func Address(name string) string {
	return ipc.Address(name)
}

// Dial connects to the endpoint called name. An empty name selects the
// default endpoint.
func Dial(ctx context.Context, name string) (*Client, error) {
	if name == "" {
		name = ipc.DefaultName
	}
	address := ipc.Address(name)
	conn, err := ipc.Dial(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return &Client{address: address, conn: conn}, nil
}

// Send writes condition as a single line. The value is not range checked
// here; the server rejects anything outside 0 to 3.
func (c *Client) Send(condition int) error {
	return c.write(strconv.Itoa(condition))
}

// SendLine writes text verbatim followed by a newline. Embedded newlines
// are not allowed.
func (c *Client) SendLine(text string) error {
	if strings.ContainsAny(text, "\r\n") {
		return fmt.Errorf("line contains a newline: %q", text)
	}
	return c.write(text)
}

func (c *Client) write(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return net.ErrClosed
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write to %s: %w", c.address, err)
	}
	return nil
}

// Address returns the address the client is connected to.
func (c *Client) Address() string {
	return c.address
}

// Close closes the connection. The server treats this as a disconnect and
// waits for the next client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
