//go:build windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/Microsoft/go-winio"

	"github.com/tigra-astronomy/skycondition/internal/domain"
)

const pipePrefix = `\\.\pipe\`

// pipeBufferSize matches the small line-oriented traffic of the protocol.
const pipeBufferSize = 4096

// Address resolves an endpoint name to a named pipe path.
func Address(name string) string {
	if strings.HasPrefix(name, pipePrefix) {
		return name
	}
	return pipePrefix + name
}

// PipeEndpoint listens on a byte-mode Windows named pipe.
type PipeEndpoint struct {
	path string
}

// NewEndpoint creates the platform endpoint for name.
func NewEndpoint(name string) *PipeEndpoint {
	return &PipeEndpoint{path: Address(name)}
}

// Address returns the pipe path.
func (p *PipeEndpoint) Address() string {
	return p.path
}

// Listen creates a fresh pipe instance. The pipe is restricted to the local machine.
func (p *PipeEndpoint) Listen(ctx context.Context) (net.Listener, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l, err := winio.ListenPipe(p.path, &winio.PipeConfig{
		MessageMode:      false,
		InputBufferSize:  pipeBufferSize,
		OutputBufferSize: pipeBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEndpointCreate, err)
	}
	return l, nil
}

// Peer is not reported for named pipes.
func (p *PipeEndpoint) Peer(conn net.Conn) string {
	return ""
}

// Dial connects to the pipe at address.
func Dial(ctx context.Context, address string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, address)
}
