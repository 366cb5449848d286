package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tigra-astronomy/skycondition/internal/domain"
	"github.com/tigra-astronomy/skycondition/internal/ports"
)

// DefaultMaxLineBytes bounds a single protocol line.
const DefaultMaxLineBytes = 4096

// UpdateEmitter is called for every non-empty line a processor handles.
type UpdateEmitter interface {
	OnConditionAccepted(previous, current domain.Condition)
	OnLineRejected(line string, err error)
}

// Processor turns a connected byte stream into validated state updates.
// At most one Serve call runs at a time; concurrent calls return
// domain.ErrReadInProgress without touching their stream.
type Processor struct {
	state     *SharedState
	publisher ports.StatePublisher
	logger    ports.Logger
	emitter   UpdateEmitter
	maxLine   int
	now       func() time.Time

	busy atomic.Bool
}

// NewProcessor creates a processor writing into state.
// publisher and emitter may be nil.
func NewProcessor(
	state *SharedState,
	publisher ports.StatePublisher,
	logger ports.Logger,
	emitter UpdateEmitter,
	maxLineBytes int,
) *Processor {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	return &Processor{
		state:     state,
		publisher: publisher,
		logger:    logger,
		emitter:   emitter,
		maxLine:   maxLineBytes,
		now:       time.Now,
	}
}

// Busy reports whether a read loop is active.
func (p *Processor) Busy() bool {
	return p.busy.Load()
}

// Serve reads lines from r until EOF, a stream error, or ctx cancellation.
// Invalid lines are logged and skipped. EOF and shutdown return nil; other read
// failures return an error wrapping domain.ErrStream.
func (p *Processor) Serve(ctx context.Context, r io.Reader) error {
	if !p.busy.CompareAndSwap(false, true) {
		return domain.ErrReadInProgress
	}
	defer p.busy.Store(false)

	br := bufio.NewReader(r)
	for {
		if ctx.Err() != nil {
			p.logger.Info("read loop stopped by shutdown")
			return nil
		}

		line, tooLong, err := p.readLine(br)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				p.logger.Warn("client disconnected")
				return nil
			case ctx.Err() != nil, errors.Is(err, net.ErrClosed):
				p.logger.Info("connection closed by shutdown")
				return nil
			default:
				p.logger.Error("error reading stream", ports.Err(err))
				return fmt.Errorf("%w: %v", domain.ErrStream, err)
			}
		}

		if tooLong {
			p.reject(line, fmt.Errorf("%w: line exceeds %d bytes", domain.ErrParse, p.maxLine))
			continue
		}
		p.process(ctx, line)
	}
}

// readLine returns one line without its terminator. Lines longer than maxLine
// are drained to the terminator and reported with tooLong set and a truncated
// prefix for logging.
func (p *Processor) readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > p.maxLine {
				tooLong = true
				if len(buf) < 32 {
					buf = append(buf, chunk[:min(len(chunk), 32-len(buf))]...)
				}
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

func (p *Processor) process(ctx context.Context, line string) {
	text := strings.TrimSpace(line)
	if text == "" {
		p.logger.Debug("skipping empty line")
		return
	}
	p.logger.Debug("received", ports.String("line", text))

	cond, err := domain.ParseCondition(text)
	if err != nil {
		p.reject(text, err)
		return
	}

	prev := p.state.Accept(cond, p.now())
	p.logger.Info("set sky condition",
		ports.Any("condition", cond),
		ports.Any("previous", prev),
	)
	publish(ctx, p.publisher, p.state, p.logger)

	if p.emitter != nil {
		p.emitter.OnConditionAccepted(prev, cond)
	}
}

func (p *Processor) reject(line string, err error) {
	p.state.Reject()

	msg := "unable to parse sky condition"
	if errors.Is(err, domain.ErrRange) {
		msg = "sky condition outside allowed range"
	}
	p.logger.Error(msg, ports.String("line", line), ports.Err(err))

	if p.emitter != nil {
		p.emitter.OnLineRejected(line, err)
	}
}
