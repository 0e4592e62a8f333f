package mcp

import (
	"bufio"
	"context"
	"io"
	"sync"
	"sync/atomic"
)

// StdioServerTransport serves one connection over newline-delimited JSON on
// an arbitrary reader/writer pair, normally os.Stdin/os.Stdout. It is the
// transport a locally-spawned MCP server uses (§4.2 "Stdio"), sharing its
// frame parsing with the client-side StdioTransport via stdioFramer.
type StdioServerTransport struct {
	r io.Reader
	w io.Writer

	connected atomic.Bool

	frames  chan []byte
	readErr atomic.Value // error

	writeMu sync.Mutex
	bw      *bufio.Writer
	cancel  context.CancelFunc
}

// NewStdioServerTransport builds a StdioServerTransport reading frames from
// r and writing replies to w.
func NewStdioServerTransport(r io.Reader, w io.Writer) *StdioServerTransport {
	return &StdioServerTransport{r: r, w: w, bw: bufio.NewWriter(w), frames: make(chan []byte, 64)}
}

func (t *StdioServerTransport) Connect() error {
	if t.connected.Swap(true) {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.readLoop(ctx)
	return nil
}

func (t *StdioServerTransport) readLoop(ctx context.Context) {
	defer close(t.frames)
	framer := newStdioFramer(t.r)
	for {
		line, err := framer.next()
		if len(line) > 0 {
			select {
			case t.frames <- line:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				t.readErr.Store(err)
			}
			t.connected.Store(false)
			return
		}
	}
}

func (t *StdioServerTransport) IsConnected() bool { return t.connected.Load() }

// Receive returns the next buffered line, or (nil, nil) immediately if none
// is ready — it never blocks, matching the server loop's polling contract.
func (t *StdioServerTransport) Receive() (*Frame, error) {
	select {
	case line, ok := <-t.frames:
		if !ok {
			if errV := t.readErr.Load(); errV != nil {
				return nil, &TransportError{Kind: "stdio", Cause: errV.(error)}
			}
			return nil, nil
		}
		return &Frame{Data: line, Sink: t.DefaultSink()}, nil
	default:
		return nil, nil
	}
}

func (t *StdioServerTransport) DefaultSink() FrameSink { return stdioSink{t} }

type stdioSink struct{ t *StdioServerTransport }

func (s stdioSink) Send(data []byte) error {
	s.t.writeMu.Lock()
	defer s.t.writeMu.Unlock()
	if err := writeStdioFrame(s.t.bw, data); err != nil {
		return &TransportError{Kind: "stdio", Cause: err}
	}
	return nil
}

func (t *StdioServerTransport) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	t.connected.Store(false)
	return nil
}
