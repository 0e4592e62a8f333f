package mcp

import (
	"bufio"
	"io"
)

// stdioFramer reads newline-delimited JSON-RPC frames from an underlying
// reader. Both the client's StdioTransport and the server's
// StdioServerTransport spawn one off their respective stdin/stdout pipe —
// the framing (one JSON document per line, CRLF tolerant) is identical on
// either side of the pipe.
type stdioFramer struct {
	br *bufio.Reader
}

func newStdioFramer(r io.Reader) *stdioFramer {
	return &stdioFramer{br: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the next non-empty line with its trailing newline(s) trimmed.
// A nil slice alongside a non-nil error means the stream ended without a
// further frame; a non-nil slice alongside io.EOF is the final frame of a
// stream not terminated by a trailing newline.
func (f *stdioFramer) next() ([]byte, error) {
	for {
		line, err := f.br.ReadBytes('\n')
		trimmed := trimNewline(line)
		if len(trimmed) > 0 {
			return trimmed, err
		}
		if err != nil {
			return nil, err
		}
	}
}

func trimNewline(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

// writeStdioFrame writes data followed by a single newline and flushes bw,
// the write-side counterpart to stdioFramer on both the client and server
// transports.
func writeStdioFrame(bw *bufio.Writer, data []byte) error {
	if _, err := bw.Write(data); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}
