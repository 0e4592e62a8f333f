package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"
)

// pipePair wires a StdioServerTransport to an in-process reader/writer pair
// so a test can act as the "client" side of the wire without spawning a
// process, mirroring how client_test.go's fakeTransport avoids real I/O.
type pipePair struct {
	toServer   io.WriteCloser
	fromServer *bufio.Reader
}

func newServerOverPipe(t *testing.T, s *Server) *pipePair {
	t.Helper()
	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()

	s.Transport = NewStdioServerTransport(serverR, serverW)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = s.Run(ctx) }()

	return &pipePair{toServer: clientW, fromServer: bufio.NewReader(clientR)}
}

func (p *pipePair) send(t *testing.T, msg Message) {
	t.Helper()
	b := Encode(msg)
	if _, err := p.toServer.Write(append(b, '\n')); err != nil {
		t.Fatal(err)
	}
}

func (p *pipePair) sendRaw(t *testing.T, raw []byte) {
	t.Helper()
	if _, err := p.toServer.Write(append(raw, '\n')); err != nil {
		t.Fatal(err)
	}
}

func (p *pipePair) readLine(t *testing.T) []byte {
	t.Helper()
	line, err := p.fromServer.ReadBytes('\n')
	if err != nil {
		t.Fatal(err)
	}
	return trimNewline(line)
}

func TestServerInitializeAndListToolsPaginated(t *testing.T) {
	s := NewServer(nil, ServerOptions{
		ProtocolVersion: "2024-11-05",
		ServerInfo:      ServerInfo{Name: "test-server"},
		PageLimit:       2,
	})
	for _, name := range []string{"alpha", "beta", "gamma"} {
		if err := s.Registry.Register(CapabilityEntry{
			Kind: KindTool,
			Name: name,
			ToolHandler: func(ctx context.Context, args json.RawMessage) (CallToolResult, error) {
				return CallToolResult{}, nil
			},
		}); err != nil {
			t.Fatal(err)
		}
	}

	p := newServerOverPipe(t, s)

	p.send(t, NewRequest(NewIntID(1), "initialize", json.RawMessage(`{"protocolVersion":"2024-11-05","clientInfo":{"name":"test-client"}}`)))
	initReply := p.readLine(t)
	msgs := Parse(initReply)
	if len(msgs) != 1 || msgs[0].Kind != KindResponse {
		t.Fatalf("initialize reply = %s", initReply)
	}

	var names []string
	cursor := ""
	id := int64(2)
	for {
		params, _ := json.Marshal(listParams{Cursor: cursor})
		p.send(t, NewRequest(NewIntID(id), "tools/list", params))
		reply := p.readLine(t)
		parsed := Parse(reply)
		if len(parsed) != 1 || parsed[0].Kind != KindResponse {
			t.Fatalf("tools/list reply = %s", reply)
		}
		var result struct {
			Tools      []ToolInfo `json:"tools"`
			NextCursor string     `json:"nextCursor"`
		}
		if err := json.Unmarshal(parsed[0].Result, &result); err != nil {
			t.Fatal(err)
		}
		for _, tool := range result.Tools {
			names = append(names, tool.Name)
		}
		id++
		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	want := []string{"alpha", "beta", "gamma"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestServerBatchWithNotification(t *testing.T) {
	s := NewServer(nil, ServerOptions{ServerInfo: ServerInfo{Name: "test-server"}})
	p := newServerOverPipe(t, s)

	batch := `[{"jsonrpc":"2.0","id":1,"method":"ping"},{"jsonrpc":"2.0","method":"notifications/initialized"},{"jsonrpc":"2.0","id":2,"method":"ping"}]`
	p.sendRaw(t, []byte(batch))

	reply := p.readLine(t)
	msgs := Parse(reply)
	if len(msgs) != 2 {
		t.Fatalf("got %d replies, want 2 (notification omitted): %s", len(msgs), reply)
	}
	if !msgs[0].ID.Equal(NewIntID(1)) || !msgs[1].ID.Equal(NewIntID(2)) {
		t.Fatalf("reply ids = %s, %s", msgs[0].ID, msgs[1].ID)
	}

	deadline := time.After(time.Second)
	for !s.Handler.Initialized() {
		select {
		case <-deadline:
			t.Fatal("notifications/initialized was never observed")
		case <-time.After(time.Millisecond):
		}
	}
}
