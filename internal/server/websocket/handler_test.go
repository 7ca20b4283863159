package websocket

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brianly1003/lanterm/internal/protocol"
	"github.com/brianly1003/lanterm/internal/sandbox"
	"github.com/brianly1003/lanterm/internal/session"
	"github.com/brianly1003/lanterm/internal/testutil"
)

const waitTimeout = 2 * time.Second

type fixture struct {
	server   *httptest.Server
	handler  *Handler
	sessions *session.Manager
	spawner  *testutil.FakeSpawner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sb, err := sandbox.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	spawner := &testutil.FakeSpawner{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager(sb, spawner.Spawn, nil, logger, session.Options{})
	h := NewHandler(sessions, nil)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
		_ = sessions.Stop()
	})
	return &fixture{server: srv, handler: h, sessions: sessions, spawner: spawner}
}

func (f *fixture) dial(t *testing.T, params url.Values) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?" + params.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", u, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(waitTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return protocol.Decode(string(data))
}

func send(t *testing.T, conn *websocket.Conn, m protocol.Message) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(protocol.Encode(m))); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNewSessionAnnounceAndOutput(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, url.Values{"clientId": {"c1"}, "cols": {"100"}, "rows": {"30"}})

	announce := read(t, conn)
	if announce.Kind != protocol.KindIdentifierAnnounce || announce.SessionID == "" {
		t.Fatalf("first frame = %+v, want announce", announce)
	}

	proc, opts := f.spawner.Last()
	if opts.Cols != 100 || opts.Rows != 30 {
		t.Errorf("spawn geometry = %dx%d, want 100x30", opts.Cols, opts.Rows)
	}

	go func() { _ = proc.Emit("hello\r\n") }()
	if m := read(t, conn); m.Kind != protocol.KindData || m.Data != "hello\r\n" {
		t.Fatalf("output frame = %+v", m)
	}

	send(t, conn, protocol.Data("ls -la\r"))
	if !testutil.Eventually(waitTimeout, func() bool { return proc.Input() == "ls -la\r" }) {
		t.Fatalf("shell input = %q", proc.Input())
	}

	send(t, conn, protocol.Resize(120, 40))
	if !testutil.Eventually(waitTimeout, func() bool {
		cols, rows := proc.Size()
		return cols == 120 && rows == 40
	}) {
		t.Error("resize not applied")
	}

	send(t, conn, protocol.IdentifierQuery())
	if m := read(t, conn); m.Kind != protocol.KindIdentifierAnnounce || m.SessionID != announce.SessionID {
		t.Errorf("query reply = %+v", m)
	}

	// malformed control frames are keystrokes
	send(t, conn, protocol.Data(protocol.Prefix+"resize;0;0"+protocol.Terminator))
	if !testutil.Eventually(waitTimeout, func() bool { return strings.HasSuffix(proc.Input(), "resize;0;0"+protocol.Terminator) }) {
		t.Errorf("malformed resize not forwarded, input = %q", proc.Input())
	}
}

func TestReconnectReplaysHistory(t *testing.T) {
	f := newFixture(t)
	first := f.dial(t, url.Values{"clientId": {"c1"}})
	id := read(t, first).SessionID

	proc, _ := f.spawner.Last()
	go func() { _ = proc.Emit("before disconnect") }()
	if m := read(t, first); m.Data != "before disconnect" {
		t.Fatalf("output = %+v", m)
	}
	_ = first.Close()
	if !testutil.Eventually(waitTimeout, func() bool { return f.handler.ClientCount() == 0 }) {
		t.Fatal("client not removed after disconnect")
	}
	if f.sessions.Get(id) == nil {
		t.Fatal("session ended with its socket")
	}

	second := f.dial(t, url.Values{"clientId": {"c1"}, "sessionId": {id}})
	if m := read(t, second); m.Kind != protocol.KindData || m.Data != "before disconnect" {
		t.Fatalf("replay frame = %+v", m)
	}
	if m := read(t, second); m.Kind != protocol.KindIdentifierAnnounce || m.SessionID != id {
		t.Fatalf("announce after replay = %+v", m)
	}
	if f.spawner.Count() != 1 {
		t.Errorf("spawned %d shells, want 1", f.spawner.Count())
	}
}

func TestRejectedAttach(t *testing.T) {
	f := newFixture(t)
	owner := f.dial(t, url.Values{"clientId": {"owner"}})
	id := read(t, owner).SessionID

	tests := []struct {
		name   string
		params url.Values
		want   protocol.Kind
	}{
		{"unknown session", url.Values{"clientId": {"owner"}, "sessionId": {"no-such-session"}}, protocol.KindSessionNotFound},
		{"other client", url.Values{"clientId": {"intruder"}, "sessionId": {id}}, protocol.KindSessionForbidden},
		{"no client id", url.Values{"sessionId": {id}}, protocol.KindSessionForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := f.dial(t, tt.params)
			if m := read(t, conn); m.Kind != tt.want {
				t.Fatalf("frame = %+v, want %s", m, tt.want)
			}
			_ = conn.SetReadDeadline(time.Now().Add(waitTimeout))
			if _, _, err := conn.ReadMessage(); err == nil {
				t.Fatal("connection still open after rejection")
			}
		})
	}
	if f.spawner.Count() != 1 {
		t.Errorf("spawned %d shells, want 1", f.spawner.Count())
	}
}

func TestInvalidWorkingDirectory(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, url.Values{"cwd": {"../outside"}})

	m := read(t, conn)
	if m.Kind != protocol.KindData || !strings.Contains(m.Data, "lanterm:") {
		t.Fatalf("frame = %+v, want error text", m)
	}
	if f.spawner.Count() != 0 {
		t.Error("shell spawned for invalid cwd")
	}
}

func TestTerminateClosesSocket(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, url.Values{"clientId": {"c1"}})
	id := read(t, conn).SessionID

	if err := f.sessions.Terminate(id); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(waitTimeout))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("read after terminate = %v, want normal close", err)
	}
}

func TestSendNeverBlocks(t *testing.T) {
	c := &Client{id: "slow", send: make(chan string, 2), done: make(chan struct{})}
	for i := 0; i < 2; i++ {
		if err := c.Send(protocol.Data("x")); err != nil {
			t.Fatalf("Send() #%d error = %v", i, err)
		}
	}
	if err := c.Send(protocol.Data("x")); err != ErrBufferFull {
		t.Fatalf("Send() on full queue = %v, want ErrBufferFull", err)
	}
	c.Close()
	c.Close()
	if err := c.Send(protocol.Data("x")); err != ErrClosed {
		t.Fatalf("Send() after Close = %v, want ErrClosed", err)
	}
}

func TestSendQueueHoldsFullReplay(t *testing.T) {
	if sendBufferSize <= session.MaxReplayFrames {
		t.Fatalf("sendBufferSize = %d, must exceed %d replay frames plus the announcement", sendBufferSize, session.MaxReplayFrames)
	}
	c := &Client{id: "fresh", send: make(chan string, sendBufferSize), done: make(chan struct{})}
	for i := 0; i <= session.MaxReplayFrames; i++ {
		if err := c.Send(protocol.Data("x")); err != nil {
			t.Fatalf("Send() #%d error = %v", i, err)
		}
	}
}

func TestParseDimension(t *testing.T) {
	tests := map[string]uint16{"": 0, "80": 80, "-1": 0, "abc": 0, "70000": 0, "65535": 65535}
	for in, want := range tests {
		if got := parseDimension(in); got != want {
			t.Errorf("parseDimension(%q) = %d, want %d", in, got, want)
		}
	}
}
