package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/protocol"
	"github.com/brianly1003/lanterm/internal/sandbox"
	"github.com/brianly1003/lanterm/internal/testutil"
)

const waitTimeout = 2 * time.Second

type fixture struct {
	m        *Manager
	spawner  *testutil.FakeSpawner
	recorder *testutil.Recorder
	root     string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	sb, err := sandbox.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	spawner := &testutil.FakeSpawner{}
	rec := testutil.NewRecorder()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	m := NewManager(sb, spawner.Spawn, rec, logger, opts)
	t.Cleanup(func() { _ = m.Stop() })
	return &fixture{m: m, spawner: spawner, recorder: rec, root: sb.Root()}
}

func (f *fixture) emit(t *testing.T, s string) {
	t.Helper()
	p, _ := f.spawner.Last()
	if err := p.Emit(s); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
}

func waitHistory(t *testing.T, m *Manager, id, want string) {
	t.Helper()
	ok := testutil.Eventually(waitTimeout, func() bool {
		h, _ := m.History(id)
		return h == want
	})
	if !ok {
		h, _ := m.History(id)
		t.Fatalf("History() = %q, want %q", h, want)
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t, Options{})
	if err := os.Mkdir(filepath.Join(f.root, "proj"), 0o755); err != nil {
		t.Fatal(err)
	}

	s, err := f.m.Create("proj", 0, 0, "client-a")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, opts := f.spawner.Last()
	if opts.Dir != filepath.Join(f.root, "proj") || opts.Cols != 80 || opts.Rows != 24 {
		t.Errorf("spawn options = %+v", opts)
	}
	info := s.ToInfo()
	if info.Cwd != "proj" || info.ClientID != "client-a" {
		t.Errorf("Info = %+v", info)
	}
	if len(f.recorder.OfType(events.EventTypeSessionCreated)) != 1 {
		t.Error("session_created not published")
	}

	for _, cwd := range []string{"../", "missing"} {
		if _, err := f.m.Create(cwd, 80, 24, ""); !errors.Is(err, domain.ErrInvalidWorkingDirectory) {
			t.Errorf("Create(%q) error = %v, want ErrInvalidWorkingDirectory", cwd, err)
		}
	}
	if f.spawner.Count() != 1 {
		t.Errorf("spawned %d processes, want 1", f.spawner.Count())
	}
}

func TestAttachWithoutIDCreatesAndAnnounces(t *testing.T) {
	f := newFixture(t, Options{})
	sock := testutil.NewFakeSocket("sock-1")

	s, err := f.m.Attach(sock, AttachRequest{ClientID: "c1"})
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	msgs := sock.Messages()
	if len(msgs) != 1 || msgs[0] != protocol.Announce(s.ID) {
		t.Errorf("messages = %+v, want a single announcement", msgs)
	}
	if f.m.Count() != 1 {
		t.Errorf("Count() = %d", f.m.Count())
	}
}

func TestAttachUnknownIDNeverCreates(t *testing.T) {
	f := newFixture(t, Options{})
	sock := testutil.NewFakeSocket("sock-1")

	_, err := f.m.Attach(sock, AttachRequest{SessionID: "forged-id", ClientID: "c1"})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("Attach() error = %v, want ErrSessionNotFound", err)
	}
	if !sock.Has(protocol.KindSessionNotFound) || !sock.Closed() {
		t.Error("socket should receive not-found and be closed")
	}
	if f.spawner.Count() != 0 || f.m.Count() != 0 {
		t.Error("a session was created from a client-supplied identifier")
	}
}

func TestAttachOwnership(t *testing.T) {
	f := newFixture(t, Options{})
	s, err := f.m.Create("", 80, 24, "")
	if err != nil {
		t.Fatal(err)
	}

	first := testutil.NewFakeSocket("a")
	if _, err := f.m.Attach(first, AttachRequest{SessionID: s.ID, ClientID: "owner"}); err != nil {
		t.Fatalf("adopting attach error = %v", err)
	}
	if s.ClientID() != "owner" {
		t.Errorf("ClientID() = %q, want owner to be adopted", s.ClientID())
	}

	intruder := testutil.NewFakeSocket("b")
	_, err = f.m.Attach(intruder, AttachRequest{SessionID: s.ID, ClientID: "other"})
	if !errors.Is(err, domain.ErrSessionForbidden) {
		t.Fatalf("Attach() error = %v, want ErrSessionForbidden", err)
	}
	if !intruder.Has(protocol.KindSessionForbidden) || !intruder.Closed() {
		t.Error("intruder should receive forbidden and be closed")
	}
	if intruder.Has(protocol.KindData) {
		t.Error("intruder received session output")
	}

	again := testutil.NewFakeSocket("c")
	if _, err := f.m.Attach(again, AttachRequest{SessionID: s.ID, ClientID: "owner"}); err != nil {
		t.Errorf("owner reattach error = %v", err)
	}
}

func TestReplayThenLive(t *testing.T) {
	f := newFixture(t, Options{})
	first := testutil.NewFakeSocket("first")
	s, err := f.m.Attach(first, AttachRequest{ClientID: "c"})
	if err != nil {
		t.Fatal(err)
	}

	f.emit(t, "hello\n")
	waitHistory(t, f.m, s.ID, "hello\n")

	second := testutil.NewFakeSocket("second")
	if _, err := f.m.Attach(second, AttachRequest{SessionID: s.ID, ClientID: "c"}); err != nil {
		t.Fatal(err)
	}
	f.emit(t, "world\n")
	waitHistory(t, f.m, s.ID, "hello\nworld\n")

	ok := testutil.Eventually(waitTimeout, func() bool { return second.Output() == "hello\nworld\n" })
	if !ok {
		t.Errorf("second socket output = %q", second.Output())
	}
	msgs := second.Messages()
	if msgs[0].Kind != protocol.KindData || msgs[1] != protocol.Announce(s.ID) {
		t.Errorf("expected replay then announcement, got %+v", msgs[:2])
	}
}

func TestReplayFitsSocketQueue(t *testing.T) {
	f := newFixture(t, Options{MaxBufferChars: 4000, FrameChars: 1})
	s, err := f.m.Create("", 80, 24, "c")
	if err != nil {
		t.Fatal(err)
	}
	history := strings.Repeat("x", 3000)
	f.emit(t, history)
	waitHistory(t, f.m, s.ID, history)

	sock := testutil.NewFakeSocket("bounded")
	sock.Capacity = MaxReplayFrames + 1
	if _, err := f.m.Attach(sock, AttachRequest{SessionID: s.ID, ClientID: "c"}); err != nil {
		t.Fatal(err)
	}
	if got := sock.Output(); got != history {
		t.Errorf("replayed %d chars, want %d", len(got), len(history))
	}
	msgs := sock.Messages()
	if last := msgs[len(msgs)-1]; last != protocol.Announce(s.ID) {
		t.Errorf("last message = %+v, want announcement", last)
	}
}

func TestAttachDuringOutputHasNoGapOrDuplicate(t *testing.T) {
	f := newFixture(t, Options{MaxBufferChars: 1 << 20})
	s, err := f.m.Create("", 80, 24, "c")
	if err != nil {
		t.Fatal(err)
	}

	var want strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&want, "line-%03d\n", i)
	}

	p, _ := f.spawner.Last()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 300; i++ {
			_ = p.Emit(fmt.Sprintf("line-%03d\n", i))
		}
	}()

	time.Sleep(time.Millisecond)
	late := testutil.NewFakeSocket("late")
	if _, err := f.m.Attach(late, AttachRequest{SessionID: s.ID, ClientID: "c"}); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
	waitHistory(t, f.m, s.ID, want.String())

	ok := testutil.Eventually(waitTimeout, func() bool { return late.Output() == want.String() })
	if !ok {
		t.Errorf("late socket saw %d chars, want exactly the %d-char history", len(late.Output()), want.Len())
	}
}

func TestSlowSocketDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t, Options{})
	slow := testutil.NewFakeSocket("slow")
	slow.Capacity = 2
	fast := testutil.NewFakeSocket("fast")

	s, err := f.m.Attach(slow, AttachRequest{ClientID: "c"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.m.Attach(fast, AttachRequest{SessionID: s.ID, ClientID: "c"}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		f.emit(t, fmt.Sprintf("%d\n", i))
	}
	var want strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&want, "%d\n", i)
	}
	if !testutil.Eventually(waitTimeout, func() bool { return fast.Output() == want.String() }) {
		t.Errorf("fast socket output = %q", fast.Output())
	}
	if len(slow.Messages()) != 2 {
		t.Errorf("slow socket queued %d messages, want 2", len(slow.Messages()))
	}
}

func TestInputResizeDetach(t *testing.T) {
	f := newFixture(t, Options{})
	sock := testutil.NewFakeSocket("s")
	s, err := f.m.Attach(sock, AttachRequest{ClientID: "c"})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := f.spawner.Last()

	if err := f.m.Input(s.ID, []byte("ls\r")); err != nil {
		t.Fatal(err)
	}
	if p.Input() != "ls\r" {
		t.Errorf("process input = %q", p.Input())
	}

	if err := f.m.Resize(s.ID, 132, 43); err != nil {
		t.Fatal(err)
	}
	if cols, rows := p.Size(); cols != 132 || rows != 43 {
		t.Errorf("process size = %dx%d", cols, rows)
	}
	if err := f.m.Resize(s.ID, 0, 43); err == nil {
		t.Error("Resize(0, 43) should fail")
	}
	if err := f.m.Input("nope", []byte("x")); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Input(unknown) error = %v", err)
	}

	f.m.Detach(sock)
	if sock.Closed() {
		t.Error("Detach should not close the socket")
	}
	if f.m.Get(s.ID) == nil {
		t.Fatal("session removed on detach")
	}
	if s.ToInfo().Sockets != 0 {
		t.Errorf("Sockets = %d after detach", s.ToInfo().Sockets)
	}
	if len(f.recorder.OfType(events.EventTypeSessionDetached)) != 1 {
		t.Error("session_detached not published")
	}
}

func TestProcessExitClosesSocketsAndRemoves(t *testing.T) {
	f := newFixture(t, Options{})
	sock := testutil.NewFakeSocket("s")
	s, err := f.m.Attach(sock, AttachRequest{ClientID: "c"})
	if err != nil {
		t.Fatal(err)
	}
	f.emit(t, "bye\n")
	p, _ := f.spawner.Last()
	p.Exit()

	if !f.recorder.WaitFor(events.EventTypeSessionEnded, waitTimeout) {
		t.Fatal("session_ended not published")
	}
	if f.m.Get(s.ID) != nil {
		t.Error("exited session still registered")
	}
	if !sock.Closed() {
		t.Error("socket not closed on process exit")
	}
	if sock.Output() != "bye\n" {
		t.Errorf("output before exit = %q", sock.Output())
	}

	late := testutil.NewFakeSocket("late")
	if _, err := f.m.Attach(late, AttachRequest{SessionID: s.ID, ClientID: "c"}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("reattach error = %v, want ErrSessionNotFound", err)
	}
}

func TestTerminate(t *testing.T) {
	f := newFixture(t, Options{})
	sock := testutil.NewFakeSocket("s")
	s, err := f.m.Attach(sock, AttachRequest{ClientID: "c"})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := f.spawner.Last()

	if err := f.m.Terminate(s.ID); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}
	if !p.Killed() || !sock.Closed() || f.m.Get(s.ID) != nil {
		t.Error("Terminate must kill the process, close sockets and unregister")
	}
	if err := f.m.Terminate(s.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("second Terminate() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if len(f.recorder.OfType(events.EventTypeSessionEnded)) != 0 {
		t.Error("terminated session also reported as ended")
	}
}

func TestTerminateAllByClient(t *testing.T) {
	f := newFixture(t, Options{})
	for _, c := range []string{"a", "a", "b"} {
		if _, err := f.m.Create("", 80, 24, c); err != nil {
			t.Fatal(err)
		}
	}

	if got := len(f.m.List("a")); got != 2 {
		t.Errorf("List(a) = %d, want 2", got)
	}
	if n := f.m.TerminateAll("a"); n != 2 {
		t.Errorf("TerminateAll(a) = %d, want 2", n)
	}
	if got := f.m.List(""); len(got) != 1 || got[0].ClientID != "b" {
		t.Errorf("remaining sessions = %+v", got)
	}
	if n := f.m.TerminateAll(""); n != 1 {
		t.Errorf("TerminateAll() = %d, want 1", n)
	}
}

func TestReapIdle(t *testing.T) {
	f := newFixture(t, Options{IdleTimeout: time.Hour})
	sock := testutil.NewFakeSocket("s")
	idle, err := f.m.Attach(sock, AttachRequest{ClientID: "c"})
	if err != nil {
		t.Fatal(err)
	}
	idle.mu.Lock()
	idle.lastActivity = time.Now().UTC().Add(-time.Hour)
	idle.mu.Unlock()

	// Output alone is not activity.
	f.emit(t, "tail -f noise\n")
	waitHistory(t, f.m, idle.ID, "tail -f noise\n")

	busy, err := f.m.Create("", 80, 24, "c")
	if err != nil {
		t.Fatal(err)
	}
	later := time.Now().UTC().Add(90 * time.Minute)
	busy.mu.Lock()
	busy.lastActivity = later.Add(-time.Minute)
	busy.mu.Unlock()

	if n := f.m.ReapIdle(later); n != 1 {
		t.Fatalf("ReapIdle() = %d, want 1", n)
	}
	if f.m.Get(idle.ID) != nil {
		t.Error("idle session survived despite an attached socket")
	}
	if !sock.Closed() {
		t.Error("attached socket not closed by reaper")
	}
	if f.m.Get(busy.ID) == nil {
		t.Error("active session was reaped")
	}
	if len(f.recorder.OfType(events.EventTypeSessionReaped)) != 1 {
		t.Error("session_reaped not published")
	}
}

func TestInputRefreshesActivity(t *testing.T) {
	f := newFixture(t, Options{})
	s, err := f.m.Create("", 80, 24, "")
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().UTC().Add(-time.Hour)
	s.mu.Lock()
	s.lastActivity = old
	s.mu.Unlock()

	if err := f.m.Input(s.ID, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if !s.LastActivity().After(old) {
		t.Error("Input did not refresh activity")
	}
}

func TestResizeSurvivesReconnect(t *testing.T) {
	f := newFixture(t, Options{})
	first := testutil.NewFakeSocket("first")
	s, err := f.m.Attach(first, AttachRequest{ClientID: "c", Cols: 80, Rows: 24})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.m.Resize(s.ID, 120, 40); err != nil {
		t.Fatal(err)
	}
	f.m.Detach(first)

	second := testutil.NewFakeSocket("second")
	if _, err := f.m.Attach(second, AttachRequest{SessionID: s.ID, ClientID: "c"}); err != nil {
		t.Fatal(err)
	}
	info := s.ToInfo()
	if info.Cols != 120 || info.Rows != 40 {
		t.Errorf("geometry after reconnect = %dx%d, want 120x40", info.Cols, info.Rows)
	}
	p, _ := f.spawner.Last()
	if cols, rows := p.Size(); cols != 120 || rows != 40 {
		t.Errorf("process size = %dx%d, want 120x40", cols, rows)
	}
	if f.spawner.Count() != 1 {
		t.Errorf("spawned %d shells, want 1", f.spawner.Count())
	}
}

func TestTwoSocketsShareInputAndOutput(t *testing.T) {
	f := newFixture(t, Options{})
	a := testutil.NewFakeSocket("a")
	s, err := f.m.Attach(a, AttachRequest{ClientID: "c"})
	if err != nil {
		t.Fatal(err)
	}
	b := testutil.NewFakeSocket("b")
	if _, err := f.m.Attach(b, AttachRequest{SessionID: s.ID, ClientID: "c"}); err != nil {
		t.Fatal(err)
	}
	p, _ := f.spawner.Last()

	for _, in := range []string{"a1", "b1", "a2"} {
		if err := f.m.Input(s.ID, []byte(in)); err != nil {
			t.Fatal(err)
		}
	}
	if p.Input() != "a1b1a2" {
		t.Errorf("process input = %q, want a1b1a2", p.Input())
	}

	f.emit(t, "shared output\n")
	ok := testutil.Eventually(waitTimeout, func() bool {
		return a.Output() == "shared output\n" && b.Output() == "shared output\n"
	})
	if !ok {
		t.Errorf("outputs differ: a=%q b=%q", a.Output(), b.Output())
	}
}
