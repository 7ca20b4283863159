package testutil

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/protocol"
)

func TestMockSubscriber(t *testing.T) {
	sub := NewMockSubscriber("sub-1")
	if sub.ID() != "sub-1" {
		t.Errorf("ID() = %q", sub.ID())
	}
	if err := sub.Send(events.NewEvent(events.EventTypeFileOperation, nil)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	sub.SetSendError(errors.New("boom"))
	if err := sub.Send(events.NewEvent(events.EventTypeFileOperation, nil)); err == nil {
		t.Error("Send() should fail after SetSendError")
	}
	if len(sub.Events()) != 1 {
		t.Errorf("Events() = %d, want 1", len(sub.Events()))
	}
	_ = sub.Close()
	_ = sub.Close()
	select {
	case <-sub.Done():
	default:
		t.Error("Done() not closed")
	}
}

func TestRecorderWaitFor(t *testing.T) {
	r := NewRecorder()
	go func() {
		time.Sleep(20 * time.Millisecond)
		r.Publish(events.NewEvent(events.EventTypeSessionEnded, nil))
	}()
	if !r.WaitFor(events.EventTypeSessionEnded, time.Second) {
		t.Fatal("WaitFor() did not observe the event")
	}
	if r.WaitFor(events.EventTypeSessionReaped, 20*time.Millisecond) {
		t.Error("WaitFor() reported an event that was never published")
	}
}

func TestFakeProcess(t *testing.T) {
	p := NewFakeProcess(7)
	go func() { _ = p.Emit("hello") }()

	buf := make([]byte, 16)
	n, err := p.Read(buf)
	if err != nil || string(buf[:n]) != "hello" {
		t.Fatalf("Read() = %q, %v", buf[:n], err)
	}

	if _, err := p.Write([]byte("ls\r")); err != nil {
		t.Fatal(err)
	}
	if p.Input() != "ls\r" {
		t.Errorf("Input() = %q", p.Input())
	}

	_ = p.Kill()
	if _, err := p.Read(buf); err != io.EOF {
		t.Errorf("Read() after Kill error = %v, want EOF", err)
	}
	if err := p.Wait(); err != nil || !p.Killed() {
		t.Errorf("Wait() = %v, Killed() = %v", err, p.Killed())
	}
}

func TestFakeSocketCapacity(t *testing.T) {
	s := NewFakeSocket("sock")
	s.Capacity = 1
	if err := s.Send(protocol.Data("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.Send(protocol.Data("b")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Send() error = %v, want ErrQueueFull", err)
	}
	if s.Output() != "a" {
		t.Errorf("Output() = %q", s.Output())
	}
}
