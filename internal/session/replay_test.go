package session

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestReplayBufferCeiling(t *testing.T) {
	b := NewReplayBuffer(10)
	b.Append("line1\nline2\nline3\n")

	if b.Len() > 10 {
		t.Fatalf("Len() = %d, exceeds ceiling", b.Len())
	}
	if got := b.String(); got != "line3\n" {
		t.Errorf("String() = %q, want cut advanced to a line boundary", got)
	}
}

func TestReplayBufferCutOnLineBoundaryKeepsLine(t *testing.T) {
	b := NewReplayBuffer(12)
	b.Append("line1\nline2\nline3\n")
	if got := b.String(); got != "line2\nline3\n" {
		t.Errorf("String() = %q, want line2\\nline3\\n", got)
	}
}

func TestReplayBufferNoNewlineKeepsCharacterCut(t *testing.T) {
	b := NewReplayBuffer(5)
	b.Append("abcdefghij")
	if got := b.String(); got != "fghij" {
		t.Errorf("String() = %q, want fghij", got)
	}
}

func TestReplayBufferCountsCharacters(t *testing.T) {
	b := NewReplayBuffer(4)
	b.Append("héllo")
	if b.Len() != 4 {
		t.Errorf("Len() = %d, want 4", b.Len())
	}
	if got := b.String(); got != "éllo" {
		t.Errorf("String() = %q, want éllo", got)
	}
	if !utf8.ValidString(b.String()) {
		t.Error("buffer is not valid UTF-8 after trim")
	}
}

func TestReplayBufferStripsClearSequences(t *testing.T) {
	b := NewReplayBuffer(100)
	b.Append("before\n")
	b.Append("\x1b[H\x1b[2Jafter\x1b[3J\x1bc!")
	if got := b.String(); got != "before\n\x1b[Hafter!" {
		t.Errorf("String() = %q", got)
	}
}

func TestReplayBufferInvariantUnderManyAppends(t *testing.T) {
	b := NewReplayBuffer(1000)
	for i := 0; i < 500; i++ {
		b.Append(strings.Repeat("x", i%37) + "\n")
		if b.Len() > 1000 {
			t.Fatalf("after append %d Len() = %d", i, b.Len())
		}
		if b.Len() != utf8.RuneCountInString(b.String()) {
			t.Fatalf("rune count drifted: %d vs %d", b.Len(), utf8.RuneCountInString(b.String()))
		}
	}
}

func TestFrames(t *testing.T) {
	b := NewReplayBuffer(100)
	b.Append("ééééé")
	frames := b.Frames(2)
	if len(frames) != 3 {
		t.Fatalf("Frames(2) = %d frames, want 3", len(frames))
	}
	if strings.Join(frames, "") != "ééééé" {
		t.Errorf("frames do not reassemble: %q", frames)
	}
	for _, f := range frames {
		if !utf8.ValidString(f) || utf8.RuneCountInString(f) > 2 {
			t.Errorf("bad frame %q", f)
		}
	}
	if NewReplayBuffer(10).Frames(2) != nil {
		t.Error("empty buffer should have no frames")
	}
}

func TestUTF8DecoderCarriesSplitSequences(t *testing.T) {
	var d utf8Decoder
	in := []byte("a€b") // € is three bytes
	got := d.Decode(in[:2]) + d.Decode(in[2:3]) + d.Decode(in[3:])
	if got != "a€b" {
		t.Errorf("decoded %q, want a€b", got)
	}

	bad := d.Decode([]byte{'x', 0xff, 'y'})
	if !utf8.ValidString(bad) || !strings.HasPrefix(bad, "x") || !strings.HasSuffix(bad, "y") {
		t.Errorf("invalid bytes not replaced: %q", bad)
	}

	if d.Decode([]byte{0xe2, 0x82}) != "" {
		t.Error("incomplete rune should be carried")
	}
	if d.Flush() == "" {
		t.Error("Flush() should return the carried bytes")
	}
}
