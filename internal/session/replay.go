package session

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxBufferChars is the default replay ceiling in characters.
const DefaultMaxBufferChars = 100_000

// clearSequences wipe the screen or scroll-back; they are dropped from the
// replay buffer so a reconnecting client still sees history.
var clearSequences = strings.NewReplacer(
	"\x1b[2J", "",
	"\x1b[3J", "",
	"\x1bc", "",
)

// ReplayBuffer is a character-budgeted text log of a session's output.
// It is not safe for concurrent use; the owning Session serializes access.
type ReplayBuffer struct {
	max   int
	data  string
	runes int
}

// NewReplayBuffer creates a buffer holding at most max characters.
func NewReplayBuffer(max int) *ReplayBuffer {
	if max <= 0 {
		max = DefaultMaxBufferChars
	}
	return &ReplayBuffer{max: max}
}

// Append adds output to the buffer, stripping screen-clearing sequences
// and trimming from the front when the ceiling is exceeded.
func (b *ReplayBuffer) Append(chunk string) {
	chunk = clearSequences.Replace(chunk)
	if chunk == "" {
		return
	}
	b.data += chunk
	b.runes += utf8.RuneCountInString(chunk)
	if b.runes > b.max {
		b.trim()
	}
}

// trim drops the oldest characters so at most max remain. The cut then moves
// forward to just after the next newline so replay never starts in the
// middle of a line or escape sequence. A cut that already starts a line
// stays put; if no newline follows, the plain character cut is kept.
func (b *ReplayBuffer) trim() {
	drop := b.runes - b.max
	cut := 0
	for i := 0; i < drop; i++ {
		_, size := utf8.DecodeRuneInString(b.data[cut:])
		cut += size
	}
	if cut > 0 && b.data[cut-1] != '\n' {
		if nl := strings.IndexByte(b.data[cut:], '\n'); nl >= 0 {
			cut += nl + 1
		}
	}
	b.data = b.data[cut:]
	b.runes = utf8.RuneCountInString(b.data)
}

// String returns the buffered text.
func (b *ReplayBuffer) String() string {
	return b.data
}

// Len returns the buffered length in characters.
func (b *ReplayBuffer) Len() int {
	return b.runes
}

// Frames splits the buffer into chunks of at most size characters.
func (b *ReplayBuffer) Frames(size int) []string {
	return splitRunes(b.data, size)
}

func splitRunes(s string, size int) []string {
	if s == "" {
		return nil
	}
	if size <= 0 {
		return []string{s}
	}
	var frames []string
	for len(s) > 0 {
		end, n := 0, 0
		for end < len(s) && n < size {
			_, w := utf8.DecodeRuneInString(s[end:])
			end += w
			n++
		}
		frames = append(frames, s[:end])
		s = s[end:]
	}
	return frames
}
