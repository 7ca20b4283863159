package session

import (
	"strings"
	"unicode/utf8"
)

// utf8Decoder turns a byte stream into valid UTF-8 text, carrying an
// incomplete trailing sequence over to the next read.
type utf8Decoder struct {
	carry []byte
}

func (d *utf8Decoder) Decode(p []byte) string {
	buf := p
	if len(d.carry) > 0 {
		buf = append(d.carry, p...)
		d.carry = nil
	}

	// Hold back at most utf8.UTFMax-1 bytes of an unfinished rune.
	end := len(buf)
	for i := len(buf) - 1; i >= 0 && i >= len(buf)-(utf8.UTFMax-1); i-- {
		if utf8.RuneStart(buf[i]) {
			if !utf8.FullRune(buf[i:]) {
				end = i
			}
			break
		}
	}
	if end < len(buf) {
		d.carry = append([]byte(nil), buf[end:]...)
	}
	return strings.ToValidUTF8(string(buf[:end]), "�")
}

// Flush returns whatever is still carried, replacing invalid bytes.
func (d *utf8Decoder) Flush() string {
	if len(d.carry) == 0 {
		return ""
	}
	s := strings.ToValidUTF8(string(d.carry), "�")
	d.carry = nil
	return s
}
