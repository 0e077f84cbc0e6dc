package player

import (
	"bufio"
	"context"
	"io"
)

// KeyKind identifies a decoded key press.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
)

// Key is one decoded key press. R is set for KeyRune.
type Key struct {
	Kind KeyKind
	R    byte
}

type lexState int

const (
	lexGround lexState = iota
	lexEscape
	lexCSI
	lexSS3
	lexDrop
)

// maxCSI bounds the parameter bytes buffered for one CSI sequence.
const maxCSI = 8

// Lexer decodes terminal input one byte at a time.
type Lexer struct {
	state lexState
	seq   []byte
}

// Feed consumes b and returns a key once a complete press has been seen.
// Unknown or overlong CSI and SS3 sequences are dropped. A byte following a
// lone Esc is decoded as if the Esc had not been pressed.
func (l *Lexer) Feed(b byte) (Key, bool) {
	switch l.state {
	case lexEscape:
		switch b {
		case '[':
			l.state = lexCSI
			l.seq = l.seq[:0]
		case 'O':
			l.state = lexSS3
		default:
			// A lone Esc: read b as a fresh press.
			l.state = lexGround
			return l.Feed(b)
		}
		return Key{}, false
	case lexSS3:
		l.state = lexGround
		switch b {
		case 'A':
			return Key{Kind: KeyUp}, true
		case 'B':
			return Key{Kind: KeyDown}, true
		case 'C':
			return Key{Kind: KeyRight}, true
		case 'D':
			return Key{Kind: KeyLeft}, true
		case 'H':
			return Key{Kind: KeyHome}, true
		case 'F':
			return Key{Kind: KeyEnd}, true
		}
		return Key{}, false
	case lexCSI:
		if b >= 0x40 && b <= 0x7e {
			l.state = lexGround
			return csiKey(string(l.seq) + string(b))
		}
		switch {
		case b < 0x20 || b > 0x3f:
			l.state = lexGround
		case len(l.seq) >= maxCSI:
			l.state = lexDrop
		default:
			l.seq = append(l.seq, b)
		}
		return Key{}, false
	case lexDrop:
		if b < 0x20 || b > 0x3f {
			l.state = lexGround
		}
		return Key{}, false
	}
	if b == 0x1b {
		l.state = lexEscape
		return Key{}, false
	}
	return Key{Kind: KeyRune, R: b}, true
}

// Pending reports whether the lexer is inside an escape sequence.
func (l *Lexer) Pending() bool {
	return l.state != lexGround
}

func csiKey(seq string) (Key, bool) {
	switch seq {
	case "A":
		return Key{Kind: KeyUp}, true
	case "B":
		return Key{Kind: KeyDown}, true
	case "C":
		return Key{Kind: KeyRight}, true
	case "D":
		return Key{Kind: KeyLeft}, true
	case "H", "1~", "7~":
		return Key{Kind: KeyHome}, true
	case "F", "4~", "8~":
		return Key{Kind: KeyEnd}, true
	case "5~":
		return Key{Kind: KeyPageUp}, true
	case "6~":
		return Key{Kind: KeyPageDown}, true
	}
	return Key{}, false
}

// ReadKeys copies raw key bytes from r to out until r fails or ctx is done,
// then closes out.
func ReadKeys(ctx context.Context, r io.Reader, out chan<- byte) {
	defer close(out)
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		select {
		case out <- b:
		case <-ctx.Done():
			return
		}
	}
}
