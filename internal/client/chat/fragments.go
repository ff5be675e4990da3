package chat

import (
	"io"
	"iter"

	"github.com/dmitrijs2005/thyroscope/internal/client/client"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Sentinel marks the end of a streamed reply. It is never shown.
const Sentinel = "[END]"

const readChunk = 4096

// decodeFragments reads r incrementally. Bytes are decoded as UTF-8 with
// partial runes carried to the next read, and the sentinel is removed.
func decodeFragments(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		dec := transform.NewReader(r, unicode.UTF8.NewDecoder())
		var clean sentinelFilter
		buf := make([]byte, readChunk)

		for {
			n, err := dec.Read(buf)
			if n > 0 {
				if out := clean.push(string(buf[:n])); out != "" {
					if !yield(out, nil) {
						return
					}
				}
			}
			if err == io.EOF {
				if out := clean.flush(); out != "" {
					yield(out, nil)
				}
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(transform.NewReader(r, unicode.UTF8.NewDecoder()))
	if err != nil {
		return "", err
	}
	return stripSentinel(string(b)), nil
}

// stripSentinel removes the sentinel until none is left, so "[EN[END]D]"
// disappears entirely.
func stripSentinel(s string) string {
	var f sentinelFilter
	return f.push(s) + f.flush()
}

// sentinelFilter removes the sentinel from a stream of text pieces, including
// sentinels that only form once an inner one is removed. Text is held back
// while it could still become part of a sentinel and released as soon as it
// cannot.
type sentinelFilter struct {
	held []byte
	// match[i] is how much of the sentinel ends at held[i].
	match []int
}

func (f *sentinelFilter) push(piece string) string {
	for i := 0; i < len(piece); i++ {
		c := piece[i]

		prev := 0
		if n := len(f.match); n > 0 {
			prev = f.match[n-1]
		}
		next := 0
		switch {
		case c == Sentinel[prev]:
			next = prev + 1
		case c == Sentinel[0]:
			next = 1
		}

		f.held = append(f.held, c)
		f.match = append(f.match, next)
		if next == len(Sentinel) {
			f.held = f.held[:len(f.held)-len(Sentinel)]
			f.match = f.match[:len(f.match)-len(Sentinel)]
		}
	}

	// A byte that matches nothing can never be removed, nor can anything
	// before it.
	cut := 0
	for i := len(f.match) - 1; i >= 0; i-- {
		if f.match[i] == 0 {
			cut = i + 1
			break
		}
	}
	out := string(f.held[:cut])
	f.held = append(f.held[:0], f.held[cut:]...)
	f.match = append(f.match[:0], f.match[cut:]...)
	return out
}

func (f *sentinelFilter) flush() string {
	out := string(f.held)
	f.held = f.held[:0]
	f.match = f.match[:0]
	return out
}

func detail(err error) string {
	return client.Message(err, err.Error())
}
