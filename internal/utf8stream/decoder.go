// Package utf8stream decodes an arbitrarily chunked byte stream into valid
// UTF-8 text, carrying any partial code point left at the end of one chunk
// over to the next. Malformed bytes are replaced, never fatal.
package utf8stream

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder is per-session state: it must not be shared between sessions, and
// calls to Decode for a single session must not happen concurrently (the
// supervisor loop is single-threaded and owns the decoder, satisfying this
// naturally).
//
// unicode.UTF8 is golang.org/x/text's UTF-8 encoding with invalid byte
// sequences replaced by U+FFFD — precisely the "lenient" incremental decode
// this component needs, so Decoder is a thin wrapper around its
// transform.Transformer rather than hand-rolled rune-boundary bookkeeping.
type Decoder struct {
	tr       transform.Transformer
	leftover []byte
}

// New returns a ready-to-use incremental decoder.
func New() *Decoder {
	return &Decoder{tr: unicode.UTF8.NewDecoder()}
}

// Decode consumes chunk (appended after any carried-over partial bytes from
// the previous call) and returns the well-formed text it could extract.
// Any trailing partial code point is retained internally for the next call.
func (d *Decoder) Decode(chunk []byte) string {
	src := chunk
	if len(d.leftover) > 0 {
		src = make([]byte, 0, len(d.leftover)+len(chunk))
		src = append(src, d.leftover...)
		src = append(src, chunk...)
	}
	if len(src) == 0 {
		return ""
	}

	dst := make([]byte, len(src)*3+16)
	var out []byte
	srcOff := 0
	for {
		nDst, nSrc, err := d.tr.Transform(dst, src[srcOff:], false)
		out = append(out, dst[:nDst]...)
		srcOff += nSrc
		if err == transform.ErrShortDst {
			dst = make([]byte, len(dst)*2)
			continue
		}
		// transform.ErrShortSrc means the remaining bytes are a valid
		// prefix of a code point that might be completed by a future
		// chunk; keep them. Any other error (unicode.UTF8 should not
		// produce one, given its replacement policy) simply stops
		// consumption here and the remaining bytes are retried next call.
		break
	}

	if srcOff < len(src) {
		d.leftover = append(d.leftover[:0], src[srcOff:]...)
	} else {
		d.leftover = d.leftover[:0]
	}
	return string(out)
}
