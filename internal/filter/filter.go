// Package filter rewrites Jsonnet source so that a documentation parser
// expecting C-like syntax only sees the documentation comments.
//
// Documentation comments are kept byte for byte. Every other character is
// deleted except '\n', so each comment stays on the line it started on in the
// original file.
package filter

import "strings"

const (
	// Opener starts a documentation comment.
	Opener = "/**"
	// Closer ends a documentation comment at its first occurrence after the opener.
	Closer = "*/"
)

// CommentBlock is a documentation comment found in a source text.
type CommentBlock struct {
	Content string // raw text, delimiters included
	Ordinal int    // position among all blocks, left to right
	Start   int    // byte offset of the opener
	End     int    // byte offset just past the closer
}

// Blocks returns every documentation comment in text, left to right.
//
// A block runs from an opener to the nearest closer with at least one byte in
// between, so "/***/" is not a block but "/** */" is. Openers found inside a
// block belong to that block.
func Blocks(text string) []CommentBlock {
	var blocks []CommentBlock
	pos := 0
	for {
		i := strings.Index(text[pos:], Opener)
		if i < 0 {
			return blocks
		}
		b, ok := BlockAt(text, pos+i)
		if !ok {
			// No closer after this opener means none after any later opener.
			return blocks
		}
		b.Ordinal = len(blocks)
		blocks = append(blocks, b)
		pos = b.End
	}
}

// BlockAt returns the block whose opener sits at byte offset start of text.
// The returned Ordinal is always zero; only Blocks numbers blocks.
func BlockAt(text string, start int) (CommentBlock, bool) {
	if start < 0 || start > len(text) || !strings.HasPrefix(text[start:], Opener) {
		return CommentBlock{}, false
	}
	bodyStart := start + len(Opener) + 1
	if bodyStart > len(text) {
		return CommentBlock{}, false
	}
	j := strings.Index(text[bodyStart:], Closer)
	if j < 0 {
		return CommentBlock{}, false
	}
	end := bodyStart + j + len(Closer)
	return CommentBlock{Content: text[start:end], Start: start, End: end}, true
}

// Transform returns source with every documentation comment preserved and
// every other non-newline character removed.
//
// filename identifies the document for the caller and does not influence the
// result. Transform never fails and is safe for concurrent use.
func Transform(filename, source string) string {
	blocks := Blocks(source)
	if len(blocks) == 0 {
		return stripCode(source)
	}

	var sb strings.Builder
	sb.Grow(strings.Count(source, "\n") + commentBytes(blocks))
	pos := 0
	for _, b := range blocks {
		writeNewlines(&sb, source[pos:b.Start])
		sb.WriteString(b.Content)
		pos = b.End
	}
	writeNewlines(&sb, source[pos:])
	return sb.String()
}

// stripCode deletes every byte of s that is not '\n'.
func stripCode(s string) string {
	return strings.Repeat("\n", strings.Count(s, "\n"))
}

func writeNewlines(sb *strings.Builder, s string) {
	for n := strings.Count(s, "\n"); n > 0; n-- {
		sb.WriteByte('\n')
	}
}

func commentBytes(blocks []CommentBlock) int {
	n := 0
	for _, b := range blocks {
		n += len(b.Content)
	}
	return n
}
