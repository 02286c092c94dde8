// Package locate finds the byte spans of node-pairs in the raw document
// text. It never builds a full XML tree: the writer needs exact byte offsets
// into the original file so that a patch can replace a value without
// disturbing any surrounding byte.
//
// The dialect guarantees that a tag name of interest never nests inside an
// element of the same name, so the first close tag after an open tag always
// terminates it.
package locate

import (
	"bytes"
	"hash/fnv"
	"strings"

	"github.com/banshee-data/awbmap/internal/awb"
)

// Span is a half-open byte range [Start, End) into the document.
type Span struct {
	Start int
	End   int
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// AliasElement is the second-node child that carries an entry's identity.
const AliasElement = "AliasName"

func isNameEnd(b byte) bool {
	switch b {
	case '>', '/', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// nextElement returns the full span of the next element named name that
// opens at or after from and closes before to.
func nextElement(doc []byte, from, to int, name string) (Span, bool) {
	needle := []byte("<" + name)
	for i := from; i < to; {
		j := bytes.Index(doc[i:to], needle)
		if j < 0 {
			return Span{}, false
		}
		open := i + j
		after := open + len(needle)
		if after >= to {
			return Span{}, false
		}
		if !isNameEnd(doc[after]) {
			// Prefix of a longer tag name, e.g. <bv in <bv_ext>.
			i = open + 1
			continue
		}

		gt := bytes.IndexByte(doc[after:to], '>')
		if gt < 0 {
			return Span{}, false
		}
		gtPos := after + gt
		if doc[gtPos-1] == '/' {
			return Span{Start: open, End: gtPos + 1}, true
		}

		closeTag := []byte("</" + name + ">")
		k := bytes.Index(doc[gtPos:to], closeTag)
		if k < 0 {
			return Span{}, false
		}
		return Span{Start: open, End: gtPos + k + len(closeTag)}, true
	}
	return Span{}, false
}

// Occurrences returns the span of every element named tag, in document order.
func Occurrences(doc []byte, tag string) []Span {
	var spans []Span
	pos := 0
	for {
		s, ok := nextElement(doc, pos, len(doc), tag)
		if !ok {
			break
		}
		spans = append(spans, s)
		pos = s.End
	}
	return spans
}

// Pair returns the first and second occurrence of tag. ok is false when the
// document holds fewer than two occurrences.
func Pair(doc []byte, tag string) (first, second Span, ok bool) {
	spans := Occurrences(doc, tag)
	if len(spans) < 2 {
		return Span{}, Span{}, false
	}
	return spans[0], spans[1], true
}

// ChildSpan returns the full span of the first child element named name
// strictly inside the parent span.
func ChildSpan(doc []byte, parent Span, name string) (Span, bool) {
	return nextElement(doc, parent.Start+1, parent.End, name)
}

// TextSpan returns the content span of an element: the bytes between the
// open tag's '>' and the matching close tag. Self-closing elements have no
// content span.
func TextSpan(doc []byte, elem Span) (Span, bool) {
	gt := bytes.IndexByte(doc[elem.Start:elem.End], '>')
	if gt < 0 {
		return Span{}, false
	}
	start := elem.Start + gt + 1
	if doc[elem.Start+gt-1] == '/' {
		return Span{}, false
	}
	rel := bytes.LastIndex(doc[start:elem.End], []byte("</"))
	if rel < 0 {
		return Span{}, false
	}
	return Span{Start: start, End: start + rel}, true
}

// ValueSpan returns the content span of an element with surrounding
// whitespace excluded, so a replacement preserves the document's padding.
// For an empty or all-whitespace element the returned span is zero-length,
// positioned after any leading whitespace.
func ValueSpan(doc []byte, elem Span) (Span, bool) {
	text, ok := TextSpan(doc, elem)
	if !ok {
		return Span{}, false
	}
	start, end := text.Start, text.End
	for start < end && isSpace(doc[start]) {
		start++
	}
	for end > start && isSpace(doc[end-1]) {
		end--
	}
	return Span{Start: start, End: end}, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// AliasOf extracts the alias text from a second-occurrence span.
func AliasOf(doc []byte, second Span) string {
	elem, ok := ChildSpan(doc, second, AliasElement)
	if !ok {
		return ""
	}
	text, ok := TextSpan(doc, elem)
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(doc[text.Start:text.End]))
}

// Locate returns the byte span of the first occurrence of tag, but only if
// the second occurrence's alias matches the expected alias. This is the
// guard that makes in-memory reordering safe: a record is only ever patched
// into the node-pair that still carries its identity.
func Locate(doc []byte, tag, alias string) (Span, bool) {
	first, second, ok := Pair(doc, tag)
	if !ok {
		return Span{}, false
	}
	if AliasOf(doc, second) != alias {
		return Span{}, false
	}
	return first, true
}

func checksum(doc []byte) uint64 {
	h := fnv.New64a()
	h.Write(doc)
	return h.Sum64()
}

// Index caches the alias -> tag mapping built from one scan of a document.
// It is valid only for the exact bytes it was built from; Valid must be
// checked (and the index rebuilt) whenever the document text may have
// changed, including after the index's owner itself wrote the file.
type Index struct {
	sum        uint64
	size       int
	aliasToTag map[string]string
	tags       []string
}

// NewIndex scans doc once and builds the alias mapping for every numbered
// node-pair. Numbering is contiguous and 1-based; the scan stops at the
// first missing index. When two entries share an alias the first pair in
// document order wins.
func NewIndex(doc []byte) *Index {
	ix := &Index{
		sum:        checksum(doc),
		size:       len(doc),
		aliasToTag: make(map[string]string),
	}
	for n := 1; ; n++ {
		tag := awb.EntryTag(n)
		_, second, ok := Pair(doc, tag)
		if !ok {
			break
		}
		ix.tags = append(ix.tags, tag)
		alias := AliasOf(doc, second)
		if alias == "" {
			continue
		}
		if _, dup := ix.aliasToTag[alias]; !dup {
			ix.aliasToTag[alias] = tag
		}
	}
	return ix
}

// Valid reports whether the index still describes doc.
func (ix *Index) Valid(doc []byte) bool {
	return ix != nil && ix.size == len(doc) && ix.sum == checksum(doc)
}

// Tags returns the numbered tags found at build time, in document order.
func (ix *Index) Tags() []string {
	out := make([]string, len(ix.tags))
	copy(out, ix.tags)
	return out
}

// TagFor returns the tag currently holding the entry with the given alias.
func (ix *Index) TagFor(alias string) (string, bool) {
	tag, ok := ix.aliasToTag[alias]
	return tag, ok
}

// Resolve maps an alias to the byte span of its first-occurrence node,
// re-verifying the alias against the document text.
func (ix *Index) Resolve(doc []byte, alias string) (Span, string, bool) {
	tag, ok := ix.TagFor(alias)
	if !ok {
		return Span{}, "", false
	}
	span, ok := Locate(doc, tag, alias)
	if !ok {
		return Span{}, "", false
	}
	return span, tag, true
}
