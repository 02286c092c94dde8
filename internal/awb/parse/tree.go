package parse

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/banshee-data/awbmap/internal/awb"
)

// element is a lightweight decoded XML subtree: name, direct text and
// children. Only the subtrees of interest are materialised; the rest of the
// document is token-walked for well-formedness and discarded.
type element struct {
	name     string
	text     strings.Builder
	children []*element
}

// child returns the first direct child with the given name.
func (e *element) child(name string) *element {
	for _, c := range e.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// textAt descends the path and returns the leaf's direct text.
func (e *element) textAt(path ...string) (string, bool) {
	cur := e
	for _, seg := range path {
		cur = cur.child(seg)
		if cur == nil {
			return "", false
		}
	}
	return cur.text.String(), true
}

// isEntryTag reports whether name is a numbered entry tag (offset_mapNN).
func isEntryTag(name string) bool {
	const prefix = "offset_map"
	if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
		return false
	}
	for _, r := range name[len(prefix):] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// collect walks the whole document, verifying well-formedness, and returns
// every occurrence of each tag of interest in document order, plus the root
// tag name. A malformed document is fatal; there is no partial result.
func collect(data []byte) (occs map[string][]*element, rootTag string, err error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	occs = make(map[string][]*element)

	var stack []*element
	var captureTag string

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			if syn, ok := err.(*xml.SyntaxError); ok {
				line = syn.Line
			}
			return nil, "", &awb.ParseError{Line: line, Msg: "malformed XML", Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if rootTag == "" {
				rootTag = name
			}
			if len(stack) > 0 {
				child := &element{name: name}
				stack[len(stack)-1].children = append(stack[len(stack)-1].children, child)
				stack = append(stack, child)
			} else if name == awb.BaseBoundaryTag || isEntryTag(name) {
				captureTag = name
				stack = append(stack, &element{name: name})
			}

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				occs[captureTag] = append(occs[captureTag], top)
				captureTag = ""
			}

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	return occs, rootTag, nil
}
