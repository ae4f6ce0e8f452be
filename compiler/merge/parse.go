package merge

import (
	"bytes"
	"strings"
)

// Key identifies a block within a file: its tag and the ordinal of that tag
// among all blocks of the file, counted from 1 in document order.
type Key struct {
	Tag     string
	Ordinal int
}

// Block is a marked region of a document. Start and End are the line
// indexes of its markers.
type Block struct {
	Tag       string
	Directive Directive
	Ordinal   int
	Start     int
	End       int
	Parent    *Block
	Children  []*Block
}

// Key returns the matching key of the block.
func (b *Block) Key() Key {
	return Key{Tag: b.Tag, Ordinal: b.Ordinal}
}

// Document is a parsed file.
type Document struct {
	Syntax Syntax
	Lines  []string
	// Blocks holds the top level blocks in document order.
	Blocks []*Block

	index   map[Key]*Block
	ordered []*Block
	newline bool
}

// Parse splits src into lines and builds its block tree. Markers are paired
// like parentheses. Unpaired markers are reported as malformed and a tag
// repeated among siblings as a conflict.
func Parse(src []byte, syn Syntax) (*Document, error) {
	doc := &Document{Syntax: syn, index: make(map[Key]*Block)}
	text := string(src)
	if strings.HasSuffix(text, "\n") {
		doc.newline = true
		text = strings.TrimSuffix(text, "\n")
	}
	if len(src) > 0 {
		doc.Lines = strings.Split(text, "\n")
	}
	var (
		stack    []*Block
		ordinals = make(map[string]int)
		// sibling tags per open level; index 0 is the top level.
		siblings = []map[string]bool{{}}
	)
	for i, line := range doc.Lines {
		m, ok, err := syn.ParseLine(line)
		if err != nil {
			return nil, malformed(i+1, "", "%v", err)
		}
		if !ok {
			continue
		}
		switch m.Role {
		case Start:
			level := siblings[len(siblings)-1]
			if level[m.Tag] {
				return nil, &ConflictError{Line: i + 1, Tag: m.Tag, Message: "scope repeated at the same nesting level"}
			}
			level[m.Tag] = true
			ordinals[m.Tag]++
			b := &Block{Tag: m.Tag, Directive: m.Directive, Ordinal: ordinals[m.Tag], Start: i, End: -1}
			if n := len(stack); n > 0 {
				b.Parent = stack[n-1]
				b.Parent.Children = append(b.Parent.Children, b)
			} else {
				doc.Blocks = append(doc.Blocks, b)
			}
			stack = append(stack, b)
			siblings = append(siblings, map[string]bool{})
			doc.index[b.Key()] = b
			doc.ordered = append(doc.ordered, b)
		case End:
			n := len(stack)
			if n == 0 {
				return nil, malformed(i+1, m.Tag, "end marker without a start")
			}
			top := stack[n-1]
			if top.Tag != m.Tag {
				return nil, malformed(i+1, m.Tag, "end marker closes %q opened at line %d", top.Tag, top.Start+1)
			}
			if top.Directive != m.Directive {
				return nil, malformed(i+1, m.Tag, "end directive %q does not match start directive %q", m.Directive, top.Directive)
			}
			top.End = i
			stack = stack[:n-1]
			siblings = siblings[:len(siblings)-1]
		}
	}
	if n := len(stack); n > 0 {
		top := stack[n-1]
		return nil, malformed(top.Start+1, top.Tag, "block is never closed")
	}
	return doc, nil
}

// Lookup returns the block with key k, or nil.
func (d *Document) Lookup(k Key) *Block {
	return d.index[k]
}

// All returns every block in document order.
func (d *Document) All() []*Block {
	return d.ordered
}

// Inner returns the lines between the markers of b.
func (d *Document) Inner(b *Block) []string {
	return d.Lines[b.Start+1 : b.End]
}

// Bytes joins the document lines back together.
func (d *Document) Bytes() []byte {
	return join(d.Lines, d.newline)
}

func join(lines []string, newline bool) []byte {
	var buf bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(l)
	}
	if newline && len(lines) > 0 {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
