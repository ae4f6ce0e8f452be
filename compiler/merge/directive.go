// Package merge implements protected regions for generated files.
//
// Generated blocks are wrapped by a pair of single line marker comments:
//
//	// {"magic":"ꙮloom","directive":{"Start":{"directive":"ignore-orig","tag":"customer-struct"}}}
//	type Customer struct { ... }
//	// {"magic":"ꙮloom","directive":{"End":{"directive":"ignore-orig","tag":"customer-struct"}}}
//
// On regeneration the fresh buffer is merged with the file on disk. Blocks
// are matched by tag and ordinal occurrence, and the directive found in the
// file on disk decides what survives.
package merge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Magic identifies loom markers among ordinary comments.
const Magic = "ꙮloom"

// Directive controls what happens to a block on regeneration.
type Directive string

// Directives.
const (
	// IgnoreOrig keeps the block found on disk verbatim.
	IgnoreOrig Directive = "ignore-orig"
	// CommentOrig emits the fresh block and keeps differing prior content
	// as inert comment lines.
	CommentOrig Directive = "comment-orig"
	// AllowEditing merges nested blocks and keeps user text between them.
	AllowEditing Directive = "allow-editing"
)

// Valid reports whether d is a known directive.
func (d Directive) Valid() bool {
	switch d {
	case IgnoreOrig, CommentOrig, AllowEditing:
		return true
	}
	return false
}

// Role is the boundary role of a marker.
type Role string

// Marker roles.
const (
	Start Role = "Start"
	End   Role = "End"
)

// Marker is a decoded marker line.
type Marker struct {
	Role      Role
	Directive Directive
	Tag       string
}

type wireScope struct {
	Directive Directive `json:"directive"`
	Tag       string    `json:"tag"`
}

type wireRole struct {
	Start *wireScope `json:"Start,omitempty"`
	End   *wireScope `json:"End,omitempty"`
}

type wireMarker struct {
	Magic     string   `json:"magic"`
	Directive wireRole `json:"directive"`
}

// Syntax describes how markers are embedded in a file type.
type Syntax struct {
	// Prefix starts a line comment.
	Prefix string
}

// Built-in syntaxes.
var (
	Go      = Syntax{Prefix: "//"}
	GraphQL = Syntax{Prefix: "#"}
)

// Preserved returns the prefix of preserved comment lines, e.g. "//~".
func (s Syntax) Preserved() string {
	return s.Prefix + "~"
}

// Format renders m as a comment line.
func (s Syntax) Format(m Marker) string {
	scope := &wireScope{Directive: m.Directive, Tag: m.Tag}
	w := wireMarker{Magic: Magic}
	if m.Role == End {
		w.Directive.End = scope
	} else {
		w.Directive.Start = scope
	}
	b, err := json.Marshal(w)
	if err != nil {
		// Only strings are encoded.
		panic(err)
	}
	return s.Prefix + " " + string(b)
}

// Start returns the start marker line of a block.
func (s Syntax) Start(d Directive, tag string) string {
	return s.Format(Marker{Role: Start, Directive: d, Tag: tag})
}

// End returns the end marker line of a block.
func (s Syntax) End(d Directive, tag string) string {
	return s.Format(Marker{Role: End, Directive: d, Tag: tag})
}

// Wrap returns body enclosed in a start and end marker.
func (s Syntax) Wrap(d Directive, tag, body string) string {
	var b strings.Builder
	b.WriteString(s.Start(d, tag))
	b.WriteByte('\n')
	if body != "" {
		b.WriteString(strings.TrimSuffix(body, "\n"))
		b.WriteByte('\n')
	}
	b.WriteString(s.End(d, tag))
	b.WriteByte('\n')
	return b.String()
}

// ParseLine decodes a marker line. It returns false for lines that are not
// markers. A comment that carries the magic but cannot be decoded is an
// error.
func (s Syntax) ParseLine(line string) (Marker, bool, error) {
	text, ok := strings.CutPrefix(strings.TrimSpace(line), s.Prefix)
	if !ok {
		return Marker{}, false, nil
	}
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") || !strings.Contains(text, Magic) {
		return Marker{}, false, nil
	}
	var w wireMarker
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return Marker{}, true, fmt.Errorf("decode marker: %w", err)
	}
	if w.Magic != Magic {
		return Marker{}, true, fmt.Errorf("unexpected magic %q", w.Magic)
	}
	var m Marker
	switch {
	case w.Directive.Start != nil && w.Directive.End == nil:
		m = Marker{Role: Start, Directive: w.Directive.Start.Directive, Tag: w.Directive.Start.Tag}
	case w.Directive.End != nil && w.Directive.Start == nil:
		m = Marker{Role: End, Directive: w.Directive.End.Directive, Tag: w.Directive.End.Tag}
	default:
		return Marker{}, true, fmt.Errorf("marker must have exactly one of Start or End")
	}
	if !m.Directive.Valid() {
		return Marker{}, true, fmt.Errorf("unknown directive %q", m.Directive)
	}
	if m.Tag == "" {
		return Marker{}, true, fmt.Errorf("marker has an empty tag")
	}
	return m, true, nil
}
