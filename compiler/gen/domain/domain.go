// Package domain synthesizes the domain package: one file per object with
// its id alias, struct, constructors and navigation methods, plus the
// object store holding every instance.
package domain

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/loom/compiler/gen"
	"github.com/syssam/loom/compiler/merge"
)

// Synthesizer implements gen.Synthesizer for the domain target.
type Synthesizer struct{}

var _ gen.Synthesizer = Synthesizer{}

// NewBackend returns the domain backend writing to <out>/<package>.
func NewBackend(g *gen.Graph, out string) *gen.Generator {
	return gen.NewGenerator(g, Synthesizer{}, filepath.Join(out, g.Package()))
}

// Name implements gen.Synthesizer.
func (Synthesizer) Name() string { return "domain" }

// Object implements gen.Synthesizer. It emits the file of t.
func (Synthesizer) Object(g *gen.Graph, t *gen.Type) ([]*gen.Artifact, error) {
	f, err := newSynth(g).object(t)
	if err != nil {
		return nil, err
	}
	a, err := gen.GoArtifact(t.File(), f)
	if err != nil {
		return nil, err
	}
	return []*gen.Artifact{a}, nil
}

// Domain implements gen.Synthesizer. It emits store.go.
func (Synthesizer) Domain(g *gen.Graph) ([]*gen.Artifact, error) {
	f, err := newSynth(g).store()
	if err != nil {
		return nil, err
	}
	a, err := gen.GoArtifact("store.go", f)
	if err != nil {
		return nil, err
	}
	return []*gen.Artifact{a}, nil
}

// synth carries the graph of one synthesis call.
type synth struct {
	g *gen.Graph
}

func newSynth(g *gen.Graph) *synth {
	return &synth{g: g}
}

// file returns a new file of the domain package whose body is one
// allow-editing block filled by body.
func (s *synth) file(body func(f *jen.File) error) (*jen.File, error) {
	f := s.g.NewFile(s.g.Package())
	var err error
	gen.Block(f, merge.AllowEditing, "file", func(f *jen.File) {
		f.Line()
		err = body(f)
	})
	return f, err
}

// wrap returns the element type handed out by the store for t.
func (s *synth) wrap(t *gen.Type) *jen.Statement {
	switch s.g.Ownership {
	case gen.Shared:
		return jen.Op("*").Qual(gen.RuntimePkg, "Cell").Types(jen.Id(t.Name))
	case gen.Locked:
		return jen.Op("*").Qual(gen.RuntimePkg, "Locked").Types(jen.Id(t.Name))
	default:
		return jen.Op("*").Id(t.Name)
	}
}

// read returns an expression reading the value held by the wrapper v.
func (s *synth) read(v string) *jen.Statement {
	if s.g.Ownership == gen.Exclusive {
		return jen.Id(v)
	}
	return jen.Id(v).Dot("Read").Call()
}

// store is the type of the store parameter.
func (s *synth) storeParam() jen.Code {
	return jen.Id("store").Op("*").Id("ObjectStore")
}

// tags returns the struct tags of a field.
func (s *synth) tags(name string) map[string]string {
	tags := map[string]string{"json": name}
	for _, k := range s.g.DeriveList {
		tags[k] = name
	}
	return tags
}

// recv returns the receiver name of t, avoiding the names bound by the
// bodies of navigation methods.
func recv(t *gen.Type) string {
	r := t.Receiver()
	if locals[r] {
		r = strings.ToLower(t.Name[:min(2, len(t.Name))])
	}
	if locals[r] {
		r = "x"
	}
	return r
}

var locals = map[string]bool{
	"v": true, "ok": true, "found": true, "store": true, "fk": true,
}

// doc returns a one line doc comment for name.
func doc(name, desc, fallback string) string {
	desc = oneLine(desc)
	if desc == "" {
		return name + " " + fallback
	}
	for _, article := range []string{"A ", "An ", "The "} {
		if strings.HasPrefix(desc, article) {
			return name + " is " + strings.ToLower(desc[:1]) + desc[1:]
		}
	}
	return fmt.Sprintf("%s: %s", name, desc)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
