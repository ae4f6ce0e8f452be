package gen

import (
	"bytes"
	"context"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/loom/compiler/merge"
)

// Backend compiles a graph into files.
type Backend interface {
	// Name returns the backend name, as used in logs and fingerprints.
	Name() string
	// Compile generates, merges and writes every file of the backend and
	// returns the number of files created or changed.
	Compile(ctx context.Context) (int, error)
}

// Synthesizer produces the artifacts of a backend. Object runs once per
// type, possibly in parallel, on a graph owned by the call. Domain runs
// after every Object call has returned.
type Synthesizer interface {
	Name() string
	Object(g *Graph, t *Type) ([]*Artifact, error)
	Domain(g *Graph) ([]*Artifact, error)
}

// Artifact is one generated file. Path is relative to the output directory
// of the backend.
type Artifact struct {
	Path   string
	Syntax merge.Syntax
	Source []byte
	// Go enables import fixing and formatting of the merged output.
	Go bool
}

// GoArtifact renders a jennifer file.
func GoArtifact(path string, f *jen.File) (*Artifact, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, NewGenerationError("render", path, "", err)
	}
	return &Artifact{Path: path, Syntax: merge.Go, Source: buf.Bytes(), Go: true}, nil
}

// NewFile returns a jennifer file carrying the run header and the
// configured blank imports.
func (g *Graph) NewFile(pkg string) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment(g.HeaderFor(g.Name))
	f.ImportNames(map[string]string{
		RuntimePkg: "loom",
		UUIDPkg:    "uuid",
	})
	for _, p := range g.UsePaths {
		f.Anon(p)
	}
	return f
}

// Block appends the code written by body to f, wrapped in a scope marker
// pair and followed by a blank line.
func Block(f *jen.File, d merge.Directive, tag string, body func(f *jen.File)) {
	Open(f, d, tag)
	if body != nil {
		body(f)
	}
	Close(f, d, tag)
	f.Line()
}

// Open appends the start marker of a scope.
func Open(f *jen.File, d merge.Directive, tag string) {
	f.Comment(merge.Go.Start(d, tag))
}

// Close appends the end marker of a scope.
func Close(f *jen.File, d merge.Directive, tag string) {
	f.Comment(merge.Go.End(d, tag))
}
