// Package app synthesizes the application scaffold: a small package that
// opens the object store of a domain, loading it from disk when persistence
// is on, and persists it again on close.
package app

import (
	"fmt"
	"path/filepath"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/loom/compiler/gen"
	"github.com/syssam/loom/compiler/merge"
)

// Synthesizer implements gen.Synthesizer for the application target.
type Synthesizer struct{}

var _ gen.Synthesizer = Synthesizer{}

// NewBackend returns the application backend writing to <out>/app, or to
// <out>/application for a domain whose own package is named app.
func NewBackend(g *gen.Graph, out string) *gen.Generator {
	return gen.NewGenerator(g, Synthesizer{}, filepath.Join(out, Package(g)))
}

// Package returns the package name of the scaffold of g.
func Package(g *gen.Graph) string {
	if g.Package() == "app" {
		return "application"
	}
	return "app"
}

// Name implements gen.Synthesizer.
func (Synthesizer) Name() string { return "application" }

// Object implements gen.Synthesizer. The scaffold has no per-object files.
func (Synthesizer) Object(*gen.Graph, *gen.Type) ([]*gen.Artifact, error) {
	return nil, nil
}

// Domain implements gen.Synthesizer. It emits app.go.
func (Synthesizer) Domain(g *gen.Graph) ([]*gen.Artifact, error) {
	a, err := gen.GoArtifact("app.go", scaffold(g))
	if err != nil {
		return nil, err
	}
	return []*gen.Artifact{a}, nil
}

func scaffold(g *gen.Graph) *jen.File {
	f := g.NewFile(Package(g))
	pkg := g.PkgPath()
	store := jen.Op("*").Qual(pkg, "ObjectStore")
	gen.Block(f, merge.AllowEditing, "file", func(f *jen.File) {
		f.Line()
		gen.Block(f, merge.CommentOrig, "app", func(f *jen.File) {
			f.Comment(fmt.Sprintf("App owns the object store of the %s domain.", g.Name))
			f.Type().Id("App").Struct(
				jen.Id("Store").Add(store.Clone()),
				jen.Comment("Root is the directory the store is persisted under."),
				jen.Id("Root").String(),
			)
		})
		gen.Block(f, merge.CommentOrig, "app-open", func(f *jen.File) {
			if g.Persist {
				f.Comment("Open loads the store persisted under root, or starts an empty one when")
				f.Comment("nothing was persisted there yet.")
				f.Func().Id("Open").Params(jen.Id("root").String()).Params(jen.Op("*").Id("App"), jen.Error()).Block(
					jen.List(jen.Id("store"), jen.Err()).Op(":=").Qual(pkg, "LoadObjectStore").Call(jen.Id("root")),
					jen.Switch().Block(
						jen.Case(jen.Qual("errors", "Is").Call(jen.Err(), jen.Qual(gen.RuntimePkg, "ErrIncompletePersist")).Op("&&").Op("!").Id("exists").Call(jen.Id("root"))).Block(
							jen.Id("store").Op("=").Qual(pkg, "NewObjectStore").Call(),
						),
						jen.Case(jen.Err().Op("!=").Nil()).Block(
							jen.Return(jen.Nil(), jen.Err()),
						),
					),
					jen.Return(jen.Op("&").Id("App").Values(jen.Dict{
						jen.Id("Store"): jen.Id("store"),
						jen.Id("Root"):  jen.Id("root"),
					}), jen.Nil()),
				)
				f.Line()
				f.Comment(fmt.Sprintf("exists reports whether root already holds a %s directory.", g.Package()))
				f.Func().Id("exists").Params(jen.Id("root").String()).Bool().Block(
					jen.List(jen.Id("_"), jen.Err()).Op(":=").Qual("os", "Stat").Call(jen.Qual("path/filepath", "Join").Call(jen.Id("root"), jen.Lit(g.Package()))),
					jen.Return(jen.Err().Op("==").Nil()),
				)
				return
			}
			f.Comment("Open returns an application over an empty store.")
			f.Func().Id("Open").Params(jen.Id("root").String()).Params(jen.Op("*").Id("App"), jen.Error()).Block(
				jen.Return(jen.Op("&").Id("App").Values(jen.Dict{
					jen.Id("Store"): jen.Qual(pkg, "NewObjectStore").Call(),
					jen.Id("Root"):  jen.Id("root"),
				}), jen.Nil()),
			)
		})
		gen.Block(f, merge.CommentOrig, "app-close", func(f *jen.File) {
			if g.Persist {
				f.Comment("Close persists the store under the root it was opened with.")
				f.Func().Params(jen.Id("a").Op("*").Id("App")).Id("Close").Params().Error().Block(
					jen.Return(jen.Id("a").Dot("Store").Dot("Persist").Call(jen.Id("a").Dot("Root"))),
				)
				return
			}
			f.Comment("Close releases the application.")
			f.Func().Params(jen.Id("a").Op("*").Id("App")).Id("Close").Params().Error().Block(
				jen.Return(jen.Nil()),
			)
		})
		gen.Block(f, merge.IgnoreOrig, "app-implementation", nil)
	})
	return f
}
