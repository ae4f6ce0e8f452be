package domain

import (
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/loom/compiler/gen"
	"github.com/syssam/loom/compiler/merge"
)

// store builds store.go: the ObjectStore type and its per-object methods.
func (s *synth) store() (*jen.File, error) {
	return s.file(func(f *jen.File) error {
		s.storeType(f)
		for _, t := range s.g.Stored() {
			s.storeMethods(f, t)
		}
		if s.g.IDStrategy == gen.IDIndex {
			gen.Block(f, merge.CommentOrig, "object-store-observe", func(f *jen.File) {
				f.Comment("observe moves the id counter past id.")
				f.Func().Params(jen.Id("s").Op("*").Id("ObjectStore")).Id("observe").Params(jen.Id("id").Int64()).Block(
					jen.For().Block(
						jen.Id("cur").Op(":=").Id("s").Dot("nextID").Dot("Load").Call(),
						jen.If(jen.Id("id").Op("<=").Id("cur").Op("||").Id("s").Dot("nextID").Dot("CompareAndSwap").Call(jen.Id("cur"), jen.Id("id"))).Block(jen.Return()),
					),
				)
			})
		}
		if s.g.Persist {
			s.persist(f)
			s.load(f)
		}
		gen.Block(f, merge.IgnoreOrig, "object-store-implementation", nil)
		return nil
	})
}

func (s *synth) storeType(f *jen.File) {
	stored := s.g.Stored()
	gen.Block(f, merge.CommentOrig, "object-store", func(f *jen.File) {
		f.Comment(fmt.Sprintf("ObjectStore holds the instances of the %s domain, keyed by id.", s.g.Name))
		f.Type().Id("ObjectStore").StructFunc(func(g *jen.Group) {
			if s.g.Ownership == gen.Locked {
				g.Id("mu").Qual("sync", "RWMutex")
			}
			if s.g.IDStrategy == gen.IDIndex {
				g.Id("nextID").Qual("sync/atomic", "Int64")
			}
			for _, t := range stored {
				g.Id(t.StoreField()).Map(jen.Id(t.IDName())).Add(s.wrap(t))
				if s.g.PersistTimestamps {
					g.Id(t.StampField()).Map(jen.Id(t.IDName())).Qual("time", "Time")
				}
			}
		})
		f.Line()
		f.Comment("NewObjectStore returns an empty store holding only the instances every store starts with.")
		f.Func().Id("NewObjectStore").Params().Op("*").Id("ObjectStore").BlockFunc(func(g *jen.Group) {
			lit := jen.Dict{}
			for _, t := range stored {
				lit[jen.Id(t.StoreField())] = jen.Make(jen.Map(jen.Id(t.IDName())).Add(s.wrap(t)))
				if s.g.PersistTimestamps {
					lit[jen.Id(t.StampField())] = jen.Make(jen.Map(jen.Id(t.IDName())).Qual("time", "Time"))
				}
			}
			g.Id("s").Op(":=").Op("&").Id("ObjectStore").Values(lit)
			for _, t := range s.g.Supertypes() {
				for _, leaf := range t.Leaves() {
					if !t.PreInterned(leaf) {
						continue
					}
					g.Id("s").Dot("Intern" + t.Name).Call(jen.Op("&").Id(t.Name).Values(jen.Dict{
						jen.Id("Kind"): jen.Id(t.KindConst(leaf)),
						jen.Id("ID"):   jen.Id(leaf.SingletonName()),
					}))
				}
			}
			g.Return(jen.Id("s"))
		})
	})
}

// lock returns the statements taking the store lock, or nothing when the
// store is not locked.
func (s *synth) lock(write bool) []jen.Code {
	if s.g.Ownership != gen.Locked {
		return nil
	}
	if write {
		return []jen.Code{
			jen.Id("s").Dot("mu").Dot("Lock").Call(),
			jen.Defer().Id("s").Dot("mu").Dot("Unlock").Call(),
		}
	}
	return []jen.Code{
		jen.Id("s").Dot("mu").Dot("RLock").Call(),
		jen.Defer().Id("s").Dot("mu").Dot("RUnlock").Call(),
	}
}

func (s *synth) storeMethods(f *jen.File, t *gen.Type) {
	field := jen.Id("s").Dot(t.StoreField())
	w := s.wrap(t)
	recvr := jen.Id("s").Op("*").Id("ObjectStore")
	gen.Block(f, merge.CommentOrig, t.Tag("store"), func(f *jen.File) {
		// Intern
		body := s.lock(true)
		if s.g.IDStrategy == gen.IDIndex {
			body = append(body, jen.If(jen.Id("v").Dot("ID").Op("==").Lit(0)).Block(
				jen.Id("v").Dot("ID").Op("=").Id("s").Dot("nextID").Dot("Add").Call(jen.Lit(1)),
			).Else().Block(
				jen.Id("s").Dot("observe").Call(jen.Id("v").Dot("ID")),
			))
		}
		val := jen.Id("v")
		switch s.g.Ownership {
		case gen.Shared:
			val = jen.Id("w").Op(":=").Qual(gen.RuntimePkg, "NewCell").Call(jen.Op("*").Id("v"))
		case gen.Locked:
			val = jen.Id("w").Op(":=").Qual(gen.RuntimePkg, "NewLocked").Call(jen.Op("*").Id("v"))
		}
		ret := "v"
		if s.g.Ownership != gen.Exclusive {
			body = append(body, val)
			ret = "w"
		}
		body = append(body, field.Clone().Index(jen.Id("v").Dot("ID")).Op("=").Id(ret))
		if s.g.PersistTimestamps {
			body = append(body, jen.Id("s").Dot(t.StampField()).Index(jen.Id("v").Dot("ID")).Op("=").Qual("time", "Now").Call())
		}
		body = append(body, jen.Return(jen.Id(ret)))
		desc := "adds v to the store, replacing any instance with the same id, and returns the stored element."
		if s.g.IDStrategy == gen.IDIndex {
			desc = "adds v to the store, assigning the next id when v has none. It replaces any instance with the same id and returns the stored element."
		}
		f.Comment(fmt.Sprintf("Intern%s %s", t.Name, desc))
		f.Func().Params(recvr.Clone()).Id("Intern"+t.Name).Params(jen.Id("v").Op("*").Id(t.Name)).Add(w.Clone()).Block(body...)
		f.Line()

		// Exhume
		f.Comment(fmt.Sprintf("Exhume%s returns the %s with the given id.", t.Name, t.Name))
		f.Func().Params(recvr.Clone()).Id("Exhume"+t.Name).Params(jen.Id("id").Id(t.IDName())).Params(w.Clone(), jen.Bool()).Block(append(s.lock(false),
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Add(field.Clone()).Index(jen.Id("id")),
			jen.Return(jen.Id("v"), jen.Id("ok")),
		)...)
		f.Line()

		// Iter
		f.Comment(fmt.Sprintf("Iter%s iterates over every %s in no particular order.", t.Name, t.Name))
		seq := jen.Qual("iter", "Seq").Types(w.Clone())
		if s.g.Ownership == gen.Locked {
			f.Func().Params(recvr.Clone()).Id("Iter"+t.Name).Params().Add(seq).Block(
				jen.Id("s").Dot("mu").Dot("RLock").Call(),
				jen.Id("vs").Op(":=").Qual("slices", "Collect").Call(jen.Qual("maps", "Values").Call(field.Clone())),
				jen.Id("s").Dot("mu").Dot("RUnlock").Call(),
				jen.Return(jen.Qual("slices", "Values").Call(jen.Id("vs"))),
			)
		} else {
			f.Func().Params(recvr.Clone()).Id("Iter"+t.Name).Params().Add(seq).Block(
				jen.Return(jen.Qual("maps", "Values").Call(field.Clone())),
			)
		}
		f.Line()

		// Count
		f.Comment(fmt.Sprintf("Count%s returns the number of %s instances.", t.Name, t.Name))
		f.Func().Params(recvr.Clone()).Id("Count"+t.Name).Params().Int().Block(append(s.lock(false),
			jen.Return(jen.Len(field.Clone())),
		)...)

		if !s.g.PersistTimestamps {
			return
		}
		f.Line()
		f.Comment(fmt.Sprintf("%sStamp returns the time the %s with the given id was last interned.", t.Name, t.Name))
		f.Func().Params(recvr.Clone()).Id(t.Name+"Stamp").Params(jen.Id("id").Id(t.IDName())).Params(jen.Qual("time", "Time"), jen.Bool()).Block(append(s.lock(false),
			jen.List(jen.Id("at"), jen.Id("ok")).Op(":=").Id("s").Dot(t.StampField()).Index(jen.Id("id")),
			jen.Return(jen.Id("at"), jen.Id("ok")),
		)...)
	})
}

// elem returns the persisted element type of t.
func (s *synth) elem(t *gen.Type) *jen.Statement {
	if s.g.PersistTimestamps {
		return jen.Qual(gen.RuntimePkg, "Stamped").Types(jen.Id(t.Name))
	}
	return jen.Id(t.Name)
}

// codec returns the codec expression of the configured persistence format.
func (s *synth) codec() *jen.Statement {
	if s.g.PersistFormat == "msgpack" {
		return jen.Qual(gen.RuntimePkg, "Msgpack")
	}
	return jen.Qual(gen.RuntimePkg, "JSON")
}

// collectionVar returns the local variable holding the collection of t.
func collectionVar(t *gen.Type) string {
	name := t.StoreField()
	switch name {
	case "s", "root", "v", "x", "i", "err", "snap":
		name += "s_"
	}
	return name
}

func (s *synth) persist(f *jen.File) {
	gen.Block(f, merge.CommentOrig, "object-store-persist", func(f *jen.File) {
		f.Comment(fmt.Sprintf("Persist writes every instance to <root>/%s. The previous content of the directory is replaced only once every collection is written.", s.g.Package()))
		f.Func().Params(jen.Id("s").Op("*").Id("ObjectStore")).Id("Persist").Params(jen.Id("root").String()).Error().BlockFunc(func(g *jen.Group) {
			for _, c := range s.lock(false) {
				g.Add(c)
			}
			cols := []jen.Code{jen.Id("root"), jen.Lit(s.g.Package()), s.codec()}
			for _, t := range s.g.Stored() {
				name := collectionVar(t)
				g.Id(name).Op(":=").Make(jen.Index().Add(s.elem(t)), jen.Lit(0), jen.Len(jen.Id("s").Dot(t.StoreField())))
				var x jen.Code = jen.Op("*").Id("v")
				if s.g.Ownership != gen.Exclusive {
					x = jen.Id("v").Dot("Read").Call()
				}
				var item jen.Code = jen.Id("x")
				if s.g.PersistTimestamps {
					item = s.elem(t).Values(jen.Dict{
						jen.Id("Value"): jen.Id("x"),
						jen.Id("Stamp"): jen.Id("s").Dot(t.StampField()).Index(jen.Id("x").Dot("ID")),
					})
				}
				g.For(jen.List(jen.Id("_"), jen.Id("v")).Op(":=").Range().Id("s").Dot(t.StoreField())).Block(
					jen.Id("x").Op(":=").Add(x),
					jen.Id(name).Op("=").Append(jen.Id(name), item),
				)
				id := func(v string) *jen.Statement {
					if s.g.PersistTimestamps {
						return jen.Id(v).Dot("Value").Dot("ID")
					}
					return jen.Id(v).Dot("ID")
				}
				g.Qual("slices", "SortFunc").Call(jen.Id(name), jen.Func().Params(jen.List(jen.Id("a"), jen.Id("b")).Add(s.elem(t))).Int().Block(
					jen.Return(jen.Qual(gen.RuntimePkg, "CompareID").Call(id("a"), id("b"))),
				))
				cols = append(cols, jen.Qual(gen.RuntimePkg, "Collection").Values(jen.Dict{
					jen.Id("Name"):  jen.Lit(t.Collection()),
					jen.Id("Len"):   jen.Len(jen.Id(name)),
					jen.Id("Value"): jen.Id(name),
				}))
			}
			g.Return(jen.Qual(gen.RuntimePkg, "Persist").Call(cols...))
		})
	})
}

func (s *synth) load(f *jen.File) {
	gen.Block(f, merge.CommentOrig, "object-store-load", func(f *jen.File) {
		f.Comment("LoadObjectStore reads a store written by Persist. It fails when the directory is incomplete.")
		f.Func().Id("LoadObjectStore").Params(jen.Id("root").String()).Params(jen.Op("*").Id("ObjectStore"), jen.Error()).BlockFunc(func(g *jen.Group) {
			g.List(jen.Id("snap"), jen.Err()).Op(":=").Qual(gen.RuntimePkg, "Load").Call(jen.Id("root"), jen.Lit(s.g.Package()))
			g.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err()))
			g.Id("s").Op(":=").Id("NewObjectStore").Call()
			for _, t := range s.g.Stored() {
				name := collectionVar(t)
				g.Var().Id(name).Index().Add(s.elem(t))
				g.If(jen.Err().Op(":=").Id("snap").Dot("Decode").Call(jen.Lit(t.Collection()), jen.Op("&").Id(name)), jen.Err().Op("!=").Nil()).Block(
					jen.Return(jen.Nil(), jen.Err()),
				)
				var loop []jen.Code
				if s.g.PersistTimestamps {
					loop = []jen.Code{
						jen.Id("s").Dot("Intern" + t.Name).Call(jen.Op("&").Id(name).Index(jen.Id("i")).Dot("Value")),
						jen.Id("s").Dot(t.StampField()).Index(jen.Id(name).Index(jen.Id("i")).Dot("Value").Dot("ID")).Op("=").Id(name).Index(jen.Id("i")).Dot("Stamp"),
					}
				} else {
					loop = []jen.Code{jen.Id("s").Dot("Intern" + t.Name).Call(jen.Op("&").Id(name).Index(jen.Id("i")))}
				}
				g.For(jen.Id("i").Op(":=").Range().Id(name)).Block(loop...)
			}
			g.Return(jen.Id("s"), jen.Nil())
		})
	})
}
