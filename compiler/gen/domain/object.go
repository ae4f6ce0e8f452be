package domain

import (
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/loom"
	"github.com/syssam/loom/compiler/gen"
	"github.com/syssam/loom/compiler/merge"
)

// object builds the file of t.
func (s *synth) object(t *gen.Type) (*jen.File, error) {
	return s.file(func(f *jen.File) error {
		if t.IsSingleton() {
			s.docBlock(f, t)
			gen.Close(f, merge.IgnoreOrig, t.Tag("doc"))
			s.idBlock(f, t)
		} else {
			s.idBlock(f, t)
			if t.IsSupertype() {
				s.kindBlock(f, t)
			}
			s.docBlock(f, t)
			gen.Close(f, merge.IgnoreOrig, t.Tag("doc"))
			if err := s.structBlock(f, t); err != nil {
				return err
			}
			if err := s.constructors(f, t); err != nil {
				return err
			}
			for _, e := range t.Edges {
				s.navBlock(f, e)
			}
		}
		gen.Block(f, merge.IgnoreOrig, t.Tag("implementation"), nil)
		return nil
	})
}

// docBlock opens the doc scope of t and writes its doc comment. The caller
// closes it right above the declaration it documents.
func (s *synth) docBlock(f *jen.File, t *gen.Type) {
	gen.Open(f, merge.IgnoreOrig, t.Tag("doc"))
	f.Comment(doc(t.Name, t.Description, fmt.Sprintf("is an object of the %s domain.", s.g.Name)))
}

func (s *synth) idBlock(f *jen.File, t *gen.Type) {
	gen.Block(f, merge.CommentOrig, t.Tag("id"), func(f *jen.File) {
		f.Comment(fmt.Sprintf("%s identifies a %s.", t.IDName(), t.Name))
		f.Type().Id(t.IDName()).Op("=").Add(s.g.IDType())
		if !t.IsSingleton() {
			return
		}
		f.Line()
		f.Comment(fmt.Sprintf("%s is the constant id of %s. It is never interned.", t.SingletonName(), t.Name))
		if s.g.IDStrategy == gen.IDIndex {
			f.Const().Id(t.SingletonName()).Id(t.IDName()).Op("=").Lit(-t.SingletonIndex())
			return
		}
		id := loom.SingletonID(s.g.Name, t.Name)
		f.Var().Id(t.SingletonName()).Op("=").Qual(gen.UUIDPkg, "MustParse").Call(jen.Lit(id.String()))
	})
}

func (s *synth) structBlock(f *jen.File, t *gen.Type) error {
	var fields []jen.Code
	fields = append(fields, jen.Id("ID").Id(t.IDName()).Tag(s.tags("id")))
	if t.IsSupertype() {
		if t.IsHybrid() {
			fields = append(fields, jen.Id("Subtype").Id(t.SubtypeName()).Tag(s.tags("subtype")))
		} else {
			fields = append(fields, jen.Id("Kind").Id(t.KindName()).Tag(s.tags("kind")))
		}
	}
	for _, fd := range t.Fields {
		typ, err := s.g.RenderType(fd.Type)
		if err != nil {
			return withObject(err, t, fd)
		}
		field := jen.Id(fd.StructField()).Add(typ).Tag(s.tags(fd.JSONName()))
		if desc := oneLine(fd.Description); desc != "" {
			field.Comment(desc)
		}
		fields = append(fields, field)
	}
	for _, e := range t.ForeignKeys() {
		typ := jen.Id(e.Target.IDName())
		if e.Optional() {
			typ = jen.Op("*").Id(e.Target.IDName())
		}
		fields = append(fields, jen.Id(e.FKField()).Add(typ).Tag(s.tags(e.FKJSONName())).Comment(fmt.Sprintf("R%d", e.Rel)))
	}
	gen.Block(f, merge.CommentOrig, t.Tag("struct"), func(f *jen.File) {
		f.Type().Id(t.Name).Struct(fields...)
	})
	return nil
}

// kindBlock emits the discriminant of a supertype: an enum over its leaf
// variants and, for hybrids, the struct pairing it with the variant id.
func (s *synth) kindBlock(f *jen.File, t *gen.Type) {
	leaves := t.Leaves()
	gen.Block(f, merge.CommentOrig, t.Tag("kind"), func(f *jen.File) {
		f.Comment(fmt.Sprintf("%s discriminates the variants of %s.", t.KindName(), t.Name))
		f.Type().Id(t.KindName()).Uint8()
		f.Line()
		f.Comment(fmt.Sprintf("Variants of %s.", t.Name))
		f.Const().DefsFunc(func(g *jen.Group) {
			for i, leaf := range leaves {
				if i == 0 {
					g.Id(t.KindConst(leaf)).Id(t.KindName()).Op("=").Iota().Op("+").Lit(1)
					continue
				}
				g.Id(t.KindConst(leaf))
			}
		})
		f.Line()
		f.Comment("String returns the name of the variant.")
		f.Func().Params(jen.Id("k").Id(t.KindName())).Id("String").Params().String().Block(
			jen.Switch(jen.Id("k")).BlockFunc(func(g *jen.Group) {
				for _, leaf := range leaves {
					g.Case(jen.Id(t.KindConst(leaf))).Block(jen.Return(jen.Lit(leaf.Name)))
				}
			}),
			jen.Return(jen.Qual("fmt", "Sprintf").Call(jen.Lit(t.KindName()+"(%d)"), jen.Id("k"))),
		)
		if !t.IsHybrid() {
			return
		}
		f.Line()
		f.Comment(fmt.Sprintf("%s identifies the variant instance of a %s.", t.SubtypeName(), t.Name))
		f.Type().Id(t.SubtypeName()).Struct(
			jen.Id("Kind").Id(t.KindName()).Tag(s.tags("kind")),
			jen.Id("ID").Add(s.g.IDType()).Tag(s.tags("id")),
		)
	})
}

// constructors emits New<T> for plain types and New<T><Leaf> per variant
// of a supertype.
func (s *synth) constructors(f *jen.File, t *gen.Type) error {
	if !t.IsSupertype() {
		return s.plainConstructor(f, t)
	}
	for _, leaf := range t.Leaves() {
		if err := s.variantConstructor(f, t, leaf); err != nil {
			return err
		}
	}
	return nil
}

func (s *synth) plainConstructor(f *jen.File, t *gen.Type) error {
	var ps params
	own, err := s.own(&ps, t)
	if err != nil {
		return err
	}
	lit := jen.Dict{}
	if id := s.freshID(t, nil, own); id != nil {
		lit[jen.Id("ID")] = id
	}
	s.assign(lit, t, own)
	name := "New" + t.Name
	gen.Block(f, merge.CommentOrig, t.Tag("new"), func(f *jen.File) {
		f.Comment(fmt.Sprintf("%s creates a %s and interns it in store.", name, t.Name))
		f.Func().Id(name).Params(ps.defs(s.storeParam())...).Add(s.wrap(t)).Block(
			jen.Id("v").Op(":=").Op("&").Id(t.Name).Values(lit),
			jen.Return(jen.Id("store").Dot("Intern"+t.Name).Call(jen.Id("v"))),
		)
	})
	return nil
}

func (s *synth) variantConstructor(f *jen.File, t, leaf *gen.Type) error {
	name := "New" + t.Name + leaf.Name
	tag := t.Tag("new-" + leaf.Tag("variant"))
	if t.PreInterned(leaf) {
		gen.Block(f, merge.CommentOrig, tag, func(f *jen.File) {
			f.Comment(fmt.Sprintf("%s returns the %s of the %s variant. The store creates it up front.", name, t.Name, leaf.Name))
			f.Func().Id(name).Params(s.storeParam()).Add(s.wrap(t)).Block(
				jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("store").Dot("Exhume"+t.Name).Call(jen.Id(leaf.SingletonName())),
				jen.Return(jen.Qual(gen.RuntimePkg, "Must").Call(jen.Id("v"), jen.Id("ok"), jen.Lit(t.Name), jen.Id(leaf.SingletonName()))),
			)
		})
		return nil
	}
	var ps params
	if err := s.variantParams(&ps, t, leaf); err != nil {
		return err
	}
	path := t.Path(leaf)
	child := path[1]
	n := s.variantParamCount(child, leaf)
	var (
		body  []jen.Code
		subID jen.Code
	)
	switch {
	case child == leaf && leaf.IsSingleton():
		subID = jen.Id(leaf.SingletonName())
	default:
		ctor := "New" + child.Name
		if child.IsSupertype() {
			ctor += leaf.Name
		}
		body = append(body,
			jen.Id("sub").Op(":=").Id(ctor).Call(append(ps[:n].ids(), jen.Id("store"))...),
			jen.Id("subID").Op(":=").Add(s.read("sub")).Dot("ID"),
		)
		subID = jen.Id("subID")
	}
	own := ps[n:]
	lit := jen.Dict{}
	kind := jen.Id(t.KindConst(leaf))
	switch {
	case child.SharedVariant(leaf):
		if id := s.freshID(t, kind, own); id != nil {
			lit[jen.Id("ID")] = id
		}
	default:
		lit[jen.Id("ID")] = subID
	}
	if t.IsHybrid() {
		lit[jen.Id("Subtype")] = jen.Id(t.SubtypeName()).Values(jen.Dict{
			jen.Id("Kind"): kind,
			jen.Id("ID"):   subID,
		})
	} else {
		lit[jen.Id("Kind")] = kind
	}
	s.assign(lit, t, own)
	body = append(body,
		jen.Id("v").Op(":=").Op("&").Id(t.Name).Values(lit),
		jen.Return(jen.Id("store").Dot("Intern"+t.Name).Call(jen.Id("v"))),
	)
	gen.Block(f, merge.CommentOrig, tag, func(f *jen.File) {
		f.Comment(fmt.Sprintf("%s creates a %s of the %s variant and interns both in store.", name, t.Name, leaf.Name))
		f.Func().Id(name).Params(ps.defs(s.storeParam())...).Add(s.wrap(t)).Block(body...)
	})
	return nil
}

// variantParams appends the parameters of New<t><leaf>: those of the child
// constructor first, then the own data of t when it is hybrid.
func (s *synth) variantParams(ps *params, t, leaf *gen.Type) error {
	if t == leaf {
		if leaf.IsSingleton() {
			return nil
		}
		_, err := s.own(ps, leaf)
		return err
	}
	if t.PreInterned(leaf) {
		return nil
	}
	if err := s.variantParams(ps, t.Path(leaf)[1], leaf); err != nil {
		return err
	}
	if t.IsHybrid() {
		_, err := s.own(ps, t)
		return err
	}
	return nil
}

// variantParamCount returns the number of parameters of the constructor of
// t for leaf.
func (s *synth) variantParamCount(t, leaf *gen.Type) int {
	var ps params
	if err := s.variantParams(&ps, t, leaf); err != nil {
		return 0
	}
	return len(ps)
}

// own appends the parameters carrying the attributes and keys of t, and
// returns them.
func (s *synth) own(ps *params, t *gen.Type) (params, error) {
	start := len(*ps)
	for _, fd := range t.Fields {
		typ, err := s.g.RenderType(fd.Type)
		if err != nil {
			return nil, withObject(err, t, fd)
		}
		ps.add(fd.Param(), gen.AsIdent(t.Name+" "+fd.Name), typ, fd, nil)
	}
	for _, e := range t.ForeignKeys() {
		var typ jen.Code = jen.Id(e.Target.IDName())
		if e.Optional() {
			typ = jen.Op("*").Id(e.Target.IDName())
		}
		ps.add(e.FKParam(), gen.AsIdent(t.Name+" "+e.Attribute+" id"), typ, nil, e)
	}
	return (*ps)[start:], nil
}

// assign sets the struct fields of t from its own parameters.
func (s *synth) assign(lit jen.Dict, t *gen.Type, own params) {
	for _, p := range own {
		switch {
		case p.field != nil:
			lit[jen.Id(p.field.StructField())] = jen.Id(p.name)
		case p.edge != nil:
			lit[jen.Id(p.edge.FKField())] = jen.Id(p.name)
		}
	}
}

// freshID returns the id expression of a new instance of t, or nil when
// the store assigns it. kind, when set, is hashed ahead of the parameters.
func (s *synth) freshID(t *gen.Type, kind jen.Code, own params) jen.Code {
	switch s.g.IDStrategy {
	case gen.IDRandom:
		return jen.Qual(gen.UUIDPkg, "New").Call()
	case gen.IDIndex:
		return nil
	}
	args := []jen.Code{jen.Lit(t.Name)}
	if kind != nil {
		args = append(args, kind)
	}
	return jen.Qual(gen.RuntimePkg, "HashID").Call(append(args, own.ids()...)...)
}

// withObject fills the location of a reference error.
func withObject(err error, t *gen.Type, f *gen.Field) error {
	if re, ok := err.(*gen.ReferenceError); ok && re.Object == "" {
		re.Object = t.Label
		re.Attribute = f.Name
	}
	return err
}
