package domain

import (
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/loom/compiler/gen"
	"github.com/syssam/loom/compiler/merge"
)

// navBlock emits the navigation method of e.
func (s *synth) navBlock(f *jen.File, e *gen.Edge) {
	r := recv(e.Owner)
	nav := e.Nav()
	var (
		params = []jen.Code{s.storeParam()}
		result jen.Code
		body   []jen.Code
		what   string
	)
	switch nav {
	case gen.NavLookup:
		key := jen.Id(r).Dot("ID")
		if e.Kind != gen.EdgeSubtype {
			key = jen.Id(r).Dot(e.FKField())
		}
		result = s.wrap(e.Target)
		body = s.exhume(e.Target, key)
		what = fmt.Sprintf("returns the %s it refers to.", e.Target.Name)
	case gen.NavOptional:
		result = jen.Index().Add(s.wrap(e.Target))
		fk := jen.Id(r).Dot(e.FKField())
		body = append([]jen.Code{
			jen.If(fk.Clone().Op("==").Nil()).Block(jen.Return(jen.Nil())),
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("store").Dot("Exhume" + e.Target.Name).Call(jen.Op("*").Add(fk.Clone())),
		}, jen.Return(jen.Index().Add(s.wrap(e.Target)).Values(s.must(e.Target, jen.Op("*").Add(fk.Clone())))))
		what = fmt.Sprintf("returns the %s it refers to, if any.", e.Target.Name)
	case gen.NavExactlyOne:
		result = s.wrap(e.Target)
		body = append(s.scan(e, r), jen.Return(jen.Qual(gen.RuntimePkg, "MustOne").Call(jen.Id("found"), jen.Lit(e.Target.Name))))
		what = fmt.Sprintf("returns the %s referring to it.", e.Target.Name)
	case gen.NavAtMostOne:
		result = jen.Index().Add(s.wrap(e.Target))
		body = append(s.scan(e, r), jen.Return(jen.Qual(gen.RuntimePkg, "AtMostOne").Call(jen.Id("found"), jen.Lit(e.Target.Name))))
		what = fmt.Sprintf("returns the %s referring to it, if any.", e.Target.Name)
	case gen.NavScan, gen.NavSuperScan:
		result = jen.Index().Add(s.wrap(e.Target))
		body = append(s.scan(e, r), jen.Return(jen.Id("found")))
		what = fmt.Sprintf("returns every %s referring to it.", e.Target.Name)
		if nav == gen.NavSuperScan {
			what = fmt.Sprintf("returns every %s built on it.", e.Target.Name)
		}
	case gen.NavVariant:
		result = s.wrap(e.Target)
		body = s.variant(e, r)
		what = fmt.Sprintf("returns its %s variant, or nil.", e.Target.Name)
	case gen.NavIsVariant:
		params = nil
		result = jen.Bool()
		body = []jen.Code{jen.Return(s.kind(e.Owner, r).Op("==").Id(e.Owner.KindConst(e.Target)))}
		what = fmt.Sprintf("reports whether it is a %s.", e.Target.Name)
	default:
		return
	}
	gen.Block(f, merge.CommentOrig, e.Tag(), func(f *jen.File) {
		f.Comment(doc(e.Method(), e.Description, what))
		f.Func().Params(jen.Id(r).Op("*").Id(e.Owner.Name)).Id(e.Method()).Params(params...).Add(result).Block(body...)
	})
}

// exhume returns the statements fetching the t instance of key and
// panicking when it is missing.
func (s *synth) exhume(t *gen.Type, key *jen.Statement) []jen.Code {
	return []jen.Code{
		jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("store").Dot("Exhume" + t.Name).Call(key.Clone()),
		jen.Return(s.must(t, key.Clone())),
	}
}

func (s *synth) must(t *gen.Type, key jen.Code) *jen.Statement {
	return jen.Qual(gen.RuntimePkg, "Must").Call(jen.Id("v"), jen.Id("ok"), jen.Lit(t.Name), key)
}

// scan returns the statements collecting the instances of the target of e
// whose key equals the receiver id.
func (s *synth) scan(e *gen.Edge, r string) []jen.Code {
	var cond []jen.Code
	switch {
	case e.Kind == gen.EdgeSubtype:
		cond = []jen.Code{s.read("v").Dot("Subtype").Dot("ID").Op("==").Id(r).Dot("ID")}
	case e.ScanOptional():
		cond = []jen.Code{
			jen.Id("fk").Op(":=").Add(s.read("v")).Dot(e.FKField()),
			jen.Id("fk").Op("!=").Nil().Op("&&").Op("*").Id("fk").Op("==").Id(r).Dot("ID"),
		}
	default:
		cond = []jen.Code{s.read("v").Dot(e.FKField()).Op("==").Id(r).Dot("ID")}
	}
	return []jen.Code{
		jen.Var().Id("found").Index().Add(s.wrap(e.Target)),
		jen.For(jen.Id("v").Op(":=").Range().Id("store").Dot("Iter" + e.Target.Name).Call()).Block(
			jen.If(cond...).Block(jen.Id("found").Op("=").Append(jen.Id("found"), jen.Id("v"))),
		),
	}
}

// variant returns the body of a supertype to subtype navigation.
func (s *synth) variant(e *gen.Edge, r string) []jen.Code {
	leaves := []*gen.Type{e.Target}
	if e.Target.IsSupertype() {
		leaves = e.Target.Leaves()
	}
	var cases []jen.Code
	for _, leaf := range leaves {
		cases = append(cases, jen.Id(e.Owner.KindConst(leaf)))
	}
	id := jen.Id(r).Dot("ID")
	if e.Owner.IsHybrid() {
		id = jen.Id(r).Dot("Subtype").Dot("ID")
	}
	return []jen.Code{
		jen.Switch(s.kind(e.Owner, r)).Block(
			jen.Case(cases...).Block(s.exhume(e.Target, id)...),
		),
		jen.Return(jen.Nil()),
	}
}

// kind returns the discriminant of the receiver of a supertype.
func (s *synth) kind(t *gen.Type, r string) *jen.Statement {
	if t.IsHybrid() {
		return jen.Id(r).Dot("Subtype").Dot("Kind")
	}
	return jen.Id(r).Dot("Kind")
}
