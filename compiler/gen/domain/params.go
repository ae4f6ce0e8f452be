package domain

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/loom/compiler/gen"
)

// param is one constructor parameter. field or edge tells which part of
// the struct it fills.
type param struct {
	name  string
	typ   jen.Code
	field *gen.Field
	edge  *gen.Edge
}

// params is an ordered parameter list with unique names.
type params []*param

// reserved holds the names used by constructor bodies.
var reserved = map[string]bool{"store": true, "v": true, "ok": true, "sub": true, "subID": true}

// add appends a parameter named name. When the name is taken, alt is used
// instead, then underscores are appended until it is free.
func (ps *params) add(name, alt string, typ jen.Code, f *gen.Field, e *gen.Edge) {
	if ps.taken(name) {
		name = alt
	}
	for ps.taken(name) {
		name += "_"
	}
	*ps = append(*ps, &param{name: name, typ: typ, field: f, edge: e})
}

func (ps params) taken(name string) bool {
	if reserved[name] {
		return true
	}
	for _, p := range ps {
		if p.name == name {
			return true
		}
	}
	return false
}

// defs returns the parameter definitions followed by extra.
func (ps params) defs(extra ...jen.Code) []jen.Code {
	out := make([]jen.Code, 0, len(ps)+len(extra))
	for _, p := range ps {
		out = append(out, jen.Id(p.name).Add(p.typ))
	}
	return append(out, extra...)
}

// ids returns the parameter names as expressions.
func (ps params) ids() []jen.Code {
	out := make([]jen.Code, 0, len(ps))
	for _, p := range ps {
		out = append(out, jen.Id(p.name))
	}
	return out
}
