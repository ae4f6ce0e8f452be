package gen

import (
	"fmt"
	"go/token"
	"path"
	"slices"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/loom/compiler/load"
)

// Import paths used by generated code.
const (
	RuntimePkg = "github.com/syssam/loom"
	UUIDPkg    = "github.com/google/uuid"
)

// Graph is the resolved form of a domain. It is built once per run and
// cloned for every synthesis task; a Graph is not safe for concurrent use.
type Graph struct {
	*Config
	// Name is the domain name as written in the model.
	Name        string
	Description string
	// Nodes are sorted by name.
	Nodes []*Type
	// Source is the model the graph was built from.
	Source *load.Domain

	index map[string]*Type
	memo  map[load.Type]string
}

// NewGraph resolves a domain in two passes. The first pass indexes every
// object by name; the second resolves attribute types and relationships
// through read-only lookups against that index.
func NewGraph(c *Config, dom *load.Domain) (*Graph, error) {
	if c == nil {
		return nil, NewConfigError("Config", nil, "config cannot be nil")
	}
	if dom == nil {
		return nil, NewSchemaError("", "", "domain cannot be nil", nil)
	}
	c.defaults()
	g := &Graph{
		Config:      c,
		Name:        dom.Name,
		Description: dom.Description,
		Source:      dom,
		index:       make(map[string]*Type, len(dom.Objects)),
		memo:        make(map[load.Type]string),
	}
	if err := g.index1(dom); err != nil {
		return nil, err
	}
	if err := g.resolve(dom); err != nil {
		return nil, err
	}
	if err := g.check(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) index1(dom *load.Domain) error {
	names := make(map[string]string)
	for _, o := range dom.Objects {
		if _, ok := g.index[o.Name]; ok {
			return NewSchemaError(o.Name, "", "duplicate object", nil)
		}
		t := &Type{Name: AsType(o.Name), Label: o.Name, Description: o.Description}
		if prev, ok := names[t.Name]; ok {
			return NewSchemaError(o.Name, "", fmt.Sprintf("renders to %s like %q", t.Name, prev), nil)
		}
		names[t.Name] = o.Name
		g.index[o.Name] = t
		g.Nodes = append(g.Nodes, t)
	}
	slices.SortFunc(g.Nodes, func(a, b *Type) int { return strings.Compare(a.Name, b.Name) })
	return nil
}

func (g *Graph) resolve(dom *load.Domain) error {
	for _, o := range dom.Objects {
		t := g.index[o.Name]
		for _, a := range o.Attributes {
			f := &Field{Name: a.Name, Type: a.Type, Description: a.Description}
			if a.Type.Kind == load.TypeReference {
				ref, ok := g.index[a.Type.Ref]
				if !ok {
					return &ReferenceError{Object: o.Name, Attribute: a.Name, Target: a.Type.Ref}
				}
				f.Ref = ref
			}
			t.Fields = append(t.Fields, f)
		}
	}
	rels := slices.Clone(dom.Relationships)
	slices.SortFunc(rels, func(a, b *load.Relationship) int { return a.ID - b.ID })
	for _, r := range rels {
		var err error
		switch {
		case r.Binary != nil:
			err = g.binary(r)
		case r.Associative != nil:
			err = g.associative(r)
		case r.Isa != nil:
			err = g.isa(r)
		}
		if err != nil {
			return err
		}
	}
	for _, t := range g.Nodes {
		slices.SortFunc(t.Edges, compareEdges)
	}
	n := 0
	for _, t := range g.Nodes {
		if t.singletonCandidate() {
			n++
			t.singleton = n
		}
	}
	return nil
}

func (g *Graph) lookup(rel int, from, name string) (*Type, error) {
	t, ok := g.index[name]
	if !ok {
		return nil, &ReferenceError{Object: from, Relationship: rel, Target: name}
	}
	return t, nil
}

func (g *Graph) binary(r *load.Relationship) error {
	b := r.Binary
	referrer, err := g.lookup(r.ID, b.Referent, b.Referrer)
	if err != nil {
		return err
	}
	referent, err := g.lookup(r.ID, b.Referrer, b.Referent)
	if err != nil {
		return err
	}
	attr := b.Attribute
	if attr == "" {
		attr = snake(referent.Name)
	}
	fwd := &Edge{
		Kind:           EdgeForward,
		Rel:            r.ID,
		Owner:          referrer,
		Target:         referent,
		Attribute:      attr,
		Cardinality:    b.Cardinality,
		Conditionality: b.Conditionality,
		Reverse:        b.ReverseConditionality(),
		Description:    r.Description,
	}
	back := *fwd
	back.Kind, back.Owner, back.Target = EdgeBackward, referent, referrer
	referrer.Edges = append(referrer.Edges, fwd)
	referent.Edges = append(referent.Edges, &back)
	return nil
}

func (g *Graph) associative(r *load.Relationship) error {
	a := r.Associative
	junction, err := g.lookup(r.ID, "", a.Referrer)
	if err != nil {
		return err
	}
	one, err := g.lookup(r.ID, a.Referrer, a.One)
	if err != nil {
		return err
	}
	other, err := g.lookup(r.ID, a.Referrer, a.Other)
	if err != nil {
		return err
	}
	oneAttr, otherAttr := a.OneAttribute, a.OtherAttribute
	if oneAttr == "" {
		oneAttr = snake(one.Name)
	}
	if otherAttr == "" {
		otherAttr = snake(other.Name)
	}
	if oneAttr == otherAttr {
		return NewSchemaError(junction.Label, oneAttr, fmt.Sprintf("relationship R%d uses the same key for both referents", r.ID), nil)
	}
	twin := one == other
	for _, side := range []struct {
		target *Type
		attr   string
	}{{one, oneAttr}, {other, otherAttr}} {
		junction.Edges = append(junction.Edges, &Edge{
			Kind: EdgeAssocForward, Rel: r.ID, Owner: junction, Target: side.target,
			Attribute: side.attr, Cardinality: load.One, Description: r.Description, twin: twin,
		})
		side.target.Edges = append(side.target.Edges, &Edge{
			Kind: EdgeAssocBackward, Rel: r.ID, Owner: side.target, Target: junction,
			Attribute: side.attr, Cardinality: load.Many, Conditionality: load.Conditional,
			Description: r.Description, twin: twin,
		})
	}
	return nil
}

func (g *Graph) isa(r *load.Relationship) error {
	is := r.Isa
	super, err := g.lookup(r.ID, "", is.Supertype)
	if err != nil {
		return err
	}
	if super.IsSupertype() {
		return NewSchemaError(super.Label, "", fmt.Sprintf("relationship R%d: object is already partitioned by R%d", r.ID, super.Subtypes[0].SuperEdge().Rel), nil)
	}
	super.hybrid = is.Hybrid
	for _, name := range is.Subtypes {
		sub, err := g.lookup(r.ID, super.Label, name)
		if err != nil {
			return err
		}
		switch {
		case sub == super:
			return NewSchemaError(super.Label, "", fmt.Sprintf("relationship R%d: object is its own subtype", r.ID), nil)
		case sub.Supertype == super:
			return NewSchemaError(sub.Label, "", fmt.Sprintf("relationship R%d: subtype listed twice", r.ID), nil)
		case sub.Supertype != nil:
			return NewSchemaError(sub.Label, "", fmt.Sprintf("relationship R%d: object already specializes %s", r.ID, sub.Supertype.Label), nil)
		}
		sub.Supertype = super
		super.Subtypes = append(super.Subtypes, sub)
		super.Edges = append(super.Edges, &Edge{Kind: EdgeSupertype, Rel: r.ID, Owner: super, Target: sub, Description: r.Description})
		sub.Edges = append(sub.Edges, &Edge{Kind: EdgeSubtype, Rel: r.ID, Owner: sub, Target: super, Description: r.Description})
	}
	for t := super.Supertype; t != nil; t = t.Supertype {
		if t == super {
			return NewSchemaError(super.Label, "", fmt.Sprintf("relationship R%d closes an isa cycle", r.ID), nil)
		}
	}
	return nil
}

// check rejects graphs whose generated identifiers would collide.
func (g *Graph) check() error {
	top := map[string]string{"ObjectStore": "the store"}
	claim := func(t *Type, name string) error {
		if prev, ok := top[name]; ok && prev != t.Label {
			return NewSchemaError(t.Label, "", fmt.Sprintf("identifier %s collides with %s", name, prev), nil)
		}
		top[name] = t.Label
		return nil
	}
	for _, t := range g.Nodes {
		names := []string{t.Name, t.IDName()}
		if t.IsSupertype() {
			names = append(names, t.KindName(), t.SubtypeName())
		}
		if t.IsSingleton() {
			names = append(names, t.SingletonName())
		}
		for _, n := range names {
			if err := claim(t, n); err != nil {
				return err
			}
		}
		fields := map[string]bool{"ID": true, "Kind": t.IsSupertype(), "Subtype": t.IsSupertype()}
		for _, f := range t.Fields {
			n := f.StructField()
			if fields[n] {
				return NewSchemaError(t.Label, f.Name, fmt.Sprintf("field %s is reserved or repeated", n), nil)
			}
			fields[n] = true
		}
		for _, e := range t.ForeignKeys() {
			n := e.FKField()
			if fields[n] {
				return NewSchemaError(t.Label, e.Attribute, fmt.Sprintf("relationship R%d: key field %s is reserved or repeated", e.Rel, n), nil)
			}
			fields[n] = true
		}
		methods := make(map[string]bool)
		for _, e := range t.Edges {
			m := e.Method()
			if methods[m] {
				return NewSchemaError(t.Label, "", fmt.Sprintf("relationship R%d: navigation %s is repeated", e.Rel, m), nil)
			}
			methods[m] = true
		}
	}
	return nil
}

// Package returns the Go package name of the domain.
func (g *Graph) Package() string {
	pkg := strings.ReplaceAll(snake(AsType(g.Name)), "_", "")
	if token.Lookup(pkg).IsKeyword() {
		pkg += "model"
	}
	return pkg
}

// PkgPath returns the import path of the domain package.
func (g *Graph) PkgPath() string {
	return path.Join(g.Module, g.Package())
}

// Type returns the type of the named object.
func (g *Graph) Type(name string) (*Type, bool) {
	t, ok := g.index[name]
	return t, ok
}

// Stored returns the types that live in the store.
func (g *Graph) Stored() []*Type {
	var ts []*Type
	for _, t := range g.Nodes {
		if t.Stored() {
			ts = append(ts, t)
		}
	}
	return ts
}

// Supertypes returns the supertypes of the graph.
func (g *Graph) Supertypes() []*Type {
	var ts []*Type
	for _, t := range g.Nodes {
		if t.IsSupertype() {
			ts = append(ts, t)
		}
	}
	return ts
}

// IDType returns the Go type of every id.
func (g *Graph) IDType() jen.Code {
	if g.IDStrategy == IDIndex {
		return jen.Int64()
	}
	return jen.Qual(UUIDPkg, "UUID")
}

// RenderType returns the Go type of a metamodel type. A reference renders
// as the id alias of the referenced object, a non-owning reference. It
// fails with a ReferenceError when that object is absent.
func (g *Graph) RenderType(t load.Type) (jen.Code, error) {
	switch t.Kind {
	case load.TypeBoolean:
		return jen.Bool(), nil
	case load.TypeString:
		return jen.String(), nil
	case load.TypeUUID:
		return jen.Qual(UUIDPkg, "UUID"), nil
	case load.TypeFloat:
		return jen.Float64(), nil
	case load.TypeInteger:
		return jen.Int64(), nil
	case load.TypeReference:
		if name, ok := g.memo[t]; ok {
			return jen.Id(name), nil
		}
		ref, ok := g.index[t.Ref]
		if !ok {
			return nil, &ReferenceError{Target: t.Ref}
		}
		g.memo[t] = ref.IDName()
		return jen.Id(ref.IDName()), nil
	}
	return nil, NewSchemaError("", "", fmt.Sprintf("cannot render type %v", t.Kind), nil)
}

// Clone returns a deep copy of the graph. The config is shared since it is
// immutable during a run.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Config:      g.Config,
		Name:        g.Name,
		Description: g.Description,
		Source:      g.Source,
		index:       make(map[string]*Type, len(g.index)),
		memo:        make(map[load.Type]string, len(g.memo)),
	}
	remap := make(map[*Type]*Type, len(g.Nodes))
	for _, t := range g.Nodes {
		nt := *t
		remap[t] = &nt
		c.Nodes = append(c.Nodes, &nt)
	}
	for label, t := range g.index {
		c.index[label] = remap[t]
	}
	for k, v := range g.memo {
		c.memo[k] = v
	}
	for _, nt := range c.Nodes {
		nt.Supertype = remap[nt.Supertype]
		nt.Subtypes = make([]*Type, len(nt.Subtypes))
		nt.Fields = make([]*Field, len(nt.Fields))
		nt.Edges = make([]*Edge, len(nt.Edges))
	}
	for _, t := range g.Nodes {
		nt := remap[t]
		for i, s := range t.Subtypes {
			nt.Subtypes[i] = remap[s]
		}
		for i, f := range t.Fields {
			nf := *f
			nf.Ref = remap[f.Ref]
			nt.Fields[i] = &nf
		}
		for i, e := range t.Edges {
			ne := *e
			ne.Owner, ne.Target = remap[e.Owner], remap[e.Target]
			nt.Edges[i] = &ne
		}
	}
	return c
}
