package gen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/loom/compiler/load"
)

type (
	// Type represents one object of the domain.
	Type struct {
		// Name is the Go type name, Label the name used in the model.
		Name        string
		Label       string
		Description string
		// Fields are the attributes in model order.
		Fields []*Field
		// Edges are sorted by relationship id, then kind.
		Edges []*Edge
		// Supertype is set on subtypes.
		Supertype *Type
		// Subtypes, in model order, is set on supertypes.
		Subtypes []*Type
		// hybrid is the model flag of the isa relationship.
		hybrid bool
		// singleton is the 1-based position of the type among the
		// singletons of the graph; zero for other types.
		singleton int
	}

	// Field is an attribute of a type.
	Field struct {
		Name        string
		Type        load.Type
		Description string
		// Ref is the referenced type of a Reference attribute.
		Ref *Type
	}

	// Edge is one side of a relationship.
	Edge struct {
		Kind   EdgeKind
		Rel    int
		Owner  *Type
		Target *Type
		// Attribute names the formalizing foreign key. On backward edges it
		// is the key held by the target.
		Attribute      string
		Cardinality    load.Cardinality
		Conditionality load.Conditionality
		// Reverse tells whether every referent has a referrer.
		Reverse     load.Conditionality
		Description string
		// twin marks associative edges whose two referents are the same
		// object.
		twin bool
	}
)

// EdgeKind is the role an edge plays for its owner.
type EdgeKind uint8

// Edge kinds.
const (
	// EdgeForward is held by the referrer of a binary relationship.
	EdgeForward EdgeKind = iota + 1
	// EdgeBackward is held by the referent of a binary relationship.
	EdgeBackward
	// EdgeAssocForward is held twice by the junction of an associative
	// relationship.
	EdgeAssocForward
	// EdgeAssocBackward is held by each referent of an associative
	// relationship.
	EdgeAssocBackward
	// EdgeSubtype is held by a subtype and points at its supertype.
	EdgeSubtype
	// EdgeSupertype is held by a supertype and points at one subtype.
	EdgeSupertype
)

var edgeKindNames = [...]string{
	EdgeForward:       "forward",
	EdgeBackward:      "backward",
	EdgeAssocForward:  "assoc-forward",
	EdgeAssocBackward: "assoc-backward",
	EdgeSubtype:       "subtype",
	EdgeSupertype:     "supertype",
}

func (k EdgeKind) String() string {
	if k > 0 && int(k) < len(edgeKindNames) {
		return edgeKindNames[k]
	}
	return fmt.Sprintf("EdgeKind(%d)", k)
}

// Nav is the shape of a navigation method.
type Nav uint8

// Navigation shapes.
const (
	// NavLookup returns one element and panics when it is missing.
	NavLookup Nav = iota + 1
	// NavOptional follows an optional key and returns zero or one element.
	NavOptional
	// NavExactlyOne scans and asserts a single match.
	NavExactlyOne
	// NavAtMostOne scans and asserts at most one match.
	NavAtMostOne
	// NavScan scans and returns every match.
	NavScan
	// NavVariant returns the subtype instance, or nil for another variant.
	NavVariant
	// NavIsVariant reports whether a singleton subtype is the variant.
	NavIsVariant
	// NavSuperScan returns every supertype instance built on a shared
	// subtype instance.
	NavSuperScan
)

// Many reports whether the navigation returns a slice.
func (n Nav) Many() bool {
	return n == NavOptional || n == NavAtMostOne || n == NavScan || n == NavSuperScan
}

// IDName returns the name of the id alias of the type.
func (t *Type) IDName() string { return t.Name + "ID" }

// KindName returns the name of the discriminant enum of a supertype.
func (t *Type) KindName() string { return t.Name + "Kind" }

// KindConst returns the enum constant of the given leaf variant.
func (t *Type) KindConst(leaf *Type) string { return t.KindName() + leaf.Name }

// SubtypeName returns the name of the discriminant struct of a hybrid
// supertype.
func (t *Type) SubtypeName() string { return t.Name + "Subtype" }

// SingletonName returns the name of the constant id of a singleton.
func (t *Type) SingletonName() string { return t.Name + "Singleton" }

// Receiver returns the receiver name of the type.
func (t *Type) Receiver() string { return receiver(t.Name) }

// File returns the name of the generated file of the type.
func (t *Type) File() string { return snake(t.Name) + ".go" }

// Tag returns the scope tag of a block of the type.
//
//	LineItem.Tag("struct") => line-item-struct
func (t *Type) Tag(scope string) string { return kebab(t.Name) + "-" + scope }

// Collection returns the name of the persisted collection of the type.
func (t *Type) Collection() string { return snake(t.Name) }

// StoreField returns the name of the store map holding the type.
func (t *Type) StoreField() string { return AsIdent(plural(t.Name)) }

// StampField returns the name of the store map holding intern times.
func (t *Type) StampField() string { return AsIdent(t.Name) + "Stamps" }

// IsSupertype reports whether the type is partitioned by subtypes.
func (t *Type) IsSupertype() bool { return len(t.Subtypes) > 0 }

// IsSubtype reports whether the type specializes a supertype.
func (t *Type) IsSubtype() bool { return t.Supertype != nil }

// IsSingleton reports whether the type is a subtype rendered as a constant
// id: it has no attributes, takes no part in a binary or associative
// relationship and is not itself a supertype.
func (t *Type) IsSingleton() bool { return t.singleton > 0 }

func (t *Type) singletonCandidate() bool {
	if t.Supertype == nil || t.IsSupertype() || len(t.Fields) > 0 {
		return false
	}
	for _, e := range t.Edges {
		if e.Kind != EdgeSubtype {
			return false
		}
	}
	return true
}

// SingletonIndex returns the 1-based position of a singleton among the
// singletons of the graph.
func (t *Type) SingletonIndex() int { return t.singleton }

// IsHybrid reports whether a supertype is rendered as a struct with a
// discriminant next to its own data. That is the case when the model says
// so, or when the supertype has attributes or foreign keys of its own.
func (t *Type) IsHybrid() bool {
	if !t.IsSupertype() {
		return false
	}
	return t.hybrid || len(t.Fields) > 0 || len(t.ForeignKeys()) > 0
}

// Stored reports whether instances of the type live in the store.
func (t *Type) Stored() bool { return !t.IsSingleton() }

// Leaves returns the leaf variants of a supertype sorted by name. Nested
// isa levels are flattened.
func (t *Type) Leaves() []*Type {
	var leaves []*Type
	for _, s := range t.Subtypes {
		if s.IsSupertype() {
			leaves = append(leaves, s.Leaves()...)
		} else {
			leaves = append(leaves, s)
		}
	}
	slices.SortFunc(leaves, func(a, b *Type) int { return strings.Compare(a.Name, b.Name) })
	return leaves
}

// Path returns the chain of types from t down to leaf, both included, or
// nil when leaf is not a variant of t.
func (t *Type) Path(leaf *Type) []*Type {
	if t == leaf {
		return []*Type{t}
	}
	for _, s := range t.Subtypes {
		if p := s.Path(leaf); p != nil {
			return append([]*Type{t}, p...)
		}
	}
	return nil
}

// PreInterned reports whether the store creates the t instance of the
// singleton variant leaf up front. That holds when every supertype from t
// down to leaf is plain, so the instance carries no data.
func (t *Type) PreInterned(leaf *Type) bool {
	if !leaf.IsSingleton() {
		return false
	}
	p := t.Path(leaf)
	if len(p) < 2 {
		return false
	}
	for _, s := range p[:len(p)-1] {
		if s.IsHybrid() {
			return false
		}
	}
	return true
}

// SharedVariant reports whether the instance of leaf reached through t is
// shared by many supertype instances, so that a supertype built on it
// needs an id of its own.
func (t *Type) SharedVariant(leaf *Type) bool {
	return (t == leaf && leaf.IsSingleton()) || t.PreInterned(leaf)
}

// ForeignKeys returns the edges that contribute a key field.
func (t *Type) ForeignKeys() []*Edge {
	var fks []*Edge
	for _, e := range t.Edges {
		if e.Kind == EdgeForward || e.Kind == EdgeAssocForward {
			fks = append(fks, e)
		}
	}
	return fks
}

// SuperEdge returns the subtype edge of the type, or nil.
func (t *Type) SuperEdge() *Edge {
	for _, e := range t.Edges {
		if e.Kind == EdgeSubtype {
			return e
		}
	}
	return nil
}

// StructField returns the Go field name of the attribute.
func (f *Field) StructField() string { return AsType(f.Name) }

// Param returns the constructor parameter name of the attribute.
func (f *Field) Param() string { return AsIdent(f.Name) }

// JSONName returns the json key of the attribute.
func (f *Field) JSONName() string { return snake(f.StructField()) }

// Optional reports whether the key of a forward edge may be unset.
func (e *Edge) Optional() bool {
	return e.Kind == EdgeForward && e.Conditionality == load.Conditional
}

// FKField returns the Go field name of the foreign key.
//
//	customer => CustomerID
//	owner_id => OwnerID
func (e *Edge) FKField() string {
	name := AsType(e.Attribute)
	if strings.HasSuffix(name, "ID") && len(name) > 2 {
		return name
	}
	return name + "ID"
}

// FKParam returns the constructor parameter name of the foreign key.
func (e *Edge) FKParam() string { return AsIdent(e.Attribute) }

// FKJSONName returns the json key of the foreign key.
func (e *Edge) FKJSONName() string { return snake(e.FKField()) }

// Reflexive reports whether both sides of the edge are the same type.
func (e *Edge) Reflexive() bool { return e.Owner == e.Target }

// Method returns the name of the navigation method of the edge.
//
//	R1Customer          forward, assoc forward, subtype, supertype
//	R1Account           backward
//	R1CustomerReferrers reflexive backward
//	R4OrderLine         assoc forward between two referents of one type
func (e *Edge) Method() string {
	prefix := fmt.Sprintf("R%d", e.Rel)
	switch e.Kind {
	case EdgeBackward:
		if e.Reflexive() {
			return prefix + e.Target.Name + "Referrers"
		}
	case EdgeAssocForward:
		if e.twin {
			return prefix + AsType(e.Attribute)
		}
	case EdgeAssocBackward:
		if e.twin {
			return prefix + e.Target.Name + "By" + AsType(e.Attribute)
		}
	}
	return prefix + e.Target.Name
}

// Tag returns the scope tag of the navigation block of the edge.
func (e *Edge) Tag() string { return e.Owner.Tag(kebab(e.Method())) }

// Nav returns the shape of the navigation method of the edge.
func (e *Edge) Nav() Nav {
	switch e.Kind {
	case EdgeForward:
		if e.Optional() {
			return NavOptional
		}
		return NavLookup
	case EdgeBackward:
		switch {
		case e.Cardinality == load.Many:
			return NavScan
		case e.Reverse == load.Unconditional:
			return NavExactlyOne
		default:
			return NavAtMostOne
		}
	case EdgeAssocForward:
		return NavLookup
	case EdgeAssocBackward:
		return NavScan
	case EdgeSubtype:
		for _, leaf := range e.Owner.Leaves() {
			if e.Target.IsHybrid() && e.Owner.PreInterned(leaf) {
				return NavSuperScan
			}
		}
		return NavLookup
	case EdgeSupertype:
		if e.Target.IsSingleton() {
			return NavIsVariant
		}
		return NavVariant
	}
	return 0
}

// ScanOptional reports whether a backward scan compares against an
// optional key of the target.
func (e *Edge) ScanOptional() bool {
	return e.Kind == EdgeBackward && e.Conditionality == load.Conditional
}

func compareEdges(a, b *Edge) int {
	if a.Rel != b.Rel {
		return a.Rel - b.Rel
	}
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	if c := strings.Compare(a.Target.Name, b.Target.Name); c != 0 {
		return c
	}
	return strings.Compare(a.Attribute, b.Attribute)
}
