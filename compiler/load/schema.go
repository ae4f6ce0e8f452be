// Package load reads loom metamodels: domains of objects, their attributes
// and the relationships between them.
package load

import (
	"fmt"
	"strings"
)

// Domain is a metamodel loaded from a model file. It is read-only to the
// generator.
type Domain struct {
	Name          string          `json:"name" yaml:"name"`
	Description   string          `json:"description,omitempty" yaml:"description,omitempty"`
	Objects       []*Object       `json:"objects,omitempty" yaml:"objects,omitempty"`
	Relationships []*Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// Object describes one kind of instance of a domain.
type Object struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Attributes  []*Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Attribute is a named, typed value held by an object.
type Attribute struct {
	Name        string `json:"name" yaml:"name"`
	Type        Type   `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// TypeKind enumerates attribute types.
type TypeKind uint8

// Attribute type kinds.
const (
	TypeInvalid TypeKind = iota
	TypeBoolean
	TypeString
	TypeUUID
	TypeFloat
	TypeInteger
	TypeReference
)

var kindNames = [...]string{
	TypeInvalid:   "invalid",
	TypeBoolean:   "boolean",
	TypeString:    "string",
	TypeUUID:      "uuid",
	TypeFloat:     "float",
	TypeInteger:   "integer",
	TypeReference: "reference",
}

// String returns the kind name.
func (k TypeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("TypeKind(%d)", k)
}

// Type is an attribute type. Ref holds the referenced object name of a
// TypeReference.
type Type struct {
	Kind TypeKind
	Ref  string
}

// Reference returns a reference type to the named object.
func Reference(object string) Type {
	return Type{Kind: TypeReference, Ref: object}
}

// String returns the textual form of the type.
func (t Type) String() string {
	if t.Kind == TypeReference {
		return "&" + t.Ref
	}
	return t.Kind.String()
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if t.Kind == TypeInvalid || (t.Kind == TypeReference && t.Ref == "") {
		return nil, fmt.Errorf("load: cannot marshal invalid type %v", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Accepted forms are
// boolean, bool, string, uuid, float, integer, int and &<Object>.
func (t *Type) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	switch strings.ToLower(s) {
	case "boolean", "bool":
		*t = Type{Kind: TypeBoolean}
	case "string":
		*t = Type{Kind: TypeString}
	case "uuid":
		*t = Type{Kind: TypeUUID}
	case "float":
		*t = Type{Kind: TypeFloat}
	case "integer", "int":
		*t = Type{Kind: TypeInteger}
	default:
		ref, ok := strings.CutPrefix(s, "&")
		ref = strings.TrimSpace(ref)
		if !ok || ref == "" {
			return fmt.Errorf("load: unknown attribute type %q", s)
		}
		*t = Reference(ref)
	}
	return nil
}

// Cardinality tells how many referrers may refer to one referent.
type Cardinality uint8

// Cardinality values.
const (
	One Cardinality = iota
	Many
)

// String returns the cardinality name.
func (c Cardinality) String() string {
	if c == Many {
		return "many"
	}
	return "one"
}

// MarshalText implements encoding.TextMarshaler.
func (c Cardinality) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cardinality) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "one", "1":
		*c = One
	case "many", "n", "*":
		*c = Many
	default:
		return fmt.Errorf("load: unknown cardinality %q", text)
	}
	return nil
}

// Conditionality tells whether one side of a binary relationship is
// mandatory.
type Conditionality uint8

// Conditionality values.
const (
	Unconditional Conditionality = iota
	Conditional
)

// String returns the conditionality name.
func (c Conditionality) String() string {
	if c == Conditional {
		return "conditional"
	}
	return "unconditional"
}

// MarshalText implements encoding.TextMarshaler.
func (c Conditionality) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Conditionality) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "unconditional", "required":
		*c = Unconditional
	case "conditional", "optional":
		*c = Conditional
	default:
		return fmt.Errorf("load: unknown conditionality %q", text)
	}
	return nil
}

// Relationship is a numbered relationship of a domain. Exactly one of
// Binary, Isa and Associative is set.
type Relationship struct {
	ID          int          `json:"id" yaml:"id"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Binary      *Binary      `json:"binary,omitempty" yaml:"binary,omitempty"`
	Isa         *Isa         `json:"isa,omitempty" yaml:"isa,omitempty"`
	Associative *Associative `json:"associative,omitempty" yaml:"associative,omitempty"`
}

// Kind returns the name of the relationship kind.
func (r *Relationship) Kind() string {
	switch {
	case r.Binary != nil:
		return "binary"
	case r.Isa != nil:
		return "isa"
	case r.Associative != nil:
		return "associative"
	default:
		return "none"
	}
}

// Binary is a relationship where the referrer holds a foreign key to the
// referent.
type Binary struct {
	Referrer string `json:"referrer" yaml:"referrer"`
	Referent string `json:"referent" yaml:"referent"`
	// Attribute names the foreign key on the referrer.
	Attribute      string         `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Cardinality    Cardinality    `json:"cardinality,omitempty" yaml:"cardinality,omitempty"`
	Conditionality Conditionality `json:"conditionality,omitempty" yaml:"conditionality,omitempty"`
	// ReferrerConditionality tells whether every referent must be referred
	// to. It defaults to Conditional.
	ReferrerConditionality *Conditionality `json:"referrer_conditionality,omitempty" yaml:"referrer_conditionality,omitempty"`
}

// ReverseConditionality returns the referrer conditionality with its
// default applied.
func (b *Binary) ReverseConditionality() Conditionality {
	if b.ReferrerConditionality == nil {
		return Conditional
	}
	return *b.ReferrerConditionality
}

// Isa partitions a supertype into subtypes.
type Isa struct {
	Supertype string   `json:"supertype" yaml:"supertype"`
	Subtypes  []string `json:"subtypes" yaml:"subtypes"`
	Hybrid    bool     `json:"hybrid,omitempty" yaml:"hybrid,omitempty"`
}

// Associative is a many to many relationship formalized by a junction
// object with a foreign key to each side.
type Associative struct {
	Referrer       string `json:"referrer" yaml:"referrer"`
	One            string `json:"one" yaml:"one"`
	OneAttribute   string `json:"one_attribute,omitempty" yaml:"one_attribute,omitempty"`
	Other          string `json:"other" yaml:"other"`
	OtherAttribute string `json:"other_attribute,omitempty" yaml:"other_attribute,omitempty"`
}

// Object returns the named object, or nil.
func (d *Domain) Object(name string) *Object {
	for _, o := range d.Objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Validate checks the shape of the domain. Names are required and every
// relationship must set exactly one kind. Cross references are resolved by
// the generator.
func (d *Domain) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("load: domain name is required")
	}
	for i, o := range d.Objects {
		if o == nil || strings.TrimSpace(o.Name) == "" {
			return fmt.Errorf("load: object #%d has no name", i)
		}
		for j, a := range o.Attributes {
			if a == nil || strings.TrimSpace(a.Name) == "" {
				return fmt.Errorf("load: attribute #%d of %s has no name", j, o.Name)
			}
			if a.Type.Kind == TypeInvalid {
				return fmt.Errorf("load: attribute %s.%s has no type", o.Name, a.Name)
			}
		}
	}
	ids := make(map[int]bool, len(d.Relationships))
	for i, r := range d.Relationships {
		if r == nil {
			return fmt.Errorf("load: relationship #%d is empty", i)
		}
		if r.ID <= 0 {
			return fmt.Errorf("load: relationship #%d needs a positive id", i)
		}
		if ids[r.ID] {
			return fmt.Errorf("load: duplicate relationship id R%d", r.ID)
		}
		ids[r.ID] = true
		n := 0
		for _, set := range []bool{r.Binary != nil, r.Isa != nil, r.Associative != nil} {
			if set {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("load: relationship R%d must set exactly one of binary, isa or associative", r.ID)
		}
		if r.Isa != nil && len(r.Isa.Subtypes) == 0 {
			return fmt.Errorf("load: isa relationship R%d has no subtypes", r.ID)
		}
	}
	return nil
}
