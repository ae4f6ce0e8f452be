package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/loom/compiler/gen"
	"github.com/syssam/loom/compiler/load"
)

func ptr[T any](v T) *T { return &v }

func attr(name string, kind load.TypeKind) *load.Attribute {
	return &load.Attribute{Name: name, Type: load.Type{Kind: kind}}
}

// shopDomain covers every relationship shape:
//
//	R1 Order -> Customer       binary, many, unconditional
//	R2 Customer -> Customer    binary, reflexive, conditional
//	R3 LineItem(Order,Product) associative
//	R4 Party: Anonymous|Person plain isa with a singleton leaf
//	R5 Payment: Card|Cash      hybrid isa with a singleton leaf
//	R6 Payment -> Order        binary, one, every order is paid
func shopDomain() *load.Domain {
	return &load.Domain{
		Name: "shop",
		Objects: []*load.Object{
			{Name: "Customer", Description: "A person who buys things.", Attributes: []*load.Attribute{
				attr("name", load.TypeString),
				attr("email", load.TypeString),
			}},
			{Name: "Order", Attributes: []*load.Attribute{attr("total", load.TypeFloat)}},
			{Name: "Product", Attributes: []*load.Attribute{attr("sku", load.TypeString), attr("price", load.TypeFloat)}},
			{Name: "LineItem", Attributes: []*load.Attribute{attr("quantity", load.TypeInteger)}},
			{Name: "Party"},
			{Name: "Person", Attributes: []*load.Attribute{attr("name", load.TypeString)}},
			{Name: "Anonymous"},
			{Name: "Payment", Attributes: []*load.Attribute{attr("amount", load.TypeFloat)}},
			{Name: "Card", Attributes: []*load.Attribute{attr("number", load.TypeString)}},
			{Name: "Cash"},
		},
		Relationships: []*load.Relationship{
			{ID: 1, Binary: &load.Binary{Referrer: "Order", Referent: "Customer", Cardinality: load.Many}},
			{ID: 2, Binary: &load.Binary{Referrer: "Customer", Referent: "Customer", Attribute: "referred_by", Conditionality: load.Conditional}},
			{ID: 3, Associative: &load.Associative{Referrer: "LineItem", One: "Order", Other: "Product"}},
			{ID: 4, Isa: &load.Isa{Supertype: "Party", Subtypes: []string{"Person", "Anonymous"}}},
			{ID: 5, Isa: &load.Isa{Supertype: "Payment", Subtypes: []string{"Card", "Cash"}, Hybrid: true}},
			{ID: 6, Binary: &load.Binary{Referrer: "Payment", Referent: "Order", ReferrerConditionality: ptr(load.Unconditional)}},
		},
	}
}

func newTestGraph(t *testing.T, opts ...gen.Option) *gen.Graph {
	t.Helper()
	cfg, err := gen.NewConfig(append([]gen.Option{gen.WithModule("example.com/app")}, opts...)...)
	require.NoError(t, err)
	g, err := gen.NewGraph(cfg, shopDomain())
	require.NoError(t, err)
	return g
}

func typeOf(t *testing.T, g *gen.Graph, name string) *gen.Type {
	t.Helper()
	typ, ok := g.Type(name)
	require.True(t, ok, "type %s", name)
	return typ
}

// objectCode renders the file of the named object.
func objectCode(t *testing.T, g *gen.Graph, name string) string {
	t.Helper()
	f, err := newSynth(g).object(typeOf(t, g, name))
	require.NoError(t, err)
	return f.GoString()
}

func storeCode(t *testing.T, g *gen.Graph) string {
	t.Helper()
	f, err := newSynth(g).store()
	require.NoError(t, err)
	return f.GoString()
}
