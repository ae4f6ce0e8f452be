// Package graphql synthesizes a GraphQL schema describing the objects of a
// domain and their navigations. The schema is printed with the gqlparser
// formatter and validated by loading it back.
package graphql

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/syssam/loom/compiler/gen"
	"github.com/syssam/loom/compiler/load"
	"github.com/syssam/loom/compiler/merge"
)

// Synthesizer implements gen.Synthesizer for the GraphQL target.
type Synthesizer struct{}

var _ gen.Synthesizer = Synthesizer{}

// NewBackend returns the GraphQL backend writing to <out>/graphql.
func NewBackend(g *gen.Graph, out string) *gen.Generator {
	return gen.NewGenerator(g, Synthesizer{}, filepath.Join(out, "graphql"))
}

// Name implements gen.Synthesizer.
func (Synthesizer) Name() string { return "graphql" }

// Object implements gen.Synthesizer. The schema is a single file.
func (Synthesizer) Object(*gen.Graph, *gen.Type) ([]*gen.Artifact, error) {
	return nil, nil
}

// Domain implements gen.Synthesizer. It emits <package>.graphql.
func (Synthesizer) Domain(g *gen.Graph) ([]*gen.Artifact, error) {
	path := g.Package() + ".graphql"
	src, err := Schema(g)
	if err != nil {
		return nil, err
	}
	if _, err := gqlparser.LoadSchema(&ast.Source{Name: path, Input: string(src)}); err != nil {
		return nil, gen.NewGenerationError("validate", path, "schema does not load", err)
	}
	return []*gen.Artifact{{Path: path, Syntax: merge.GraphQL, Source: src}}, nil
}

// Schema returns the schema of g wrapped in merge markers.
func Schema(g *gen.Graph) ([]byte, error) {
	var body strings.Builder
	body.WriteString("\n")
	for _, t := range g.Stored() {
		def, err := object(t)
		if err != nil {
			return nil, err
		}
		body.WriteString(merge.GraphQL.Wrap(merge.CommentOrig, t.Tag("type"), format(def)))
		body.WriteString("\n")
		if t.IsSupertype() {
			body.WriteString(merge.GraphQL.Wrap(merge.CommentOrig, t.Tag("kind"), format(kind(t))))
			body.WriteString("\n")
		}
	}
	body.WriteString(merge.GraphQL.Wrap(merge.IgnoreOrig, "schema-implementation", ""))
	var out bytes.Buffer
	for _, line := range strings.Split(g.HeaderFor(g.Name), "\n") {
		fmt.Fprintf(&out, "# %s\n", line)
	}
	out.WriteString("\n")
	out.WriteString(merge.GraphQL.Wrap(merge.AllowEditing, "file", body.String()))
	return out.Bytes(), nil
}

func format(def *ast.Definition) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf, formatter.WithIndent("  ")).
		FormatSchemaDocument(&ast.SchemaDocument{Definitions: ast.DefinitionList{def}})
	return buf.String()
}

// object returns the object type of t.
func object(t *gen.Type) (*ast.Definition, error) {
	def := &ast.Definition{
		Kind:        ast.Object,
		Name:        t.Name,
		Description: t.Description,
		Fields: ast.FieldList{
			{Name: "id", Type: ast.NonNullNamedType("ID", nil)},
		},
	}
	if t.IsSupertype() {
		def.Fields = append(def.Fields, &ast.FieldDefinition{Name: "kind", Type: ast.NonNullNamedType(t.KindName(), nil)})
	}
	for _, f := range t.Fields {
		typ, err := scalar(f.Type)
		if err != nil {
			return nil, gen.NewSchemaError(t.Label, f.Name, "no GraphQL type", err)
		}
		def.Fields = append(def.Fields, &ast.FieldDefinition{
			Name:        fieldName(f.StructField()),
			Description: f.Description,
			Type:        ast.NonNullNamedType(typ, nil),
		})
	}
	for _, e := range t.ForeignKeys() {
		typ := ast.NonNullNamedType("ID", nil)
		if e.Optional() {
			typ = ast.NamedType("ID", nil)
		}
		def.Fields = append(def.Fields, &ast.FieldDefinition{Name: fieldName(e.FKField()), Type: typ})
	}
	for _, e := range t.Edges {
		def.Fields = append(def.Fields, &ast.FieldDefinition{
			Name:        fieldName(e.Method()),
			Description: e.Description,
			Type:        navType(e),
		})
	}
	return def, nil
}

// kind returns the enum of the variants of a supertype.
func kind(t *gen.Type) *ast.Definition {
	def := &ast.Definition{Kind: ast.Enum, Name: t.KindName()}
	for _, leaf := range t.Leaves() {
		def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{Name: leaf.Name})
	}
	return def
}

func scalar(t load.Type) (string, error) {
	switch t.Kind {
	case load.TypeBoolean:
		return "Boolean", nil
	case load.TypeString:
		return "String", nil
	case load.TypeUUID, load.TypeReference:
		return "ID", nil
	case load.TypeFloat:
		return "Float", nil
	case load.TypeInteger:
		return "Int", nil
	}
	return "", fmt.Errorf("unsupported attribute type %v", t.Kind)
}

func navType(e *gen.Edge) *ast.Type {
	switch nav := e.Nav(); {
	case nav == gen.NavIsVariant:
		return ast.NonNullNamedType("Boolean", nil)
	case nav == gen.NavVariant:
		return ast.NamedType(e.Target.Name, nil)
	case nav.Many():
		return ast.NonNullListType(ast.NonNullNamedType(e.Target.Name, nil), nil)
	default:
		return ast.NonNullNamedType(e.Target.Name, nil)
	}
}

// fieldName returns the lower camel form of a Go name.
func fieldName(name string) string {
	return strings.TrimSuffix(gen.AsIdent(name), "_")
}
