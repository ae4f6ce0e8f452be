// Package compiler is the entry point of loom: it turns a domain model into
// generated code for one of the supported targets.
//
// Example:
//
//	n, err := compiler.CompileFile(ctx, "model.yaml", "example.com/shop", "./gen",
//		gen.WithOwnership(gen.Locked),
//		gen.WithPersist(true),
//	)
package compiler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/syssam/loom/compiler/gen"
	"github.com/syssam/loom/compiler/gen/app"
	"github.com/syssam/loom/compiler/gen/domain"
	"github.com/syssam/loom/compiler/gen/graphql"
	"github.com/syssam/loom/compiler/load"
)

// NewBackend returns the backend of target writing under out.
func NewBackend(target gen.Target, g *gen.Graph, out string) (gen.Backend, error) {
	switch target {
	case gen.TargetDomain:
		return domain.NewBackend(g, out), nil
	case gen.TargetApplication:
		return app.NewBackend(g, out), nil
	case gen.TargetGraphQL:
		return graphql.NewBackend(g, out), nil
	default:
		return nil, gen.NewConfigError("Target", target, fmt.Sprintf("no backend for target %v", target))
	}
}

// Compile generates the code of dom under outputRoot and returns the number
// of files created or changed. moduleName is the import path of
// outputRoot; it is used by targets that import the domain package. dom is
// validated first, so a model built in code gets the same checks as one
// read by CompileFile.
func Compile(ctx context.Context, dom *load.Domain, moduleName, outputRoot string, opts ...gen.Option) (int, error) {
	if outputRoot == "" {
		return 0, gen.NewConfigError("OutputRoot", outputRoot, "output directory is required")
	}
	if dom == nil {
		return 0, gen.NewSchemaError("", "", "domain cannot be nil", nil)
	}
	if err := dom.Validate(); err != nil {
		return 0, gen.NewSchemaError("", "", "validate model", err)
	}
	cfg, err := gen.NewConfig(append([]gen.Option{gen.WithModule(moduleName)}, opts...)...)
	if err != nil {
		return 0, err
	}
	g, err := gen.NewGraph(cfg, dom)
	if err != nil {
		return 0, err
	}
	b, err := NewBackend(cfg.Target, g, outputRoot)
	if err != nil {
		return 0, err
	}
	cfg.Logger.Debug("compiling domain",
		zap.String("domain", dom.Name),
		zap.Int("objects", len(g.Nodes)),
		zap.Stringer("target", cfg.Target),
	)
	return b.Compile(ctx)
}

// CompileFile loads the model at path and compiles it.
func CompileFile(ctx context.Context, path, moduleName, outputRoot string, opts ...gen.Option) (int, error) {
	dom, err := load.File(path)
	if err != nil {
		return 0, gen.NewSchemaError("", "", "load model", err)
	}
	return Compile(ctx, dom, moduleName, outputRoot, opts...)
}
