package gen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/syssam/loom/compiler/load"
	"github.com/syssam/loom/compiler/merge"
)

// textSynthesizer emits one text file per type and an index file.
type textSynthesizer struct {
	calls     atomic.Int32
	indexPath string
	objectErr error
}

func (*textSynthesizer) Name() string { return "text" }

func (s *textSynthesizer) Object(_ *Graph, t *Type) ([]*Artifact, error) {
	s.calls.Add(1)
	if s.objectErr != nil {
		return nil, s.objectErr
	}
	src := merge.GraphQL.Wrap(merge.IgnoreOrig, t.Tag("body"), t.Name)
	return []*Artifact{{Path: snake(t.Name) + ".txt", Syntax: merge.GraphQL, Source: []byte(src)}}, nil
}

func (s *textSynthesizer) Domain(g *Graph) ([]*Artifact, error) {
	path := s.indexPath
	if path == "" {
		path = "index.txt"
	}
	var names []string
	for _, t := range g.Nodes {
		names = append(names, t.Name)
	}
	src := merge.GraphQL.Wrap(merge.CommentOrig, "index", strings.Join(names, "\n"))
	return []*Artifact{{Path: path, Syntax: merge.GraphQL, Source: []byte(src)}}, nil
}

func textGraph(t *testing.T, opts ...Option) *Graph {
	t.Helper()
	cfg, err := NewConfig(append([]Option{WithModule("example.com/text")}, opts...)...)
	require.NoError(t, err)
	g, err := NewGraph(cfg, &load.Domain{
		Name: "text",
		Objects: []*load.Object{
			{Name: "Alpha"},
			{Name: "Beta"},
			{Name: "Gamma"},
		},
	})
	require.NoError(t, err)
	return g
}

// ============================================================================
// Generator
// ============================================================================

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	syn := &textSynthesizer{}
	g := NewGenerator(textGraph(t), syn, dir)
	assert.Equal(t, "text", g.Name())
	assert.Equal(t, dir, g.OutDir())

	n, err := g.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.EqualValues(t, 3, syn.calls.Load())
	for _, name := range []string{"alpha.txt", "beta.txt", "gamma.txt", "index.txt", FingerprintFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	t.Run("UpToDate", func(t *testing.T) {
		n, err := g.Compile(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.EqualValues(t, 3, syn.calls.Load(), "synthesis is skipped")
	})

	t.Run("AlwaysProcess", func(t *testing.T) {
		syn := &textSynthesizer{}
		n, err := NewGenerator(textGraph(t, WithAlwaysProcess(true)), syn, dir).Generate(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "unchanged files are not rewritten")
		assert.EqualValues(t, 3, syn.calls.Load())
	})

	t.Run("ConfigChange", func(t *testing.T) {
		syn := &textSynthesizer{}
		_, err := NewGenerator(textGraph(t, WithHeader("Other")), syn, dir).Generate(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, syn.calls.Load())
	})
}

func TestGenerator_WarnsAboutOrphans(t *testing.T) {
	dir := t.TempDir()
	orphan := merge.GraphQL.Wrap(merge.IgnoreOrig, "delta-body", "Delta")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "delta.txt"), []byte(orphan), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hand written"), 0o644))

	core, logs := observer.New(zapcore.WarnLevel)
	_, err := NewGenerator(textGraph(t, WithLogger(zap.New(core))), &textSynthesizer{}, dir).Generate(context.Background())
	require.NoError(t, err)

	warned := logs.FilterMessage("generated file is no longer produced").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "delta.txt", warned[0].ContextMap()["path"])
	assert.FileExists(t, filepath.Join(dir, "delta.txt"))
}

func TestGenerator_KeepsEditedBlocks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	_, err := NewGenerator(textGraph(t), &textSynthesizer{}, dir).Generate(ctx)
	require.NoError(t, err)

	path := filepath.Join(dir, "beta.txt")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	edited := strings.Replace(string(data), "\nBeta\n", "\nBeta edited by hand\n", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	n, err := NewGenerator(textGraph(t, WithAlwaysProcess(true)), &textSynthesizer{}, dir).Generate(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, edited, string(data))
}

func TestGenerator_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("DuplicatePath", func(t *testing.T) {
		dir := t.TempDir()
		_, err := NewGenerator(textGraph(t), &textSynthesizer{indexPath: "beta.txt"}, dir).Generate(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrGenerationFailed))
		assert.NoFileExists(t, filepath.Join(dir, "alpha.txt"))
	})

	t.Run("ObjectFailure", func(t *testing.T) {
		dir := t.TempDir()
		boom := errors.New("boom")
		_, err := NewGenerator(textGraph(t, WithWorkers(1)), &textSynthesizer{objectErr: boom}, dir).Generate(ctx)
		assert.ErrorIs(t, err, boom)
		assert.NoFileExists(t, filepath.Join(dir, FingerprintFile))
	})

	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		dir := t.TempDir()
		_, err := NewGenerator(textGraph(t), &textSynthesizer{}, dir).Generate(cctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoFileExists(t, filepath.Join(dir, FingerprintFile))
	})

	t.Run("StaleFingerprintRemoved", func(t *testing.T) {
		dir := t.TempDir()
		_, err := NewGenerator(textGraph(t), &textSynthesizer{}, dir).Generate(ctx)
		require.NoError(t, err)
		_, err = NewGenerator(textGraph(t, WithHeader("Other")), &textSynthesizer{indexPath: "beta.txt"}, dir).Generate(ctx)
		require.Error(t, err)
		assert.NoFileExists(t, filepath.Join(dir, FingerprintFile))
	})
}

func TestGenerator_Workers(t *testing.T) {
	g := NewGenerator(textGraph(t, WithWorkers(3)), &textSynthesizer{}, t.TempDir())
	assert.Equal(t, 3, g.workers)
}

// ============================================================================
// Writer
// ============================================================================

func TestWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)
	a := &Artifact{
		Path:   "sub/x.go",
		Syntax: merge.Go,
		Source: []byte("package x\n\nfunc  F( ) {}\n"),
		Go:     true,
	}

	changed, err := w.Write(a)
	require.NoError(t, err)
	assert.True(t, changed)
	data, err := os.ReadFile(filepath.Join(dir, "sub", "x.go"))
	require.NoError(t, err)
	assert.Equal(t, "package x\n\nfunc F() {}\n", string(data))

	changed, err = w.Write(a)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestWriter_UnformattableGo(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dir := t.TempDir()
	w := NewWriter(dir, zap.New(core))

	changed, err := w.Write(&Artifact{Path: "bad.go", Syntax: merge.Go, Source: []byte("package x\nfunc {\n"), Go: true})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, logs.FilterMessage("merged output does not format; writing it as is").Len())
}

func TestWriter_BadMarker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.graphql"), []byte("# {\"magic\":\""+merge.Magic+"\",\"directive\":{}}\n"), 0o644))

	w := NewWriter(dir, nil)
	_, err := w.Write(&Artifact{Path: "x.graphql", Syntax: merge.GraphQL, Source: []byte("type A { id: ID! }\n")})
	require.Error(t, err)
}

// ============================================================================
// Rendering helpers
// ============================================================================

func TestGraph_NewFile(t *testing.T) {
	g := textGraph(t, WithUsePaths("example.com/hooks"))
	f := g.NewFile("text")
	Block(f, merge.CommentOrig, "alpha-struct", func(f *jen.File) {
		f.Type().Id("Alpha").Struct()
	})
	Block(f, merge.IgnoreOrig, "alpha-implementation", nil)

	a, err := GoArtifact("alpha.go", f)
	require.NoError(t, err)
	assert.True(t, a.Go)
	assert.Equal(t, merge.Go, a.Syntax)
	src := string(a.Source)
	assert.Contains(t, src, "// Code generated by loom from the text model.")
	assert.Contains(t, src, `_ "example.com/hooks"`)
	assert.Contains(t, src, merge.Go.Start(merge.CommentOrig, "alpha-struct")+"\ntype Alpha struct{}\n"+merge.Go.End(merge.CommentOrig, "alpha-struct"))
	assert.Contains(t, src, merge.Go.Start(merge.IgnoreOrig, "alpha-implementation")+"\n"+merge.Go.End(merge.IgnoreOrig, "alpha-implementation"))
}
