package gen

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/loom/compiler/load"
	"github.com/syssam/loom/compiler/merge"
)

// FingerprintFile is written last by a successful run, next to the output.
const FingerprintFile = ".loom-fingerprint"

// Generator drives a Synthesizer: per-type synthesis fans out over a worker
// pool, each task on its own clone of the graph; domain-wide synthesis runs
// once all of them are done; then every artifact is merged against the file
// on disk and written.
type Generator struct {
	graph   *Graph
	syn     Synthesizer
	outDir  string
	workers int
}

// NewGenerator creates a generator writing under outDir.
//
// Example:
//
//	g := gen.NewGenerator(graph, domain.Synthesizer{}, "gen/shop")
//	n, err := g.Generate(ctx)
func NewGenerator(g *Graph, syn Synthesizer, outDir string) *Generator {
	return &Generator{
		graph:   g,
		syn:     syn,
		outDir:  outDir,
		workers: g.Workers,
	}
}

// Name returns the name of the synthesizer.
func (g *Generator) Name() string { return g.syn.Name() }

// OutDir returns the output directory.
func (g *Generator) OutDir() string { return g.outDir }

// Compile implements Backend.
func (g *Generator) Compile(ctx context.Context) (int, error) {
	return g.Generate(ctx)
}

// Generate runs the backend and returns the number of files created or
// changed. When the fingerprint of the model and configuration matches the
// one stored by the previous run, nothing is written and zero is returned,
// unless AlwaysProcess is set. The stored fingerprint is removed first and
// written last, so an aborted run is never taken as up to date.
func (g *Generator) Generate(ctx context.Context) (int, error) {
	log := g.graph.Logger.With(zap.String("backend", g.syn.Name()), zap.String("out", g.outDir))
	fp, err := g.fingerprint()
	if err != nil {
		return 0, err
	}
	fpPath := filepath.Join(g.outDir, FingerprintFile)
	if !g.graph.AlwaysProcess {
		if prev, err := os.ReadFile(fpPath); err == nil && string(prev) == fp {
			log.Info("output is up to date")
			return 0, nil
		}
	}
	if err := os.Remove(fpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, &FileError{Op: "remove", Path: fpPath, Cause: err}
	}
	arts, err := g.synthesize(ctx)
	if err != nil {
		return 0, err
	}
	n, err := g.write(ctx, arts)
	if err != nil {
		return n, err
	}
	g.orphans(arts, log)
	if err := writeFile(fpPath, []byte(fp)); err != nil {
		return n, err
	}
	log.Info("generation complete", zap.Int("artifacts", len(arts)), zap.Int("written", n))
	return n, nil
}

func (g *Generator) synthesize(ctx context.Context) ([]*Artifact, error) {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	results := make([][]*Artifact, len(g.graph.Nodes))
	for i := range g.graph.Nodes {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			snap := g.graph.Clone()
			arts, err := g.syn.Object(snap, snap.Nodes[i])
			if err != nil {
				return err
			}
			results[i] = arts
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	domain, err := g.syn.Domain(g.graph)
	if err != nil {
		return nil, err
	}
	arts := append(slices.Concat(results...), domain...)
	seen := make(map[string]bool, len(arts))
	for _, a := range arts {
		if seen[a.Path] {
			return nil, NewGenerationError("synthesize", a.Path, "path produced twice", nil)
		}
		seen[a.Path] = true
	}
	return arts, nil
}

func (g *Generator) write(ctx context.Context, arts []*Artifact) (int, error) {
	w := NewWriter(g.outDir, g.graph.Logger)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	var n atomic.Int64
	for _, a := range arts {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			changed, err := w.Write(a)
			if changed {
				n.Add(1)
			}
			return err
		})
	}
	err := eg.Wait()
	return int(n.Load()), err
}

// orphans warns about files under the output directory that carry loom
// markers but were not produced by this run, typically the file of an
// object removed from the model. They are left in place.
func (g *Generator) orphans(arts []*Artifact, log *zap.Logger) {
	produced := make(map[string]bool, len(arts))
	for _, a := range arts {
		produced[filepath.Clean(a.Path)] = true
	}
	_ = filepath.WalkDir(g.outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() == FingerprintFile {
			return nil
		}
		rel, err := filepath.Rel(g.outDir, path)
		if err != nil || produced[rel] {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || !bytes.Contains(data, []byte(merge.Magic)) {
			return nil
		}
		log.Warn("generated file is no longer produced", zap.String("path", rel))
		return nil
	})
}

func (g *Generator) fingerprint() (string, error) {
	model, err := load.MarshalDomain(g.graph.Source)
	if err != nil {
		return "", NewGenerationError("fingerprint", "", "encode model", err)
	}
	h := sha256.New()
	for _, part := range [][]byte{[]byte(g.syn.Name()), []byte(g.graph.Fingerprint()), model} {
		h.Write(part)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
