// Package gen is the loom generation engine.
//
// It resolves a domain model into a Graph of Types and drives the
// synthesizers of each target over it.
//
// # Architecture
//
// The code generation pipeline follows this flow:
//
//	Model file (model.yaml / model.json)
//	        ↓
//	   load.Domain (read-only metamodel)
//	        ↓
//	   Graph (types, fields, edges, isa hierarchy)
//	        ↓
//	   Synthesizer (domain / application / graphql)
//	        ↓
//	   merge.Merge against the file on disk
//	        ↓
//	   Generated code
//
// # Key Types
//
//   - Graph: every Type of a domain, resolved and checked
//   - Type: one object with its Fields, Edges and isa links
//   - Edge: one side of a relationship, with the Nav shape of its method
//   - Config: the options of a run
//   - Generator: fans synthesis out over a worker pool, then merges and
//     writes every Artifact
//
// # Error Handling
//
//   - SchemaError: the model cannot be rendered
//   - ReferenceError: an attribute or relationship names a missing object
//   - ConfigError: an option is invalid
//   - FileError: generated output could not be read or written
//   - GenerationError: a synthesizer failed
//
// Example error handling:
//
//	graph, err := gen.NewGraph(config, dom)
//	if err != nil {
//	    if gen.IsReferenceError(err) {
//	        // The model names an object it does not define.
//	    }
//	    return err
//	}
//
// # Configuration
//
// Configuration is done via the functional options pattern:
//
//	config, err := gen.NewConfig(
//	    gen.WithModule("example.com/shop/gen"),
//	    gen.WithIDStrategy(gen.IDIndex),
//	    gen.WithOwnership(gen.Locked),
//	    gen.WithPersist(true),
//	)
//
// # Protected regions
//
// Every generated block is wrapped in a pair of merge markers. On the next
// run the fresh output is merged with the file on disk: ignore-orig blocks
// keep their edited content, comment-orig blocks are regenerated and keep
// the previous content as //~ comment lines, allow-editing blocks keep user
// code written between their children.
//
// # Generated Output
//
// The domain target produces:
//
//	{output}/{package}/
//	├── {object}.go        // id alias, struct, constructors, navigation
//	├── store.go           // ObjectStore, intern/exhume/iter, persistence
//	└── .loom-fingerprint  // skip marker of the last complete run
package gen
