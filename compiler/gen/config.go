package gen

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Target selects the backend a run compiles with.
type Target uint8

// Targets.
const (
	TargetDomain Target = iota
	TargetApplication
	TargetGraphQL
)

var targetNames = [...]string{
	TargetDomain:      "domain",
	TargetApplication: "application",
	TargetGraphQL:     "graphql",
}

// String returns the target name.
func (t Target) String() string {
	if int(t) < len(targetNames) {
		return targetNames[t]
	}
	return fmt.Sprintf("Target(%d)", t)
}

// ParseTarget parses a target name. "app" is accepted for the application
// scaffold.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "", "domain":
		return TargetDomain, nil
	case "application", "app":
		return TargetApplication, nil
	case "graphql", "gql":
		return TargetGraphQL, nil
	}
	return 0, NewConfigError("Target", s, "unknown target; use domain, application or graphql")
}

// IDStrategy selects how generated constructors compute ids.
type IDStrategy uint8

// ID strategies.
const (
	// IDHash derives a uuid v5 from the constructor arguments.
	IDHash IDStrategy = iota
	// IDRandom draws a uuid v4.
	IDRandom
	// IDIndex lets the store assign sequential int64 ids.
	IDIndex
)

var idNames = [...]string{IDHash: "hash", IDRandom: "random", IDIndex: "index"}

// String returns the strategy name.
func (s IDStrategy) String() string {
	if int(s) < len(idNames) {
		return idNames[s]
	}
	return fmt.Sprintf("IDStrategy(%d)", s)
}

// ParseIDStrategy parses a strategy name.
func ParseIDStrategy(s string) (IDStrategy, error) {
	switch strings.ToLower(s) {
	case "", "hash":
		return IDHash, nil
	case "random":
		return IDRandom, nil
	case "index":
		return IDIndex, nil
	}
	return 0, NewConfigError("IDStrategy", s, "unknown id strategy; use hash, random or index")
}

// Ownership selects the wrapper generated stores hand out.
type Ownership uint8

// Ownership strategies.
const (
	// Exclusive hands out plain pointers.
	Exclusive Ownership = iota
	// Shared wraps values in a borrow-checked loom.Cell.
	Shared
	// Locked wraps values in a loom.Locked and guards the store with a mutex.
	Locked
)

var ownershipNames = [...]string{Exclusive: "exclusive", Shared: "shared", Locked: "locked"}

// String returns the strategy name.
func (o Ownership) String() string {
	if int(o) < len(ownershipNames) {
		return ownershipNames[o]
	}
	return fmt.Sprintf("Ownership(%d)", o)
}

// ParseOwnership parses an ownership name.
func ParseOwnership(s string) (Ownership, error) {
	switch strings.ToLower(s) {
	case "", "exclusive":
		return Exclusive, nil
	case "shared", "cell":
		return Shared, nil
	case "locked", "mutex":
		return Locked, nil
	}
	return 0, NewConfigError("Ownership", s, "unknown ownership; use exclusive, shared or locked")
}

// Config holds the options of a generation run. It is immutable once the
// run starts.
type Config struct {
	// Target is the backend to compile with.
	Target Target
	// Module is the import path of the output root.
	Module string
	// IDStrategy and Ownership shape the generated store.
	IDStrategy IDStrategy
	Ownership  Ownership
	// Persist adds Persist and Load methods to the store.
	Persist bool
	// PersistTimestamps records and persists the last intern time of every
	// instance.
	PersistTimestamps bool
	// PersistFormat names the codec of persisted collections.
	PersistFormat string
	// DeriveList holds extra struct tag keys added to every generated field.
	DeriveList []string
	// UsePaths holds extra blank imports added to every generated Go file.
	UsePaths []string
	// AlwaysProcess disables the fingerprint check.
	AlwaysProcess bool
	// Workers bounds the synthesis and write pool.
	Workers int
	// Header replaces the default header comment.
	Header string
	Logger *zap.Logger
}

func (c *Config) defaults() {
	if c.PersistFormat == "" {
		c.PersistFormat = "json"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// HeaderFor returns the header comment of files generated for domain.
func (c *Config) HeaderFor(domain string) string {
	if c.Header != "" {
		return c.Header
	}
	return fmt.Sprintf("Code generated by loom from the %s model.", domain)
}

// Fingerprint returns a stable encoding of every option that changes the
// generated output.
func (c *Config) Fingerprint() string {
	b, _ := json.Marshal(struct {
		Target            string
		Module            string
		IDStrategy        string
		Ownership         string
		Persist           bool
		PersistTimestamps bool
		PersistFormat     string
		DeriveList        []string
		UsePaths          []string
		Header            string
	}{
		c.Target.String(), c.Module, c.IDStrategy.String(), c.Ownership.String(),
		c.Persist, c.PersistTimestamps, c.PersistFormat, c.DeriveList, c.UsePaths, c.Header,
	})
	return string(b)
}
