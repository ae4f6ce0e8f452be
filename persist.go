package loom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ManifestFile is the name of the file that marks a persisted store
// directory as complete. It is written after every collection file.
const ManifestFile = "manifest.json"

// Codec encodes persisted collections.
type Codec interface {
	// Name is the value recorded in the manifest ("json" or "msgpack").
	Name() string
	// Ext is the file extension of collection files, without the dot.
	Ext() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Built-in codecs.
var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", JSON.Name():
		return JSON, nil
	case Msgpack.Name():
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("loom: unknown codec %q", name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Ext() string  { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// msgpackCodec reuses the json struct tags so generated types carry a
// single set of tags.
type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Ext() string  { return "msgpack" }

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// Stamped pairs a persisted value with the time it was last interned.
type Stamped[T any] struct {
	Value T         `json:"value"`
	Stamp time.Time `json:"stamp"`
}

// Manifest describes a complete persisted store directory.
type Manifest struct {
	Domain      string         `json:"domain"`
	Format      string         `json:"format"`
	Collections map[string]int `json:"collections"`
}

// Collection is one keyed collection handed to Persist. Value is encoded as
// is and should be a slice of Len elements.
type Collection struct {
	Name  string
	Len   int
	Value any
}

// Persist writes every collection to <root>/<domain>/<name>.<ext> followed
// by the manifest. The files are first written to a temporary sibling
// directory which then replaces the target, so a failed call leaves any
// previous directory in place.
func Persist(root, domain string, codec Codec, cols ...Collection) (err error) {
	if codec == nil {
		codec = JSON
	}
	dir := filepath.Join(root, domain)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return &PersistError{Op: "persist", Path: root, Err: err}
	}
	tmp, err := os.MkdirTemp(root, "."+domain+".tmp-")
	if err != nil {
		return &PersistError{Op: "persist", Path: root, Err: err}
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(tmp); rmErr != nil {
				err = NewAggregateError(err, &PersistError{Op: "persist", Path: tmp, Err: rmErr})
			}
		}
	}()
	m := Manifest{Domain: domain, Format: codec.Name(), Collections: make(map[string]int, len(cols))}
	for _, c := range cols {
		if _, ok := m.Collections[c.Name]; ok {
			return &PersistError{Op: "persist", Path: c.Name, Err: fmt.Errorf("duplicate collection %q", c.Name)}
		}
		path := filepath.Join(tmp, c.Name+"."+codec.Ext())
		data, err := codec.Marshal(c.Value)
		if err != nil {
			return &PersistError{Op: "persist", Path: path, Err: err}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return &PersistError{Op: "persist", Path: path, Err: err}
		}
		m.Collections[c.Name] = c.Len
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &PersistError{Op: "persist", Path: ManifestFile, Err: err}
	}
	if err := os.WriteFile(filepath.Join(tmp, ManifestFile), data, 0o644); err != nil {
		return &PersistError{Op: "persist", Path: filepath.Join(tmp, ManifestFile), Err: err}
	}
	return swapDir(tmp, dir)
}

// swapDir moves tmp into place at dir. An existing dir is kept aside until
// the rename succeeds and restored otherwise.
func swapDir(tmp, dir string) error {
	var old string
	if _, err := os.Stat(dir); err == nil {
		old = dir + ".old-" + filepath.Base(tmp)
		if err := os.Rename(dir, old); err != nil {
			return &PersistError{Op: "persist", Path: dir, Err: err}
		}
	}
	if err := os.Rename(tmp, dir); err != nil {
		failed := &PersistError{Op: "persist", Path: dir, Err: err}
		if old == "" {
			return failed
		}
		if err := os.Rename(old, dir); err != nil {
			return NewAggregateError(failed, &PersistError{Op: "restore", Path: old, Err: err})
		}
		return failed
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}

// Snapshot is a verified persisted store directory opened by Load.
type Snapshot struct {
	Manifest Manifest
	dir      string
	codec    Codec
}

// Load opens <root>/<domain> and checks that its manifest is present and
// that every collection it lists has a file. Collections are decoded with
// Snapshot.Decode.
func Load(root, domain string) (*Snapshot, error) {
	dir := filepath.Join(root, domain)
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &PersistError{Op: "load", Path: path, Err: ErrIncompletePersist}
		}
		return nil, &PersistError{Op: "load", Path: path, Err: err}
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &PersistError{Op: "load", Path: path, Err: err}
	}
	if m.Domain != domain {
		return nil, &PersistError{Op: "load", Path: path, Err: fmt.Errorf("%w: manifest is for domain %q", ErrIncompletePersist, m.Domain)}
	}
	codec, err := CodecByName(m.Format)
	if err != nil {
		return nil, &PersistError{Op: "load", Path: path, Err: err}
	}
	s := &Snapshot{Manifest: m, dir: dir, codec: codec}
	for _, name := range s.Names() {
		p := s.path(name)
		if _, err := os.Stat(p); err != nil {
			return nil, &PersistError{Op: "load", Path: p, Err: fmt.Errorf("%w: %v", ErrIncompletePersist, err)}
		}
	}
	return s, nil
}

// Names returns the sorted collection names of the snapshot.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.Manifest.Collections))
	for name := range s.Manifest.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode decodes the named collection into v, which must point to a slice.
// The decoded length must match the count recorded in the manifest.
func (s *Snapshot) Decode(name string, v any) error {
	want, ok := s.Manifest.Collections[name]
	if !ok {
		return &PersistError{Op: "load", Path: name, Err: fmt.Errorf("%w: collection %q not in manifest", ErrIncompletePersist, name)}
	}
	p := s.path(name)
	data, err := os.ReadFile(p)
	if err != nil {
		return &PersistError{Op: "load", Path: p, Err: err}
	}
	if err := s.codec.Unmarshal(data, v); err != nil {
		return &PersistError{Op: "load", Path: p, Err: err}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return &PersistError{Op: "load", Path: p, Err: fmt.Errorf("decode target must be a pointer to a slice, got %T", v)}
	}
	if got := rv.Elem().Len(); got != want {
		return &PersistError{Op: "load", Path: p, Err: fmt.Errorf("%w: %d instances, manifest says %d", ErrIncompletePersist, got, want)}
	}
	return nil
}

func (s *Snapshot) path(name string) string {
	return filepath.Join(s.dir, name+"."+s.codec.Ext())
}
