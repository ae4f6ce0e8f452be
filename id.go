package loom

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// Namespace is the uuid v5 namespace of every content-derived id.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/syssam/loom"))

// HashID derives a deterministic id from an object kind and the values used
// to construct an instance. Pointers are dereferenced; a nil pointer hashes
// as the empty value of its kind. Equal inputs give equal ids across runs.
func HashID(kind string, parts ...any) uuid.UUID {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		b.WriteByte(0)
		writePart(&b, p)
	}
	return uuid.NewSHA1(Namespace, []byte(b.String()))
}

func writePart(b *strings.Builder, p any) {
	v := reflect.ValueOf(p)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			b.WriteString("<nil>")
			return
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		b.WriteString("<nil>")
		return
	}
	fmt.Fprintf(b, "%T:%v", v.Interface(), v.Interface())
}

// SingletonID returns the constant id of a singleton object of a domain.
func SingletonID(domain, object string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(domain+"/"+object))
}

// ID is the set of key types a generated store can use.
type ID interface {
	uuid.UUID | int64
}

// CompareID orders ids. Persisted collections are sorted with it so that
// the files of equal stores are byte-identical.
func CompareID[T ID](a, b T) int {
	switch x := any(a).(type) {
	case uuid.UUID:
		y := any(b).(uuid.UUID)
		return strings.Compare(string(x[:]), string(y[:]))
	case int64:
		return cmp.Compare(x, any(b).(int64))
	}
	return 0
}
