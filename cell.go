package loom

import (
	"fmt"
	"sync"
)

// Shared is implemented by the element wrappers of the shared ownership
// strategies. Generated stores hold values behind one of them.
type Shared[T any] interface {
	// Read returns a copy of the wrapped value.
	Read() T
	// View calls fn with the wrapped value for reading.
	View(fn func(*T))
	// Update calls fn with the wrapped value for writing.
	Update(fn func(*T))
}

// BorrowError is the panic value of a Cell borrow violation.
type BorrowError struct {
	Op string
}

// Error implements the error interface.
func (e *BorrowError) Error() string {
	return fmt.Sprintf("loom: cell already borrowed (%s)", e.Op)
}

// Cell is a shared mutable cell for single goroutine use. Borrows are tracked
// at runtime: reading while an update is running, or updating while any
// borrow is live, panics with a *BorrowError.
type Cell[T any] struct {
	v T
	// >0 live readers, -1 live writer.
	state int
}

// NewCell returns a cell holding v.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{v: v}
}

// Read returns a copy of the value.
func (c *Cell[T]) Read() T {
	if c.state < 0 {
		panic(&BorrowError{Op: "read"})
	}
	return c.v
}

// View calls fn with a pointer to the value. Nested reads are allowed, nested
// updates panic.
func (c *Cell[T]) View(fn func(*T)) {
	if c.state < 0 {
		panic(&BorrowError{Op: "view"})
	}
	c.state++
	defer func() { c.state-- }()
	fn(&c.v)
}

// Update calls fn with exclusive access to the value.
func (c *Cell[T]) Update(fn func(*T)) {
	if c.state != 0 {
		panic(&BorrowError{Op: "update"})
	}
	c.state = -1
	defer func() { c.state = 0 }()
	fn(&c.v)
}

// Replace swaps the value and returns the previous one.
func (c *Cell[T]) Replace(v T) T {
	if c.state != 0 {
		panic(&BorrowError{Op: "replace"})
	}
	old := c.v
	c.v = v
	return old
}

// Locked is a shared mutable cell guarded by a read-write mutex. It is safe
// for concurrent use.
type Locked[T any] struct {
	mu sync.RWMutex
	v  T
}

// NewLocked returns a locked cell holding v.
func NewLocked[T any](v T) *Locked[T] {
	return &Locked[T]{v: v}
}

// Read returns a copy of the value.
func (l *Locked[T]) Read() T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v
}

// View calls fn with the read lock held.
func (l *Locked[T]) View(fn func(*T)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn(&l.v)
}

// Update calls fn with the write lock held.
func (l *Locked[T]) Update(fn func(*T)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.v)
}

// Replace swaps the value and returns the previous one.
func (l *Locked[T]) Replace(v T) T {
	l.mu.Lock()
	defer l.mu.Unlock()
	old := l.v
	l.v = v
	return old
}

var (
	_ Shared[struct{}] = (*Cell[struct{}])(nil)
	_ Shared[struct{}] = (*Locked[struct{}])(nil)
)
