// Package result turns raw store cursors into lazily-mapped, explicitly
// closable sequences of caller-chosen shape.
//
// A Sequence is a scoped resource: acquire it from a wrapping call,
// drive it from one goroutine, and guarantee Close on every exit path,
// including early termination and error paths. The underlying cursor is
// released exactly once, on the first Close.
package result

import (
	"errors"
	"fmt"

	"github.com/graphkit-io/graphkit/store"
)

// ErrSequenceClosed is reported by Err when a sequence is advanced
// after it has been closed.
var ErrSequenceClosed = errors.New("result: sequence closed")

// Sequence is a lazy, forward-only, single-pass sequence of mapped
// values. It is not safe for concurrent use.
type Sequence[T any] interface {
	// Next advances to the next value. It returns false when the
	// sequence is exhausted, closed, or an error occurred; check Err
	// afterwards.
	Next() bool

	// Value returns the value at the current position. Only valid
	// after Next returned true.
	Value() T

	// Err returns the error that stopped iteration, if any. Exhaustion
	// is not an error.
	Err() error

	// Close releases the underlying cursor. Closing more than once is
	// a no-op.
	Close() error
}

// Path is a minimal wrapper around one raw result element, the input to
// a PathMapper. A node-rooted path has length 0 and no relationship; a
// relationship-rooted path has length 1.
type Path interface {
	// StartNode returns the first node of the path.
	StartNode() store.Node

	// EndNode returns the last node of the path.
	EndNode() store.Node

	// LastRelationship returns the path's final relationship, or nil
	// for a node-rooted path.
	LastRelationship() store.Relationship

	// Length returns the number of relationships in the path.
	Length() int
}

// PathMapper maps one path to a result value. Mappers must be pure;
// they are applied once per element during iteration.
type PathMapper[T any] func(Path) (T, error)

type nodePath struct {
	node store.Node
}

// NewNodePath wraps a single node as a zero-length path.
func NewNodePath(n store.Node) Path {
	if n == nil {
		panic("result: nil node")
	}
	return nodePath{node: n}
}

func (p nodePath) StartNode() store.Node                { return p.node }
func (p nodePath) EndNode() store.Node                  { return p.node }
func (p nodePath) LastRelationship() store.Relationship { return nil }
func (p nodePath) Length() int                          { return 0 }

type relationshipPath struct {
	rel store.Relationship
}

// NewRelationshipPath wraps a single relationship as a length-one path.
func NewRelationshipPath(r store.Relationship) Path {
	if r == nil {
		panic("result: nil relationship")
	}
	return relationshipPath{rel: r}
}

func (p relationshipPath) StartNode() store.Node                { return p.rel.StartNode() }
func (p relationshipPath) EndNode() store.Node                  { return p.rel.EndNode() }
func (p relationshipPath) LastRelationship() store.Relationship { return p.rel }
func (p relationshipPath) Length() int                          { return 1 }

// mapped is the shared lazy mapping core. The two public constructors
// differ only in the kind-keyed path construction rule.
type mapped[T any] struct {
	cursor    store.Cursor
	mapper    PathMapper[T]
	buildPath func(store.Entity) (Path, error)
	current   T
	err       error
	closed    bool
}

// MapNodes wraps a cursor of node elements and a mapper into a lazy
// sequence. Each Next pulls exactly one element from the cursor, wraps
// it as a node-rooted path, and applies the mapper.
//
// A nil cursor or mapper is a programming error and panics.
func MapNodes[T any](cursor store.Cursor, mapper PathMapper[T]) Sequence[T] {
	if cursor == nil {
		panic("result: nil cursor")
	}
	if mapper == nil {
		panic("result: nil mapper")
	}
	return &mapped[T]{cursor: cursor, mapper: mapper, buildPath: nodePathOf}
}

// MapRelationships wraps a cursor of relationship elements and a mapper
// into a lazy sequence, building relationship-rooted paths.
//
// A nil cursor or mapper is a programming error and panics.
func MapRelationships[T any](cursor store.Cursor, mapper PathMapper[T]) Sequence[T] {
	if cursor == nil {
		panic("result: nil cursor")
	}
	if mapper == nil {
		panic("result: nil mapper")
	}
	return &mapped[T]{cursor: cursor, mapper: mapper, buildPath: relationshipPathOf}
}

func nodePathOf(e store.Entity) (Path, error) {
	n, ok := e.(store.Node)
	if !ok || e.Kind() != store.KindNode {
		return nil, fmt.Errorf("result: expected node element, got %s", e.Kind())
	}
	return NewNodePath(n), nil
}

func relationshipPathOf(e store.Entity) (Path, error) {
	r, ok := e.(store.Relationship)
	if !ok || e.Kind() != store.KindRelationship {
		return nil, fmt.Errorf("result: expected relationship element, got %s", e.Kind())
	}
	return NewRelationshipPath(r), nil
}

func (m *mapped[T]) Next() bool {
	if m.closed {
		if m.err == nil {
			m.err = ErrSequenceClosed
		}
		return false
	}
	if m.err != nil {
		return false
	}
	if !m.cursor.Next() {
		m.err = m.cursor.Err()
		return false
	}
	path, err := m.buildPath(m.cursor.Entity())
	if err != nil {
		m.err = err
		return false
	}
	value, err := m.mapper(path)
	if err != nil {
		m.err = err
		return false
	}
	m.current = value
	return true
}

func (m *mapped[T]) Value() T {
	return m.current
}

func (m *mapped[T]) Err() error {
	return m.err
}

func (m *mapped[T]) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.cursor.Close()
}

// raw is the pass-through sequence used by lookup and traversal
// operations that hand raw elements to the caller.
type raw struct {
	cursor  store.Cursor
	current store.Entity
	err     error
	closed  bool
}

// FromCursor wraps a raw cursor as a pass-through Sequence of entities,
// with the same close semantics as the mapped sequences.
//
// A nil cursor is a programming error and panics.
func FromCursor(cursor store.Cursor) Sequence[store.Entity] {
	if cursor == nil {
		panic("result: nil cursor")
	}
	return &raw{cursor: cursor}
}

func (r *raw) Next() bool {
	if r.closed {
		if r.err == nil {
			r.err = ErrSequenceClosed
		}
		return false
	}
	if r.err != nil {
		return false
	}
	if !r.cursor.Next() {
		r.err = r.cursor.Err()
		return false
	}
	r.current = r.cursor.Entity()
	return true
}

func (r *raw) Value() store.Entity {
	return r.current
}

func (r *raw) Err() error {
	return r.err
}

func (r *raw) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.cursor.Close()
}
