// Package store defines the capability interfaces the graphkit facade
// consumes: the graph store itself, its cursors, indexes, query and
// traversal engines, and the optional transaction manager.
//
// Nothing in this package talks to a database. Implementations live in
// the backend subpackages (memstore, neo4jstore, redisindex) or are
// supplied by the application.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors surfaced by store implementations. The graphkit
// translator recognizes any error matching one of these (or wrapped in
// *Error) as a store failure.
var (
	// ErrNotFound is returned when a node, relationship, or index entry
	// does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrIndexNotFound is returned when a named index does not exist.
	ErrIndexNotFound = errors.New("store: index not found")

	// ErrConstraintViolation is returned when an operation violates a
	// store constraint (wrong element kind for an index, malformed
	// relationship type, and so on).
	ErrConstraintViolation = errors.New("store: constraint violation")

	// ErrUnavailable is returned when the underlying store cannot be
	// reached or is not in a state to serve the request.
	ErrUnavailable = errors.New("store: unavailable")

	// ErrTransaction is returned when transaction demarcation fails
	// (begin, commit, rollback, or reuse of a finished transaction).
	ErrTransaction = errors.New("store: transaction failure")

	// ErrClosed is returned when a cursor or store is used after Close.
	ErrClosed = errors.New("store: closed")

	// ErrUnsupported is returned when a store does not implement an
	// optional capability (for example a query language it lacks).
	ErrUnsupported = errors.New("store: unsupported operation")
)

// Error wraps a low-level store failure with the operation that raised
// it. Backends wrap driver errors in *Error so the facade's translator
// can classify them without knowing the driver.
type Error struct {
	// Op is the store operation that failed (e.g. "memstore.NodeByID").
	Op string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: %s failed", e.Op)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is a failure shape this package
// recognizes: a *Error or any error matching one of the sentinels.
func IsStoreError(err error) bool {
	if err == nil {
		return false
	}
	var se *Error
	if errors.As(err, &se) {
		return true
	}
	for _, sentinel := range []error{
		ErrNotFound, ErrIndexNotFound, ErrConstraintViolation,
		ErrUnavailable, ErrTransaction, ErrClosed, ErrUnsupported,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// EntityKind identifies the kind of a graph element. It is a closed set:
// every switch over EntityKind handles both kinds explicitly.
type EntityKind int

const (
	// KindNode identifies node elements.
	KindNode EntityKind = iota

	// KindRelationship identifies relationship elements.
	KindRelationship
)

// String returns the string representation of the kind.
func (k EntityKind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindRelationship:
		return "relationship"
	default:
		return fmt.Sprintf("EntityKind(%d)", int(k))
	}
}

// IsValid reports whether k is one of the two defined kinds.
func (k EntityKind) IsValid() bool {
	return k == KindNode || k == KindRelationship
}

// Entity is the minimal capability of a raw graph element. Both nodes
// and relationships satisfy it.
type Entity interface {
	// ID returns the store-assigned element id. Ids are non-negative.
	ID() int64

	// Kind returns the element kind.
	Kind() EntityKind

	// Property returns a single property value and whether it is set.
	Property(key string) (any, bool)

	// Properties returns the element's properties. Callers must not
	// mutate the returned map.
	Properties() map[string]any
}

// Node is a node element.
type Node interface {
	Entity
}

// Relationship is a relationship element between two nodes.
type Relationship interface {
	Entity

	// Type returns the relationship type name.
	Type() string

	// StartNode returns the relationship's start node.
	StartNode() Node

	// EndNode returns the relationship's end node.
	EndNode() Node
}

// Cursor is a forward-only, possibly resource-backed sequence of raw
// elements produced by an index lookup or traversal. Whoever receives a
// Cursor owns it and must Close it exactly once.
type Cursor interface {
	// Next advances to the next element. It returns false when the
	// cursor is exhausted or an error occurred; check Err afterwards.
	Next() bool

	// Entity returns the element at the current position. Only valid
	// after Next returned true.
	Entity() Entity

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases the cursor's resources.
	Close() error
}

// RowCursor is the native lazy result of a declarative query: a
// forward-only sequence of column-name to value rows.
type RowCursor interface {
	// Next advances to the next row.
	Next() bool

	// Row returns the row at the current position. Only valid after
	// Next returned true.
	Row() map[string]any

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases the cursor's resources.
	Close() error
}

// Index is a named, kind-scoped lookup structure over graph elements.
type Index interface {
	// Name returns the index name.
	Name() string

	// Kind returns the element kind this index holds.
	Kind() EntityKind

	// Add records an index entry mapping (field, value) to the element.
	Add(ctx context.Context, e Entity, field string, value any) error

	// Get returns a cursor over elements indexed under the exact
	// (field, value) pair.
	Get(ctx context.Context, field string, value any) (Cursor, error)

	// Query returns a cursor over elements matching a query object.
	// The supported query object shapes are implementation-defined;
	// all backends in this module accept a map[string]any of exact
	// field matches, and some additionally accept an expression string.
	Query(ctx context.Context, query any) (Cursor, error)
}

// QueryLanguage identifies a declarative query language a store may
// support.
type QueryLanguage int

const (
	// QueryCypher is the Cypher query language.
	QueryCypher QueryLanguage = iota

	// QueryCEL is a CEL property-expression language over stored
	// elements, supported by the in-memory backend.
	QueryCEL
)

// String returns the string representation of the language.
func (l QueryLanguage) String() string {
	switch l {
	case QueryCypher:
		return "cypher"
	case QueryCEL:
		return "cel"
	default:
		return fmt.Sprintf("QueryLanguage(%d)", int(l))
	}
}

// QueryEngine executes declarative query statements.
type QueryEngine interface {
	// Query runs a statement with the given parameters and returns the
	// engine's native lazy row sequence.
	Query(ctx context.Context, statement string, params map[string]any) (RowCursor, error)
}

// Direction constrains which relationships a traversal follows.
type Direction int

const (
	// DirectionOutgoing follows relationships leaving the current node.
	DirectionOutgoing Direction = iota

	// DirectionIncoming follows relationships arriving at the current node.
	DirectionIncoming

	// DirectionBoth follows relationships in either direction.
	DirectionBoth
)

// TraversalSpec describes a traversal from a start node. The zero value
// follows outgoing relationships of any type to unlimited depth.
type TraversalSpec struct {
	// RelationshipType restricts traversal to one relationship type.
	// Empty means any type.
	RelationshipType string

	// Direction selects which relationships to follow.
	Direction Direction

	// MaxDepth limits traversal depth. Zero or negative means no limit.
	MaxDepth int
}

// TraversalEngine walks the graph from a start node.
type TraversalEngine interface {
	// Traverse returns a cursor over the nodes visited from start,
	// start included, in visit order.
	Traverse(ctx context.Context, start Node, spec TraversalSpec) (Cursor, error)
}

// Transaction is one open unit of transactional work.
type Transaction interface {
	// Commit makes the transaction's effects durable.
	Commit(ctx context.Context) error

	// Rollback discards the transaction's effects.
	Rollback(ctx context.Context) error
}

// TransactionManager demarcates transactions around units of work. It
// is an optional collaborator of the facade: when absent, units of work
// run without transactional demarcation.
type TransactionManager interface {
	// Begin opens a new transaction.
	Begin(ctx context.Context) (Transaction, error)
}

// Store is the capability interface of the underlying property-graph
// engine. It is shared read/write across calls and threads; thread
// safety is the implementation's responsibility.
type Store interface {
	// CreateNode creates a node with the given properties.
	CreateNode(ctx context.Context, props map[string]any) (Node, error)

	// CreateRelationship creates a relationship of the given type
	// between two existing nodes.
	CreateRelationship(ctx context.Context, start, end Node, relType string, props map[string]any) (Relationship, error)

	// NodeByID returns the node with the given id, or ErrNotFound.
	NodeByID(ctx context.Context, id int64) (Node, error)

	// RelationshipByID returns the relationship with the given id, or
	// ErrNotFound.
	RelationshipByID(ctx context.Context, id int64) (Relationship, error)

	// ReferenceNode returns the store's well-known entry-point node.
	ReferenceNode(ctx context.Context) (Node, error)

	// CreateIndex returns the index with the given kind and name,
	// creating it if it does not exist.
	CreateIndex(ctx context.Context, kind EntityKind, name string) (Index, error)

	// Index returns the existing index with the given name, or
	// ErrIndexNotFound.
	Index(ctx context.Context, name string) (Index, error)

	// QueryEngineFor returns the engine for the given query language,
	// or ErrUnsupported if the store does not speak it.
	QueryEngineFor(lang QueryLanguage) (QueryEngine, error)

	// TraversalEngine returns the store's traversal engine.
	TraversalEngine() TraversalEngine
}
