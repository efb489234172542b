// Package memstore is an embedded, in-memory implementation of the
// store capability interfaces. It backs tests and small tools that need
// a complete property-graph store without a server: nodes,
// relationships, kind-scoped indexes with CEL query objects, a BFS
// traversal engine, a CEL row-query engine, and a snapshotting
// transaction manager.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/graphkit-io/graphkit/query"
	"github.com/graphkit-io/graphkit/store"
)

// Store is an in-memory property-graph store. It is safe for concurrent
// use; writes are serialized by an internal mutex.
type Store struct {
	mu      sync.RWMutex
	nodes   map[int64]*node
	rels    map[int64]*relationship
	indexes map[indexKey]*index
	nextID  int64
	refID   int64
}

type indexKey struct {
	kind store.EntityKind
	name string
}

// New creates an empty store. The reference node is created eagerly and
// keeps id 0 for the store's lifetime.
func New() *Store {
	s := &Store{
		nodes:   make(map[int64]*node),
		rels:    make(map[int64]*relationship),
		indexes: make(map[indexKey]*index),
	}
	ref := &node{id: s.nextID, props: map[string]any{}}
	s.nextID++
	s.nodes[ref.id] = ref
	s.refID = ref.id
	return s
}

type node struct {
	id    int64
	props map[string]any
}

func (n *node) ID() int64              { return n.id }
func (n *node) Kind() store.EntityKind { return store.KindNode }

func (n *node) Property(key string) (any, bool) {
	v, ok := n.props[key]
	return v, ok
}

func (n *node) Properties() map[string]any { return n.props }

type relationship struct {
	id    int64
	typ   string
	start *node
	end   *node
	props map[string]any
}

func (r *relationship) ID() int64              { return r.id }
func (r *relationship) Kind() store.EntityKind { return store.KindRelationship }
func (r *relationship) Type() string           { return r.typ }
func (r *relationship) StartNode() store.Node  { return r.start }
func (r *relationship) EndNode() store.Node    { return r.end }

func (r *relationship) Property(key string) (any, bool) {
	v, ok := r.props[key]
	return v, ok
}

func (r *relationship) Properties() map[string]any { return r.props }

// CreateNode creates a node with a copy of the given properties.
func (s *Store) CreateNode(ctx context.Context, props map[string]any) (store.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := &node{id: s.nextID, props: copyProps(props)}
	s.nextID++
	s.nodes[n.id] = n
	return n, nil
}

// CreateRelationship creates a relationship between two existing nodes.
func (s *Store) CreateRelationship(ctx context.Context, start, end store.Node, relType string, props map[string]any) (store.Relationship, error) {
	const op = "memstore.CreateRelationship"
	if start == nil || end == nil {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: nil endpoint", store.ErrConstraintViolation)}
	}
	if relType == "" {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: empty relationship type", store.ErrConstraintViolation)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	startNode, ok := s.nodes[start.ID()]
	if !ok {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: start node %d", store.ErrNotFound, start.ID())}
	}
	endNode, ok := s.nodes[end.ID()]
	if !ok {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: end node %d", store.ErrNotFound, end.ID())}
	}

	r := &relationship{
		id:    s.nextID,
		typ:   relType,
		start: startNode,
		end:   endNode,
		props: copyProps(props),
	}
	s.nextID++
	s.rels[r.id] = r
	return r, nil
}

// NodeByID returns the node with the given id.
func (s *Store) NodeByID(ctx context.Context, id int64) (store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, &store.Error{Op: "memstore.NodeByID", Err: fmt.Errorf("%w: node %d", store.ErrNotFound, id)}
	}
	return n, nil
}

// RelationshipByID returns the relationship with the given id.
func (s *Store) RelationshipByID(ctx context.Context, id int64) (store.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rels[id]
	if !ok {
		return nil, &store.Error{Op: "memstore.RelationshipByID", Err: fmt.Errorf("%w: relationship %d", store.ErrNotFound, id)}
	}
	return r, nil
}

// ReferenceNode returns the store's entry-point node.
func (s *Store) ReferenceNode(ctx context.Context) (store.Node, error) {
	return s.NodeByID(ctx, s.refID)
}

// CreateIndex returns the index with the given kind and name, creating
// it if absent.
func (s *Store) CreateIndex(ctx context.Context, kind store.EntityKind, name string) (store.Index, error) {
	const op = "memstore.CreateIndex"
	if !kind.IsValid() {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: invalid entity kind %d", store.ErrConstraintViolation, int(kind))}
	}
	if name == "" {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: empty index name", store.ErrConstraintViolation)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := indexKey{kind: kind, name: name}
	idx, ok := s.indexes[key]
	if !ok {
		idx = &index{store: s, name: name, kind: kind, entries: make(map[string]map[string][]int64)}
		s.indexes[key] = idx
	}
	return idx, nil
}

// Index returns the existing index with the given name. Node indexes
// shadow relationship indexes of the same name.
func (s *Store) Index(ctx context.Context, name string) (store.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, ok := s.indexes[indexKey{kind: store.KindNode, name: name}]; ok {
		return idx, nil
	}
	if idx, ok := s.indexes[indexKey{kind: store.KindRelationship, name: name}]; ok {
		return idx, nil
	}
	return nil, &store.Error{Op: "memstore.Index", Err: fmt.Errorf("%w: %q", store.ErrIndexNotFound, name)}
}

// QueryEngineFor returns the CEL row-query engine. Cypher is not spoken
// by the in-memory store.
func (s *Store) QueryEngineFor(lang store.QueryLanguage) (store.QueryEngine, error) {
	switch lang {
	case store.QueryCEL:
		return &celEngine{store: s}, nil
	default:
		return nil, &store.Error{Op: "memstore.QueryEngineFor", Err: fmt.Errorf("%w: query language %s", store.ErrUnsupported, lang)}
	}
}

// TraversalEngine returns the store's BFS traversal engine.
func (s *Store) TraversalEngine() store.TraversalEngine {
	return &traversalEngine{store: s}
}

// entityByID resolves an id within one kind. Used by index cursors.
func (s *Store) entityByID(kind store.EntityKind, id int64) (store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case store.KindNode:
		if n, ok := s.nodes[id]; ok {
			return n, nil
		}
	case store.KindRelationship:
		if r, ok := s.rels[id]; ok {
			return r, nil
		}
	}
	return nil, &store.Error{Op: "memstore.entityByID", Err: fmt.Errorf("%w: %s %d", store.ErrNotFound, kind, id)}
}

func copyProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// index is a kind-scoped exact-match index with CEL query-object
// support. Entries map field → printable value key → element ids in
// insertion order.
type index struct {
	store   *Store
	name    string
	kind    store.EntityKind
	entries map[string]map[string][]int64
}

func (i *index) Name() string           { return i.name }
func (i *index) Kind() store.EntityKind { return i.kind }

// Add records an entry for the element under (field, value).
func (i *index) Add(ctx context.Context, e store.Entity, field string, value any) error {
	const op = "memstore.Index.Add"
	if e == nil {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: nil element", store.ErrConstraintViolation)}
	}
	if e.Kind() != i.kind {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: %s element in %s index %q", store.ErrConstraintViolation, e.Kind(), i.kind, i.name)}
	}

	i.store.mu.Lock()
	defer i.store.mu.Unlock()

	byValue, ok := i.entries[field]
	if !ok {
		byValue = make(map[string][]int64)
		i.entries[field] = byValue
	}
	key := valueKey(value)
	for _, id := range byValue[key] {
		if id == e.ID() {
			return nil
		}
	}
	byValue[key] = append(byValue[key], e.ID())
	return nil
}

// Get returns a cursor over elements indexed under the exact
// (field, value) pair, in insertion order.
func (i *index) Get(ctx context.Context, field string, value any) (store.Cursor, error) {
	i.store.mu.RLock()
	var ids []int64
	if byValue, ok := i.entries[field]; ok {
		ids = append(ids, byValue[valueKey(value)]...)
	}
	i.store.mu.RUnlock()

	return &idCursor{store: i.store, kind: i.kind, ids: ids}, nil
}

// Query returns a cursor over indexed elements matching the query
// object: a map[string]any of exact property matches, or a CEL
// expression string over `props`.
func (i *index) Query(ctx context.Context, q any) (store.Cursor, error) {
	const op = "memstore.Index.Query"

	var matches func(props map[string]any) (bool, error)
	switch qo := q.(type) {
	case string:
		filter, err := query.NewFilter(qo)
		if err != nil {
			return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrConstraintViolation, err)}
		}
		matches = filter.Matches
	case map[string]any:
		matches = func(props map[string]any) (bool, error) {
			for k, want := range qo {
				got, ok := props[k]
				if !ok || valueKey(got) != valueKey(want) {
					return false, nil
				}
			}
			return true, nil
		}
	default:
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: query object of type %T", store.ErrUnsupported, q)}
	}

	matched := make([]int64, 0)
	for _, id := range i.memberIDs() {
		e, err := i.store.entityByID(i.kind, id)
		if err != nil {
			return nil, err
		}
		ok, err := matches(e.Properties())
		if err != nil {
			return nil, &store.Error{Op: op, Err: err}
		}
		if ok {
			matched = append(matched, id)
		}
	}
	return &idCursor{store: i.store, kind: i.kind, ids: matched}, nil
}

// memberIDs returns the distinct ids present in the index, ascending.
func (i *index) memberIDs() []int64 {
	i.store.mu.RLock()
	defer i.store.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, byValue := range i.entries {
		for _, ids := range byValue {
			for _, id := range ids {
				seen[id] = struct{}{}
			}
		}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

func valueKey(v any) string {
	return fmt.Sprintf("%v", v)
}

// idCursor lazily resolves element ids against the store, one per Next.
type idCursor struct {
	store   *Store
	kind    store.EntityKind
	ids     []int64
	pos     int
	current store.Entity
	err     error
	closed  bool
}

func (c *idCursor) Next() bool {
	if c.closed {
		if c.err == nil {
			c.err = store.ErrClosed
		}
		return false
	}
	if c.err != nil || c.pos >= len(c.ids) {
		return false
	}
	e, err := c.store.entityByID(c.kind, c.ids[c.pos])
	if err != nil {
		c.err = err
		return false
	}
	c.current = e
	c.pos++
	return true
}

func (c *idCursor) Entity() store.Entity { return c.current }
func (c *idCursor) Err() error           { return c.err }

func (c *idCursor) Close() error {
	c.closed = true
	return nil
}
