package graphkit

import (
	"context"

	"github.com/graphkit-io/graphkit/store"
)

// stubNode is a minimal store.Node for tests.
type stubNode struct {
	id    int64
	props map[string]any
}

func (n stubNode) ID() int64              { return n.id }
func (n stubNode) Kind() store.EntityKind { return store.KindNode }

func (n stubNode) Property(key string) (any, bool) {
	v, ok := n.props[key]
	return v, ok
}

func (n stubNode) Properties() map[string]any { return n.props }

// stubRelationship is a minimal store.Relationship for tests.
type stubRelationship struct {
	id    int64
	typ   string
	start store.Node
	end   store.Node
	props map[string]any
}

func (r stubRelationship) ID() int64              { return r.id }
func (r stubRelationship) Kind() store.EntityKind { return store.KindRelationship }
func (r stubRelationship) Type() string           { return r.typ }
func (r stubRelationship) StartNode() store.Node  { return r.start }
func (r stubRelationship) EndNode() store.Node    { return r.end }

func (r stubRelationship) Property(key string) (any, bool) {
	v, ok := r.props[key]
	return v, ok
}

func (r stubRelationship) Properties() map[string]any { return r.props }

// fakeCursor iterates a fixed entity slice and counts Close calls.
type fakeCursor struct {
	entities   []store.Entity
	pos        int
	current    store.Entity
	err        error
	closeCount int
}

func (c *fakeCursor) Next() bool {
	if c.err != nil || c.pos >= len(c.entities) {
		return false
	}
	c.current = c.entities[c.pos]
	c.pos++
	return true
}

func (c *fakeCursor) Entity() store.Entity { return c.current }
func (c *fakeCursor) Err() error           { return c.err }

func (c *fakeCursor) Close() error {
	c.closeCount++
	return nil
}

// fakeRowCursor iterates fixed rows.
type fakeRowCursor struct {
	rows    []map[string]any
	pos     int
	current map[string]any
}

func (c *fakeRowCursor) Next() bool {
	if c.pos >= len(c.rows) {
		return false
	}
	c.current = c.rows[c.pos]
	c.pos++
	return true
}

func (c *fakeRowCursor) Row() map[string]any { return c.current }
func (c *fakeRowCursor) Err() error          { return nil }
func (c *fakeRowCursor) Close() error        { return nil }

// fakeIndex records Add calls and serves canned cursors.
type fakeIndex struct {
	name     string
	kind     store.EntityKind
	addErr   error
	entities []store.Entity
	addCalls int
}

func (i *fakeIndex) Name() string           { return i.name }
func (i *fakeIndex) Kind() store.EntityKind { return i.kind }

func (i *fakeIndex) Add(ctx context.Context, e store.Entity, field string, value any) error {
	i.addCalls++
	return i.addErr
}

func (i *fakeIndex) Get(ctx context.Context, field string, value any) (store.Cursor, error) {
	return &fakeCursor{entities: i.entities}, nil
}

func (i *fakeIndex) Query(ctx context.Context, q any) (store.Cursor, error) {
	return &fakeCursor{entities: i.entities}, nil
}

// fakeEngine serves canned rows.
type fakeEngine struct {
	rows     []map[string]any
	queryErr error
}

func (e *fakeEngine) Query(ctx context.Context, statement string, params map[string]any) (store.RowCursor, error) {
	if e.queryErr != nil {
		return nil, e.queryErr
	}
	return &fakeRowCursor{rows: e.rows}, nil
}

// fakeTraversal serves a canned cursor.
type fakeTraversal struct {
	entities []store.Entity
}

func (t *fakeTraversal) Traverse(ctx context.Context, start store.Node, spec store.TraversalSpec) (store.Cursor, error) {
	return &fakeCursor{entities: t.entities}, nil
}

// recordingStore counts every store call and serves stub elements, so
// tests can assert which store interactions an operation performed.
type recordingStore struct {
	calls map[string]int

	createNodeErr error
	createRelErr  error
	nodeErr       error
	relErr        error
	indexErr      error
	engineErr     error

	index  *fakeIndex
	engine *fakeEngine
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		calls:  make(map[string]int),
		index:  &fakeIndex{name: "idx", kind: store.KindNode},
		engine: &fakeEngine{},
	}
}

func (s *recordingStore) totalCalls() int {
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *recordingStore) CreateNode(ctx context.Context, props map[string]any) (store.Node, error) {
	s.calls["CreateNode"]++
	if s.createNodeErr != nil {
		return nil, s.createNodeErr
	}
	return stubNode{id: 1, props: props}, nil
}

func (s *recordingStore) CreateRelationship(ctx context.Context, start, end store.Node, relType string, props map[string]any) (store.Relationship, error) {
	s.calls["CreateRelationship"]++
	if s.createRelErr != nil {
		return nil, s.createRelErr
	}
	return stubRelationship{id: 2, typ: relType, start: start, end: end, props: props}, nil
}

func (s *recordingStore) NodeByID(ctx context.Context, id int64) (store.Node, error) {
	s.calls["NodeByID"]++
	if s.nodeErr != nil {
		return nil, s.nodeErr
	}
	return stubNode{id: id}, nil
}

func (s *recordingStore) RelationshipByID(ctx context.Context, id int64) (store.Relationship, error) {
	s.calls["RelationshipByID"]++
	if s.relErr != nil {
		return nil, s.relErr
	}
	return stubRelationship{id: id}, nil
}

func (s *recordingStore) ReferenceNode(ctx context.Context) (store.Node, error) {
	s.calls["ReferenceNode"]++
	if s.nodeErr != nil {
		return nil, s.nodeErr
	}
	return stubNode{id: 0}, nil
}

func (s *recordingStore) CreateIndex(ctx context.Context, kind store.EntityKind, name string) (store.Index, error) {
	s.calls["CreateIndex"]++
	if s.indexErr != nil {
		return nil, s.indexErr
	}
	return s.index, nil
}

func (s *recordingStore) Index(ctx context.Context, name string) (store.Index, error) {
	s.calls["Index"]++
	if s.indexErr != nil {
		return nil, s.indexErr
	}
	return s.index, nil
}

func (s *recordingStore) QueryEngineFor(lang store.QueryLanguage) (store.QueryEngine, error) {
	s.calls["QueryEngineFor"]++
	if s.engineErr != nil {
		return nil, s.engineErr
	}
	return s.engine, nil
}

func (s *recordingStore) TraversalEngine() store.TraversalEngine {
	s.calls["TraversalEngine"]++
	return &fakeTraversal{}
}

// fakeTxManager counts demarcation calls and injects failures.
type fakeTxManager struct {
	begins    int
	commits   int
	rollbacks int

	beginErr    error
	commitErr   error
	rollbackErr error
}

func (m *fakeTxManager) Begin(ctx context.Context) (store.Transaction, error) {
	m.begins++
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return &fakeTx{manager: m}, nil
}

type fakeTx struct {
	manager *fakeTxManager
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.manager.commits++
	return t.manager.commitErr
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.manager.rollbacks++
	return t.manager.rollbackErr
}
