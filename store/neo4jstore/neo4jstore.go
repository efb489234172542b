// Package neo4jstore implements the store capability interfaces on a
// Neo4j server through the official Bolt driver. Elements carry the
// server-assigned ids; indexes are emulated with prefixed bookkeeping
// properties on the elements plus a metadata node per index, which
// keeps lookups expressible as plain parameterized Cypher.
package neo4jstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/graphkit-io/graphkit/query"
	"github.com/graphkit-io/graphkit/store"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// indexPrefix prefixes every bookkeeping property this package writes
// on indexed elements.
const indexPrefix = "_gkidx_"

// Config holds the Neo4j connection settings.
type Config struct {
	// URI is the Bolt URI (e.g. "neo4j://localhost:7687").
	URI string `yaml:"uri"`

	// Username and Password authenticate with basic auth.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Database selects the database. Defaults to "neo4j".
	Database string `yaml:"database"`
}

// Store is a Neo4j-backed property-graph store.
type Store struct {
	driver   neo4j.DriverWithContext
	database string

	// mu guards boundTx. While a transaction manager has a
	// transaction open, every statement runs inside it.
	mu      sync.Mutex
	boundTx neo4j.ExplicitTransaction
}

// New connects to Neo4j according to cfg and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("neo4jstore: creating driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4jstore: connecting to neo4j: %w", err)
	}

	return &Store{driver: driver, database: cfg.Database}, nil
}

// Close closes the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) bindTransaction(tx neo4j.ExplicitTransaction) {
	s.mu.Lock()
	s.boundTx = tx
	s.mu.Unlock()
}

func (s *Store) unbindTransaction() {
	s.mu.Lock()
	s.boundTx = nil
	s.mu.Unlock()
}

// run executes one Cypher statement, inside the bound transaction when
// one is open, otherwise in a throwaway auto-commit session. collect is
// called with the live result and must drain everything it needs before
// returning.
func (s *Store) run(ctx context.Context, op, cypher string, params map[string]any, collect func(neo4j.ResultWithContext) error) error {
	s.mu.Lock()
	tx := s.boundTx
	s.mu.Unlock()

	if tx != nil {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrUnavailable, err)}
		}
		if err := collect(res); err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			return &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrUnavailable, err)}
		}
		return nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrUnavailable, err)}
	}
	if err := collect(res); err != nil {
		return err
	}
	if _, err := res.Consume(ctx); err != nil {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrUnavailable, err)}
	}
	return nil
}

// node wraps a driver node, hiding index bookkeeping properties.
type node struct {
	id    int64
	props map[string]any
}

func newNode(n neo4j.Node) *node {
	return &node{id: n.Id, props: stripInternal(n.Props)}
}

func (n *node) ID() int64              { return n.id }
func (n *node) Kind() store.EntityKind { return store.KindNode }

func (n *node) Property(key string) (any, bool) {
	v, ok := n.props[key]
	return v, ok
}

func (n *node) Properties() map[string]any { return n.props }

// relationship wraps a driver relationship and its endpoints.
type relationship struct {
	id    int64
	typ   string
	start *node
	end   *node
	props map[string]any
}

func newRelationship(r neo4j.Relationship, start, end neo4j.Node) *relationship {
	return &relationship{
		id:    r.Id,
		typ:   r.Type,
		start: newNode(start),
		end:   newNode(end),
		props: stripInternal(r.Props),
	}
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

func stripInternal(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if strings.HasPrefix(k, indexPrefix) {
			continue
		}
		out[k] = v
	}
	return out
}

// CreateNode creates a node with the given properties.
func (s *Store) CreateNode(ctx context.Context, props map[string]any) (store.Node, error) {
	const op = "neo4jstore.CreateNode"
	if props == nil {
		props = map[string]any{}
	}

	var created *node
	err := s.run(ctx, op, "CREATE (n) SET n = $props RETURN n", map[string]any{"props": props},
		func(res neo4j.ResultWithContext) error {
			if !res.Next(ctx) {
				return &store.Error{Op: op, Err: fmt.Errorf("%w: no node returned", store.ErrUnavailable)}
			}
			v, _ := res.Record().Get("n")
			created = newNode(v.(neo4j.Node))
			return nil
		})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateRelationship creates a relationship between two existing nodes.
// The relationship type cannot be parameterized in Cypher, so it is
// validated before being spliced into the statement.
func (s *Store) CreateRelationship(ctx context.Context, start, end store.Node, relType string, props map[string]any) (store.Relationship, error) {
	const op = "neo4jstore.CreateRelationship"
	if start == nil || end == nil {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: nil endpoint", store.ErrConstraintViolation)}
	}
	if !query.ValidIdentifier(relType) {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: relationship type %q", store.ErrConstraintViolation, relType)}
	}
	if props == nil {
		props = map[string]any{}
	}

	cypher := fmt.Sprintf(`
		MATCH (a) WHERE id(a) = $start
		MATCH (b) WHERE id(b) = $end
		CREATE (a)-[r:%s]->(b) SET r = $props
		RETURN a, r, b`, relType)
	params := map[string]any{"start": start.ID(), "end": end.ID(), "props": props}

	var created *relationship
	err := s.run(ctx, op, cypher, params, func(res neo4j.ResultWithContext) error {
		if !res.Next(ctx) {
			return &store.Error{Op: op, Err: fmt.Errorf("%w: endpoint node", store.ErrNotFound)}
		}
		created = relationshipFromRecord(res.Record())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// NodeByID returns the node with the given id.
func (s *Store) NodeByID(ctx context.Context, id int64) (store.Node, error) {
	const op = "neo4jstore.NodeByID"

	var found *node
	err := s.run(ctx, op, "MATCH (n) WHERE id(n) = $id RETURN n", map[string]any{"id": id},
		func(res neo4j.ResultWithContext) error {
			if !res.Next(ctx) {
				return &store.Error{Op: op, Err: fmt.Errorf("%w: node %d", store.ErrNotFound, id)}
			}
			v, _ := res.Record().Get("n")
			found = newNode(v.(neo4j.Node))
			return nil
		})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// RelationshipByID returns the relationship with the given id.
func (s *Store) RelationshipByID(ctx context.Context, id int64) (store.Relationship, error) {
	const op = "neo4jstore.RelationshipByID"

	var found *relationship
	err := s.run(ctx, op, "MATCH (a)-[r]->(b) WHERE id(r) = $id RETURN a, r, b", map[string]any{"id": id},
		func(res neo4j.ResultWithContext) error {
			if !res.Next(ctx) {
				return &store.Error{Op: op, Err: fmt.Errorf("%w: relationship %d", store.ErrNotFound, id)}
			}
			found = relationshipFromRecord(res.Record())
			return nil
		})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ReferenceNode returns the store's entry-point node, creating it on
// first use.
func (s *Store) ReferenceNode(ctx context.Context) (store.Node, error) {
	const op = "neo4jstore.ReferenceNode"

	var ref *node
	err := s.run(ctx, op, "MERGE (ref:GkReference) RETURN ref", nil,
		func(res neo4j.ResultWithContext) error {
			if !res.Next(ctx) {
				return &store.Error{Op: op, Err: fmt.Errorf("%w: no reference node returned", store.ErrUnavailable)}
			}
			v, _ := res.Record().Get("ref")
			ref = newNode(v.(neo4j.Node))
			return nil
		})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func relationshipFromRecord(rec *neo4j.Record) *relationship {
	a, _ := rec.Get("a")
	r, _ := rec.Get("r")
	b, _ := rec.Get("b")
	return newRelationship(r.(neo4j.Relationship), a.(neo4j.Node), b.(neo4j.Node))
}

// sliceCursor iterates a materialized element slice. Results are
// drained inside the session that produced them, so the cursor itself
// holds no server resources.
type sliceCursor struct {
	entities []store.Entity
	pos      int
	current  store.Entity
	err      error
	closed   bool
}

func (c *sliceCursor) Next() bool {
	if c.closed {
		if c.err == nil {
			c.err = store.ErrClosed
		}
		return false
	}
	if c.err != nil || c.pos >= len(c.entities) {
		return false
	}
	c.current = c.entities[c.pos]
	c.pos++
	return true
}

func (c *sliceCursor) Entity() store.Entity { return c.current }
func (c *sliceCursor) Err() error           { return c.err }

func (c *sliceCursor) Close() error {
	c.closed = true
	return nil
}
