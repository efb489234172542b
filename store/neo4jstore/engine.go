package neo4jstore

import (
	"context"
	"fmt"

	"github.com/graphkit-io/graphkit/query"
	"github.com/graphkit-io/graphkit/store"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// QueryEngineFor returns the Cypher engine. No other language is
// spoken by this backend.
func (s *Store) QueryEngineFor(lang store.QueryLanguage) (store.QueryEngine, error) {
	switch lang {
	case store.QueryCypher:
		return &cypherEngine{store: s}, nil
	default:
		return nil, &store.Error{Op: "neo4jstore.QueryEngineFor", Err: fmt.Errorf("%w: query language %s", store.ErrUnsupported, lang)}
	}
}

// cypherEngine runs raw parameterized Cypher statements.
type cypherEngine struct {
	store *Store
}

// Query runs the statement and returns its rows. Records are drained
// inside the session, so the returned cursor outlives it safely.
func (e *cypherEngine) Query(ctx context.Context, statement string, params map[string]any) (store.RowCursor, error) {
	const op = "neo4jstore.Query"

	var rows []map[string]any
	err := e.store.run(ctx, op, statement, params, func(res neo4j.ResultWithContext) error {
		for res.Next(ctx) {
			rec := res.Record()
			row := make(map[string]any, len(rec.Keys))
			for idx, key := range rec.Keys {
				row[key] = rec.Values[idx]
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rowCursor{rows: rows}, nil
}

// rowCursor iterates a materialized row slice.
type rowCursor struct {
	rows    []map[string]any
	pos     int
	current map[string]any
	err     error
	closed  bool
}

func (c *rowCursor) Next() bool {
	if c.closed {
		if c.err == nil {
			c.err = store.ErrClosed
		}
		return false
	}
	if c.err != nil || c.pos >= len(c.rows) {
		return false
	}
	c.current = c.rows[c.pos]
	c.pos++
	return true
}

func (c *rowCursor) Row() map[string]any { return c.current }
func (c *rowCursor) Err() error          { return c.err }

func (c *rowCursor) Close() error {
	c.closed = true
	return nil
}

// TraversalEngine returns the store's variable-length-pattern traversal
// engine.
func (s *Store) TraversalEngine() store.TraversalEngine {
	return &traversalEngine{store: s}
}

// traversalEngine expresses traversals as variable-length Cypher
// patterns.
type traversalEngine struct {
	store *Store
}

// Traverse returns a cursor over the nodes reachable from start under
// the spec, start first. Each node appears at most once.
func (e *traversalEngine) Traverse(ctx context.Context, start store.Node, spec store.TraversalSpec) (store.Cursor, error) {
	const op = "neo4jstore.Traverse"
	if start == nil {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: nil start node", store.ErrConstraintViolation)}
	}
	if spec.RelationshipType != "" && !query.ValidIdentifier(spec.RelationshipType) {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: relationship type %q", store.ErrConstraintViolation, spec.RelationshipType)}
	}

	// Resolving the start node up front distinguishes a missing start
	// from a start with no neighbors, and refreshes its properties.
	origin, err := e.store.NodeByID(ctx, start.ID())
	if err != nil {
		return nil, err
	}

	cypher := fmt.Sprintf(
		"MATCH (a) WHERE id(a) = $id MATCH %s RETURN DISTINCT b ORDER BY id(b)",
		query.TraversalPattern(spec, "a", "b"),
	)

	entities := []store.Entity{origin}
	err = e.store.run(ctx, op, cypher, map[string]any{"id": start.ID()}, func(res neo4j.ResultWithContext) error {
		for res.Next(ctx) {
			v, _ := res.Record().Get("b")
			n := newNode(v.(neo4j.Node))
			if n.id == origin.ID() {
				continue
			}
			entities = append(entities, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sliceCursor{entities: entities}, nil
}
