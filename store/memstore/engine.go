package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/graphkit-io/graphkit/query"
	"github.com/graphkit-io/graphkit/store"
)

// celEngine is the in-memory store's declarative query engine. A
// statement is a CEL boolean expression over `props`; the engine
// evaluates it against every node and yields one row per match with
// columns "id", "kind", and "props".
type celEngine struct {
	store *Store
}

// Query compiles the statement and returns the matching rows. The
// engine has no parameter support; params is ignored and statements
// reference element properties only.
func (e *celEngine) Query(ctx context.Context, statement string, params map[string]any) (store.RowCursor, error) {
	const op = "memstore.Query"

	filter, err := query.NewFilter(statement)
	if err != nil {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrConstraintViolation, err)}
	}

	e.store.mu.RLock()
	ids := make([]int64, 0, len(e.store.nodes))
	for id := range e.store.nodes {
		ids = append(ids, id)
	}
	e.store.mu.RUnlock()
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	rows := make([]map[string]any, 0)
	for _, id := range ids {
		n, err := e.store.entityByID(store.KindNode, id)
		if err != nil {
			return nil, err
		}
		ok, err := filter.Matches(n.Properties())
		if err != nil {
			return nil, &store.Error{Op: op, Err: err}
		}
		if !ok {
			continue
		}
		rows = append(rows, map[string]any{
			"id":    n.ID(),
			"kind":  n.Kind().String(),
			"props": n.Properties(),
		})
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
