package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/graphkit-io/graphkit/store"
)

// traversalEngine walks the graph breadth-first from a start node.
type traversalEngine struct {
	store *Store
}

// Traverse returns a cursor over the nodes reachable from start under
// the spec, start first, then in breadth-first visit order. Each node
// is visited at most once.
func (e *traversalEngine) Traverse(ctx context.Context, start store.Node, spec store.TraversalSpec) (store.Cursor, error) {
	const op = "memstore.Traverse"
	if start == nil {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: nil start node", store.ErrConstraintViolation)}
	}

	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	origin, ok := e.store.nodes[start.ID()]
	if !ok {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: start node %d", store.ErrNotFound, start.ID())}
	}

	type frontier struct {
		node  *node
		depth int
	}

	visited := map[int64]struct{}{origin.id: {}}
	order := []int64{origin.id}
	queue := []frontier{{node: origin, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if spec.MaxDepth > 0 && cur.depth >= spec.MaxDepth {
			continue
		}
		for _, next := range e.neighbors(cur.node, spec) {
			if _, seen := visited[next.id]; seen {
				continue
			}
			visited[next.id] = struct{}{}
			order = append(order, next.id)
			queue = append(queue, frontier{node: next, depth: cur.depth + 1})
		}
	}

	return &idCursor{store: e.store, kind: store.KindNode, ids: order}, nil
}

// neighbors returns the nodes one hop from n under the spec, in
// relationship-id order for deterministic traversal.
func (e *traversalEngine) neighbors(n *node, spec store.TraversalSpec) []*node {
	ids := make([]int64, 0, len(e.store.rels))
	for id := range e.store.rels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	var out []*node
	for _, id := range ids {
		r := e.store.rels[id]
		if spec.RelationshipType != "" && r.typ != spec.RelationshipType {
			continue
		}
		switch spec.Direction {
		case store.DirectionOutgoing:
			if r.start.id == n.id {
				out = append(out, r.end)
			}
		case store.DirectionIncoming:
			if r.end.id == n.id {
				out = append(out, r.start)
			}
		case store.DirectionBoth:
			if r.start.id == n.id {
				out = append(out, r.end)
			} else if r.end.id == n.id {
				out = append(out, r.start)
			}
		}
	}
	return out
}
