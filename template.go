package graphkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/graphkit-io/graphkit/result"
	"github.com/graphkit-io/graphkit/store"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Template is the data-access facade over a property-graph store. It
// runs units of work inside managed transaction boundaries, creates and
// indexes graph elements, and hands results back as lazy, closable
// sequences instead of raw cursors.
//
// A Template holds no mutable state beyond its immutable configuration,
// so it is safe for concurrent use whenever the store and transaction
// manager are.
//
// Example:
//
//	tpl, err := graphkit.New(memstore.New(),
//	    graphkit.WithTransactionManager(txm),
//	    graphkit.WithLogger(logger),
//	)
//	if err != nil { ... }
//	node, err := tpl.CreateNode(ctx, map[string]any{"name": "Ann"})
type Template struct {
	store     store.Store
	txManager store.TransactionManager
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New creates a Template over the given store. The store is required;
// the transaction manager, logger, and tracer are optional.
func New(s store.Store, opts ...Option) (*Template, error) {
	if s == nil {
		return nil, NewInvalidArgumentError("graphkit.New", errors.New("store is required; it must not be nil"))
	}

	cfg := &templateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	if cfg.tracer == nil {
		cfg.tracer = noop.NewTracerProvider().Tracer("graphkit")
	}

	return &Template{
		store:     s,
		txManager: cfg.txManager,
		logger:    cfg.logger,
		tracer:    cfg.tracer,
	}, nil
}

// CreateNode creates a node with the given properties inside a managed
// transaction and returns the created node handle.
func (t *Template) CreateNode(ctx context.Context, props map[string]any) (store.Node, error) {
	const op = "Template.CreateNode"
	ctx, span := t.tracer.Start(ctx, op)
	defer span.End()

	out, err := t.Exec(ctx, func(ctx context.Context, s store.Store) (any, error) {
		return s.CreateNode(ctx, props)
	})
	if err != nil {
		return nil, err
	}
	node, _ := out.(store.Node)
	return node, nil
}

// CreateRelationship creates a relationship of the given type between
// two nodes inside a managed transaction.
func (t *Template) CreateRelationship(ctx context.Context, startNode, endNode store.Node, relType string, props map[string]any) (store.Relationship, error) {
	const op = "Template.CreateRelationship"
	if err := requireArgs(op,
		"startNode", startNode,
		"endNode", endNode,
		"relationshipType", relType,
		"properties", props,
	); err != nil {
		return nil, err
	}
	ctx, span := t.tracer.Start(ctx, op)
	defer span.End()

	out, err := t.Exec(ctx, func(ctx context.Context, s store.Store) (any, error) {
		return s.CreateRelationship(ctx, startNode, endNode, relType, props)
	})
	if err != nil {
		return nil, err
	}
	rel, _ := out.(store.Relationship)
	return rel, nil
}

// AddIndexEntry records an index entry for the element under the given
// index name, picking the node or relationship index namespace from the
// element's kind. Runs inside a managed transaction.
func (t *Template) AddIndexEntry(ctx context.Context, indexName string, element store.Entity, field string, value any) error {
	const op = "Template.AddIndexEntry"
	if err := requireArgs(op,
		"indexName", indexName,
		"element", element,
		"field", field,
		"value", value,
	); err != nil {
		return err
	}
	ctx, span := t.tracer.Start(ctx, op)
	defer span.End()

	_, err := t.Exec(ctx, func(ctx context.Context, s store.Store) (any, error) {
		var kind store.EntityKind
		switch element.Kind() {
		case store.KindNode:
			kind = store.KindNode
		case store.KindRelationship:
			kind = store.KindRelationship
		default:
			return nil, fmt.Errorf("element is neither node nor relationship: kind %d", int(element.Kind()))
		}
		idx, err := s.CreateIndex(ctx, kind, indexName)
		if err != nil {
			return nil, err
		}
		return nil, idx.Add(ctx, element, field, value)
	})
	return err
}

// Lookup returns the elements indexed under the exact (field, value)
// pair in the named index, as a lazy, closable sequence. Lookups are
// always non-transactional reads; they never join an open transaction.
func (t *Template) Lookup(ctx context.Context, indexName, field string, value any) (result.Sequence[store.Entity], error) {
	const op = "Template.Lookup"
	if err := requireArgs(op,
		"indexName", indexName,
		"field", field,
		"value", value,
	); err != nil {
		return nil, err
	}
	ctx, span := t.tracer.Start(ctx, op)
	defer span.End()

	idx, err := t.store.Index(ctx, indexName)
	if err != nil {
		return nil, Translate(op, err)
	}
	cursor, err := idx.Get(ctx, field, value)
	if err != nil {
		return nil, Translate(op, err)
	}
	return result.FromCursor(cursor), nil
}

// LookupQuery returns the elements matching a query object in the named
// index. The accepted query-object shapes are the index's business; the
// backends in this module take a map of exact field matches or a CEL
// property expression. Non-transactional, like Lookup.
func (t *Template) LookupQuery(ctx context.Context, indexName string, queryObject any) (result.Sequence[store.Entity], error) {
	const op = "Template.LookupQuery"
	if err := requireArgs(op,
		"indexName", indexName,
		"queryObject", queryObject,
	); err != nil {
		return nil, err
	}
	ctx, span := t.tracer.Start(ctx, op)
	defer span.End()

	idx, err := t.store.Index(ctx, indexName)
	if err != nil {
		return nil, Translate(op, err)
	}
	cursor, err := idx.Query(ctx, queryObject)
	if err != nil {
		return nil, Translate(op, err)
	}
	return result.FromCursor(cursor), nil
}

// Query runs a Cypher statement against the store's query engine and
// returns the engine's native lazy row sequence. The caller owns the
// returned cursor and must close it.
func (t *Template) Query(ctx context.Context, statement string, params map[string]any) (store.RowCursor, error) {
	const op = "Template.Query"
	if err := requireArgs(op, "statement", statement); err != nil {
		return nil, err
	}
	ctx, span := t.tracer.Start(ctx, op)
	defer span.End()

	engine, err := t.store.QueryEngineFor(store.QueryCypher)
	if err != nil {
		return nil, Translate(op, err)
	}
	rows, err := engine.Query(ctx, statement, params)
	if err != nil {
		return nil, Translate(op, err)
	}
	return rows, nil
}

// Traverse walks the graph from startNode according to spec and returns
// the visited nodes as a lazy, closable sequence.
func (t *Template) Traverse(ctx context.Context, startNode store.Node, spec store.TraversalSpec) (result.Sequence[store.Entity], error) {
	const op = "Template.Traverse"
	if err := requireArgs(op, "startNode", startNode); err != nil {
		return nil, err
	}
	ctx, span := t.tracer.Start(ctx, op)
	defer span.End()

	cursor, err := t.store.TraversalEngine().Traverse(ctx, startNode, spec)
	if err != nil {
		return nil, Translate(op, err)
	}
	return result.FromCursor(cursor), nil
}

// NodeByID returns the node with the given id. Direct store call with
// translation, no transaction.
func (t *Template) NodeByID(ctx context.Context, id int64) (store.Node, error) {
	const op = "Template.NodeByID"
	if id < 0 {
		return nil, NewInvalidArgumentError(op, fmt.Errorf("id is negative: %d", id))
	}
	ctx, span := t.tracer.Start(ctx, op)
	defer span.End()

	node, err := t.store.NodeByID(ctx, id)
	if err != nil {
		return nil, Translate(op, err)
	}
	return node, nil
}

// RelationshipByID returns the relationship with the given id. Direct
// store call with translation, no transaction.
func (t *Template) RelationshipByID(ctx context.Context, id int64) (store.Relationship, error) {
	const op = "Template.RelationshipByID"
	if id < 0 {
		return nil, NewInvalidArgumentError(op, fmt.Errorf("id is negative: %d", id))
	}
	ctx, span := t.tracer.Start(ctx, op)
	defer span.End()

	rel, err := t.store.RelationshipByID(ctx, id)
	if err != nil {
		return nil, Translate(op, err)
	}
	return rel, nil
}

// ReferenceNode returns the store's well-known entry-point node. Direct
// store call with translation, no transaction.
func (t *Template) ReferenceNode(ctx context.Context) (store.Node, error) {
	const op = "Template.ReferenceNode"
	ctx, span := t.tracer.Start(ctx, op)
	defer span.End()

	node, err := t.store.ReferenceNode(ctx)
	if err != nil {
		return nil, Translate(op, err)
	}
	return node, nil
}

// LookupNodes looks up nodes in the named index and lazily maps each
// hit through mapper via a node-rooted path.
func LookupNodes[T any](ctx context.Context, t *Template, indexName, field string, value any, mapper result.PathMapper[T]) (result.Sequence[T], error) {
	const op = "graphkit.LookupNodes"
	if err := requireArgs(op,
		"indexName", indexName,
		"field", field,
		"value", value,
		"mapper", mapper,
	); err != nil {
		return nil, err
	}
	idx, err := t.store.Index(ctx, indexName)
	if err != nil {
		return nil, Translate(op, err)
	}
	cursor, err := idx.Get(ctx, field, value)
	if err != nil {
		return nil, Translate(op, err)
	}
	return result.MapNodes(cursor, mapper), nil
}

// LookupRelationships looks up relationships in the named index and
// lazily maps each hit through mapper via a relationship-rooted path.
func LookupRelationships[T any](ctx context.Context, t *Template, indexName, field string, value any, mapper result.PathMapper[T]) (result.Sequence[T], error) {
	const op = "graphkit.LookupRelationships"
	if err := requireArgs(op,
		"indexName", indexName,
		"field", field,
		"value", value,
		"mapper", mapper,
	); err != nil {
		return nil, err
	}
	idx, err := t.store.Index(ctx, indexName)
	if err != nil {
		return nil, Translate(op, err)
	}
	cursor, err := idx.Get(ctx, field, value)
	if err != nil {
		return nil, Translate(op, err)
	}
	return result.MapRelationships(cursor, mapper), nil
}
