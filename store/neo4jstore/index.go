package neo4jstore

import (
	"context"
	"fmt"

	"github.com/graphkit-io/graphkit/query"
	"github.com/graphkit-io/graphkit/store"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// CreateIndex returns the index with the given kind and name, creating
// its metadata node if absent. Names are restricted to identifiers
// because they become part of bookkeeping property keys.
func (s *Store) CreateIndex(ctx context.Context, kind store.EntityKind, name string) (store.Index, error) {
	const op = "neo4jstore.CreateIndex"
	if !kind.IsValid() {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: invalid entity kind %d", store.ErrConstraintViolation, int(kind))}
	}
	if !query.ValidIdentifier(name) {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: index name %q", store.ErrConstraintViolation, name)}
	}

	cypher := "MERGE (m:GkIndexMeta {name: $name, kind: $kind}) RETURN m"
	params := map[string]any{"name": name, "kind": kind.String()}
	err := s.run(ctx, op, cypher, params, func(res neo4j.ResultWithContext) error {
		if !res.Next(ctx) {
			return &store.Error{Op: op, Err: fmt.Errorf("%w: no index metadata returned", store.ErrUnavailable)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &index{store: s, name: name, kind: kind}, nil
}

// Index returns the existing index with the given name.
func (s *Store) Index(ctx context.Context, name string) (store.Index, error) {
	const op = "neo4jstore.Index"

	var kindName string
	found := false
	err := s.run(ctx, op, "MATCH (m:GkIndexMeta {name: $name}) RETURN m.kind AS kind", map[string]any{"name": name},
		func(res neo4j.ResultWithContext) error {
			if !res.Next(ctx) {
				return nil
			}
			v, _ := res.Record().Get("kind")
			kindName, _ = v.(string)
			found = true
			return nil
		})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: %q", store.ErrIndexNotFound, name)}
	}

	kind := store.KindNode
	if kindName == store.KindRelationship.String() {
		kind = store.KindRelationship
	}
	return &index{store: s, name: name, kind: kind}, nil
}

// index is a kind-scoped index emulated with prefixed properties on
// the indexed elements themselves.
type index struct {
	store *Store
	name  string
	kind  store.EntityKind
}

func (i *index) Name() string           { return i.name }
func (i *index) Kind() store.EntityKind { return i.kind }

// entryKey is the bookkeeping property key for one indexed field.
func (i *index) entryKey(field string) string {
	return indexPrefix + i.name + "_" + field
}

// Add records an entry for the element under (field, value) by writing
// the bookkeeping property onto the element.
func (i *index) Add(ctx context.Context, e store.Entity, field string, value any) error {
	const op = "neo4jstore.Index.Add"
	if e == nil {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: nil element", store.ErrConstraintViolation)}
	}
	if e.Kind() != i.kind {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: %s element in %s index %q", store.ErrConstraintViolation, e.Kind(), i.kind, i.name)}
	}

	var cypher string
	switch i.kind {
	case store.KindNode:
		cypher = "MATCH (n) WHERE id(n) = $id SET n += $entry RETURN id(n) AS id"
	case store.KindRelationship:
		cypher = "MATCH ()-[r]->() WHERE id(r) = $id SET r += $entry RETURN id(r) AS id"
	}
	params := map[string]any{
		"id":    e.ID(),
		"entry": map[string]any{i.entryKey(field): value},
	}

	return i.store.run(ctx, op, cypher, params, func(res neo4j.ResultWithContext) error {
		if !res.Next(ctx) {
			return &store.Error{Op: op, Err: fmt.Errorf("%w: %s %d", store.ErrNotFound, i.kind, e.ID())}
		}
		return nil
	})
}

// Get returns a cursor over elements indexed under the exact
// (field, value) pair.
func (i *index) Get(ctx context.Context, field string, value any) (store.Cursor, error) {
	const op = "neo4jstore.Index.Get"

	var cypher string
	switch i.kind {
	case store.KindNode:
		cypher = "MATCH (n) WHERE n[$key] = $value RETURN n ORDER BY id(n)"
	case store.KindRelationship:
		cypher = "MATCH (a)-[r]->(b) WHERE r[$key] = $value RETURN a, r, b ORDER BY id(r)"
	}
	params := map[string]any{"key": i.entryKey(field), "value": value}
	return i.collect(ctx, op, cypher, params, nil)
}

// Query returns a cursor over elements matching the query object: a
// map[string]any matches every (field, value) pair exactly; a string
// compiles as a CEL property filter evaluated against each member.
func (i *index) Query(ctx context.Context, q any) (store.Cursor, error) {
	const op = "neo4jstore.Index.Query"

	switch qo := q.(type) {
	case map[string]any:
		if len(qo) == 0 {
			return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: empty query map", store.ErrConstraintViolation)}
		}
		cypher, params := i.matchAll(qo)
		return i.collect(ctx, op, cypher, params, nil)

	case string:
		filter, err := query.NewFilter(qo)
		if err != nil {
			return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrConstraintViolation, err)}
		}
		cypher, params := i.matchMembers()
		return i.collect(ctx, op, cypher, params, filter)

	default:
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: query object of type %T", store.ErrUnsupported, q)}
	}
}

// matchAll builds a statement matching elements whose bookkeeping
// properties equal every (field, value) pair.
func (i *index) matchAll(pairs map[string]any) (string, map[string]any) {
	alias := "n"
	match := "MATCH (n)"
	ret := "RETURN n ORDER BY id(n)"
	if i.kind == store.KindRelationship {
		alias = "r"
		match = "MATCH (a)-[r]->(b)"
		ret = "RETURN a, r, b ORDER BY id(r)"
	}

	params := make(map[string]any, 2*len(pairs))
	conditions := ""
	idx := 0
	for field, value := range pairs {
		keyParam := fmt.Sprintf("k%d", idx)
		valParam := fmt.Sprintf("v%d", idx)
		if conditions != "" {
			conditions += " AND "
		}
		conditions += fmt.Sprintf("%s[$%s] = $%s", alias, keyParam, valParam)
		params[keyParam] = i.entryKey(field)
		params[valParam] = value
		idx++
	}
	return fmt.Sprintf("%s WHERE %s %s", match, conditions, ret), params
}

// matchMembers builds a statement matching every element carrying any
// of this index's bookkeeping properties.
func (i *index) matchMembers() (string, map[string]any) {
	prefix := indexPrefix + i.name + "_"
	params := map[string]any{"prefix": prefix}
	if i.kind == store.KindRelationship {
		return "MATCH (a)-[r]->(b) WHERE any(k IN keys(r) WHERE k STARTS WITH $prefix) RETURN a, r, b ORDER BY id(r)", params
	}
	return "MATCH (n) WHERE any(k IN keys(n) WHERE k STARTS WITH $prefix) RETURN n ORDER BY id(n)", params
}

// collect drains the statement's elements into a cursor, applying the
// optional CEL filter to each element's user-visible properties.
func (i *index) collect(ctx context.Context, op, cypher string, params map[string]any, filter *query.Filter) (store.Cursor, error) {
	var entities []store.Entity
	err := i.store.run(ctx, op, cypher, params, func(res neo4j.ResultWithContext) error {
		for res.Next(ctx) {
			var e store.Entity
			switch i.kind {
			case store.KindNode:
				v, _ := res.Record().Get("n")
				e = newNode(v.(neo4j.Node))
			case store.KindRelationship:
				e = relationshipFromRecord(res.Record())
			}
			if filter != nil {
				ok, err := filter.Matches(e.Properties())
				if err != nil {
					return &store.Error{Op: op, Err: err}
				}
				if !ok {
					continue
				}
			}
			entities = append(entities, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sliceCursor{entities: entities}, nil
}
