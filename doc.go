// Package graphkit is a data-access facade for embedded property-graph
// stores. It gives callers a uniform way to run units of work inside
// managed transaction boundaries, create and index graph elements, run
// index lookups and declarative queries, and consume results as lazy,
// resource-safe sequences instead of raw store cursors.
//
// # Architecture
//
// The facade sits between application code and a store implementing
// the capability interfaces in the store package:
//
//	caller → Template operation → Exec(unit of work) → store.Store
//	                                        ↓
//	                     cursor → result.Sequence → caller iterates, closes
//
// Three mechanisms carry the real invariants:
//
//   - The transactional executor (Template.Exec): exactly one
//     transaction per unit of work when a transaction manager is
//     configured, commit on success, rollback on failure.
//   - Error translation (Translate, GraphError): every failure is
//     normalized into the closed taxonomy {invalid_argument, store,
//     uncategorized} with the original cause preserved.
//   - Lazy result mapping (package result): cursors are wrapped into
//     sequences that pull one element per step and release the cursor
//     exactly once.
//
// # Backends
//
// The store subpackages provide implementations of the capability
// interfaces: memstore (embedded in-memory store with indexes, CEL
// query objects, traversal, and a snapshotting transaction manager),
// neo4jstore (Neo4j server over the official Go driver), and
// redisindex (Redis-backed external index).
//
// # Usage
//
//	s := memstore.New()
//	tpl, err := graphkit.New(s,
//	    graphkit.WithTransactionManager(memstore.NewTxManager(s, nil)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ann, err := tpl.CreateNode(ctx, map[string]any{"name": "Ann"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tpl.AddIndexEntry(ctx, "people", ann, "name", "Ann"); err != nil {
//	    log.Fatal(err)
//	}
//
//	seq, err := tpl.Lookup(ctx, "people", "name", "Ann")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer graphkit.CloseWithLog(seq, nil, "people lookup")
//	for seq.Next() {
//	    fmt.Println(seq.Value().ID())
//	}
//	if err := seq.Err(); err != nil {
//	    log.Fatal(err)
//	}
//
// Sequences are scoped resources: close them on every exit path. The
// facade never closes a sequence it has handed out.
package graphkit
