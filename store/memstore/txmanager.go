package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/graphkit-io/graphkit/store"
)

// TxManager demarcates transactions over a Store by snapshotting its
// state on Begin and restoring it on Rollback. Transactions are
// serialized: Begin blocks until the previous transaction finishes, so
// exactly one transaction is open at a time.
type TxManager struct {
	store  *Store
	logger *slog.Logger

	// gate serializes open transactions. Held from Begin until
	// Commit or Rollback.
	gate sync.Mutex
}

// NewTxManager creates a transaction manager for the given store. A nil
// logger falls back to slog.Default.
func NewTxManager(s *Store, logger *slog.Logger) *TxManager {
	if s == nil {
		panic("memstore: nil store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TxManager{store: s, logger: logger}
}

// Begin opens a transaction, blocking while another one is open.
func (m *TxManager) Begin(ctx context.Context) (store.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, &store.Error{Op: "memstore.Begin", Err: fmt.Errorf("%w: %v", store.ErrTransaction, err)}
	}
	m.gate.Lock()

	tx := &transaction{
		id:       uuid.NewString(),
		manager:  m,
		snapshot: m.store.snapshot(),
	}
	m.logger.Debug("transaction started", "tx", tx.id)
	return tx, nil
}

type transaction struct {
	id       string
	manager  *TxManager
	snapshot *snapshot
	done     bool
}

// Commit keeps the effects since Begin and closes the transaction.
func (t *transaction) Commit(ctx context.Context) error {
	if t.done {
		return &store.Error{Op: "memstore.Commit", Err: fmt.Errorf("%w: transaction %s already closed", store.ErrTransaction, t.id)}
	}
	t.done = true
	t.snapshot = nil
	t.manager.logger.Debug("transaction committed", "tx", t.id)
	t.manager.gate.Unlock()
	return nil
}

// Rollback restores the store to its state at Begin and closes the
// transaction.
func (t *transaction) Rollback(ctx context.Context) error {
	if t.done {
		return &store.Error{Op: "memstore.Rollback", Err: fmt.Errorf("%w: transaction %s already closed", store.ErrTransaction, t.id)}
	}
	t.done = true
	t.manager.store.restore(t.snapshot)
	t.snapshot = nil
	t.manager.logger.Debug("transaction rolled back", "tx", t.id)
	t.manager.gate.Unlock()
	return nil
}

// snapshot captures the store's element and index tables. Elements are
// immutable after creation, so a shallow copy of the tables is enough
// to undo creations and index additions.
type snapshot struct {
	nodes   map[int64]*node
	rels    map[int64]*relationship
	indexes map[indexKey]*index
	nextID  int64
}

func (s *Store) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &snapshot{
		nodes:   make(map[int64]*node, len(s.nodes)),
		rels:    make(map[int64]*relationship, len(s.rels)),
		indexes: make(map[indexKey]*index, len(s.indexes)),
		nextID:  s.nextID,
	}
	for id, n := range s.nodes {
		snap.nodes[id] = n
	}
	for id, r := range s.rels {
		snap.rels[id] = r
	}
	for key, idx := range s.indexes {
		snap.indexes[key] = idx.clone()
	}
	return snap
}

func (s *Store) restore(snap *snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = snap.nodes
	s.rels = snap.rels
	s.indexes = snap.indexes
	s.nextID = snap.nextID
}

func (i *index) clone() *index {
	out := &index{
		store:   i.store,
		name:    i.name,
		kind:    i.kind,
		entries: make(map[string]map[string][]int64, len(i.entries)),
	}
	for field, byValue := range i.entries {
		cloned := make(map[string][]int64, len(byValue))
		for key, ids := range byValue {
			cloned[key] = append([]int64(nil), ids...)
		}
		out.entries[field] = cloned
	}
	return out
}
