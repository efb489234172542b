package neo4jstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/graphkit-io/graphkit/store"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// TxManager demarcates explicit Neo4j transactions over a Store. While
// a transaction is open every statement the store runs joins it.
// Transactions are serialized: Begin blocks until the previous one
// finishes.
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
		panic("neo4jstore: nil store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TxManager{store: s, logger: logger}
}

// Begin opens an explicit transaction on a fresh session and binds it
// to the store, blocking while another transaction is open.
func (m *TxManager) Begin(ctx context.Context) (store.Transaction, error) {
	const op = "neo4jstore.Begin"
	if err := ctx.Err(); err != nil {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrTransaction, err)}
	}
	m.gate.Lock()

	session := m.store.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.store.database})
	driverTx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		m.gate.Unlock()
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrTransaction, err)}
	}

	m.store.bindTransaction(driverTx)
	tx := &transaction{
		id:      uuid.NewString(),
		manager: m,
		session: session,
		tx:      driverTx,
	}
	m.logger.Debug("transaction started", "tx", tx.id)
	return tx, nil
}

type transaction struct {
	id      string
	manager *TxManager
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	done    bool
}

// Commit makes the effects since Begin durable and closes the
// transaction.
func (t *transaction) Commit(ctx context.Context) error {
	const op = "neo4jstore.Commit"
	if t.done {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: transaction %s already closed", store.ErrTransaction, t.id)}
	}
	t.finish()

	err := t.tx.Commit(ctx)
	t.session.Close(ctx)
	if err != nil {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrTransaction, err)}
	}
	t.manager.logger.Debug("transaction committed", "tx", t.id)
	return nil
}

// Rollback discards the effects since Begin and closes the transaction.
func (t *transaction) Rollback(ctx context.Context) error {
	const op = "neo4jstore.Rollback"
	if t.done {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: transaction %s already closed", store.ErrTransaction, t.id)}
	}
	t.finish()

	err := t.tx.Rollback(ctx)
	t.session.Close(ctx)
	if err != nil {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrTransaction, err)}
	}
	t.manager.logger.Debug("transaction rolled back", "tx", t.id)
	return nil
}

// finish unbinds the transaction from the store and releases the gate.
func (t *transaction) finish() {
	t.done = true
	t.manager.store.unbindTransaction()
	t.manager.gate.Unlock()
}
