package graphkit

import (
	"context"
	"errors"

	"github.com/graphkit-io/graphkit/store"
)

// UnitOfWork is a single caller-supplied operation executed against the
// store, optionally inside one transaction. Units of work are created
// per call and discarded after execution; they must not retain the
// store handle.
type UnitOfWork func(ctx context.Context, s store.Store) (any, error)

// Exec runs one unit of work against the store.
//
// Without a transaction manager the work runs directly. With one, Exec
// opens exactly one transaction, commits on normal return and rolls
// back on failure; it never batches calls into one transaction and
// never leaves one open across calls.
//
// Any failure — from the work, from the store, or from transaction
// demarcation — surfaces as a translated GraphError with the original
// cause retrievable through errors.Unwrap.
func (t *Template) Exec(ctx context.Context, work UnitOfWork) (any, error) {
	const op = "Template.Exec"
	if work == nil {
		return nil, NewInvalidArgumentError(op, errors.New("work is required; it must not be nil"))
	}

	if t.txManager == nil {
		return t.doExec(ctx, op, work)
	}

	tx, err := t.txManager.Begin(ctx)
	if err != nil {
		return nil, Translate(op, err)
	}

	out, err := t.doExec(ctx, op, work)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			t.logger.Warn("rollback failed after unit of work error",
				"op", op,
				"error", rbErr)
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, Translate(op, err)
	}
	return out, nil
}

// doExec invokes the work and normalizes its failure, transaction or
// not, so Exec presents one error surface regardless of where the
// failure originated.
func (t *Template) doExec(ctx context.Context, op string, work UnitOfWork) (any, error) {
	out, err := work(ctx, t.store)
	if err != nil {
		return nil, Translate(op, err)
	}
	return out, nil
}

// Run executes a typed unit of work through the Template's executor.
// It is the type-safe entry point for advanced callers who need custom
// sequences of store calls inside one transaction.
//
//	count, err := graphkit.Run(ctx, tpl, func(ctx context.Context, s store.Store) (int, error) {
//	    ...
//	})
func Run[T any](ctx context.Context, t *Template, work func(ctx context.Context, s store.Store) (T, error)) (T, error) {
	var zero T
	if work == nil {
		return zero, NewInvalidArgumentError("graphkit.Run", errors.New("work is required; it must not be nil"))
	}
	out, err := t.Exec(ctx, func(ctx context.Context, s store.Store) (any, error) {
		return work(ctx, s)
	})
	if err != nil {
		return zero, err
	}
	value, _ := out.(T)
	return value, nil
}
