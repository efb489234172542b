package graphkit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/graphkit-io/graphkit/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecNilWork(t *testing.T) {
	s := newRecordingStore()
	txm := &fakeTxManager{}
	tpl, err := New(s, WithTransactionManager(txm), WithLogger(discardLogger()))
	require.NoError(t, err)

	_, err = tpl.Exec(context.Background(), nil)

	require.Error(t, err)
	assert.True(t, IsInvalidArgument(err))
	assert.Zero(t, txm.begins, "no transaction should be opened for a nil unit of work")
	assert.Zero(t, s.totalCalls(), "no store call should happen for a nil unit of work")
}

func TestExecWithoutTransactionManager(t *testing.T) {
	s := newRecordingStore()
	tpl, err := New(s, WithLogger(discardLogger()))
	require.NoError(t, err)

	invoked := 0
	out, err := tpl.Exec(context.Background(), func(ctx context.Context, ws store.Store) (any, error) {
		invoked++
		assert.Same(t, store.Store(s), ws, "unit of work should receive the configured store")
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 1, invoked)
}

func TestExecCommitsOnSuccess(t *testing.T) {
	s := newRecordingStore()
	txm := &fakeTxManager{}
	tpl, err := New(s, WithTransactionManager(txm), WithLogger(discardLogger()))
	require.NoError(t, err)

	out, err := tpl.Exec(context.Background(), func(ctx context.Context, ws store.Store) (any, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 1, txm.begins)
	assert.Equal(t, 1, txm.commits)
	assert.Zero(t, txm.rollbacks)
}

func TestExecRollsBackOnFailure(t *testing.T) {
	s := newRecordingStore()
	txm := &fakeTxManager{}
	tpl, err := New(s, WithTransactionManager(txm), WithLogger(discardLogger()))
	require.NoError(t, err)

	cause := errors.New("work exploded")
	_, err = tpl.Exec(context.Background(), func(ctx context.Context, ws store.Store) (any, error) {
		return nil, cause
	})

	require.Error(t, err)
	assert.True(t, IsUncategorized(err), "a non-store work failure should be uncategorized")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, txm.begins)
	assert.Zero(t, txm.commits)
	assert.Equal(t, 1, txm.rollbacks)
}

func TestExecStoreFailureKind(t *testing.T) {
	s := newRecordingStore()
	tpl, err := New(s, WithLogger(discardLogger()))
	require.NoError(t, err)

	_, err = tpl.Exec(context.Background(), func(ctx context.Context, ws store.Store) (any, error) {
		return nil, &store.Error{Op: "memstore.NodeByID", Err: store.ErrNotFound}
	})

	require.Error(t, err)
	assert.True(t, IsStoreFailure(err))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExecBeginFailure(t *testing.T) {
	s := newRecordingStore()
	txm := &fakeTxManager{beginErr: &store.Error{Op: "begin", Err: store.ErrTransaction}}
	tpl, err := New(s, WithTransactionManager(txm), WithLogger(discardLogger()))
	require.NoError(t, err)

	invoked := 0
	_, err = tpl.Exec(context.Background(), func(ctx context.Context, ws store.Store) (any, error) {
		invoked++
		return nil, nil
	})

	require.Error(t, err)
	assert.True(t, IsStoreFailure(err))
	assert.ErrorIs(t, err, store.ErrTransaction)
	assert.Zero(t, invoked, "the unit of work must not run when Begin fails")
}

func TestExecCommitFailure(t *testing.T) {
	s := newRecordingStore()
	txm := &fakeTxManager{commitErr: &store.Error{Op: "commit", Err: store.ErrTransaction}}
	tpl, err := New(s, WithTransactionManager(txm), WithLogger(discardLogger()))
	require.NoError(t, err)

	_, err = tpl.Exec(context.Background(), func(ctx context.Context, ws store.Store) (any, error) {
		return "ok", nil
	})

	require.Error(t, err)
	assert.True(t, IsStoreFailure(err))
	assert.ErrorIs(t, err, store.ErrTransaction)
	assert.Zero(t, txm.rollbacks)
}

func TestExecRollbackFailureKeepsWorkError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := newRecordingStore()
	txm := &fakeTxManager{rollbackErr: errors.New("rollback exploded too")}
	tpl, err := New(s, WithTransactionManager(txm), WithLogger(logger))
	require.NoError(t, err)

	cause := errors.New("work exploded")
	_, err = tpl.Exec(context.Background(), func(ctx context.Context, ws store.Store) (any, error) {
		return nil, cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause, "the work error wins over the rollback error")
	assert.Equal(t, 1, txm.rollbacks)
	assert.True(t, strings.Contains(buf.String(), "rollback failed"),
		"rollback failure should be logged: %s", buf.String())
}

func TestExecExactlyOneTransactionPerCall(t *testing.T) {
	s := newRecordingStore()
	txm := &fakeTxManager{}
	tpl, err := New(s, WithTransactionManager(txm), WithLogger(discardLogger()))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := tpl.Exec(context.Background(), func(ctx context.Context, ws store.Store) (any, error) {
			// Several store calls inside one unit of work share one
			// transaction.
			if _, err := ws.CreateNode(ctx, nil); err != nil {
				return nil, err
			}
			_, err := ws.CreateNode(ctx, nil)
			return nil, err
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, txm.begins)
	assert.Equal(t, 3, txm.commits)
	assert.Equal(t, 6, s.calls["CreateNode"])
}

func TestRun(t *testing.T) {
	s := newRecordingStore()
	tpl, err := New(s, WithLogger(discardLogger()))
	require.NoError(t, err)

	t.Run("typed result", func(t *testing.T) {
		n, err := Run(context.Background(), tpl, func(ctx context.Context, ws store.Store) (store.Node, error) {
			return ws.CreateNode(ctx, map[string]any{"name": "Ann"})
		})
		require.NoError(t, err)
		require.NotNil(t, n)
		name, ok := n.Property("name")
		require.True(t, ok)
		assert.Equal(t, "Ann", name)
	})

	t.Run("nil work", func(t *testing.T) {
		_, err := Run[int](context.Background(), tpl, nil)
		require.Error(t, err)
		assert.True(t, IsInvalidArgument(err))
	})

	t.Run("failure returns zero value", func(t *testing.T) {
		n, err := Run(context.Background(), tpl, func(ctx context.Context, ws store.Store) (int, error) {
			return 7, errors.New("boom")
		})
		require.Error(t, err)
		assert.Zero(t, n)
	})
}
