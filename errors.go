package graphkit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/graphkit-io/graphkit/store"
)

// Error kinds form the closed taxonomy every failure is normalized
// into. Callers branch on the kind, never on backend-specific errors.
const (
	// KindInvalidArgument marks failures caused by a missing or invalid
	// caller-supplied input, detected before touching the store.
	KindInvalidArgument = "invalid_argument"

	// KindStore marks recognized failures reported by the underlying
	// store or by transaction machinery.
	KindStore = "store"

	// KindUncategorized marks unrecognized failures, including
	// non-store errors escaping a unit of work. Treated as a defect
	// signal; the cause is preserved for diagnostics.
	KindUncategorized = "uncategorized"
)

// GraphError is the single error surface of the facade. It wraps the
// original cause with the operation that failed and the taxonomy kind.
//
// GraphError implements the error interface and supports unwrapping, so
// errors.Is and errors.As reach the original cause.
type GraphError struct {
	// Op is the facade operation that failed (e.g. "Template.CreateNode").
	Op string

	// Kind categorizes the error (KindInvalidArgument, KindStore,
	// KindUncategorized).
	Kind string

	// Err is the underlying cause. Nil only for pure argument errors
	// constructed without one.
	Err error

	// Context carries optional debugging values (argument names,
	// element ids).
	Context map[string]any
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("graphkit: %s: %s", e.Op, e.Kind)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("graphkit: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}
	return fmt.Sprintf("graphkit: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause, allowing errors.Is and errors.As
// to work through the translation boundary.
func (e *GraphError) Unwrap() error {
	return e.Err
}

// Is matches a target *GraphError by Kind (and Op when the target sets
// one), and otherwise delegates to the underlying cause.
func (e *GraphError) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*GraphError); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}
	return errors.Is(e.Err, target)
}

// WithContext returns a copy of the error with the given context values
// added.
func (e *GraphError) WithContext(ctx map[string]any) *GraphError {
	clone := *e
	clone.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		clone.Context[k] = v
	}
	for k, v := range ctx {
		clone.Context[k] = v
	}
	return &clone
}

// NewInvalidArgumentError creates a GraphError with KindInvalidArgument.
func NewInvalidArgumentError(op string, err error) *GraphError {
	return &GraphError{Op: op, Kind: KindInvalidArgument, Err: err}
}

// NewStoreError creates a GraphError with KindStore.
func NewStoreError(op string, err error) *GraphError {
	return &GraphError{Op: op, Kind: KindStore, Err: err}
}

// NewUncategorizedError creates a GraphError with KindUncategorized.
func NewUncategorizedError(op string, err error) *GraphError {
	return &GraphError{Op: op, Kind: KindUncategorized, Err: err}
}

// IsInvalidArgument reports whether err is a GraphError of kind
// KindInvalidArgument.
func IsInvalidArgument(err error) bool {
	return hasKind(err, KindInvalidArgument)
}

// IsStoreFailure reports whether err is a GraphError of kind KindStore.
func IsStoreFailure(err error) bool {
	return hasKind(err, KindStore)
}

// IsUncategorized reports whether err is a GraphError of kind
// KindUncategorized.
func IsUncategorized(err error) bool {
	return hasKind(err, KindUncategorized)
}

func hasKind(err error, kind string) bool {
	var ge *GraphError
	return errors.As(err, &ge) && ge.Kind == kind
}

// Translate normalizes a failure surfaced by the store or by
// transaction machinery into the GraphError taxonomy. Translation is
// total: it never fails and never returns nil for a non-nil cause.
//
// Recognized store failure shapes map to KindStore with the cause
// preserved; anything else maps to KindUncategorized. An error that is
// already a GraphError passes through unchanged, so double translation
// cannot lose the original cause.
func Translate(op string, cause error) error {
	if cause == nil {
		return nil
	}
	var ge *GraphError
	if errors.As(cause, &ge) {
		return cause
	}
	if store.IsStoreError(cause) {
		return NewStoreError(op, cause)
	}
	return NewUncategorizedError(op, cause)
}

// CloseWithLog closes a resource and logs any close error at warning
// level instead of dropping it. Intended for defer statements around
// sequences and cursors whose close errors the caller cannot return.
//
//	seq, err := tpl.Lookup(ctx, "people", "name", "Ann")
//	if err != nil { ... }
//	defer graphkit.CloseWithLog(seq, logger, "people lookup")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
