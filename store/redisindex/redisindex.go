// Package redisindex implements the store.Index capability on Redis.
// Index entries live in Redis sets keyed by (namespace, kind, index,
// field, value); elements themselves stay in the graph store and are
// resolved lazily through a caller-supplied Resolver while the cursor
// is driven.
//
// It lets an application keep hot lookup sets in Redis next to any
// store.Store implementation.
package redisindex

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/graphkit-io/graphkit/query"
	"github.com/graphkit-io/graphkit/store"
	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection settings.
type Config struct {
	// URL is the Redis connection string (e.g. "redis://localhost:6379").
	URL string `yaml:"url"`

	// Namespace prefixes every key this package writes. Defaults to
	// "graphkit".
	Namespace string `yaml:"namespace"`

	// ConnectTimeout bounds connection establishment.
	// Format: Go duration string (e.g. "5s"). Default: 5s.
	ConnectTimeout string `yaml:"connect_timeout,omitempty"`
}

// GetConnectTimeout parses the connect timeout string and returns a
// duration. Returns the default value if not set or invalid.
func (c Config) GetConnectTimeout() time.Duration {
	if c.ConnectTimeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.ConnectTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Resolver resolves an element id back to the element. Implementations
// typically delegate to the graph store the ids came from.
type Resolver interface {
	Resolve(ctx context.Context, kind store.EntityKind, id int64) (store.Entity, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, kind store.EntityKind, id int64) (store.Entity, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, kind store.EntityKind, id int64) (store.Entity, error) {
	return f(ctx, kind, id)
}

// NewClient connects a go-redis client according to cfg and verifies
// connectivity.
func NewClient(cfg Config) (*redis.Client, error) {
	if cfg.URL == "" {
		cfg.URL = "redis://localhost:6379"
	}
	timeout := cfg.GetConnectTimeout()

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redisindex: parsing Redis URL: %w", err)
	}
	opts.DialTimeout = timeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisindex: connecting to Redis: %w", err)
	}
	return client, nil
}

// Index is a Redis-backed store.Index.
type Index struct {
	client    *redis.Client
	name      string
	kind      store.EntityKind
	namespace string
	resolver  Resolver
}

// New creates an index over an existing Redis client. The resolver is
// required: cursors use it to turn stored ids back into elements.
func New(client *redis.Client, namespace, name string, kind store.EntityKind, resolver Resolver) (*Index, error) {
	if client == nil {
		return nil, fmt.Errorf("redisindex: nil client")
	}
	if name == "" {
		return nil, fmt.Errorf("redisindex: empty index name")
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("redisindex: invalid entity kind %d", int(kind))
	}
	if resolver == nil {
		return nil, fmt.Errorf("redisindex: nil resolver")
	}
	if namespace == "" {
		namespace = "graphkit"
	}
	return &Index{
		client:    client,
		name:      name,
		kind:      kind,
		namespace: namespace,
		resolver:  resolver,
	}, nil
}

// Name returns the index name.
func (i *Index) Name() string { return i.name }

// Kind returns the element kind this index holds.
func (i *Index) Kind() store.EntityKind { return i.kind }

// entryKey is the set holding ids for one (field, value) pair.
func (i *Index) entryKey(field string, value any) string {
	return fmt.Sprintf("%s:idx:%s:%s:%s:%v", i.namespace, i.kind, i.name, field, value)
}

// memberKey is the set holding every id present in the index.
func (i *Index) memberKey() string {
	return fmt.Sprintf("%s:idx:%s:%s:ids", i.namespace, i.kind, i.name)
}

// Add records an index entry mapping (field, value) to the element.
func (i *Index) Add(ctx context.Context, e store.Entity, field string, value any) error {
	const op = "redisindex.Add"
	if e == nil {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: nil element", store.ErrConstraintViolation)}
	}
	if e.Kind() != i.kind {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: %s element in %s index %q", store.ErrConstraintViolation, e.Kind(), i.kind, i.name)}
	}

	id := strconv.FormatInt(e.ID(), 10)
	pipe := i.client.TxPipeline()
	pipe.SAdd(ctx, i.entryKey(field, value), id)
	pipe.SAdd(ctx, i.memberKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrUnavailable, err)}
	}
	return nil
}

// Get returns a cursor over elements indexed under the exact
// (field, value) pair. Ids are fetched up front; elements resolve
// lazily as the cursor advances.
func (i *Index) Get(ctx context.Context, field string, value any) (store.Cursor, error) {
	const op = "redisindex.Get"

	members, err := i.client.SMembers(ctx, i.entryKey(field, value)).Result()
	if err != nil {
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrUnavailable, err)}
	}
	ids, err := parseIDs(members)
	if err != nil {
		return nil, &store.Error{Op: op, Err: err}
	}
	return &resolveCursor{ctx: ctx, index: i, ids: ids}, nil
}

// Query returns a cursor over elements matching the query object: a
// map[string]any intersects the per-field entry sets server-side; a
// string compiles as a CEL property filter and is evaluated against
// each member element.
func (i *Index) Query(ctx context.Context, q any) (store.Cursor, error) {
	const op = "redisindex.Query"

	switch qo := q.(type) {
	case map[string]any:
		if len(qo) == 0 {
			return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: empty query map", store.ErrConstraintViolation)}
		}
		keys := make([]string, 0, len(qo))
		for field, value := range qo {
			keys = append(keys, i.entryKey(field, value))
		}
		members, err := i.client.SInter(ctx, keys...).Result()
		if err != nil {
			return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrUnavailable, err)}
		}
		ids, err := parseIDs(members)
		if err != nil {
			return nil, &store.Error{Op: op, Err: err}
		}
		return &resolveCursor{ctx: ctx, index: i, ids: ids}, nil

	case string:
		filter, err := query.NewFilter(qo)
		if err != nil {
			return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrConstraintViolation, err)}
		}
		members, err := i.client.SMembers(ctx, i.memberKey()).Result()
		if err != nil {
			return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: %v", store.ErrUnavailable, err)}
		}
		ids, err := parseIDs(members)
		if err != nil {
			return nil, &store.Error{Op: op, Err: err}
		}
		return &resolveCursor{ctx: ctx, index: i, ids: ids, filter: filter}, nil

	default:
		return nil, &store.Error{Op: op, Err: fmt.Errorf("%w: query object of type %T", store.ErrUnsupported, q)}
	}
}

func parseIDs(members []string) ([]int64, error) {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed index member %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids, nil
}

// resolveCursor resolves ids through the index's Resolver one element
// per Next, applying the optional CEL filter.
type resolveCursor struct {
	ctx     context.Context
	index   *Index
	ids     []int64
	filter  *query.Filter
	pos     int
	current store.Entity
	err     error
	closed  bool
}

func (c *resolveCursor) Next() bool {
	if c.closed {
		if c.err == nil {
			c.err = store.ErrClosed
		}
		return false
	}
	if c.err != nil {
		return false
	}
	for c.pos < len(c.ids) {
		id := c.ids[c.pos]
		c.pos++

		e, err := c.index.resolver.Resolve(c.ctx, c.index.kind, id)
		if err != nil {
			c.err = err
			return false
		}
		if c.filter != nil {
			ok, err := c.filter.Matches(e.Properties())
			if err != nil {
				c.err = err
				return false
			}
			if !ok {
				continue
			}
		}
		c.current = e
		return true
	}
	return false
}

func (c *resolveCursor) Entity() store.Entity { return c.current }
func (c *resolveCursor) Err() error           { return c.err }

func (c *resolveCursor) Close() error {
	c.closed = true
	return nil
}
