package query

import (
	"testing"

	"github.com/graphkit-io/graphkit/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	assert.Equal(t, "MATCH (p:Person)", Match("Person", "p"))
}

func TestWhere(t *testing.T) {
	tests := []struct {
		name       string
		predicates []Predicate
		wantClause string
		wantParams map[string]any
	}{
		{
			name:       "empty",
			predicates: nil,
			wantClause: "",
			wantParams: nil,
		},
		{
			name:       "single equality",
			predicates: []Predicate{{Field: "name", Op: Eq, Value: "Ann"}},
			wantClause: "WHERE p.name = $p0",
			wantParams: map[string]any{"p0": "Ann"},
		},
		{
			name: "conjunction with mixed operators",
			predicates: []Predicate{
				{Field: "age", Op: Gte, Value: 21},
				{Field: "name", Op: StartsWith, Value: "A"},
			},
			wantClause: "WHERE p.age >= $p0 AND p.name STARTS WITH $p1",
			wantParams: map[string]any{"p0": 21, "p1": "A"},
		},
		{
			name:       "membership",
			predicates: []Predicate{{Field: "city", Op: In, Value: []string{"Oslo", "Bergen"}}},
			wantClause: "WHERE p.city IN $p0",
			wantParams: map[string]any{"p0": []string{"Oslo", "Bergen"}},
		},
		{
			name: "null checks take no parameters",
			predicates: []Predicate{
				{Field: "deleted", Op: IsNull},
				{Field: "name", Op: IsNotNull},
			},
			wantClause: "WHERE p.deleted IS NULL AND p.name IS NOT NULL",
			wantParams: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, params := Where(tt.predicates, "p")
			assert.Equal(t, tt.wantClause, clause)
			if tt.wantParams == nil {
				assert.Nil(t, params)
			} else {
				assert.Equal(t, tt.wantParams, params)
			}
		})
	}
}

func TestWhereOperators(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{Eq, "WHERE p.f = $p0"},
		{Neq, "WHERE p.f <> $p0"},
		{Lt, "WHERE p.f < $p0"},
		{Lte, "WHERE p.f <= $p0"},
		{Gt, "WHERE p.f > $p0"},
		{Gte, "WHERE p.f >= $p0"},
		{Contains, "WHERE p.f CONTAINS $p0"},
		{StartsWith, "WHERE p.f STARTS WITH $p0"},
		{EndsWith, "WHERE p.f ENDS WITH $p0"},
	}
	for _, tt := range tests {
		clause, _ := Where([]Predicate{{Field: "f", Op: tt.op, Value: 1}}, "p")
		assert.Equal(t, tt.want, clause)
	}
}

func TestReturn(t *testing.T) {
	assert.Equal(t, "RETURN p", Return("p", nil))
	assert.Equal(t, "RETURN p.name, p.age", Return("p", []string{"name", "age"}))
}

func TestTraversalPattern(t *testing.T) {
	tests := []struct {
		name string
		spec store.TraversalSpec
		want string
	}{
		{
			name: "zero spec follows outgoing unbounded",
			spec: store.TraversalSpec{},
			want: "(a)-[*1..]->(b)",
		},
		{
			name: "typed and bounded",
			spec: store.TraversalSpec{RelationshipType: "KNOWS", MaxDepth: 2},
			want: "(a)-[:KNOWS*1..2]->(b)",
		},
		{
			name: "incoming",
			spec: store.TraversalSpec{RelationshipType: "KNOWS", Direction: store.DirectionIncoming},
			want: "(a)<-[:KNOWS*1..]-(b)",
		},
		{
			name: "both directions",
			spec: store.TraversalSpec{Direction: store.DirectionBoth, MaxDepth: 3},
			want: "(a)-[*1..3]-(b)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TraversalPattern(tt.spec, "a", "b"))
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	valid := []string{"KNOWS", "has_part", "Person2", "_internal"}
	for _, s := range valid {
		assert.True(t, ValidIdentifier(s), s)
	}

	invalid := []string{"", "2fast", "has-part", "KNOWS; DROP", "a b", "ø"}
	for _, s := range invalid {
		assert.False(t, ValidIdentifier(s), s)
	}
}

func TestComposedStatement(t *testing.T) {
	where, params := Where([]Predicate{{Field: "name", Op: Eq, Value: "Ann"}}, "p")
	stmt := Match("Person", "p") + " " + where + " " + Return("p", []string{"name"})

	require.Equal(t, "MATCH (p:Person) WHERE p.name = $p0 RETURN p.name", stmt)
	require.Equal(t, map[string]any{"p0": "Ann"}, params)
}
