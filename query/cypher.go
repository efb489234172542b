// Package query provides building blocks for the declarative query
// side of the facade: parameterized Cypher clause builders and a CEL
// property filter for query-object lookups.
package query

import (
	"fmt"
	"strings"

	"github.com/graphkit-io/graphkit/store"
)

// Op is a comparison operator usable in a Predicate.
type Op int

const (
	Eq Op = iota
	Neq
	Lt
	Lte
	Gt
	Gte
	Contains
	StartsWith
	EndsWith
	In
	IsNull
	IsNotNull
)

// Predicate is one field comparison in a WHERE clause.
type Predicate struct {
	// Field is the property name, referenced as alias.Field.
	Field string

	// Op is the comparison operator.
	Op Op

	// Value is the comparison operand. Ignored for IsNull/IsNotNull.
	Value any
}

// Match generates a MATCH clause for a node with the given label and
// alias: Match("Person", "p") returns "MATCH (p:Person)".
func Match(label string, alias string) string {
	return fmt.Sprintf("MATCH (%s:%s)", alias, label)
}

// Where generates a WHERE clause from predicates with parameterized
// values. Parameters are named $p0, $p1, ... to keep values out of the
// statement text. Returns an empty clause and nil params when
// predicates is empty.
func Where(predicates []Predicate, alias string) (string, map[string]any) {
	if len(predicates) == 0 {
		return "", nil
	}

	params := make(map[string]any)
	conditions := make([]string, 0, len(predicates))

	for i, pred := range predicates {
		param := fmt.Sprintf("p%d", i)
		conditions = append(conditions, condition(pred, alias, param))
		if pred.Op != IsNull && pred.Op != IsNotNull {
			params[param] = pred.Value
		}
	}

	return "WHERE " + strings.Join(conditions, " AND "), params
}

func condition(pred Predicate, alias string, param string) string {
	field := fmt.Sprintf("%s.%s", alias, pred.Field)

	switch pred.Op {
	case Eq:
		return fmt.Sprintf("%s = $%s", field, param)
	case Neq:
		return fmt.Sprintf("%s <> $%s", field, param)
	case Lt:
		return fmt.Sprintf("%s < $%s", field, param)
	case Lte:
		return fmt.Sprintf("%s <= $%s", field, param)
	case Gt:
		return fmt.Sprintf("%s > $%s", field, param)
	case Gte:
		return fmt.Sprintf("%s >= $%s", field, param)
	case Contains:
		return fmt.Sprintf("%s CONTAINS $%s", field, param)
	case StartsWith:
		return fmt.Sprintf("%s STARTS WITH $%s", field, param)
	case EndsWith:
		return fmt.Sprintf("%s ENDS WITH $%s", field, param)
	case In:
		return fmt.Sprintf("%s IN $%s", field, param)
	case IsNull:
		return fmt.Sprintf("%s IS NULL", field)
	case IsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", field)
	default:
		return fmt.Sprintf("%s = $%s", field, param)
	}
}

// Return generates a RETURN clause. With no fields it returns the whole
// alias; otherwise the listed fields.
func Return(alias string, fields []string) string {
	if len(fields) == 0 {
		return "RETURN " + alias
	}
	refs := make([]string, 0, len(fields))
	for _, field := range fields {
		refs = append(refs, fmt.Sprintf("%s.%s", alias, field))
	}
	return "RETURN " + strings.Join(refs, ", ")
}

// TraversalPattern generates the relationship pattern for one traversal
// step between two aliases, honoring the spec's direction and optional
// relationship type and depth bound. A zero MaxDepth produces an
// unbounded variable-length pattern.
//
//	TraversalPattern(store.TraversalSpec{RelationshipType: "KNOWS", MaxDepth: 2}, "a", "b")
//	// "(a)-[:KNOWS*1..2]->(b)"
func TraversalPattern(spec store.TraversalSpec, fromAlias, toAlias string) string {
	depth := "*1.."
	if spec.MaxDepth > 0 {
		depth = fmt.Sprintf("*1..%d", spec.MaxDepth)
	}
	rel := fmt.Sprintf("[%s]", depth)
	if spec.RelationshipType != "" {
		rel = fmt.Sprintf("[:%s%s]", spec.RelationshipType, depth)
	}

	switch spec.Direction {
	case store.DirectionIncoming:
		return fmt.Sprintf("(%s)<-%s-(%s)", fromAlias, rel, toAlias)
	case store.DirectionBoth:
		return fmt.Sprintf("(%s)-%s-(%s)", fromAlias, rel, toAlias)
	default:
		return fmt.Sprintf("(%s)-%s->(%s)", fromAlias, rel, toAlias)
	}
}

// ValidIdentifier reports whether s is safe to splice into a Cypher
// statement as a label or relationship type, which cannot be
// parameterized.
func ValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
