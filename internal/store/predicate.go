package store

import (
	"fmt"
)

// PredicateKind is the filter shape a feature action queries with.
type PredicateKind int

const (
	// PredicateBoolEq matches a boolean indicator column exactly.
	PredicateBoolEq PredicateKind = iota
	// PredicateListContains matches rows whose text[] column contains a value.
	PredicateListContains
	// PredicateTextMatch matches rows whose text column contains a substring.
	PredicateTextMatch
)

// Predicate is a single filter condition over an indicator column.
// Columns are validated against a whitelist by the query layer, never
// interpolated from user input.
type Predicate struct {
	Kind   PredicateKind
	Column string
	Bool   bool
	Value  string
}

func BoolEq(column string, value bool) Predicate {
	return Predicate{Kind: PredicateBoolEq, Column: column, Bool: value}
}

func ListContains(column, value string) Predicate {
	return Predicate{Kind: PredicateListContains, Column: column, Value: value}
}

func TextMatch(column, value string) Predicate {
	return Predicate{Kind: PredicateTextMatch, Column: column, Value: value}
}

// Fragment renders the predicate as a WHERE fragment with positional
// args starting at argIndex.
func (p Predicate) Fragment(argIndex int) (string, []interface{}, error) {
	switch p.Kind {
	case PredicateBoolEq:
		return fmt.Sprintf("%s = $%d", p.Column, argIndex), []interface{}{p.Bool}, nil
	case PredicateListContains:
		return fmt.Sprintf("$%d = ANY(%s)", argIndex, p.Column), []interface{}{p.Value}, nil
	case PredicateTextMatch:
		return fmt.Sprintf("%s ILIKE $%d", p.Column, argIndex), []interface{}{"%" + p.Value + "%"}, nil
	default:
		return "", nil, fmt.Errorf("unknown predicate kind %d", p.Kind)
	}
}
