package operators

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrUnknownOperator = errors.New("unknown operator")

type Operator string

const (
	// Comparison

	OperatorEq  Operator = "equal"
	OperatorNe  Operator = "notequal"
	OperatorGt  Operator = "greater"
	OperatorGte Operator = "greaterequal"
	OperatorLt  Operator = "less"
	OperatorLte Operator = "lessequal"

	// Range

	OperatorBetween        Operator = "between"
	OperatorBetweenOrEqual Operator = "betweenorequal"

	// Text

	OperatorStartsWith    Operator = "startswith"
	OperatorEndsWith      Operator = "endswith"
	OperatorContains      Operator = "contains"
	OperatorIsIn          Operator = "isin"
	OperatorCrossContains Operator = "crosscontains"

	// Postfix

	OperatorBlank Operator = "blank"
	OperatorNull  Operator = "null"

	// Resolved by name against the custom operators of a registry.
	OperatorCustom Operator = "custom"
)

const negationPrefix = "!"

var aliases = map[string]Operator{
	"equal": OperatorEq, "eq": OperatorEq, "=": OperatorEq, "==": OperatorEq,
	"notequal": OperatorNe, "ne": OperatorNe, "<>": OperatorNe,
	"greater": OperatorGt, "gt": OperatorGt, ">": OperatorGt,
	"greaterequal": OperatorGte, "gte": OperatorGte, ">=": OperatorGte,
	"less": OperatorLt, "lt": OperatorLt, "<": OperatorLt,
	"lessequal": OperatorLte, "lte": OperatorLte, "<=": OperatorLte,
	"between": OperatorBetween, "><": OperatorBetween,
	"betweenorequal": OperatorBetweenOrEqual, "=><=": OperatorBetweenOrEqual,
	"starts": OperatorStartsWith, "startswith": OperatorStartsWith,
	"ends": OperatorEndsWith, "endswith": OperatorEndsWith,
	"contains": OperatorContains, "like": OperatorContains,
	"isin": OperatorIsIn, "inside": OperatorIsIn, "in": OperatorIsIn,
	"cross": OperatorCrossContains, "crosscontains": OperatorCrossContains,
	"blank": OperatorBlank, "isblank": OperatorBlank, "empty": OperatorBlank,
	"null": OperatorNull, "isnull": OperatorNull, "nothing": OperatorNull,
}

// RequiresValues reports whether the operator compares against a value set.
func (o Operator) RequiresValues() bool {
	return o != OperatorBlank && o != OperatorNull
}

// IsRange reports whether the operator consumes the whole value set as bounds.
func (o Operator) IsRange() bool {
	return o == OperatorBetween || o == OperatorBetweenOrEqual
}

// NonText is the comparison a text operator stands for on values that are not strings.
func (o Operator) NonText() Operator {
	switch o {
	case OperatorStartsWith:
		return OperatorGte
	case OperatorEndsWith:
		return OperatorLte
	case OperatorContains, OperatorIsIn, OperatorCrossContains:
		return OperatorEq
	}
	return o
}

// IsOrdering reports whether the operator is one of the four ordinal comparisons.
func (o Operator) IsOrdering() bool {
	switch o {
	case OperatorGt, OperatorGte, OperatorLt, OperatorLte:
		return true
	}
	return false
}

// Token is a parsed operator name.
type Token struct {
	Name     string
	Operator Operator
	Negated  bool
}

func (t Token) String() string {
	if t.Negated {
		return negationPrefix + t.Name
	}
	return t.Name
}

// Parse resolves an operator name case-insensitively. A leading "!" negates it.
// Unknown names return ErrUnknownOperator together with an OperatorCustom token
// so that callers can look the name up among custom operators.
func Parse(name string) (Token, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	tok := Token{}
	switch {
	case n == "!=":
		tok.Negated, n = true, "="
	case strings.HasPrefix(n, negationPrefix):
		tok.Negated = true
		n = strings.TrimSpace(strings.TrimPrefix(n, negationPrefix))
	}
	tok.Name = n
	if n == "" {
		return tok, errors.Wrapf(ErrUnknownOperator, "empty operator name %q", name)
	}
	op, ok := aliases[n]
	if !ok {
		tok.Operator = OperatorCustom
		return tok, errors.Wrapf(ErrUnknownOperator, "%q", name)
	}
	tok.Operator = op
	return tok, nil
}

type Join string

const (
	JoinAnd Join = "AND"
	JoinOr  Join = "OR"
)

// ParseJoin accepts "and"/"or" in any case, and "&&"/"||".
// An empty string yields def.
func ParseJoin(s string, def Join) (Join, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "AND", "&&":
		return JoinAnd, nil
	case "OR", "||":
		return JoinOr, nil
	}
	return "", errors.Errorf("unknown join %q", s)
}

// Identity is the result of folding an empty sequence with the join.
func (j Join) Identity() bool {
	return j == JoinAnd
}
