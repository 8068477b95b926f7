package criteria

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

var ErrInvalidDocument = errors.New("invalid criteria document")

const (
	keyPrefix = "$"
	keyJoin   = "$join"
	keyAnd    = "$and"
	keyOr     = "$or"
	keyNot    = "$not"
)

// Parse reads the map form of a criteria document:
//
//	{"age": {">": 18}, "name": {"!contains": ["x", "y"], "$join": "and"},
//	 "$or": [{...}, {...}], "$not": {...}, "$join": "or"}
//
// A bare field value means equal, a list of bare values means equal to any of
// them and a bare null means null.
// Fields are read in key order. All problems of a document are reported together.
func Parse(doc map[string]any) (Group, error) {
	return parseGroup(doc, "")
}

func DecodeJSON(data []byte) (Group, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return Group{}, errors.Wrap(ErrInvalidDocument, err.Error())
	}
	return Parse(doc)
}

func DecodeYAML(data []byte) (Group, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Group{}, errors.Wrap(ErrInvalidDocument, err.Error())
	}
	return Parse(doc)
}

func parseGroup(doc map[string]any, at string) (Group, error) {
	var g Group
	var result error

	for _, key := range sortedKeys(doc) {
		value := doc[key]
		path := at + "/" + key
		if !strings.HasPrefix(key, keyPrefix) {
			cs, err := parseField(key, value, path)
			if err != nil {
				result = multierror.Append(result, err)
			}
			g.Criteria = append(g.Criteria, cs...)
			continue
		}
		switch key {
		case keyJoin:
			join, err := parseJoin(value, operators.JoinAnd, path)
			if err != nil {
				result = multierror.Append(result, err)
			}
			g.Join = join
		case keyAnd, keyOr:
			sub, err := parseList(value, path)
			if err != nil {
				result = multierror.Append(result, err)
			}
			sub.Join = operators.JoinAnd
			if key == keyOr {
				sub.Join = operators.JoinOr
			}
			g.Groups = append(g.Groups, sub)
		case keyNot:
			m, ok := asMap(value)
			if !ok {
				result = multierror.Append(result, errors.Wrapf(ErrInvalidDocument, "%s: expected an object, got %T", path, value))
				continue
			}
			sub, err := parseGroup(m, path)
			if err != nil {
				result = multierror.Append(result, err)
			}
			sub.Not = !sub.Not
			g.Groups = append(g.Groups, sub)
		default:
			result = multierror.Append(result, errors.Wrapf(ErrInvalidDocument, "%s: unknown key", path))
		}
	}
	return g, result
}

func parseList(value any, at string) (Group, error) {
	list, ok := value.([]any)
	if !ok {
		return Group{}, errors.Wrapf(ErrInvalidDocument, "%s: expected a list, got %T", at, value)
	}
	var g Group
	var result error
	for i, item := range list {
		m, ok := asMap(item)
		if !ok {
			result = multierror.Append(result, errors.Wrapf(ErrInvalidDocument, "%s/%d: expected an object, got %T", at, i, item))
			continue
		}
		sub, err := parseGroup(m, at+"/"+strconv.Itoa(i))
		if err != nil {
			result = multierror.Append(result, err)
		}
		g.Groups = append(g.Groups, sub)
	}
	return g, result
}

func parseField(field string, value any, at string) ([]Criterion, error) {
	if value == nil {
		return []Criterion{{Field: field, Operator: string(operators.OperatorNull)}}, nil
	}
	m, ok := asMap(value)
	if !ok {
		return []Criterion{{Field: field, Operator: string(operators.OperatorEq), Values: valuesOf(value)}}, nil
	}

	join := operators.Join("")
	var result error
	if raw, ok := m[keyJoin]; ok {
		var err error
		if join, err = parseJoin(raw, operators.JoinOr, at+"/"+keyJoin); err != nil {
			result = multierror.Append(result, err)
		}
	}

	var cs []Criterion
	for _, op := range sortedKeys(m) {
		if op == keyJoin {
			continue
		}
		if _, err := operators.Parse(op); err != nil && strings.HasPrefix(op, keyPrefix) {
			result = multierror.Append(result, errors.Wrapf(ErrInvalidDocument, "%s/%s: unknown key", at, op))
			continue
		}
		cs = append(cs, Criterion{Field: field, Operator: op, Values: valuesOf(m[op]), Join: join})
	}
	if len(cs) == 0 && result == nil {
		result = errors.Wrapf(ErrInvalidDocument, "%s: no operators", at)
	}
	return cs, result
}

func parseJoin(value any, def operators.Join, at string) (operators.Join, error) {
	s, ok := value.(string)
	if !ok {
		return def, errors.Wrapf(ErrInvalidDocument, "%s: expected a string, got %T", at, value)
	}
	join, err := operators.ParseJoin(s, def)
	if err != nil {
		return def, errors.Wrapf(ErrInvalidDocument, "%s: %v", at, err)
	}
	return join, nil
}

func valuesOf(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	}
	return []any{value}
}

func asMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = v
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
