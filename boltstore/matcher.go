package boltstore

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/entsession/go-entity-session/storage"
)

// matcher evaluates a condition list against decoded entities. bbolt gives us
// no predicate pushdown, so every condition is checked in Go after decoding.
type matcher[T any] struct {
	conds []storage.Condition
}

func newMatcher[T any](conds []storage.Condition) (*matcher[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for _, c := range conds {
		if _, ok := t.FieldByName(c.Property); !ok {
			return nil, errors.Errorf("boltstore: %s has no property %q", t.Name(), c.Property)
		}
	}
	return &matcher[T]{conds: append([]storage.Condition(nil), conds...)}, nil
}

func (m *matcher[T]) setParam(index int, values ...any) error {
	if index < 0 || index >= len(m.conds) {
		return errors.Errorf("boltstore: parameter index %d out of range", index)
	}
	m.conds[index].Value = values[0]
	if len(values) > 1 {
		m.conds[index].Value2 = values[1]
	}
	return nil
}

func (m *matcher[T]) matches(e *T) (bool, error) {
	v := reflect.ValueOf(e).Elem()
	for _, c := range m.conds {
		ok, err := matchCondition(v.FieldByName(c.Property).Interface(), c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchCondition(field any, c storage.Condition) (bool, error) {
	switch c.Op {
	case storage.OpEq:
		return valuesEqual(field, c.Value, c.Collation), nil
	case storage.OpNotEq:
		return !valuesEqual(field, c.Value, c.Collation), nil
	case storage.OpGt, storage.OpGtEq, storage.OpLt, storage.OpLtEq:
		cmp, err := compareValues(field, c.Value, c.Collation)
		if err != nil {
			return false, err
		}
		switch c.Op {
		case storage.OpGt:
			return cmp > 0, nil
		case storage.OpGtEq:
			return cmp >= 0, nil
		case storage.OpLt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case storage.OpBetween:
		lo, err := compareValues(field, c.Value, c.Collation)
		if err != nil {
			return false, err
		}
		hi, err := compareValues(field, c.Value2, c.Collation)
		if err != nil {
			return false, err
		}
		return lo >= 0 && hi <= 0, nil
	case storage.OpIn:
		values, ok := c.Value.([]any)
		if !ok {
			return false, errors.Errorf("boltstore: in-condition on %q needs a value list", c.Property)
		}
		for _, v := range values {
			if valuesEqual(field, v, c.Collation) {
				return true, nil
			}
		}
		return false, nil
	case storage.OpContains, storage.OpStartsWith:
		s, ok1 := field.(string)
		sub, ok2 := c.Value.(string)
		if !ok1 || !ok2 {
			return false, errors.Errorf("boltstore: %s on %q needs string operands", c.Op, c.Property)
		}
		if c.Collation == storage.StringOrderCaseInsensitive {
			s = strings.ToLower(s)
			sub = strings.ToLower(sub)
		}
		if c.Op == storage.OpContains {
			return strings.Contains(s, sub), nil
		}
		return strings.HasPrefix(s, sub), nil
	}
	return false, errors.Errorf("boltstore: unsupported operator %s", c.Op)
}

func valuesEqual(a, b any, coll storage.StringOrder) bool {
	if cmp, err := compareValues(a, b, coll); err == nil {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two scalar values, normalizing across int, uint and
// float widths so a literal int parameter compares against an int64 field.
func compareValues(a, b any, coll storage.StringOrder) (int, error) {
	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)

	switch {
	case isInt(av) && isInt(bv):
		return cmpOrdered(av.Int(), bv.Int()), nil
	case isUint(av) && isUint(bv):
		return cmpOrdered(av.Uint(), bv.Uint()), nil
	case isInt(av) && isUint(bv):
		if av.Int() < 0 {
			return -1, nil
		}
		return cmpOrdered(uint64(av.Int()), bv.Uint()), nil
	case isUint(av) && isInt(bv):
		if bv.Int() < 0 {
			return 1, nil
		}
		return cmpOrdered(av.Uint(), uint64(bv.Int())), nil
	case isFloat(av) || isFloat(bv):
		af, aok := toFloat(av)
		bf, bok := toFloat(bv)
		if aok && bok {
			return cmpOrdered(af, bf), nil
		}
	case av.Kind() == reflect.String && bv.Kind() == reflect.String:
		as, bs := av.String(), bv.String()
		if coll == storage.StringOrderCaseInsensitive {
			as, bs = strings.ToLower(as), strings.ToLower(bs)
		}
		return strings.Compare(as, bs), nil
	case av.Kind() == reflect.Bool && bv.Kind() == reflect.Bool:
		if av.Bool() == bv.Bool() {
			return 0, nil
		}
		if !av.Bool() {
			return -1, nil
		}
		return 1, nil
	}
	return 0, errors.Errorf("boltstore: cannot compare %T with %T", a, b)
}

func cmpOrdered[V int64 | uint64 | float64](a, b V) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(v reflect.Value) bool {
	return v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64
}

func toFloat(v reflect.Value) (float64, bool) {
	switch {
	case isFloat(v):
		return v.Float(), true
	case isInt(v):
		return float64(v.Int()), true
	case isUint(v):
		return float64(v.Uint()), true
	}
	return 0, false
}
