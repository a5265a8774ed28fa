package filter

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// EvaluateCondition evaluates a single condition against the variables
// context. The configured literal is coerced to the runtime type of the
// resolved value before the operator is applied, so configuration may store
// comparison values as plain strings. Unknown operators never match.
func EvaluateCondition(vars *Variables, cond *Condition) bool {
	resolved := resolveField(vars.domain(cond.On), cond.Field)
	coerced := coerceLiteral(resolved, cond.Value)

	switch cond.Operator {
	case OperatorEqual:
		return equalValues(resolved, coerced)
	case OperatorNotEqual:
		return !equalValues(resolved, coerced)
	case OperatorLarger, OperatorSmaller, OperatorLargerEqual, OperatorSmallerEqual:
		return compareOrdered(resolved, coerced, cond.Operator)
	case OperatorIn:
		contains, ok := containsValue(resolved, cond.Value)
		return ok && contains
	case OperatorNotIn:
		contains, ok := containsValue(resolved, cond.Value)
		return ok && !contains
	default:
		return false
	}
}

// resolveField walks a dot-separated path into a domain mapping.
// A missing path resolves to nil.
func resolveField(data map[string]interface{}, field string) interface{} {
	if data == nil || field == "" {
		return nil
	}

	var current interface{} = data
	for _, key := range strings.Split(field, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[key]
		if !ok {
			return nil
		}
	}

	return current
}

// coerceLiteral converts the configured literal to the runtime type of the
// resolved origin value. An unparseable numeric literal coerces to NaN so
// that every comparison except NOT_EQUAL fails.
func coerceLiteral(origin, literal interface{}) interface{} {
	switch origin.(type) {
	case float64, float32, int, int32, int64, json.Number:
		if f, ok := toFloat64(literal); ok {
			return f
		}
		return math.NaN()
	case string:
		return toString(literal)
	case bool:
		return toString(literal) == "true"
	default:
		// Absent or unhandled origin type: literal passes through unchanged
		return literal
	}
}

// equalValues reports strict equality between the resolved value and the
// already coerced literal
func equalValues(origin, coerced interface{}) bool {
	switch ov := origin.(type) {
	case float64, float32, int, int32, int64, json.Number:
		of, _ := toFloat64(origin)
		cf, ok := toFloat64(coerced)
		return ok && of == cf
	case string:
		cs, ok := coerced.(string)
		return ok && ov == cs
	case bool:
		cb, ok := coerced.(bool)
		return ok && ov == cb
	case nil:
		return coerced == nil
	default:
		return reflect.DeepEqual(origin, coerced)
	}
}

// compareOrdered applies an ordering operator. Numbers compare numerically,
// strings lexicographically; any other origin type never matches.
func compareOrdered(origin, coerced interface{}, op string) bool {
	switch ov := origin.(type) {
	case float64, float32, int, int32, int64, json.Number:
		of, _ := toFloat64(origin)
		cf, ok := toFloat64(coerced)
		if !ok {
			return false
		}
		switch op {
		case OperatorLarger:
			return of > cf
		case OperatorSmaller:
			return of < cf
		case OperatorLargerEqual:
			return of >= cf
		case OperatorSmallerEqual:
			return of <= cf
		}
	case string:
		cs, ok := coerced.(string)
		if !ok {
			return false
		}
		cmp := strings.Compare(ov, cs)
		switch op {
		case OperatorLarger:
			return cmp > 0
		case OperatorSmaller:
			return cmp < 0
		case OperatorLargerEqual:
			return cmp >= 0
		case OperatorSmallerEqual:
			return cmp <= 0
		}
	}
	return false
}

// containsValue checks string or array containment. The second return value
// reports whether the resolved value supports containment at all; a value
// that does not is a usage error surfaced as a non-match for both IN and
// NOT_IN.
func containsValue(resolved, literal interface{}) (contains, ok bool) {
	switch rv := resolved.(type) {
	case string:
		return strings.Contains(rv, toString(literal)), true
	case []interface{}:
		for _, elem := range rv {
			if equalValues(elem, coerceLiteral(elem, literal)) {
				return true, true
			}
		}
		return false, true
	default:
		return false, false
	}
}

// Type conversion helper functions
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return string(val)
	case nil:
		return ""
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
