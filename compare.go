package invgroups

import (
	"math"
	"strconv"
	"strings"
)

// Compare applies op to actual (left) and expected (right). Numeric
// operators require both sides to parse as floats and fail closed otherwise.
func Compare(op ComparisonOperator, actual, expected string) bool {
	switch op {
	case OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case OpEQ, OpNEQ:
		equal := actual == expected
		if a, b, ok := parseNumbers(actual, expected); ok {
			equal = a == b
		}
		if op == OpEQ {
			return equal
		}
		return !equal
	case OpGT, OpLT, OpGTE, OpLTE:
		a, b, ok := parseNumbers(actual, expected)
		if !ok {
			return false
		}
		switch op {
		case OpGT:
			return a > b
		case OpLT:
			return a < b
		case OpGTE:
			return a >= b
		default:
			return a <= b
		}
	default:
		return false
	}
}

func parseNumbers(left, right string) (float64, float64, bool) {
	a, ok := parseFinite(left)
	if !ok {
		return 0, 0, false
	}
	b, ok := parseFinite(right)
	if !ok {
		return 0, 0, false
	}
	return a, b, true
}

// parseFinite rejects NaN and infinities, which ParseFloat accepts.
func parseFinite(value string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
