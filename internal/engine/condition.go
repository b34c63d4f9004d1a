package engine

import (
	"strconv"
	"strings"
)

// EvalCondition evaluates a resolved validation condition. The grammar is
// deliberately minimal: exactly one comparison among ">", "<", "==" (checked
// in that order against the raw string), splitting on the first occurrence.
// Ordering comparisons parse both sides as floats; equality compares trimmed
// strings. Without an operator the condition falls back to truthy-string
// evaluation. Anything that fails to parse evaluates to false — the
// condition fails closed, it never aborts on its own.
func EvalCondition(condition string) bool {
	switch {
	case strings.Contains(condition, ">"):
		return compareFloats(condition, ">")
	case strings.Contains(condition, "<"):
		return compareFloats(condition, "<")
	case strings.Contains(condition, "=="):
		parts := strings.SplitN(condition, "==", 2)
		return strings.TrimSpace(parts[0]) == strings.TrimSpace(parts[1])
	}

	switch strings.ToLower(condition) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	return condition != ""
}

func compareFloats(condition, op string) bool {
	parts := strings.SplitN(condition, op, 2)
	left, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return false
	}
	right, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return false
	}
	if op == ">" {
		return left > right
	}
	return left < right
}
