package api

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NullString returns nil for an empty (or blank) entry.
func NullString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// NullInt parses an optional integer entry. Empty yields nil.
func NullInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("%q is not a whole number", s))
	}
	return &n, nil
}

// NullFloat parses an optional numeric entry. Empty yields nil.
func NullFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, NewValidationError(fmt.Sprintf("%q is not a number", s))
	}
	return &f, nil
}

// IntOr parses s, falling back to def when s is empty.
func IntOr(s string, def int) (int, error) {
	p, err := NullInt(s)
	if err != nil || p == nil {
		return def, err
	}
	return *p, nil
}

// FloatOr parses s, falling back to def when s is empty.
func FloatOr(s string, def float64) (float64, error) {
	p, err := NullFloat(s)
	if err != nil || p == nil {
		return def, err
	}
	return *p, nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
