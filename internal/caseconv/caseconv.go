// Package caseconv implements the case-mapping bridge between the
// hub's wire-level map keys (often PascalCase, as .NET servers emit in
// binary mode) and the lowercase-first field names Go application
// structs naturally use.
package caseconv

import "unicode"

// ToCamel lowercases the first rune of s, leaving the rest untouched.
func ToCamel(s string) string {
	return mapFirst(s, unicode.ToLower)
}

// ToPascal uppercases the first rune of s, leaving the rest untouched.
func ToPascal(s string) string {
	return mapFirst(s, unicode.ToUpper)
}

func mapFirst(s string, f func(rune) rune) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = f(r[0])
	return string(r)
}

// TransformKeys recursively rewrites map keys through transform,
// descending into nested maps and slices. Non-map, non-slice values are
// returned unchanged.
func TransformKeys(value interface{}, transform func(string) string) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[transform(k)] = TransformKeys(val, transform)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = TransformKeys(val, transform)
		}
		return out
	default:
		return value
	}
}

// ToCamelTree recursively lowercases first letters of all map keys in
// value (inbound from a server that emits PascalCase binary maps).
func ToCamelTree(value interface{}) interface{} {
	return TransformKeys(value, ToCamel)
}

// ToPascalTree recursively uppercases first letters of all map keys in
// value (outbound to a server that requires PascalCase binary maps).
func ToPascalTree(value interface{}) interface{} {
	return TransformKeys(value, ToPascal)
}
