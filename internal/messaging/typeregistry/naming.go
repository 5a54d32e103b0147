package typeregistry

import (
	"unicode"
	"unicode/utf8"
)

// UpperCamel upper-cases the first rune of a lower-camel field name.
func UpperCamel(field string) string {
	r, size := utf8.DecodeRuneInString(field)
	if r == utf8.RuneError {
		return field
	}
	return string(unicode.ToUpper(r)) + field[size:]
}

// MutatorName derives the setter method name for a source field: "Set"
// followed by the upper-camel field name.
func MutatorName(field string) string {
	return "Set" + UpperCamel(field)
}
