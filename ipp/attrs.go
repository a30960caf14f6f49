package ipp

import (
	"fmt"

	"github.com/OpenPrinting/goipp"
)

// Adder returns a closure that appends attributes to op, mirroring the
// attribute-building idiom used throughout this codebase's dispatcher and
// capability composer.
func Adder(op goipp.Attributes) func(name string, tag goipp.Tag, values ...goipp.Value) goipp.Attributes {
	return func(name string, tag goipp.Tag, values ...goipp.Value) goipp.Attributes {
		if len(values) == 0 {
			values = []goipp.Value{goipp.String("")}
		}
		attr := goipp.MakeAttribute(name, tag, values[0])
		for _, v := range values[1:] {
			attr.Values.Add(tag, v)
		}
		op = append(op, attr)
		return op
	}
}

// StringsToValues converts a slice of string-like values into goipp.Values.
func StringsToValues[S ~[]E, E ~string](strs S) []goipp.Value {
	values := make([]goipp.Value, len(strs))
	for i, str := range strs {
		values[i] = goipp.String(str)
	}
	return values
}

// NewResponse builds the minimal response shell every operation response
// carries: an operation-attributes group with attributes-charset and
// attributes-natural-language, and the given status code in the header.
func NewResponse(status Status, requestID int32) *goipp.Message {
	m := goipp.NewResponse(goipp.DefaultVersion, goipp.Code(status), requestID)
	m.Operation = Adder(m.Operation)("attributes-charset", goipp.TagCharset, CharsetUTF8)
	m.Operation = Adder(m.Operation)("attributes-natural-language", goipp.TagLanguage, LanguageEnUS)
	return m
}

// FindAttr returns the values of the named attribute within attrs, if present.
func FindAttr(attrs goipp.Attributes, name string) (goipp.Values, bool) {
	for _, attr := range attrs {
		if attr.Name == name && len(attr.Values) > 0 {
			return attr.Values, true
		}
	}
	return nil, false
}

// ExtractValue returns the single typed value of the named attribute.
func ExtractValue[T any](attrs goipp.Attributes, name string) (T, error) {
	var zero T
	vv, ok := FindAttr(attrs, name)
	if !ok || len(vv) == 0 {
		return zero, fmt.Errorf("attribute %q not found", name)
	}
	if len(vv) > 1 {
		return zero, fmt.Errorf("attribute %q has multiple values: %d", name, len(vv))
	}
	v := vv[0].V
	if val, ok := v.(T); ok {
		return val, nil
	}
	return zero, fmt.Errorf("attribute %q is not of type %T: %T", name, zero, v)
}

// AsString returns the first value of vv as a plain string, if it is
// string-typed.
func AsString(vv goipp.Values, ok bool) (string, bool) {
	if !ok || len(vv) == 0 {
		return "", false
	}
	v := vv[0].V
	if v.Type() != goipp.TypeString {
		return "", false
	}
	return v.String(), true
}

// ReplaceOrAppend merges override attributes into base by name: any
// attribute present in override replaces the one in base with the same
// name; attributes present only in override are appended; order of base is
// otherwise preserved. This is the mechanical step behind every layer of
// the capability composer (§4.3) and the plugin attribute-customization
// fold (§4.7).
func ReplaceOrAppend(base goipp.Attributes, override goipp.Attributes) goipp.Attributes {
	if len(override) == 0 {
		return base
	}
	idx := make(map[string]int, len(base))
	out := make(goipp.Attributes, len(base))
	copy(out, base)
	for i, a := range out {
		idx[a.Name] = i
	}
	for _, a := range override {
		if i, ok := idx[a.Name]; ok {
			out[i] = a
		} else {
			idx[a.Name] = len(out)
			out = append(out, a)
		}
	}
	return out
}
