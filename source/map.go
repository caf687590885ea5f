package source

import (
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Map is the in-memory Dictionary.
//
// Values are stored as []string, []int, []float64, []byte or []Dictionary
// (sequence items). A bare string, int, float64 or Map is also accepted so
// literals stay short:
//
//	source.Map{
//	    tag.PatientName: "DOE^JANE",
//	    tag.SeriesNumber: 3,
//	}
type Map map[tag.Tag]interface{}

var _ Dictionary = Map(nil)

// Get returns the raw stored value.
func (m Map) Get(t tag.Tag) (interface{}, bool) {
	v, ok := m[t]
	return v, ok
}

// Contains reports whether t is present.
func (m Map) Contains(t tag.Tag) bool {
	_, ok := m[t]
	return ok
}

// String returns the first value of t as trimmed text.
func (m Map) String(t tag.Tag) string {
	values := m.Strings(t)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Strings returns all values of t as trimmed text.
func (m Map) Strings(t tag.Tag) []string {
	switch v := m[t].(type) {
	case string:
		return splitMultiValue(v)
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			out = append(out, trimPadding(s))
		}
		return out
	case int:
		return []string{strconv.Itoa(v)}
	case []int:
		out := make([]string, len(v))
		for i, n := range v {
			out[i] = strconv.Itoa(n)
		}
		return out
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	case []float64:
		out := make([]string, len(v))
		for i, f := range v {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
		}
		return out
	}
	return nil
}

// Int returns the first value of t as an integer. IS strings are parsed.
func (m Map) Int(t tag.Tag) (int, bool) {
	switch v := m[t].(type) {
	case int:
		return v, true
	case []int:
		if len(v) > 0 {
			return v[0], true
		}
	case float64:
		return int(v), true
	case string, []string:
		s := m.String(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

// Float returns the first value of t as a float. DS strings are parsed.
func (m Map) Float(t tag.Tag) (float64, bool) {
	switch v := m[t].(type) {
	case float64:
		return v, true
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case int:
		return float64(v), true
	case []int:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case string, []string:
		if f, err := strconv.ParseFloat(m.String(t), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Bytes returns the raw bytes of t.
func (m Map) Bytes(t tag.Tag) []byte {
	if b, ok := m[t].([]byte); ok {
		return b
	}
	return nil
}

// Items returns the sequence items of t.
func (m Map) Items(t tag.Tag) []Dictionary {
	switch v := m[t].(type) {
	case []Dictionary:
		return v
	case []Map:
		out := make([]Dictionary, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case Map:
		return []Dictionary{v}
	}
	return nil
}

// Tags lists present tags in ascending order.
func (m Map) Tags() []tag.Tag {
	tags := make([]tag.Tag, 0, len(m))
	for t := range m {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Group != tags[j].Group {
			return tags[i].Group < tags[j].Group
		}
		return tags[i].Element < tags[j].Element
	})
	return tags
}

// trimPadding strips the space and NUL padding DICOM uses for even lengths.
func trimPadding(s string) string {
	return strings.Trim(s, " \x00")
}

// splitMultiValue splits a backslash-delimited DICOM multi-value string.
func splitMultiValue(s string) []string {
	parts := strings.Split(s, `\`)
	for i, p := range parts {
		parts[i] = trimPadding(p)
	}
	return parts
}
