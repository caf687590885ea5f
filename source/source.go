// Package source defines the attribute source contract the index consumes:
// given a file path, produce a flat tag→value dictionary.
//
// The index never parses imaging files itself. FileSource binds the contract
// to github.com/suyashkumar/dicom; Map is the in-memory dictionary every
// source returns and tests construct directly.
package source

import (
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Source reads the attribute dictionary of one file.
type Source interface {
	Read(path string) (Dictionary, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(path string) (Dictionary, error)

// Read calls f(path).
func (f SourceFunc) Read(path string) (Dictionary, error) {
	return f(path)
}

// Dictionary is a read-only view of parsed attributes.
// Accessors never fail: a missing or mistyped attribute yields the zero value
// (and false where a second result is returned).
type Dictionary interface {
	Get(t tag.Tag) (interface{}, bool)
	Contains(t tag.Tag) bool

	// String returns the first value as text, trimmed of DICOM padding.
	String(t tag.Tag) string
	// Strings returns every value as text.
	Strings(t tag.Tag) []string
	Int(t tag.Tag) (int, bool)
	Float(t tag.Tag) (float64, bool)
	// Bytes returns raw payload bytes (OB/OW/UN values).
	Bytes(t tag.Tag) []byte
	// Items returns the items of a sequence attribute.
	Items(t tag.Tag) []Dictionary

	// Tags lists the present attributes in ascending tag order.
	Tags() []tag.Tag
}
