package criteria

import (
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Scope is the entity level a leaf is applied at.
type Scope int

const (
	// Unspecified lets the compiler pick the natural level of the query.
	Unspecified Scope = iota
	Study
	Series
	Instance
)

func (s Scope) String() string {
	switch s {
	case Unspecified:
		return "unspecified"
	case Study:
		return "study"
	case Series:
		return "series"
	case Instance:
		return "instance"
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

func (s Scope) valid() bool {
	return s >= Unspecified && s <= Instance
}

// ParseScope parses a scope name. The empty string is Unspecified.
func ParseScope(name string) (Scope, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "unspecified", "any":
		return Unspecified, true
	case "study":
		return Study, true
	case "series":
		return Series, true
	case "instance", "image":
		return Instance, true
	}
	return Unspecified, false
}

// Patient-level attributes are searched through the study join, so they are
// legal at Study scope.
var scopeTable = map[Scope][]tag.Tag{
	Study: {
		tag.PatientName,
		tag.PatientID,
		tag.PatientBirthDate,
		tag.OtherPatientIDs,
		tag.PatientComments,
		tag.StudyInstanceUID,
		tag.AccessionNumber,
		tag.StudyDate,
		tag.StudyDescription,
		tag.Modality,
	},
	Series: {
		tag.SeriesInstanceUID,
		tag.SeriesNumber,
		tag.SeriesDescription,
		tag.Modality,
	},
	Instance: {
		tag.SOPInstanceUID,
		tag.SOPClassUID,
		tag.InstanceNumber,
		tag.Modality,
		tag.ReferencedSOPInstanceUID,
	},
}

var legal = func() map[Scope]map[tag.Tag]bool {
	m := make(map[Scope]map[tag.Tag]bool, len(scopeTable))
	for s, tags := range scopeTable {
		m[s] = make(map[tag.Tag]bool, len(tags))
		for _, t := range tags {
			m[s][t] = true
		}
	}
	return m
}()

// Legal reports whether attribute may be scoped to s. Every attribute is
// legal when s is Unspecified.
func Legal(s Scope, attribute tag.Tag) bool {
	if s == Unspecified {
		return true
	}
	return legal[s][attribute]
}

// Supported reports whether attribute appears at any scope.
func Supported(attribute tag.Tag) bool {
	for _, set := range legal {
		if set[attribute] {
			return true
		}
	}
	return false
}

// AttributesAt lists the attributes legal at s, in table order.
// Unspecified lists every supported attribute once.
func AttributesAt(s Scope) []tag.Tag {
	if s != Unspecified {
		return append([]tag.Tag(nil), scopeTable[s]...)
	}
	var out []tag.Tag
	seen := map[tag.Tag]bool{}
	for _, sc := range []Scope{Study, Series, Instance} {
		for _, t := range scopeTable[sc] {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// AttributeName returns the dictionary keyword of t, or its (gggg,eeee)
// form when unknown.
func AttributeName(t tag.Tag) string {
	if info, err := tag.Find(t); err == nil {
		return info.Name
	}
	return t.String()
}

// ParseAttribute resolves a dictionary keyword such as "PatientName".
func ParseAttribute(name string) (tag.Tag, bool) {
	info, err := tag.FindByName(strings.TrimSpace(name))
	if err != nil {
		return tag.Tag{}, false
	}
	return info.Tag, true
}
