package criteria

import (
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/teranos/dcmindex/errors"
)

// freeTextFields are the human-searchable attributes probed by FreeText.
var freeTextFields = []tag.Tag{
	tag.PatientName,
	tag.PatientID,
	tag.OtherPatientIDs,
	tag.PatientComments,
	tag.StudyDescription,
	tag.SeriesDescription,
	tag.AccessionNumber,
}

// FreeText expands text into an OR of substring leaves over the searchable
// fields. An all-digit text also probes the study date.
func FreeText(text string) (*Compound, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.InvalidArgumentf("free text search needs a non-empty query")
	}
	children := make([]Criterion, 0, len(freeTextFields)+1)
	for _, t := range freeTextFields {
		children = append(children, Like(t, text))
	}
	if isDigits(text) {
		children = append(children, Like(tag.StudyDate, text))
	}
	return AnyOf(children...)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
