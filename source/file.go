package source

import (
	"github.com/suyashkumar/dicom"

	"github.com/teranos/dcmindex/errors"
)

// FileSource reads DICOM Part 10 files with github.com/suyashkumar/dicom.
// Pixel data is skipped; the index only needs metadata.
type FileSource struct{}

var _ Source = FileSource{}

// Read parses the file at path.
func (FileSource) Read(path string) (Dictionary, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return fromElements(ds.Elements), nil
}

// fromElements flattens parsed elements into a Map, descending into
// sequence items.
func fromElements(elements []*dicom.Element) Map {
	m := make(Map, len(elements))
	for _, e := range elements {
		if e == nil || e.Value == nil {
			continue
		}
		switch v := e.Value.GetValue().(type) {
		case []string:
			m[e.Tag] = v
		case []int:
			m[e.Tag] = v
		case []float64:
			m[e.Tag] = v
		case []byte:
			m[e.Tag] = v
		case []*dicom.SequenceItemValue:
			items := make([]Dictionary, 0, len(v))
			for _, item := range v {
				if nested, ok := item.GetValue().([]*dicom.Element); ok {
					items = append(items, fromElements(nested))
				}
			}
			m[e.Tag] = items
		}
	}
	return m
}
