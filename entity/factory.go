package entity

import (
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
	"go.uber.org/zap"

	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/logger"
	"github.com/teranos/dcmindex/payload"
	"github.com/teranos/dcmindex/source"
)

// Factory builds entities from attribute dictionaries. The storage engine and
// the import pipeline receive one explicitly instead of reaching for a
// process-wide toolkit.
type Factory struct {
	source source.Source
	cache  *payload.Cache
	logger *zap.SugaredLogger
}

// NewFactory creates a factory reading files through src and pinning
// payloads in cache (which may be nil).
func NewFactory(src source.Source, cache *payload.Cache, log *zap.SugaredLogger) *Factory {
	return &Factory{source: src, cache: cache, logger: logger.OrNop(log)}
}

// FromFile reads path and returns a single-file chain: one Patient holding
// one Study, one Series and one Instance.
func (f *Factory) FromFile(path string) (*Patient, error) {
	d, err := f.source.Read(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return f.FromDictionary(path, d)
}

// FromDictionary builds a chain from an already-parsed dictionary.
// Study, series and SOP instance UIDs are required.
func (f *Factory) FromDictionary(path string, d source.Dictionary) (*Patient, error) {
	for _, required := range []tag.Tag{tag.StudyInstanceUID, tag.SeriesInstanceUID, tag.SOPInstanceUID} {
		if d.String(required) == "" {
			return nil, errors.WithDetailf(
				errors.InvalidArgumentf("%s: missing %s", path, tagName(required)),
				"path: %s", path)
		}
	}

	p := NewPatient(d.String(tag.PatientName), ParseDate(d.String(tag.PatientBirthDate)), d.String(tag.PatientID))
	p.OtherID = strings.Join(d.Strings(tag.OtherPatientIDs), `\`)
	p.Comment = d.String(tag.PatientComments)

	st := NewStudy(d.String(tag.StudyInstanceUID))
	st.Accession = d.String(tag.AccessionNumber)
	st.Date = ParseDate(d.String(tag.StudyDate))
	st.Description = d.String(tag.StudyDescription)

	se := NewSeries(d.String(tag.SeriesInstanceUID), strings.ToUpper(d.String(tag.Modality)))
	se.Number, _ = d.Int(tag.SeriesNumber)
	se.Time = d.String(tag.SeriesTime)
	se.Description = d.String(tag.SeriesDescription)

	summary := Summarize(path, d)
	h := f.handle(summary)
	h.Seed(d)
	inst := NewInstance(summary, h)

	se.Add(inst)
	st.Add(se)
	p.Add(st)
	return p, nil
}

// InstanceFromSummary rebuilds an instance from stored summary fields. Its
// dictionary is loaded from the file on first access.
func (f *Factory) InstanceFromSummary(s InstanceSummary) *Instance {
	return NewInstance(s, f.handle(s))
}

func (f *Factory) handle(s InstanceSummary) *payload.Handle {
	path := s.Path
	return f.cache.NewHandle(s.UID, path, func() (source.Dictionary, error) {
		d, err := f.source.Read(path)
		if err != nil {
			return nil, err
		}
		if err := checkSummary(s, Summarize(path, d)); err != nil {
			return nil, err
		}
		return d, nil
	})
}

// checkSummary fails when a re-read file no longer matches the summary it
// was indexed with, e.g. after being replaced on disk. Zero-valued fields of
// the indexed summary are not compared.
func checkSummary(indexed, reread InstanceSummary) error {
	mismatch := func(field string, want, got interface{}) error {
		return errors.Newf("%s changed on disk: %s was %v, now %v", indexed.Path, field, want, got)
	}
	switch {
	case indexed.UID != reread.UID:
		return mismatch("SOPInstanceUID", indexed.UID, reread.UID)
	case indexed.SOPClass != "" && indexed.SOPClass != reread.SOPClass:
		return mismatch("SOPClassUID", indexed.SOPClass, reread.SOPClass)
	case indexed.SeriesUID != "" && indexed.SeriesUID != reread.SeriesUID:
		return mismatch("SeriesInstanceUID", indexed.SeriesUID, reread.SeriesUID)
	case indexed.StudyUID != "" && indexed.StudyUID != reread.StudyUID:
		return mismatch("StudyInstanceUID", indexed.StudyUID, reread.StudyUID)
	case indexed.Number != 0 && indexed.Number != reread.Number:
		return mismatch("InstanceNumber", indexed.Number, reread.Number)
	case indexed.Frames != 0 && indexed.Frames != reread.Frames:
		return mismatch("NumberOfFrames", indexed.Frames, reread.Frames)
	}
	return nil
}

// Summarize extracts the immutable instance summary from d.
// Re-reading the same file always yields the same summary.
func Summarize(path string, d source.Dictionary) InstanceSummary {
	s := InstanceSummary{
		UID:       d.String(tag.SOPInstanceUID),
		SeriesUID: d.String(tag.SeriesInstanceUID),
		StudyUID:  d.String(tag.StudyInstanceUID),
		SOPClass:  d.String(tag.SOPClassUID),
		Path:      path,
	}
	s.Number, _ = d.Int(tag.InstanceNumber)
	if frames, ok := d.Int(tag.NumberOfFrames); ok && frames > 0 {
		s.Frames = frames
	} else {
		s.Frames = 1
	}
	s.References = collectReferences(d, s.UID)
	return s
}

// collectReferences gathers ReferencedSOPInstanceUID values at any depth of
// sequence nesting, in discovery order, without duplicates or self references.
func collectReferences(d source.Dictionary, self string) []string {
	seen := map[string]bool{self: true}
	var refs []string
	var walk func(d source.Dictionary, depth int)
	walk = func(d source.Dictionary, depth int) {
		if depth > 0 {
			for _, uid := range d.Strings(tag.ReferencedSOPInstanceUID) {
				if uid != "" && !seen[uid] {
					seen[uid] = true
					refs = append(refs, uid)
				}
			}
		}
		for _, t := range d.Tags() {
			for _, item := range d.Items(t) {
				walk(item, depth+1)
			}
		}
	}
	walk(d, 0)
	return refs
}

func tagName(t tag.Tag) string {
	if info, err := tag.Find(t); err == nil {
		return info.Name
	}
	return t.String()
}
