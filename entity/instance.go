package entity

import (
	"github.com/teranos/dcmindex/payload"
	"github.com/teranos/dcmindex/source"
)

// InstanceSummary is the small set of fields extracted once from an
// instance's attributes and kept in memory. It is also exactly what the
// store persists per instance.
type InstanceSummary struct {
	UID       string
	SeriesUID string
	StudyUID  string
	SOPClass  string
	Number    int
	Frames    int
	Path      string
	// References are SOP instance UIDs this instance points at.
	References []string
}

// Instance is one indexed object. The summary is immutable; the full
// attribute dictionary lives behind a reclaimable handle.
type Instance struct {
	summary InstanceSummary
	payload *payload.Handle
}

// NewInstance wraps a summary and an optional payload handle.
func NewInstance(s InstanceSummary, h *payload.Handle) *Instance {
	s.References = append([]string(nil), s.References...)
	return &Instance{summary: s, payload: h}
}

func (i *Instance) UID() string       { return i.summary.UID }
func (i *Instance) SeriesUID() string { return i.summary.SeriesUID }
func (i *Instance) StudyUID() string  { return i.summary.StudyUID }
func (i *Instance) SOPClass() string  { return i.summary.SOPClass }
func (i *Instance) Number() int       { return i.summary.Number }
func (i *Instance) Frames() int       { return i.summary.Frames }
func (i *Instance) Path() string      { return i.summary.Path }

// References returns a copy of the referenced SOP instance UIDs.
func (i *Instance) References() []string {
	return append([]string(nil), i.summary.References...)
}

// Summary returns a copy of the immutable summary.
func (i *Instance) Summary() InstanceSummary {
	s := i.summary
	s.References = i.References()
	return s
}

// Attributes returns the full dictionary, re-reading the file when it was
// reclaimed. False means the data is unavailable; this is not an error.
func (i *Instance) Attributes() (source.Dictionary, bool) {
	if i.payload == nil {
		return nil, false
	}
	return i.payload.Get()
}

// Compact drops the cached dictionary.
func (i *Instance) Compact() {
	if i.payload != nil {
		i.payload.Compact()
	}
}

// IsPresentationState reports whether the instance is a softcopy
// presentation state rather than image data.
func (i *Instance) IsPresentationState() bool {
	return IsPresentationStateClass(i.summary.SOPClass)
}
