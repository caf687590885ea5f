package entity

import "sort"

// Study groups series. Its modality mask is derived from the children:
// OR-ed in on Add, recomputed from scratch on Remove or replacement.
type Study struct {
	UID         string
	PatientKey  string
	Accession   string
	Date        Date
	Description string

	modalities ModalityMask
	indexed    ModalityMask
	series     map[string]*Series
}

// NewStudy creates an empty study.
func NewStudy(uid string) *Study {
	return &Study{UID: uid, series: make(map[string]*Series)}
}

// Add stores s under its UID and returns the series it replaced, if any.
func (st *Study) Add(s *Series) (*Series, bool) {
	if st.series == nil {
		st.series = make(map[string]*Series)
	}
	s.StudyUID = st.UID
	for _, inst := range s.instances {
		inst.summary.StudyUID = st.UID
	}
	old, replaced := st.series[s.UID]
	st.series[s.UID] = s
	if replaced {
		st.recompute()
	} else {
		st.modalities |= s.Bit()
	}
	return old, replaced
}

func (st *Study) Get(uid string) (*Series, bool) {
	s, ok := st.series[uid]
	return s, ok
}

// Remove deletes and returns the series with uid, recomputing the mask.
func (st *Study) Remove(uid string) (*Series, bool) {
	s, ok := st.series[uid]
	if !ok {
		return nil, false
	}
	delete(st.series, uid)
	st.recompute()
	return s, true
}

func (st *Study) Contains(uid string) bool {
	_, ok := st.series[uid]
	return ok
}

func (st *Study) Len() int { return len(st.series) }

// Series lists series by number, then time, then UID.
func (st *Study) Series() []*Series {
	out := make([]*Series, 0, len(st.series))
	for _, s := range st.series {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.UID < b.UID
	})
	return out
}

// Modalities returns the OR of the current children's modality bits.
// A study read back by a query without its series reports the indexed mask.
func (st *Study) Modalities() ModalityMask {
	if len(st.series) == 0 {
		return st.indexed
	}
	return st.modalities
}

// ModalityNames decodes Modalities.
func (st *Study) ModalityNames() []string { return st.Modalities().Names() }

// IndexedModalities returns the mask recorded in the store when the study
// was read back by a query. It covers every indexed series, including those
// the query filtered out. Zero for studies not read from the store.
func (st *Study) IndexedModalities() ModalityMask { return st.indexed }

// SetIndexedModalities records the persisted mask.
func (st *Study) SetIndexedModalities(m ModalityMask) { st.indexed = m }

func (st *Study) recompute() {
	var m ModalityMask
	for _, s := range st.series {
		m |= s.Bit()
	}
	st.modalities = m
}
