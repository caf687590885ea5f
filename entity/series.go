package entity

import "sort"

// Series groups instances of one modality. The modality is fixed at
// construction since the parent study's mask is derived from it.
type Series struct {
	UID         string
	StudyUID    string
	Number      int
	Time        string
	Description string

	modality  string
	instances map[string]*Instance
}

// NewSeries creates an empty series.
func NewSeries(uid, modality string) *Series {
	return &Series{UID: uid, modality: modality, instances: make(map[string]*Instance)}
}

func (s *Series) Modality() string { return s.modality }

// Bit returns the modality bit of the series.
func (s *Series) Bit() ModalityMask { return ModalityBit(s.modality) }

// Add stores inst under its UID and returns the instance it replaced, if any.
func (s *Series) Add(inst *Instance) (*Instance, bool) {
	if s.instances == nil {
		s.instances = make(map[string]*Instance)
	}
	inst.summary.SeriesUID = s.UID
	inst.summary.StudyUID = s.StudyUID
	old, replaced := s.instances[inst.UID()]
	s.instances[inst.UID()] = inst
	return old, replaced
}

func (s *Series) Get(uid string) (*Instance, bool) {
	inst, ok := s.instances[uid]
	return inst, ok
}

// Remove deletes and returns the instance with uid.
func (s *Series) Remove(uid string) (*Instance, bool) {
	inst, ok := s.instances[uid]
	if ok {
		delete(s.instances, uid)
	}
	return inst, ok
}

func (s *Series) Contains(uid string) bool {
	_, ok := s.instances[uid]
	return ok
}

func (s *Series) Len() int { return len(s.instances) }

// Instances lists instances by number, then UID.
func (s *Series) Instances() []*Instance {
	out := make([]*Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, inst)
	}
	SortInstances(out)
	return out
}

// SortInstances orders instances by number, then UID.
func SortInstances(is []*Instance) {
	sort.Slice(is, func(i, j int) bool {
		a, b := is[i].summary, is[j].summary
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.UID < b.UID
	})
}
