// Package entity is the in-memory Patient → Study → Series → Instance tree.
//
// Containers own their children keyed by natural identifier and perform no
// I/O. Objects are built either from an attribute dictionary at import time
// (see Factory) or from query result rows by the storage package.
package entity

import (
	"sort"
	"strings"
)

// PatientKey derives the deduplication key of a patient from name, birth
// date and id. The same person often carries different ids across sources,
// so the id alone is not enough.
func PatientKey(name string, birthDate Date, id string) string {
	return strings.ToUpper(strings.TrimSpace(name)) + "|" + birthDate.DA() + "|" + strings.TrimSpace(id)
}

// Patient is the root of the tree.
type Patient struct {
	Name      string
	BirthDate Date
	ID        string
	OtherID   string
	Comment   string

	studies map[string]*Study
}

// NewPatient creates an empty patient.
func NewPatient(name string, birthDate Date, id string) *Patient {
	return &Patient{
		Name:      name,
		BirthDate: birthDate,
		ID:        id,
		studies:   make(map[string]*Study),
	}
}

// Key returns the natural key.
func (p *Patient) Key() string {
	return PatientKey(p.Name, p.BirthDate, p.ID)
}

// Add stores s under its UID and returns the study it replaced, if any.
func (p *Patient) Add(s *Study) (*Study, bool) {
	if p.studies == nil {
		p.studies = make(map[string]*Study)
	}
	s.PatientKey = p.Key()
	old, replaced := p.studies[s.UID]
	p.studies[s.UID] = s
	return old, replaced
}

func (p *Patient) Get(uid string) (*Study, bool) {
	s, ok := p.studies[uid]
	return s, ok
}

// Remove deletes and returns the study with uid.
func (p *Patient) Remove(uid string) (*Study, bool) {
	s, ok := p.studies[uid]
	if ok {
		delete(p.studies, uid)
	}
	return s, ok
}

func (p *Patient) Contains(uid string) bool {
	_, ok := p.studies[uid]
	return ok
}

func (p *Patient) Len() int { return len(p.studies) }

// Studies lists studies by date, then UID.
func (p *Patient) Studies() []*Study {
	out := make([]*Study, 0, len(p.studies))
	for _, s := range p.studies {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// InstanceCount counts instances across all studies.
func (p *Patient) InstanceCount() int {
	n := 0
	for _, st := range p.studies {
		for _, se := range st.series {
			n += len(se.instances)
		}
	}
	return n
}

// SortPatients orders patients by name, then id.
func SortPatients(ps []*Patient) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
}
