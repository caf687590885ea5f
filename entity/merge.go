package entity

// Merge folds chain into forest, keyed by patient key. Existing patients,
// studies and series are reused; instances are upserted. It returns the
// patient in forest that now holds the chain's content.
func Merge(forest map[string]*Patient, chain *Patient) *Patient {
	key := chain.Key()
	dst, ok := forest[key]
	if !ok {
		forest[key] = chain
		return chain
	}
	for _, st := range chain.studies {
		MergeStudy(dst, st)
	}
	return dst
}

// MergeStudy folds st into p.
func MergeStudy(p *Patient, st *Study) {
	existing, ok := p.Get(st.UID)
	if !ok {
		p.Add(st)
		return
	}
	for _, se := range st.series {
		dst, ok := existing.Get(se.UID)
		if !ok {
			existing.Add(se)
			continue
		}
		for _, inst := range se.instances {
			dst.Add(inst)
		}
	}
}

// Walk calls fn for every instance under p, in sorted order.
func Walk(p *Patient, fn func(*Study, *Series, *Instance)) {
	for _, st := range p.Studies() {
		for _, se := range st.Series() {
			for _, inst := range se.Instances() {
				fn(st, se, inst)
			}
		}
	}
}
