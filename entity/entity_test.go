package entity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientKey(t *testing.T) {
	assert.Equal(t, "DOE^JANE|19700102|123", PatientKey(" Doe^Jane ", NewDate(1970, 1, 2), " 123"))
	assert.Equal(t, "||", PatientKey("", 0, ""))

	p := NewPatient("doe^jane", NewDate(1970, 1, 2), "123")
	assert.Equal(t, PatientKey("DOE^JANE", NewDate(1970, 1, 2), "123"), p.Key())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{"20240131", NewDate(2024, 1, 31)},
		{"2024.01.31", NewDate(2024, 1, 31)},
		{" 19991231 ", NewDate(1999, 12, 31)},
		{"", 0},
		{"2024", 0},
		{"20241301", 0},
		{"20240100", 0},
		{"2024013X", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDate(tt.in))
		})
	}

	d := NewDate(2024, 1, 31)
	assert.Equal(t, "20240131", d.DA())
	assert.Equal(t, "2024-01-31", d.String())
	assert.Empty(t, Date(0).String())
}

func TestModalityBits(t *testing.T) {
	ct, mr := ModalityBit("CT"), ModalityBit("mr")
	assert.NotEqual(t, ct, mr)
	assert.Equal(t, ModalityBit("OT"), ModalityBit("XYZ"))
	assert.Equal(t, ModalityBit("OT"), ModalityBit(""))
	assert.True(t, KnownModality("rtstruct"))
	assert.False(t, KnownModality("XYZ"))

	mask := ModalityMaskOf("CT", "MR")
	assert.True(t, mask.Has(ct))
	assert.False(t, mask.Has(ModalityBit("PT")))
	assert.Equal(t, []string{"CT", "MR"}, mask.Names())
	assert.Equal(t, `CT\MR`, mask.String())
}

func TestContainerUpsert(t *testing.T) {
	p := NewPatient("DOE^JANE", 0, "1")
	st := NewStudy("1.1")

	old, replaced := p.Add(st)
	assert.False(t, replaced)
	assert.Nil(t, old)
	assert.Equal(t, p.Key(), st.PatientKey)

	st2 := NewStudy("1.1")
	old, replaced = p.Add(st2)
	assert.True(t, replaced)
	assert.Same(t, st, old)
	assert.Equal(t, 1, p.Len())

	got, ok := p.Get("1.1")
	require.True(t, ok)
	assert.Same(t, st2, got)

	removed, ok := p.Remove("1.1")
	require.True(t, ok)
	assert.Same(t, st2, removed)
	assert.False(t, p.Contains("1.1"))

	_, ok = p.Remove("1.1")
	assert.False(t, ok)
}

func TestSeriesSetsOwnership(t *testing.T) {
	st := NewStudy("1.1")
	se := NewSeries("1.1.1", "CT")
	inst := NewInstance(InstanceSummary{UID: "1.1.1.1"}, nil)

	se.Add(inst)
	st.Add(se)

	assert.Equal(t, "1.1", se.StudyUID)
	assert.Equal(t, "1.1.1", inst.SeriesUID())
	assert.Equal(t, "1.1", inst.StudyUID())
}

func TestSortedListings(t *testing.T) {
	p := NewPatient("A", 0, "1")
	p.Add(&Study{UID: "3", Date: NewDate(2024, 1, 1)})
	p.Add(&Study{UID: "2", Date: NewDate(2023, 1, 1)})
	p.Add(&Study{UID: "1", Date: NewDate(2024, 1, 1)})

	var uids []string
	for _, s := range p.Studies() {
		uids = append(uids, s.UID)
	}
	assert.Equal(t, []string{"2", "1", "3"}, uids)

	st := NewStudy("s")
	st.Add(&Series{UID: "c", Number: 2, Time: "100000"})
	st.Add(&Series{UID: "b", Number: 1, Time: "120000"})
	st.Add(&Series{UID: "a", Number: 1, Time: "110000"})
	uids = nil
	for _, s := range st.Series() {
		uids = append(uids, s.UID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, uids)

	se := NewSeries("x", "CT")
	se.Add(NewInstance(InstanceSummary{UID: "9", Number: 2}, nil))
	se.Add(NewInstance(InstanceSummary{UID: "8", Number: 1}, nil))
	se.Add(NewInstance(InstanceSummary{UID: "7", Number: 2}, nil))
	uids = nil
	for _, i := range se.Instances() {
		uids = append(uids, i.UID())
	}
	assert.Equal(t, []string{"8", "7", "9"}, uids)

	ps := []*Patient{NewPatient("B", 0, "1"), NewPatient("A", 0, "2"), NewPatient("A", 0, "1")}
	SortPatients(ps)
	assert.Equal(t, "A|1", ps[0].Name+"|"+ps[0].ID)
	assert.Equal(t, "A|2", ps[1].Name+"|"+ps[1].ID)
	assert.Equal(t, "B|1", ps[2].Name+"|"+ps[2].ID)
}

func TestStudyModalityMaskTracksChildren(t *testing.T) {
	codes := []string{"CT", "MR", "PT", "US", "RTSTRUCT", "XYZ"}
	rng := rand.New(rand.NewSource(42))
	st := NewStudy("1")

	expected := func() ModalityMask {
		var m ModalityMask
		for _, s := range st.Series() {
			m |= s.Bit()
		}
		return m
	}

	for step := 0; step < 500; step++ {
		uid := string(rune('a' + rng.Intn(8)))
		if rng.Intn(3) == 0 {
			st.Remove(uid)
		} else {
			st.Add(NewSeries(uid, codes[rng.Intn(len(codes))]))
		}
		require.Equal(t, expected(), st.Modalities(), "step %d", step)
	}
}

func TestStudyReplaceRecomputesMask(t *testing.T) {
	st := NewStudy("1")
	st.Add(NewSeries("a", "CT"))
	st.Add(NewSeries("a", "MR"))

	assert.Equal(t, ModalityBit("MR"), st.Modalities())
	assert.Equal(t, []string{"MR"}, st.ModalityNames())
}

func TestSeriesModalityFixedAtConstruction(t *testing.T) {
	se := NewSeries("a", "CT")
	st := NewStudy("1")
	st.Add(se)

	assert.Equal(t, "CT", se.Modality())
	assert.Equal(t, ModalityBit("CT"), se.Bit())
	assert.Equal(t, se.Bit(), st.Modalities())
}

func TestStudyWithoutSeriesReportsIndexedMask(t *testing.T) {
	st := NewStudy("1")
	assert.Equal(t, ModalityMask(0), st.Modalities())

	st.SetIndexedModalities(ModalityMaskOf("CT", "MR"))
	assert.Equal(t, ModalityMaskOf("CT", "MR"), st.Modalities())
	assert.Equal(t, []string{"CT", "MR"}, st.ModalityNames())

	st.Add(NewSeries("a", "MR"))
	assert.Equal(t, ModalityBit("MR"), st.Modalities())
	assert.Equal(t, ModalityMaskOf("CT", "MR"), st.IndexedModalities())
}

func TestPresentationStateClassification(t *testing.T) {
	assert.True(t, NewInstance(InstanceSummary{SOPClass: GrayscaleSoftcopyPresentationStateStorage}, nil).IsPresentationState())
	assert.True(t, IsPresentationStateClass(AdvancedBlendingPresentationStateStorage))
	assert.False(t, IsPresentationStateClass(CTImageStorage))
	assert.False(t, IsPresentationStateClass(RTStructureSetStorage))
}

func TestInstanceSummaryIsCopied(t *testing.T) {
	refs := []string{"1.2"}
	inst := NewInstance(InstanceSummary{UID: "1", References: refs}, nil)
	refs[0] = "changed"

	assert.Equal(t, []string{"1.2"}, inst.References())
	got := inst.References()
	got[0] = "changed"
	assert.Equal(t, []string{"1.2"}, inst.Summary().References)

	_, ok := inst.Attributes()
	assert.False(t, ok)
	inst.Compact()
}
