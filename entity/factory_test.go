package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/payload"
	"github.com/teranos/dcmindex/source"
	"github.com/teranos/dcmindex/source/sourcetest"
)

func ctSlice(sop string) source.Map {
	return source.Map{
		tag.PatientName:       "SMITH^ANNA",
		tag.PatientID:         "123456",
		tag.PatientBirthDate:  "19800214",
		tag.OtherPatientIDs:   []string{"A-1", "B-2"},
		tag.PatientComments:   "follow-up",
		tag.StudyInstanceUID:  "1.2.1",
		tag.AccessionNumber:   "ACC9",
		tag.StudyDate:         "20240301",
		tag.StudyDescription:  "CHEST",
		tag.SeriesInstanceUID: "1.2.1.1",
		tag.Modality:          "ct",
		tag.SeriesNumber:      "2",
		tag.SeriesTime:        "101500",
		tag.SeriesDescription: "AXIAL",
		tag.SOPInstanceUID:    sop,
		tag.SOPClassUID:       CTImageStorage,
		tag.InstanceNumber:    "5",
	}
}

func TestFactoryFromFile(t *testing.T) {
	src := sourcetest.New()
	src.Put("/d/1.dcm", ctSlice("1.2.1.1.1"))
	f := NewFactory(src, nil, nil)

	p, err := f.FromFile("/d/1.dcm")
	require.NoError(t, err)

	assert.Equal(t, "SMITH^ANNA", p.Name)
	assert.Equal(t, NewDate(1980, 2, 14), p.BirthDate)
	assert.Equal(t, `A-1\B-2`, p.OtherID)
	assert.Equal(t, "follow-up", p.Comment)

	st, ok := p.Get("1.2.1")
	require.True(t, ok)
	assert.Equal(t, "ACC9", st.Accession)
	assert.Equal(t, NewDate(2024, 3, 1), st.Date)
	assert.Equal(t, ModalityBit("CT"), st.Modalities())

	se, ok := st.Get("1.2.1.1")
	require.True(t, ok)
	assert.Equal(t, "CT", se.Modality())
	assert.Equal(t, 2, se.Number)
	assert.Equal(t, "101500", se.Time)

	inst, ok := se.Get("1.2.1.1.1")
	require.True(t, ok)
	assert.Equal(t, CTImageStorage, inst.SOPClass())
	assert.Equal(t, 5, inst.Number())
	assert.Equal(t, 1, inst.Frames())
	assert.Equal(t, "/d/1.dcm", inst.Path())
	assert.Equal(t, "1.2.1.1", inst.SeriesUID())
	assert.Equal(t, "1.2.1", inst.StudyUID())

	d, ok := inst.Attributes()
	require.True(t, ok)
	assert.Equal(t, "CHEST", d.String(tag.StudyDescription))
	assert.Equal(t, 1, src.Reads("/d/1.dcm"))
}

func TestFactoryRequiresUIDs(t *testing.T) {
	f := NewFactory(sourcetest.New(), nil, nil)
	d := ctSlice("1")
	delete(d, tag.SeriesInstanceUID)

	_, err := f.FromDictionary("/d/x.dcm", d)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "SeriesInstanceUID")
}

func TestFactoryReadFailure(t *testing.T) {
	f := NewFactory(sourcetest.New(), nil, nil)
	_, err := f.FromFile("/nope.dcm")
	require.Error(t, err)
}

func TestInstanceRederivesSameSummary(t *testing.T) {
	src := sourcetest.New()
	src.Put("/d/1.dcm", ctSlice("1.2.1.1.1"))
	cache, err := payload.NewCache(0, nil)
	require.NoError(t, err)
	f := NewFactory(src, cache, nil)

	p, err := f.FromFile("/d/1.dcm")
	require.NoError(t, err)
	var inst *Instance
	Walk(p, func(_ *Study, _ *Series, i *Instance) { inst = i })
	require.NotNil(t, inst)

	inst.Compact()
	d, ok := inst.Attributes()
	require.True(t, ok)
	assert.Equal(t, inst.Summary(), Summarize(inst.Path(), d))
}

func TestInstanceFromSummaryLoadsLazily(t *testing.T) {
	src := sourcetest.New()
	src.Put("/d/1.dcm", ctSlice("1.2.1.1.1"))
	f := NewFactory(src, nil, nil)

	inst := f.InstanceFromSummary(InstanceSummary{UID: "1.2.1.1.1", Path: "/d/1.dcm"})
	assert.Equal(t, 0, src.TotalReads())

	d, ok := inst.Attributes()
	require.True(t, ok)
	assert.Equal(t, "SMITH^ANNA", d.String(tag.PatientName))

	src.Remove("/d/1.dcm")
	inst.Compact()
	_, ok = inst.Attributes()
	assert.False(t, ok)
}

func TestReplacedFileIsUnavailable(t *testing.T) {
	src := sourcetest.New()
	src.Put("/d/1.dcm", ctSlice("1.2.1.1.1"))
	f := NewFactory(src, nil, nil)

	inst := f.InstanceFromSummary(InstanceSummary{UID: "1.2.1.1.1", SOPClass: CTImageStorage, Path: "/d/1.dcm"})
	_, ok := inst.Attributes()
	require.True(t, ok)

	src.Put("/d/1.dcm", ctSlice("1.2.1.1.9"))
	inst.Compact()
	_, ok = inst.Attributes()
	assert.False(t, ok)
}

func TestCheckSummary(t *testing.T) {
	indexed := InstanceSummary{UID: "1", SeriesUID: "1.1", SOPClass: CTImageStorage, Number: 3, Path: "/a"}

	assert.NoError(t, checkSummary(indexed, indexed))
	assert.NoError(t, checkSummary(InstanceSummary{UID: "1"}, indexed))

	changed := indexed
	changed.Number = 4
	err := checkSummary(indexed, changed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InstanceNumber")

	changed = indexed
	changed.UID = "2"
	assert.Error(t, checkSummary(indexed, changed))
}

func TestSummarizeCollectsNestedReferences(t *testing.T) {
	d := source.Map{
		tag.SOPInstanceUID: "9.9",
		tag.SOPClassUID:    RTStructureSetStorage,
		tag.NumberOfFrames: "0",
	}
	d[tag.ReferencedFrameOfReferenceSequence] = []source.Map{{
		tag.RTReferencedStudySequence: []source.Map{{
			tag.ReferencedSOPInstanceUID: "1.2.1",
			tag.RTReferencedSeriesSequence: []source.Map{{
				tag.ContourImageSequence: []source.Map{
					{tag.ReferencedSOPInstanceUID: "1.2.1.1.1"},
					{tag.ReferencedSOPInstanceUID: "1.2.1.1.2"},
					{tag.ReferencedSOPInstanceUID: "1.2.1.1.1"},
					{tag.ReferencedSOPInstanceUID: "9.9"},
				},
			}},
		}},
	}}

	s := Summarize("/rs.dcm", d)
	assert.Equal(t, []string{"1.2.1", "1.2.1.1.1", "1.2.1.1.2"}, s.References)
	assert.Equal(t, 1, s.Frames)
}

func TestMerge(t *testing.T) {
	src := sourcetest.New()
	a := ctSlice("1.2.1.1.1")
	b := ctSlice("1.2.1.1.2")
	c := ctSlice("1.2.1.2.1")
	c[tag.SeriesInstanceUID] = "1.2.1.2"
	c[tag.Modality] = "MR"
	src.Put("/a", a)
	src.Put("/b", b)
	src.Put("/c", c)
	f := NewFactory(src, nil, nil)

	forest := map[string]*Patient{}
	for _, path := range []string{"/a", "/b", "/c"} {
		chain, err := f.FromFile(path)
		require.NoError(t, err)
		Merge(forest, chain)
	}

	require.Len(t, forest, 1)
	for _, p := range forest {
		require.Equal(t, 1, p.Len())
		st := p.Studies()[0]
		assert.Equal(t, 2, st.Len())
		assert.Equal(t, ModalityMaskOf("CT", "MR"), st.Modalities())
		assert.Equal(t, 3, p.InstanceCount())
	}
}
