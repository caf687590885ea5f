package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/teranos/dcmindex/criteria"
	"github.com/teranos/dcmindex/display"
	"github.com/teranos/dcmindex/entity"
	"github.com/teranos/dcmindex/errors"
	dcmtest "github.com/teranos/dcmindex/internal/testing"
	"github.com/teranos/dcmindex/source"
	"github.com/teranos/dcmindex/storage"
)

func TestBuildCriterion(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts axOptions
		want string
	}{
		{name: "empty", want: ""},
		{name: "single flag", opts: axOptions{name: "SMITH"}, want: `PatientName ~ "SMITH"`},
		{name: "exact", opts: axOptions{patientID: "123", exact: true}, want: `PatientID = "123"`},
		{
			name: "modality with scope",
			opts: axOptions{modality: "ct", modalityScope: "series", accession: "A1"},
			want: `(AccessionNumber ~ "A1" AND Modality = "CT"@series)`,
		},
		{
			name: "date is always equality",
			opts: axOptions{date: "20240101-20241231"},
			want: `StudyDate = "20240101-20241231"`,
		},
		{
			name: "attr",
			opts: axOptions{attrs: []string{"SeriesDescription~AXIAL@series", "SOPInstanceUID=1.2.3"}},
			want: `(SeriesDescription ~ "AXIAL"@series AND SOPInstanceUID = "1.2.3")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := buildCriterion(tt.text, tt.opts)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, c)
				return
			}
			require.NotNil(t, c)
			assert.Equal(t, tt.want, c.String())
		})
	}
}

func TestBuildCriterionFreeText(t *testing.T) {
	c, err := buildCriterion("  smith ", axOptions{modality: "MR"})
	require.NoError(t, err)
	require.True(t, c.IsCompound())

	children, err := c.Children()
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.True(t, children[0].IsCompound())
	assert.Equal(t, criteria.And, children[1].Combinator())

	var leaves int
	criteria.Walk(c, func(*criteria.Leaf) { leaves++ })
	assert.Equal(t, 8, leaves)
}

func TestFreeTextHelpMatchesFields(t *testing.T) {
	c, err := criteria.FreeText("1.2.3")
	require.NoError(t, err)
	criteria.Walk(c, func(l *criteria.Leaf) {
		name := criteria.AttributeName(l.Tag())
		assert.NotContains(t, name, "UID", "free text leaf %s", name)
	})
	assert.NotContains(t, AxCmd.Long, "and UIDs")
	assert.Contains(t, AxCmd.Long, "ax refs")
}

func TestBuildCriterionErrors(t *testing.T) {
	cases := []axOptions{
		{modality: "CT", modalityScope: "galaxy"},
		{attrs: []string{"NoSuchKeyword=1"}},
		{attrs: []string{"=1"}},
		{attrs: []string{"PatientName"}},
		{attrs: []string{"PatientName~SMITH@series"}},
		{attrs: []string{"PatientName~SMITH@nowhere"}},
	}
	for _, o := range cases {
		_, err := buildCriterion("", o)
		require.Error(t, err, "%+v", o)
		assert.True(t, errors.IsInvalidArgument(err), "%+v: %v", o, err)
	}
}

func seedStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	factory := entity.NewFactory(nil, nil, nil)
	store := storage.NewSQLStore(dcmtest.CreateTestDB(t), factory, nil)

	var chains []*entity.Patient
	for _, f := range []struct{ series, modality, sop string }{
		{"1.2.1.1", "CT", "1.2.1.1.1"},
		{"1.2.1.2", "MR", "1.2.1.2.1"},
	} {
		p, err := factory.FromDictionary("/scans/"+f.sop+".dcm", source.Map{
			tag.PatientName:       "SMITH^ANNA",
			tag.PatientID:         "123",
			tag.StudyInstanceUID:  "1.2.1",
			tag.StudyDate:         "20240301",
			tag.StudyDescription:  "CHEST",
			tag.SeriesInstanceUID: f.series,
			tag.Modality:          f.modality,
			tag.SOPInstanceUID:    f.sop,
			tag.SOPClassUID:       entity.CTImageStorage,
		})
		require.NoError(t, err)
		chains = append(chains, p)
	}
	_, err := store.StorePatients(context.Background(), chains)
	require.NoError(t, err)
	return store
}

func TestRenderTree(t *testing.T) {
	store := seedStore(t)
	patients, err := store.Search(context.Background(), criteria.Like(tag.PatientName, "smith"), storage.LevelInstance)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderTree(&buf, patients, storage.LevelInstance, false))
	out := buf.String()
	assert.Contains(t, out, "Found 1 patients")
	assert.Contains(t, out, "SMITH^ANNA [123]")
	assert.Contains(t, out, `CT\MR`)
	assert.Contains(t, out, "/scans/1.2.1.2.1.dcm")

	buf.Reset()
	require.NoError(t, renderTree(&buf, nil, storage.LevelStudy, false))
	assert.Contains(t, buf.String(), "Found 0 patients")
}

func TestRenderJSON(t *testing.T) {
	store := seedStore(t)
	patients, err := store.Search(context.Background(), nil, storage.LevelSeries)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, display.WriteJSON(&buf, patientViews(patients, false)))

	var views []patientView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &views))
	require.Len(t, views, 1)
	require.Len(t, views[0].Studies, 1)
	st := views[0].Studies[0]
	assert.Equal(t, "2024-03-01", st.Date)
	assert.Equal(t, []string{"CT", "MR"}, st.Modalities)
	assert.Len(t, st.Series, 2)
	assert.Empty(t, st.Series[0].Instances)
}

func TestRenderStudyLevelModalities(t *testing.T) {
	store := seedStore(t)
	patients, err := store.Search(context.Background(), nil, storage.LevelStudy)
	require.NoError(t, err)
	require.Len(t, patients, 1)

	views := patientViews(patients, false)
	require.Len(t, views[0].Studies, 1)
	assert.Equal(t, []string{"CT", "MR"}, views[0].Studies[0].Modalities)
	assert.Empty(t, views[0].Studies[0].Series)
	assert.Equal(t, `CT\MR`, modalityLabel(patients[0].Studies()[0]))

	var buf bytes.Buffer
	require.NoError(t, renderTree(&buf, patients, storage.LevelStudy, false))
	assert.Contains(t, buf.String(), `CT\MR`)
}

func TestAttributeMapReadsFile(t *testing.T) {
	d := source.Map{
		tag.SOPInstanceUID:    "9.9",
		tag.SeriesInstanceUID: "9",
		tag.StudyInstanceUID:  "8",
		tag.PatientName:       "DOE^J",
		tag.PixelData:         []byte{1, 2, 3},
	}
	factory := entity.NewFactory(source.SourceFunc(func(string) (source.Dictionary, error) { return d, nil }), nil, nil)
	inst := factory.InstanceFromSummary(entity.Summarize("/x.dcm", d))

	attrs := attributeMap(inst)
	assert.Equal(t, "DOE^J", attrs["PatientName"])
	assert.Equal(t, "<3 bytes>", attrs["PixelData"])
	assert.Contains(t, attributeLines(attrs), "PatientName = DOE^J")
}
