package dicomdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/teranos/dcmindex/entity"
	dcmtest "github.com/teranos/dcmindex/internal/testing"
	"github.com/teranos/dcmindex/source"
	"github.com/teranos/dcmindex/source/sourcetest"
	"github.com/teranos/dcmindex/storage"
)

type env struct {
	dir      string
	src      *sourcetest.Source
	factory  *entity.Factory
	store    *storage.SQLStore
	pipeline *Pipeline
	importer *Importer
	commits  int
}

func newEnv(t *testing.T, capacity int) *env {
	t.Helper()
	e := &env{dir: t.TempDir(), src: sourcetest.New()}
	e.factory = entity.NewFactory(e.src, nil, nil)
	e.store = storage.NewSQLStore(dcmtest.CreateTestDB(t), e.factory, nil)
	e.store.RegisterObserver(storage.WriteObserverFunc(func(storage.WriteStats) { e.commits++ }))

	var err error
	e.pipeline, err = NewPipeline(e.store, capacity, nil)
	require.NoError(t, err)
	e.importer = NewImporter(e.factory, e.pipeline, nil)
	return e
}

// put creates an empty file at rel and scripts its attributes.
func (e *env) put(t *testing.T, rel string, d source.Map) string {
	t.Helper()
	path := filepath.Join(e.dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	if d != nil {
		e.src.Put(path, d)
	}
	return path
}

func slice(series, modality, sop string, number int) source.Map {
	return source.Map{
		tag.PatientName:       "SMITH^ANNA",
		tag.PatientID:         "123456",
		tag.PatientBirthDate:  "19800214",
		tag.StudyInstanceUID:  "1.2.1",
		tag.StudyDate:         "20240301",
		tag.StudyDescription:  "CHEST",
		tag.AccessionNumber:   "ACC9",
		tag.SeriesInstanceUID: series,
		tag.Modality:          modality,
		tag.SeriesNumber:      []int{1},
		tag.SOPInstanceUID:    sop,
		tag.SOPClassUID:       entity.CTImageStorage,
		tag.InstanceNumber:    []int{number},
	}
}
