package storage

import (
	"database/sql"
	"testing"

	"github.com/teranos/dcmindex/entity"
	dcmtest "github.com/teranos/dcmindex/internal/testing"
)

// fixture describes one instance and the chain above it.
type fixture struct {
	patient  string
	id       string
	study    string
	series   string
	modality string
	sop      string
	class    string
	refs     []string
}

func (f fixture) chain() *entity.Patient {
	p := entity.NewPatient(f.patient, entity.NewDate(1980, 2, 14), f.id)
	st := entity.NewStudy(f.study)
	st.Date = entity.NewDate(2024, 3, 1)
	st.Accession = "ACC-" + f.study
	st.Description = "CHEST CT"
	se := entity.NewSeries(f.series, f.modality)
	se.Description = f.modality + " series"
	class := f.class
	if class == "" {
		class = entity.CTImageStorage
	}
	se.Add(entity.NewInstance(entity.InstanceSummary{
		UID:        f.sop,
		SOPClass:   class,
		Number:     1,
		Frames:     1,
		Path:       "/data/" + f.sop + ".dcm",
		References: f.refs,
	}, nil))
	st.Add(se)
	p.Add(st)
	return p
}

func newTestStore(t *testing.T, opts ...Option) (*SQLStore, *sql.DB) {
	t.Helper()
	conn := dcmtest.CreateTestDB(t)
	return NewSQLStore(conn, nil, nil, opts...), conn
}

func newTestStoreDB(t *testing.T) *sql.DB {
	t.Helper()
	return dcmtest.CreateTestDB(t)
}
