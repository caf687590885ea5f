package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/teranos/dcmindex/criteria"
	"github.com/teranos/dcmindex/entity"
	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/logger"
)

// referenceBatchSize bounds the IN list when loading cross-references.
const referenceBatchSize = 500

// Compile compiles c at level with the store's strictness.
func (s *SQLStore) Compile(c criteria.Criterion, level Level) (*Query, error) {
	if level < LevelPatient || level > LevelInstance {
		return nil, errors.InvalidArgumentf("unknown result level %d", int(level))
	}
	return Compiler{Strict: s.strict}.Compile(c, level)
}

// Search returns the patient-rooted tree of entities matching c, built down
// to level. A nil criterion matches everything. No match is an empty slice.
func (s *SQLStore) Search(ctx context.Context, c criteria.Criterion, level Level) ([]*entity.Patient, error) {
	q, err := s.Compile(c, level)
	if err != nil {
		return nil, err
	}
	patients, err := s.run(ctx, q)
	if err != nil {
		return nil, errors.WithDetail(err, "Criteria: "+describe(c))
	}
	s.logger.Debugw("Search",
		logger.FieldCriteria, describe(c),
		logger.FieldLevel, level.String(),
		logger.FieldCount, len(patients),
	)
	return patients, nil
}

// SearchFreeText searches the human-readable fields for text.
func (s *SQLStore) SearchFreeText(ctx context.Context, text string, level Level) ([]*entity.Patient, error) {
	c, err := criteria.FreeText(text)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, c, level)
}

// SearchInstances returns matching instances as a flat list. When
// referencing is non-empty only instances holding a cross-reference to one
// of those SOP instance UIDs are returned.
func (s *SQLStore) SearchInstances(ctx context.Context, c criteria.Criterion, referencing []string) ([]*entity.Instance, error) {
	q, err := s.Compile(c, LevelInstance)
	if err != nil {
		return nil, err
	}
	if len(referencing) > 0 {
		placeholders := make([]string, len(referencing))
		for i, uid := range referencing {
			placeholders[i] = "?"
			q.Args = append(q.Args, uid)
		}
		clause := "i.id IN (SELECT instance_fk FROM instance_ref WHERE ref_uid IN (" + strings.Join(placeholders, ", ") + "))"
		if q.Where == "" {
			q.Where = clause
		} else {
			q.Where = "(" + q.Where + ") AND " + clause
		}
		q.SQL = buildSelect(q)
	}

	patients, err := s.run(ctx, q)
	if err != nil {
		return nil, errors.WithDetail(err, "Operation: SearchInstances")
	}

	instances := make([]*entity.Instance, 0)
	for _, p := range patients {
		entity.Walk(p, func(_ *entity.Study, _ *entity.Series, inst *entity.Instance) {
			instances = append(instances, inst)
		})
	}
	return instances, nil
}

func (s *SQLStore) run(ctx context.Context, q *Query) ([]*entity.Patient, error) {
	rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		err = errors.WrapStorage(err, "failed to execute search")
		return nil, errors.WithDetail(err, "Query: "+q.SQL)
	}
	defer rows.Close()

	tb := newTreeBuilder()
	for rows.Next() {
		if err := tb.scan(rows, q.Level); err != nil {
			err = errors.WrapStorage(err, "failed to scan search row")
			return nil, errors.WithDetailf(err, "Results so far: %d", len(tb.order))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStorage(err, "failed to read search rows")
	}
	rows.Close()

	if len(tb.pending) > 0 {
		refs, err := s.loadReferences(ctx, tb.pendingIDs())
		if err != nil {
			return nil, err
		}
		tb.attachInstances(s.factory, refs)
	}

	entity.SortPatients(tb.order)
	return tb.order, nil
}

// loadReferences returns cross-references per instance id, in insertion order.
func (s *SQLStore) loadReferences(ctx context.Context, ids []int64) (map[int64][]string, error) {
	refs := make(map[int64][]string)
	for start := 0; start < len(ids); start += referenceBatchSize {
		end := min(start+referenceBatchSize, len(ids))
		batch := ids[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, len(batch))
		for i, id := range batch {
			placeholders[i] = "?"
			args[i] = id
		}
		query := "SELECT instance_fk, ref_uid FROM instance_ref WHERE instance_fk IN (" +
			strings.Join(placeholders, ", ") + ") ORDER BY instance_fk, rowid"

		if err := s.scanReferences(ctx, query, args, refs); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

func (s *SQLStore) scanReferences(ctx context.Context, query string, args []interface{}, into map[int64][]string) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.WithDetail(errors.WrapStorage(err, "failed to load references"), "Query: "+query)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var ref string
		if err := rows.Scan(&id, &ref); err != nil {
			return errors.WrapStorage(err, "failed to scan reference")
		}
		into[id] = append(into[id], ref)
	}
	return errors.WrapStorage(rows.Err(), "failed to read references")
}

// instanceRow is an instance seen in the result, built once its
// cross-references are known.
type instanceRow struct {
	id      int64
	series  *entity.Series
	summary entity.InstanceSummary
}

// treeBuilder rebuilds the entity tree from flat rows. Every level is
// deduplicated by natural key so repeated rows reuse the same object.
type treeBuilder struct {
	patients map[string]*entity.Patient
	order    []*entity.Patient
	studies  map[string]*entity.Study
	series   map[string]*entity.Series
	seen     map[string]bool
	pending  []instanceRow
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{
		patients: make(map[string]*entity.Patient),
		order:    make([]*entity.Patient, 0),
		studies:  make(map[string]*entity.Study),
		series:   make(map[string]*entity.Series),
		seen:     make(map[string]bool),
	}
}

func (tb *treeBuilder) scan(rows *sql.Rows, level Level) error {
	var (
		pKey, pName, pID, pOther, pComment string
		pBirth                             int64

		stUID, stAccession, stDescription string
		stDate, stModalities              int64

		seUID, seModality, seTime, seDescription string
		seNumber                                 int

		iID                 int64
		iUID, iClass, iPath string
		iNumber, iFrames    int
	)
	dest := []interface{}{&pKey, &pName, &pBirth, &pID, &pOther, &pComment}
	if level >= LevelStudy {
		dest = append(dest, &stUID, &stAccession, &stDate, &stDescription, &stModalities)
	}
	if level >= LevelSeries {
		dest = append(dest, &seUID, &seModality, &seNumber, &seTime, &seDescription)
	}
	if level >= LevelInstance {
		dest = append(dest, &iID, &iUID, &iClass, &iNumber, &iFrames, &iPath)
	}
	if err := rows.Scan(dest...); err != nil {
		return err
	}

	p, ok := tb.patients[pKey]
	if !ok {
		p = entity.NewPatient(pName, entity.Date(pBirth), pID)
		p.OtherID = pOther
		p.Comment = pComment
		tb.patients[pKey] = p
		tb.order = append(tb.order, p)
	}
	if level < LevelStudy {
		return nil
	}

	st, ok := tb.studies[stUID]
	if !ok {
		st = entity.NewStudy(stUID)
		st.Accession = stAccession
		st.Date = entity.Date(stDate)
		st.Description = stDescription
		st.SetIndexedModalities(entity.ModalityMask(stModalities))
		p.Add(st)
		tb.studies[stUID] = st
	}
	if level < LevelSeries {
		return nil
	}

	se, ok := tb.series[seUID]
	if !ok {
		se = entity.NewSeries(seUID, seModality)
		se.Number = seNumber
		se.Time = seTime
		se.Description = seDescription
		st.Add(se)
		tb.series[seUID] = se
	}
	if level < LevelInstance || tb.seen[iUID] {
		return nil
	}

	tb.seen[iUID] = true
	tb.pending = append(tb.pending, instanceRow{
		id:     iID,
		series: se,
		summary: entity.InstanceSummary{
			UID:       iUID,
			SeriesUID: seUID,
			StudyUID:  stUID,
			SOPClass:  iClass,
			Number:    iNumber,
			Frames:    iFrames,
			Path:      iPath,
		},
	})
	return nil
}

func (tb *treeBuilder) pendingIDs() []int64 {
	ids := make([]int64, len(tb.pending))
	for i, row := range tb.pending {
		ids[i] = row.id
	}
	return ids
}

func (tb *treeBuilder) attachInstances(f *entity.Factory, refs map[int64][]string) {
	for _, row := range tb.pending {
		row.summary.References = refs[row.id]
		var inst *entity.Instance
		if f != nil {
			inst = f.InstanceFromSummary(row.summary)
		} else {
			inst = entity.NewInstance(row.summary, nil)
		}
		row.series.Add(inst)
	}
	tb.pending = nil
}

func describe(c criteria.Criterion) string {
	if c == nil {
		return "*"
	}
	return c.String()
}
