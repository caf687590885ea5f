package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/teranos/dcmindex/db"
	"github.com/teranos/dcmindex/entity"
	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/logger"
)

// WriteStats describes one committed write transaction.
type WriteStats struct {
	Patients   int           `json:"patients"`
	Studies    int           `json:"studies"`
	Series     int           `json:"series"`
	Instances  int           `json:"instances"`
	References int           `json:"references"`
	Existing   int           `json:"existing"`
	Duration   time.Duration `json:"duration"`
}

// Inserted counts new entity rows.
func (ws WriteStats) Inserted() int {
	return ws.Patients + ws.Studies + ws.Series + ws.Instances
}

// StorePatient persists one patient subtree in its own transaction.
func (s *SQLStore) StorePatient(ctx context.Context, p *entity.Patient) (WriteStats, error) {
	return s.StorePatients(ctx, []*entity.Patient{p})
}

// StorePatients persists several patient subtrees in one transaction,
// upserting every level by natural key. Entities already indexed are left
// untouched. On the first failure everything is rolled back and the returned
// error wraps errors.ErrStorage.
func (s *SQLStore) StorePatients(ctx context.Context, patients []*entity.Patient) (WriteStats, error) {
	if len(patients) == 0 {
		return WriteStats{}, nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WriteStats{}, errors.WrapStorage(err, "failed to begin transaction")
	}

	w := &txWriter{
		ctx:     ctx,
		tx:      tx,
		ids:     s.ids,
		stmts:   make(map[string]*sql.Stmt),
		learned: make(map[cacheKey]int64),
	}
	for _, p := range patients {
		if err := w.patient(p); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warnw("Rollback failed", logger.FieldError, rbErr.Error())
			}
			kind := db.ConstraintKind(err)
			err = errors.WrapStoragef(err, "failed to store patient %s", p.Key())
			err = errors.WithDetail(err, "Patient key: "+p.Key())
			if kind != "" {
				err = errors.WithHintf(err, "%s constraint rejected the subtree; check for empty or conflicting UIDs", kind)
			}
			return WriteStats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return WriteStats{}, errors.WrapStorage(err, "failed to commit transaction")
	}
	s.ids.publish(w.learned)

	w.stats.Duration = time.Since(start)
	logger.FromContext(ctx, s.logger).Debugw("Stored patients",
		logger.FieldCount, len(patients),
		"inserted", w.stats.Inserted(),
		"existing", w.stats.Existing,
		logger.FieldDurationMS, w.stats.Duration.Milliseconds(),
	)
	s.notifyObservers(w.stats)
	return w.stats, nil
}

// txWriter holds the per-transaction state of one StorePatients call.
type txWriter struct {
	ctx   context.Context
	tx    *sql.Tx
	ids   *idCache
	stmts map[string]*sql.Stmt
	// learned ids are published to the store cache only after commit.
	learned map[cacheKey]int64
	stats   WriteStats
}

// lookup resolves a natural key through the committed cache, ids learned in
// this transaction, then a prepared statement.
func (w *txWriter) lookup(table, key string) (int64, bool, error) {
	if id, ok := w.ids.get(table, key); ok {
		return id, true, nil
	}
	if id, ok := w.learned[cacheKey{table, key}]; ok {
		return id, true, nil
	}

	stmt, ok := w.stmts[table]
	if !ok {
		var err error
		stmt, err = w.tx.PrepareContext(w.ctx, lookupQueries[table])
		if err != nil {
			return 0, false, errors.Wrapf(err, "failed to prepare %s lookup", table)
		}
		w.stmts[table] = stmt
	}

	var id int64
	err := stmt.QueryRowContext(w.ctx, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "failed to look up %s %s", table, key)
	}
	w.learned[cacheKey{table, key}] = id
	return id, true, nil
}

func (w *txWriter) insert(table, key, query string, args ...interface{}) (int64, error) {
	res, err := w.tx.ExecContext(w.ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to insert %s %s", table, key)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read id of %s %s", table, key)
	}
	w.learned[cacheKey{table, key}] = id
	return id, nil
}

func (w *txWriter) patient(p *entity.Patient) error {
	key := p.Key()
	id, found, err := w.lookup(tablePatient, key)
	if err != nil {
		return err
	}
	if found {
		w.stats.Existing++
	} else {
		id, err = w.insert(tablePatient, key, insertPatientQuery,
			key, p.Name, int(p.BirthDate), p.ID, p.OtherID, p.Comment)
		if err != nil {
			return err
		}
		w.stats.Patients++
	}

	for _, st := range p.Studies() {
		if err := w.study(id, st); err != nil {
			return err
		}
	}
	return nil
}

func (w *txWriter) study(patientID int64, st *entity.Study) error {
	id, found, err := w.lookup(tableStudy, st.UID)
	if err != nil {
		return err
	}
	if found {
		w.stats.Existing++
	} else {
		id, err = w.insert(tableStudy, st.UID, insertStudyQuery,
			st.UID, patientID, st.Accession, int(st.Date), st.Description)
		if err != nil {
			return err
		}
		w.stats.Studies++
	}

	for _, se := range st.Series() {
		if err := w.series(id, se); err != nil {
			return errors.WithDetail(err, "Study: "+st.UID)
		}
	}
	return nil
}

func (w *txWriter) series(studyID int64, se *entity.Series) error {
	id, found, err := w.lookup(tableSeries, se.UID)
	if err != nil {
		return err
	}
	if found {
		w.stats.Existing++
	} else {
		bit := se.Bit()
		id, err = w.insert(tableSeries, se.UID, insertSeriesQuery,
			se.UID, studyID, se.Modality(), int64(bit), se.Number, se.Time, se.Description)
		if err != nil {
			return err
		}
		if err := w.addStudyModality(studyID, bit); err != nil {
			return err
		}
		w.stats.Series++
	}

	for _, inst := range se.Instances() {
		if err := w.instance(id, inst); err != nil {
			return errors.WithDetail(err, "Series: "+se.UID)
		}
	}
	return nil
}

// addStudyModality ORs bit into the study mask with an explicit
// read-modify-write.
func (w *txWriter) addStudyModality(studyID int64, bit entity.ModalityMask) error {
	var current int64
	if err := w.tx.QueryRowContext(w.ctx, selectStudyModalitiesQuery, studyID).Scan(&current); err != nil {
		return errors.Wrap(err, "failed to read study modalities")
	}
	next := entity.ModalityMask(current) | bit
	if next == entity.ModalityMask(current) {
		return nil
	}
	if _, err := w.tx.ExecContext(w.ctx, updateStudyModalitiesQuery, int64(next), studyID); err != nil {
		return errors.Wrap(err, "failed to update study modalities")
	}
	return nil
}

func (w *txWriter) instance(seriesID int64, inst *entity.Instance) error {
	_, found, err := w.lookup(tableInstance, inst.UID())
	if err != nil {
		return err
	}
	if found {
		w.stats.Existing++
		return nil
	}

	id, err := w.insert(tableInstance, inst.UID(), insertInstanceQuery,
		inst.UID(), seriesID, inst.SOPClass(), inst.Number(), inst.Frames(), inst.Path())
	if err != nil {
		return err
	}
	w.stats.Instances++

	for _, ref := range inst.References() {
		if _, err := w.tx.ExecContext(w.ctx, insertReferenceQuery, id, ref); err != nil {
			return errors.Wrapf(err, "failed to insert reference %s -> %s", inst.UID(), ref)
		}
		w.stats.References++
	}
	return nil
}
