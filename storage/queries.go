package storage

const (
	tablePatient  = "patient"
	tableStudy    = "study"
	tableSeries   = "series"
	tableInstance = "instance"
)

// lookupQueries resolve a natural key to its surrogate id.
var lookupQueries = map[string]string{
	tablePatient:  `SELECT id FROM patient WHERE patient_key = ?`,
	tableStudy:    `SELECT id FROM study WHERE uid = ?`,
	tableSeries:   `SELECT id FROM series WHERE uid = ?`,
	tableInstance: `SELECT id FROM instance WHERE uid = ?`,
}

const (
	insertPatientQuery = `
		INSERT INTO patient (patient_key, name, birth_date, patient_id, other_id, comment)
		VALUES (?, ?, ?, ?, ?, ?)`

	insertStudyQuery = `
		INSERT INTO study (uid, patient_fk, accession, study_date, description, modalities)
		VALUES (?, ?, ?, ?, ?, 0)`

	insertSeriesQuery = `
		INSERT INTO series (uid, study_fk, modality, modality_bit, number, series_time, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	insertInstanceQuery = `
		INSERT INTO instance (uid, series_fk, sop_class, number, frames, path)
		VALUES (?, ?, ?, ?, ?, ?)`

	insertReferenceQuery = `
		INSERT OR IGNORE INTO instance_ref (instance_fk, ref_uid) VALUES (?, ?)`

	selectStudyModalitiesQuery = `SELECT modalities FROM study WHERE id = ?`

	updateStudyModalitiesQuery = `UPDATE study SET modalities = ? WHERE id = ?`

	statsQuery = `
		SELECT
			(SELECT COUNT(*) FROM patient),
			(SELECT COUNT(*) FROM study),
			(SELECT COUNT(*) FROM series),
			(SELECT COUNT(*) FROM instance),
			(SELECT COUNT(*) FROM instance_ref)`
)
