package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/logger"
	"github.com/teranos/dcmindex/sym"
)

//go:embed sqlite/migrations/*.sql
var migrationFS embed.FS

const migrationDir = "sqlite/migrations"

// bootstrapVersion creates schema_migrations itself.
const bootstrapVersion = "000"

type migration struct {
	version string
	file    string
}

// migrations lists the embedded scripts in version order.
func migrations() ([]migration, error) {
	entries, err := migrationFS.ReadDir(migrationDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var out []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, _, _ := strings.Cut(name, "_")
		out = append(out, migration{version: version, file: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// appliedVersions returns the recorded versions, or an empty set on a
// database that has not been bootstrapped.
func appliedVersions(db *sql.DB) (map[string]bool, error) {
	var tables int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'").Scan(&tables); err != nil {
		return nil, errors.Wrap(err, "inspect schema")
	}
	applied := make(map[string]bool)
	if tables == 0 {
		return applied, nil
	}

	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, errors.Wrap(err, "read schema_migrations")
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan schema_migrations")
		}
		applied[v] = true
	}
	return applied, errors.Wrap(rows.Err(), "read schema_migrations")
}

// Migrate applies every pending embedded migration, each in its own
// transaction. A nil logger operates silently.
func Migrate(db *sql.DB, log *zap.SugaredLogger) error {
	log = logger.OrNop(log)

	all, err := migrations()
	if err != nil {
		return err
	}
	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}
	if len(applied) == 0 && len(all) > 0 && all[0].version != bootstrapVersion {
		return errors.Newf("first migration must be %s, got %s", bootstrapVersion, all[0].file)
	}

	var ran int
	for _, m := range all {
		if applied[m.version] {
			log.Debugw("Skipping migration (already applied)", "migration", m.file)
			continue
		}
		log.Infow("Applying migration", "migration", m.file, "version", m.version)
		if err := apply(db, m); err != nil {
			return err
		}
		ran++
	}

	log.Infow("Migrations complete",
		logger.FieldSymbol, sym.DB,
		"total_migrations", len(all),
		"applied", ran,
	)
	return nil
}

func apply(db *sql.DB, m migration) error {
	script, err := migrationFS.ReadFile(path.Join(migrationDir, m.file))
	if err != nil {
		return errors.Wrapf(err, "read %s", m.file)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", m.file)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(script)); err != nil {
		return errors.Wrapf(err, "execute %s", m.file)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return errors.Wrapf(err, "record %s", m.file)
	}
	return errors.Wrapf(tx.Commit(), "commit %s", m.file)
}

// SchemaVersion returns the highest applied migration version.
func SchemaVersion(db *sql.DB) (string, error) {
	var v sql.NullString
	if err := db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return "", errors.Wrap(err, "read schema version")
	}
	return v.String, nil
}
