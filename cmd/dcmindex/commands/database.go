package commands

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/teranos/dcmindex/am"
	"github.com/teranos/dcmindex/db"
	"github.com/teranos/dcmindex/entity"
	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/logger"
	"github.com/teranos/dcmindex/payload"
	"github.com/teranos/dcmindex/source"
	"github.com/teranos/dcmindex/storage"
)

// index bundles everything a command needs to read or write the index.
type index struct {
	cfg     *am.Config
	db      *sql.DB
	cache   *payload.Cache
	factory *entity.Factory
	store   *storage.SQLStore
}

func (ix *index) Close() error {
	return ix.db.Close()
}

// openDatabase opens and migrates a database using the specified path.
// If dbPath is empty, it loads from am config.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		path, err := am.GetDatabasePath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database path")
		}
		dbPath = path
	}

	database, err := db.OpenWithMigrations(dbPath, logger.ComponentLogger("db"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}

// openIndex loads configuration and wires the store for cmd. The --db flag
// overrides the configured path.
func openIndex(cmd *cobra.Command, strict bool) (*index, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}
	database, err := openDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	cache, err := payload.NewCache(cfg.Cache.PinnedPayloads, logger.ComponentLogger("payload"))
	if err != nil {
		database.Close()
		return nil, err
	}
	factory := entity.NewFactory(source.FileSource{}, cache, logger.ComponentLogger("entity"))
	store := storage.NewSQLStore(database, factory, logger.ComponentLogger("storage"),
		storage.WithStrictAttributes(strict || cfg.Query.StrictAttributes))

	return &index{cfg: cfg, db: database, cache: cache, factory: factory, store: store}, nil
}
