package dicomdir

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/dcmindex/entity"
	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/logger"
	"github.com/teranos/dcmindex/sym"
)

// ProgressInterval defines how often to log progress during a scan
const ProgressInterval = 500

// Importer walks directories and feeds their files through a Pipeline.
type Importer struct {
	factory  *entity.Factory
	pipeline *Pipeline
	logger   *zap.SugaredLogger
}

// ImportResult represents the result of one directory import
type ImportResult struct {
	RunID              string    `json:"run_id"`
	Path               string    `json:"path"`
	Recurse            bool      `json:"recurse"`
	FilesSeen          int       `json:"files_seen"`
	FilesRead          int       `json:"files_read"`
	Unreadable         int       `json:"unreadable"`
	PresentationStates int       `json:"presentation_states"`
	Existing           int       `json:"existing"`
	Stored             int       `json:"stored"`
	Flushes            int       `json:"flushes"`
	Patients           int       `json:"patients"`
	Studies            int       `json:"studies"`
	Series             int       `json:"series"`
	Success            bool      `json:"success"`
	Message            string    `json:"message"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
}

// NewImporter creates an importer reading files with factory and buffering
// them in pipeline.
func NewImporter(factory *entity.Factory, pipeline *Pipeline, log *zap.SugaredLogger) *Importer {
	return &Importer{
		factory:  factory,
		pipeline: pipeline,
		logger:   logger.OrNop(log),
	}
}

// Pipeline returns the importer's buffer.
func (im *Importer) Pipeline() *Pipeline { return im.pipeline }

// ImportDirectory imports every regular, non-hidden file under root.
// Subdirectories are descended only when recurse is set. Unreadable files are
// counted and skipped. On cancellation the walk stops, the instances already
// buffered are still flushed, and the context error is returned alongside
// the partial result.
func (im *Importer) ImportDirectory(ctx context.Context, root string, recurse bool) (*ImportResult, error) {
	res := &ImportResult{
		RunID:     uuid.NewString(),
		Path:      root,
		Recurse:   recurse,
		StartTime: time.Now(),
	}
	ctx = logger.WithRunID(ctx, res.RunID)
	log := logger.FromContext(ctx, im.logger).With(logger.FieldSymbol, sym.IX)

	info, err := os.Stat(root)
	if err != nil {
		return im.finish(res, errors.Wrapf(err, "cannot import %s", root))
	}
	if !info.IsDir() {
		return im.finish(res, errors.InvalidArgumentf("%s is not a directory", root))
	}

	flushesBefore := im.pipeline.Flushes()
	totalsBefore := im.pipeline.Totals()
	log.Infow("Importing directory", logger.FieldPath, root, "recurse", recurse,
		logger.FieldCapacity, im.pipeline.Capacity())

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			log.Debugw("Skipping unreadable entry", logger.FieldPath, path, logger.FieldError, err.Error())
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !recurse {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		res.FilesSeen++
		added, err := im.importFile(ctx, path, res, log)
		if err != nil {
			return err
		}
		if added && res.FilesRead%ProgressInterval == 0 {
			log.Infow("Import progress", logger.FieldCount, res.FilesRead, "buffered", im.pipeline.Len())
		}
		return nil
	})

	// Already-buffered instances are flushed even after cancellation.
	flushCtx := ctx
	if walkErr != nil && ctx.Err() != nil {
		flushCtx = context.WithoutCancel(ctx)
	}
	if _, err := im.pipeline.Flush(flushCtx); err != nil && walkErr == nil {
		walkErr = err
	}

	totals := im.pipeline.Totals()
	res.Flushes = im.pipeline.Flushes() - flushesBefore
	res.Existing = totals.Existing - totalsBefore.Existing
	res.Stored = totals.Stored - totalsBefore.Stored
	res.PresentationStates += totals.PresentationStates - totalsBefore.PresentationStates
	res.Patients = totals.Write.Patients - totalsBefore.Write.Patients
	res.Studies = totals.Write.Studies - totalsBefore.Write.Studies
	res.Series = totals.Write.Series - totalsBefore.Write.Series

	return im.finish(res, walkErr)
}

// ImportFile reads one file into the pipeline. It reports false when the
// file was skipped as unreadable or as a presentation state.
func (im *Importer) ImportFile(ctx context.Context, path string) (bool, error) {
	res := &ImportResult{}
	return im.importFile(ctx, path, res, im.logger)
}

func (im *Importer) importFile(ctx context.Context, path string, res *ImportResult, log *zap.SugaredLogger) (bool, error) {
	chain, err := im.factory.FromFile(path)
	if err != nil {
		res.Unreadable++
		log.Debugw("Skipping unreadable file", logger.FieldFile, path, logger.FieldError, err.Error())
		return false, nil
	}

	var presentation bool
	entity.Walk(chain, func(_ *entity.Study, _ *entity.Series, inst *entity.Instance) {
		presentation = presentation || inst.IsPresentationState()
	})
	if presentation {
		res.PresentationStates++
		log.Debugw("Skipping presentation state", logger.FieldFile, path)
		return false, nil
	}

	res.FilesRead++
	if err := im.pipeline.Add(ctx, chain); err != nil {
		return false, err
	}
	return true, nil
}

func (im *Importer) finish(res *ImportResult, err error) (*ImportResult, error) {
	res.EndTime = time.Now()
	res.Success = err == nil
	if err != nil {
		res.Message = err.Error()
		im.logger.Warnw("Import failed", logger.FieldRunID, res.RunID, logger.FieldPath, res.Path, logger.FieldError, err.Error())
		return res, err
	}
	res.Message = "import complete"
	im.logger.Infow("Import complete",
		logger.FieldRunID, res.RunID,
		logger.FieldPath, res.Path,
		"files", res.FilesSeen,
		"stored", res.Stored,
		"flushes", res.Flushes,
		logger.FieldDurationMS, res.EndTime.Sub(res.StartTime).Milliseconds(),
	)
	return res, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
