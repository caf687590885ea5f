package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across dcmindex.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID     = "run_id"
	FieldComponent = "component"
	FieldOperation = "operation"

	// Files and paths
	FieldPath = "path"
	FieldFile = "file"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount     = "count"
	FieldBatchSize = "batch_size"
	FieldCapacity  = "capacity"

	// Index entities
	FieldPatientKey  = "patient_key"
	FieldStudyUID    = "study_uid"
	FieldSeriesUID   = "series_uid"
	FieldInstanceUID = "instance_uid"
	FieldSOPClass    = "sop_class"
	FieldModality    = "modality"
	FieldLevel       = "level"
	FieldCriteria    = "criteria"

	FieldSymbol = "symbol"
)

type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	componentKey contextKey = "logger_component"
)

// WithRunID adds an import run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base (or the global logger when base is nil) with the
// fields carried by ctx attached.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	cache, err := payload.NewCache(128, logger.ComponentLogger("payload"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
