package logger

import "go.uber.org/zap/zapcore"

// Verbosity is the CLI -v count.
const (
	VerbosityUser  = 0 // results and errors only
	VerbosityInfo  = 1 // -v: import progress, flush summaries
	VerbosityDebug = 2 // -vv: compiled SQL, skipped files, payload loads
)

var verbosityLevels = []struct {
	level zapcore.Level
	name  string
}{
	VerbosityUser:  {zapcore.WarnLevel, "User"},
	VerbosityInfo:  {zapcore.InfoLevel, "Info (-v)"},
	VerbosityDebug: {zapcore.DebugLevel, "Debug (-vv)"},
}

func clampVerbosity(v int) int {
	return max(VerbosityUser, min(v, VerbosityDebug))
}

// VerbosityToLevel maps a -v count to a zap level: warnings by default, info
// at -v, debug from -vv up.
func VerbosityToLevel(verbosity int) zapcore.Level {
	return verbosityLevels[clampVerbosity(verbosity)].level
}

// LevelName returns a human-readable name for a -v count.
func LevelName(verbosity int) string {
	return verbosityLevels[clampVerbosity(verbosity)].name
}
