// Package sym defines canonical glyphs for dcmindex commands and system markers.
// These symbols are stable across CLI help text and log fields.
package sym

// Primary operators, one per top-level command.
const (
	AM = "≡" // am: configuration
	IX = "⨳" // ix: import files into the index
	AX = "⋈" // ax: search the index
	DB = "⊔" // db: database/storage layer
)

// Entity level markers used in CLI tree output.
const (
	Patient  = "◉"
	Study    = "▣"
	Series   = "▤"
	Instance = "·"
)

// SymbolToCommand maps each operator glyph to its CLI command.
var SymbolToCommand = map[string]string{
	AM: "am",
	IX: "ix",
	AX: "ax",
	DB: "db",
}

// CommandToSymbol is the reverse of SymbolToCommand.
var CommandToSymbol = map[string]string{
	"am": AM,
	"ix": IX,
	"ax": AX,
	"db": DB,
}
