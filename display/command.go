// Package display selects and writes CLI output formats.
package display

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// OutputEnv forces JSON output when set to "json".
const OutputEnv = "DCMINDEX_OUTPUT"

// ShouldOutputJSON reports whether cmd should print JSON: an explicit --json
// flag wins, then a --format flag of "json", then OutputEnv.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd != nil {
		if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
			v, _ := cmd.Flags().GetBool("json")
			return v
		}
		if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
			return strings.EqualFold(f.Value.String(), "json")
		}
	}
	return strings.EqualFold(os.Getenv(OutputEnv), "json")
}
