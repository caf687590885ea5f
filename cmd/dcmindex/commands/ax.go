package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/teranos/dcmindex/criteria"
	"github.com/teranos/dcmindex/display"
	"github.com/teranos/dcmindex/entity"
	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/storage"
	"github.com/teranos/dcmindex/sym"
)

// axOptions holds the structured search flags.
type axOptions struct {
	name          string
	patientID     string
	accession     string
	description   string
	date          string
	modality      string
	modalityScope string
	attrs         []string
	exact         bool
}

var (
	axOpts       axOptions
	axLevel      string
	axFormat     string
	axStrict     bool
	axAttributes bool
)

// AxCmd searches the index
var AxCmd = &cobra.Command{
	Use:   "ax [TEXT]",
	Short: sym.AX + " Search the index",
	Long: sym.AX + ` ax - Search the index

Free text is matched as a substring against patient name, patient ID,
other patient IDs, patient comments, accession number and the study and
series descriptions. All-digit text also matches study dates. Use
"ax refs" to look instances up by UID. Flags add structured criteria, all of which must hold.

Attribute criteria (--attr) take the form Keyword=value (exact) or
Keyword~value (substring), optionally suffixed with @study, @series or
@instance to pin the level they apply at.

Dates accept YYYYMMDD, YYYYMMDD-YYYYMMDD, YYYYMMDD- and -YYYYMMDD.

Examples:
  dcmindex ax smith                              # Free-text search
  dcmindex ax --modality CT                      # Studies containing CT
  dcmindex ax --modality CT --modality-scope series --level series
  dcmindex ax --date 20240101-20241231 --name ANNA
  dcmindex ax --attr 'SeriesDescription~AXIAL@series' --level instance
  dcmindex ax refs 1.2.3.4                       # Instances referencing a UID`,
	RunE: runAxCommand,
}

var axRefsCmd = &cobra.Command{
	Use:   "refs <sop-instance-uid>...",
	Short: "Find instances referencing the given instances",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAxRefs,
}

func init() {
	for _, c := range []*cobra.Command{AxCmd, axRefsCmd} {
		c.Flags().StringVar(&axOpts.name, "name", "", "Patient name")
		c.Flags().StringVar(&axOpts.patientID, "id", "", "Patient ID")
		c.Flags().StringVar(&axOpts.accession, "accession", "", "Accession number")
		c.Flags().StringVar(&axOpts.description, "description", "", "Study description")
		c.Flags().StringVar(&axOpts.date, "date", "", "Study date or range")
		c.Flags().StringVar(&axOpts.modality, "modality", "", `Modality, or several joined by \ (e.g. CT\MR)`)
		c.Flags().StringVar(&axOpts.modalityScope, "modality-scope", "", "Level the modality applies at: study, series or instance")
		c.Flags().StringArrayVar(&axOpts.attrs, "attr", nil, "Attribute criterion Keyword=value or Keyword~value[@scope] (repeatable)")
		c.Flags().BoolVar(&axOpts.exact, "exact", false, "Match flag values exactly instead of as substrings")
		c.Flags().BoolVar(&axStrict, "strict", false, "Fail on attributes the index does not store")
		c.Flags().StringVarP(&axFormat, "format", "f", "tree", "Output format (tree/json)")
		c.Flags().BoolVar(&axAttributes, "attributes", false, "Print every attribute of matched instances (reads files)")
	}
	AxCmd.Flags().StringVarP(&axLevel, "level", "l", "study", "Result level: patient, study, series or instance")

	AxCmd.AddCommand(axRefsCmd)
}

func runAxCommand(cmd *cobra.Command, args []string) error {
	level, ok := storage.ParseLevel(axLevel)
	if !ok {
		return errors.InvalidArgumentf("unknown level %q", axLevel)
	}
	c, err := buildCriterion(strings.Join(args, " "), axOpts)
	if err != nil {
		return errors.Wrap(err, "failed to parse query")
	}

	ix, err := openIndex(cmd, axStrict)
	if err != nil {
		return err
	}
	defer ix.Close()

	patients, err := ix.store.Search(context.Background(), c, level)
	if err != nil {
		return errors.Wrap(err, "failed to execute query")
	}

	out := cmd.OutOrStdout()
	if display.ShouldOutputJSON(cmd) {
		return display.WriteJSON(out, patientViews(patients, axAttributes))
	}
	return renderTree(out, patients, level, axAttributes)
}

func runAxRefs(cmd *cobra.Command, args []string) error {
	c, err := buildCriterion("", axOpts)
	if err != nil {
		return errors.Wrap(err, "failed to parse query")
	}

	ix, err := openIndex(cmd, axStrict)
	if err != nil {
		return err
	}
	defer ix.Close()

	instances, err := ix.store.SearchInstances(context.Background(), c, args)
	if err != nil {
		return errors.Wrap(err, "failed to execute query")
	}

	out := cmd.OutOrStdout()
	if display.ShouldOutputJSON(cmd) {
		views := make([]instanceView, 0, len(instances))
		for _, inst := range instances {
			views = append(views, newInstanceView(inst, axAttributes))
		}
		return display.WriteJSON(out, views)
	}
	return renderInstances(out, instances, axAttributes)
}

// buildCriterion combines free text and flags with AND. It returns nil when
// nothing was given, which matches everything.
func buildCriterion(text string, o axOptions) (criteria.Criterion, error) {
	var parts []criteria.Criterion

	if text = strings.TrimSpace(text); text != "" {
		ft, err := criteria.FreeText(text)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ft)
	}

	cmp := criteria.Substring
	if o.exact {
		cmp = criteria.Equality
	}
	for _, f := range []struct {
		attr  tag.Tag
		value string
		cmp   criteria.Comparator
	}{
		{tag.PatientName, o.name, cmp},
		{tag.PatientID, o.patientID, cmp},
		{tag.AccessionNumber, o.accession, cmp},
		{tag.StudyDescription, o.description, cmp},
		{tag.StudyDate, o.date, criteria.Equality},
	} {
		if f.value != "" {
			parts = append(parts, criteria.NewLeaf(f.attr, f.cmp, f.value))
		}
	}

	if o.modality != "" {
		leaf := criteria.Eq(tag.Modality, strings.ToUpper(o.modality))
		if o.modalityScope != "" {
			scope, ok := criteria.ParseScope(o.modalityScope)
			if !ok {
				return nil, errors.InvalidArgumentf("unknown scope %q", o.modalityScope)
			}
			if err := leaf.SetScope(scope); err != nil {
				return nil, err
			}
		}
		parts = append(parts, leaf)
	}

	for _, expr := range o.attrs {
		leaf, err := parseAttr(expr)
		if err != nil {
			return nil, err
		}
		parts = append(parts, leaf)
	}

	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	}
	all, err := criteria.AllOf(parts...)
	if err != nil {
		return nil, err
	}
	return all, nil
}

// parseAttr parses Keyword=value or Keyword~value with an optional @scope.
func parseAttr(expr string) (*criteria.Leaf, error) {
	i := strings.IndexAny(expr, "=~")
	if i <= 0 {
		return nil, errors.InvalidArgumentf("attribute criterion %q must be Keyword=value or Keyword~value", expr)
	}
	name, op, value := expr[:i], expr[i], expr[i+1:]

	scope := criteria.Unspecified
	if at := strings.LastIndex(value, "@"); at >= 0 {
		s, ok := criteria.ParseScope(value[at+1:])
		if !ok {
			return nil, errors.InvalidArgumentf("unknown scope %q in %q", value[at+1:], expr)
		}
		scope, value = s, value[:at]
	}

	attr, ok := criteria.ParseAttribute(name)
	if !ok {
		return nil, errors.InvalidArgumentf("unknown attribute %q", name)
	}

	cmp := criteria.Equality
	if op == '~' {
		cmp = criteria.Substring
	}
	leaf := criteria.NewLeaf(attr, cmp, value)
	if scope != criteria.Unspecified {
		if err := leaf.SetScope(scope); err != nil {
			return nil, err
		}
	}
	return leaf, nil
}

func modalityLabel(st *entity.Study) string {
	if m := st.Modalities(); m != 0 {
		return m.String()
	}
	return "-"
}

func levelLabel(l storage.Level) string {
	return fmt.Sprintf("%s %s", sym.AX, l)
}
