package storage

import (
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/teranos/dcmindex/criteria"
	"github.com/teranos/dcmindex/entity"
	"github.com/teranos/dcmindex/errors"
)

// Level is the granularity of a search result.
type Level int

const (
	LevelPatient Level = iota
	LevelStudy
	LevelSeries
	LevelInstance
)

func (l Level) String() string {
	switch l {
	case LevelPatient:
		return "patient"
	case LevelStudy:
		return "study"
	case LevelSeries:
		return "series"
	case LevelInstance:
		return "instance"
	}
	return "Level(" + strconv.Itoa(int(l)) + ")"
}

// ParseLevel parses a level name.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "patient":
		return LevelPatient, true
	case "study", "":
		return LevelStudy, true
	case "series":
		return LevelSeries, true
	case "instance", "image":
		return LevelInstance, true
	}
	return LevelStudy, false
}

// naturalScope is where an unscoped leaf is applied for a result level.
func (l Level) naturalScope() criteria.Scope {
	switch l {
	case LevelSeries:
		return criteria.Series
	case LevelInstance:
		return criteria.Instance
	}
	return criteria.Study
}

// matchPolicy is how a Substring comparator positions the value.
type matchPolicy int

const (
	matchExact matchPolicy = iota
	matchContains
	matchPrefix
)

// ruleKind selects the predicate builder.
type ruleKind int

const (
	kindText ruleKind = iota
	kindDate
	kindNumber
	kindModality
	kindReference
)

// join flags record which tables a query needs.
type join int

const (
	joinSeries join = 1 << iota
	joinInstance
	joinReference
)

// rule is how one attribute compiles.
type rule struct {
	column string
	policy matchPolicy
	kind   ruleKind
	nocase bool
	needs  join
}

// rules is the attribute table. Adding an attribute is adding a row.
var rules = map[tag.Tag]rule{
	tag.PatientName:      {column: "p.name", policy: matchContains, nocase: true},
	tag.PatientID:        {column: "p.patient_id", policy: matchPrefix},
	tag.PatientBirthDate: {column: "p.birth_date", policy: matchPrefix, kind: kindDate},
	tag.OtherPatientIDs:  {column: "p.other_id", policy: matchPrefix},
	tag.PatientComments:  {column: "p.comment", policy: matchContains, nocase: true},

	tag.StudyInstanceUID: {column: "st.uid", policy: matchPrefix},
	tag.AccessionNumber:  {column: "st.accession", policy: matchPrefix},
	tag.StudyDate:        {column: "st.study_date", policy: matchPrefix, kind: kindDate},
	tag.StudyDescription: {column: "st.description", policy: matchContains, nocase: true},

	tag.Modality: {kind: kindModality},

	tag.SeriesInstanceUID: {column: "se.uid", policy: matchPrefix, needs: joinSeries},
	tag.SeriesNumber:      {column: "se.number", kind: kindNumber, needs: joinSeries},
	tag.SeriesDescription: {column: "se.description", policy: matchContains, nocase: true, needs: joinSeries},

	tag.SOPInstanceUID: {column: "i.uid", policy: matchPrefix, needs: joinSeries | joinInstance},
	tag.SOPClassUID:    {column: "i.sop_class", policy: matchPrefix, needs: joinSeries | joinInstance},
	tag.InstanceNumber: {column: "i.number", kind: kindNumber, needs: joinSeries | joinInstance},

	tag.ReferencedSOPInstanceUID: {
		column: "r.ref_uid", policy: matchPrefix, kind: kindReference,
		needs: joinSeries | joinInstance | joinReference,
	},
}

// Query is a compiled search.
type Query struct {
	// Where is the predicate text, empty when nothing constrains the search.
	Where string
	Args  []interface{}
	SQL   string
	Level Level

	joins join
}

// UsesReferences reports whether the cross-reference table is joined.
func (q *Query) UsesReferences() bool { return q.joins&joinReference != 0 }

// UsesInstances reports whether the instance table is joined.
func (q *Query) UsesInstances() bool { return q.joins&joinInstance != 0 }

// Compiler turns criteria trees into SQL.
type Compiler struct {
	// Strict fails on attributes without a rule instead of dropping them.
	Strict bool
}

// Compile builds the query for c at level. A nil criterion matches
// everything.
func (cp Compiler) Compile(c criteria.Criterion, level Level) (*Query, error) {
	q := &Query{Level: level}

	// Joins are decided before any predicate text is produced.
	switch level {
	case LevelSeries:
		q.joins |= joinSeries
	case LevelInstance:
		q.joins |= joinSeries | joinInstance
	}
	if c != nil {
		var unknown []string
		criteria.Walk(c, func(l *criteria.Leaf) {
			r, ok := rules[l.Tag()]
			if !ok {
				unknown = append(unknown, criteria.AttributeName(l.Tag()))
				return
			}
			q.joins |= r.needs
			if r.kind == kindModality && modalityScope(l, level) != criteria.Study {
				q.joins |= joinSeries
			}
		})
		if cp.Strict && len(unknown) > 0 {
			return nil, errors.InvalidArgumentf("unsupported search attributes: %s", strings.Join(unknown, ", "))
		}

		where, args, err := cp.node(c, level)
		if err != nil {
			return nil, err
		}
		q.Where, q.Args = where, args
	}

	q.SQL = buildSelect(q)
	return q, nil
}

// node compiles one subtree. An empty result means the subtree contributes
// nothing to its parent.
func (cp Compiler) node(c criteria.Criterion, level Level) (string, []interface{}, error) {
	switch n := c.(type) {
	case *criteria.Leaf:
		return cp.leaf(n, level)
	case *criteria.Compound:
		children, _ := n.Children()
		var where string
		var args []interface{}
		var prev criteria.Combinator
		parts := 0
		for _, child := range children {
			text, childArgs, err := cp.node(child, level)
			if err != nil {
				return "", nil, err
			}
			if text == "" {
				continue
			}
			if parts > 0 {
				op := child.Combinator()
				if op == criteria.None {
					op = criteria.And
				}
				// Siblings fold left to right: a change of combinator
				// closes the prefix so SQL precedence cannot regroup it.
				if parts > 1 && op != prev {
					where = "(" + where + ")"
				}
				where += " " + op.String() + " "
				prev = op
			}
			where += text
			args = append(args, childArgs...)
			parts++
		}
		switch parts {
		case 0:
			return "", nil, nil
		case 1:
			return where, args, nil
		}
		return "(" + where + ")", args, nil
	}
	return "", nil, errors.Unsupportedf("criterion type %T", c)
}

func (cp Compiler) leaf(l *criteria.Leaf, level Level) (string, []interface{}, error) {
	r, ok := rules[l.Tag()]
	if !ok {
		// Unknown attributes were rejected up front in strict mode.
		return "", nil, nil
	}

	switch r.kind {
	case kindModality:
		return modalityPredicate(l, level)
	case kindNumber:
		n, err := strconv.Atoi(strings.TrimSpace(l.Text()))
		if err != nil {
			return "", nil, errors.InvalidArgumentf("%s needs an integer, got %q", criteria.AttributeName(l.Tag()), l.Text())
		}
		return r.column + " = ?", []interface{}{n}, nil
	case kindDate:
		return datePredicate(r, l)
	}
	return textPredicate(r, l.Op(), l.Text())
}

func textPredicate(r rule, cmp criteria.Comparator, value string) (string, []interface{}, error) {
	if cmp == criteria.Equality || r.policy == matchExact {
		if r.nocase {
			return r.column + " = ? COLLATE NOCASE", []interface{}{value}, nil
		}
		return r.column + " = ?", []interface{}{value}, nil
	}

	pattern := escapeLikePattern(value) + "%"
	if r.policy == matchContains {
		pattern = "%" + pattern
	}
	if r.nocase {
		return r.column + " LIKE ? COLLATE NOCASE ESCAPE '\\'", []interface{}{pattern}, nil
	}
	return r.column + " LIKE ? ESCAPE '\\'", []interface{}{pattern}, nil
}

// datePredicate compiles YYYYMMDD values. Equality accepts the DICOM range
// forms "A-B", "A-" and "-B"; Substring is a prefix match on the digits.
func datePredicate(r rule, l *criteria.Leaf) (string, []interface{}, error) {
	value := strings.TrimSpace(l.Text())
	if l.Op() == criteria.Substring {
		return "CAST(" + r.column + " AS TEXT) LIKE ? ESCAPE '\\'", []interface{}{escapeLikePattern(value) + "%"}, nil
	}

	if from, to, ok := strings.Cut(value, "-"); ok {
		lo, hi := entity.ParseDate(from), entity.ParseDate(to)
		switch {
		case lo != 0 && hi != 0:
			return r.column + " BETWEEN ? AND ?", []interface{}{int(lo), int(hi)}, nil
		case lo != 0 && strings.TrimSpace(to) == "":
			return r.column + " >= ?", []interface{}{int(lo)}, nil
		case hi != 0 && strings.TrimSpace(from) == "":
			return r.column + " BETWEEN 1 AND ?", []interface{}{int(hi)}, nil
		}
		return "", nil, errors.InvalidArgumentf("malformed date range %q", value)
	}

	d := entity.ParseDate(value)
	if d == 0 {
		return "", nil, errors.InvalidArgumentf("malformed date %q", value)
	}
	return r.column + " = ?", []interface{}{int(d)}, nil
}

// modalityScope resolves where a modality leaf applies.
func modalityScope(l *criteria.Leaf, level Level) criteria.Scope {
	if s := l.ScopeOf(); s != criteria.Unspecified {
		return s
	}
	return level.naturalScope()
}

// modalityPredicate compiles against the study mask at Study scope and
// against the single series bit otherwise. "CT\MR" at Study scope requires
// both; at Series scope it accepts either.
func modalityPredicate(l *criteria.Leaf, level Level) (string, []interface{}, error) {
	codes := strings.FieldsFunc(l.Text(), func(r rune) bool { return r == '\\' || r == ',' || r == ' ' })
	if len(codes) == 0 {
		return "", nil, nil
	}

	if modalityScope(l, level) == criteria.Study {
		mask := int64(entity.ModalityMaskOf(codes...))
		return "(st.modalities & ?) = ?", []interface{}{mask, mask}, nil
	}

	if len(codes) == 1 {
		return "se.modality_bit = ?", []interface{}{int64(entity.ModalityBit(codes[0]))}, nil
	}
	placeholders := make([]string, len(codes))
	args := make([]interface{}, len(codes))
	for i, code := range codes {
		placeholders[i] = "?"
		args[i] = int64(entity.ModalityBit(code))
	}
	return "se.modality_bit IN (" + strings.Join(placeholders, ", ") + ")", args, nil
}

// escapeLikePattern escapes special characters in LIKE patterns for SQL ESCAPE clause
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

var levelColumns = []string{
	"p.patient_key, p.name, p.birth_date, p.patient_id, p.other_id, p.comment",
	"st.uid, st.accession, st.study_date, st.description, st.modalities",
	"se.uid, se.modality, se.number, se.series_time, se.description",
	"i.id, i.uid, i.sop_class, i.number, i.frames, i.path",
}

var levelOrder = []string{
	"p.name, p.patient_id, p.patient_key",
	"st.study_date, st.uid",
	"se.number, se.series_time, se.uid",
	"i.number, i.uid",
}

func buildSelect(q *Query) string {
	var b strings.Builder
	b.WriteString("SELECT DISTINCT ")
	b.WriteString(strings.Join(levelColumns[:int(q.Level)+1], ", "))

	b.WriteString("\nFROM patient p")
	b.WriteString("\nJOIN study st ON st.patient_fk = p.id")
	if q.joins&joinSeries != 0 {
		b.WriteString("\nJOIN series se ON se.study_fk = st.id")
	}
	if q.joins&joinInstance != 0 {
		b.WriteString("\nJOIN instance i ON i.series_fk = se.id")
	}
	if q.joins&joinReference != 0 {
		b.WriteString("\nLEFT JOIN instance_ref r ON r.instance_fk = i.id")
	}

	if q.Where != "" {
		b.WriteString("\nWHERE ")
		b.WriteString(q.Where)
	}

	b.WriteString("\nORDER BY ")
	b.WriteString(strings.Join(levelOrder[:int(q.Level)+1], ", "))
	return b.String()
}
