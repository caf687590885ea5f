package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/pterm/pterm"

	"github.com/teranos/dcmindex/criteria"
	"github.com/teranos/dcmindex/entity"
	"github.com/teranos/dcmindex/storage"
	"github.com/teranos/dcmindex/sym"
)

type patientView struct {
	Key       string      `json:"key"`
	Name      string      `json:"name"`
	ID        string      `json:"id"`
	BirthDate string      `json:"birth_date,omitempty"`
	Studies   []studyView `json:"studies"`
}

type studyView struct {
	UID         string       `json:"uid"`
	Accession   string       `json:"accession,omitempty"`
	Date        string       `json:"date,omitempty"`
	Description string       `json:"description,omitempty"`
	Modalities  []string     `json:"modalities"`
	Series      []seriesView `json:"series,omitempty"`
}

type seriesView struct {
	UID         string         `json:"uid"`
	Modality    string         `json:"modality"`
	Number      int            `json:"number"`
	Description string         `json:"description,omitempty"`
	Instances   []instanceView `json:"instances,omitempty"`
}

type instanceView struct {
	UID        string            `json:"uid"`
	SOPClass   string            `json:"sop_class"`
	Number     int               `json:"number"`
	Frames     int               `json:"frames"`
	Path       string            `json:"path"`
	References []string          `json:"references,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func dateText(d entity.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func patientViews(patients []*entity.Patient, attributes bool) []patientView {
	views := make([]patientView, 0, len(patients))
	for _, p := range patients {
		pv := patientView{Key: p.Key(), Name: p.Name, ID: p.ID, BirthDate: dateText(p.BirthDate), Studies: []studyView{}}
		for _, st := range p.Studies() {
			sv := studyView{
				UID:         st.UID,
				Accession:   st.Accession,
				Date:        dateText(st.Date),
				Description: st.Description,
				Modalities:  st.ModalityNames(),
			}
			for _, se := range st.Series() {
				sev := seriesView{UID: se.UID, Modality: se.Modality(), Number: se.Number, Description: se.Description}
				for _, inst := range se.Instances() {
					sev.Instances = append(sev.Instances, newInstanceView(inst, attributes))
				}
				sv.Series = append(sv.Series, sev)
			}
			pv.Studies = append(pv.Studies, sv)
		}
		views = append(views, pv)
	}
	return views
}

func newInstanceView(inst *entity.Instance, attributes bool) instanceView {
	v := instanceView{
		UID:        inst.UID(),
		SOPClass:   inst.SOPClass(),
		Number:     inst.Number(),
		Frames:     inst.Frames(),
		Path:       inst.Path(),
		References: inst.References(),
	}
	if attributes {
		v.Attributes = attributeMap(inst)
	}
	return v
}

// attributeMap renders the instance's full attribute set. A file that can no
// longer be read yields nil.
func attributeMap(inst *entity.Instance) map[string]string {
	d, ok := inst.Attributes()
	if !ok {
		return nil
	}
	out := make(map[string]string)
	for _, t := range d.Tags() {
		if items := d.Items(t); len(items) > 0 {
			out[criteria.AttributeName(t)] = fmt.Sprintf("<%d items>", len(items))
			continue
		}
		if b := d.Bytes(t); len(b) > 0 {
			out[criteria.AttributeName(t)] = fmt.Sprintf("<%d bytes>", len(b))
			continue
		}
		out[criteria.AttributeName(t)] = d.String(t)
	}
	return out
}

// renderTree prints the matched forest down to level.
func renderTree(w io.Writer, patients []*entity.Patient, level storage.Level, attributes bool) error {
	fmt.Fprintf(w, "%s Found %d patients\n\n", levelLabel(level), len(patients))
	if len(patients) == 0 {
		return nil
	}

	root := pterm.TreeNode{}
	for _, p := range patients {
		pn := pterm.TreeNode{Text: fmt.Sprintf("%s %s [%s] %s", sym.Patient, p.Name, p.ID, dateText(p.BirthDate))}
		for _, st := range p.Studies() {
			sn := pterm.TreeNode{Text: fmt.Sprintf("%s %s %s %s %q (%s)",
				sym.Study, dateText(st.Date), st.Accession, modalityLabel(st), st.Description, st.UID)}
			for _, se := range st.Series() {
				sen := pterm.TreeNode{Text: fmt.Sprintf("%s #%d %s %q (%s)",
					sym.Series, se.Number, se.Modality(), se.Description, se.UID)}
				for _, inst := range se.Instances() {
					sen.Children = append(sen.Children, instanceNode(inst, attributes))
				}
				sn.Children = append(sn.Children, sen)
			}
			pn.Children = append(pn.Children, sn)
		}
		root.Children = append(root.Children, pn)
	}

	text, err := pterm.DefaultTree.WithRoot(root).Srender()
	if err != nil {
		return err
	}
	fmt.Fprint(w, text)
	return nil
}

func instanceNode(inst *entity.Instance, attributes bool) pterm.TreeNode {
	n := pterm.TreeNode{Text: fmt.Sprintf("%s #%d %s", sym.Instance, inst.Number(), inst.Path())}
	if refs := inst.References(); len(refs) > 0 {
		n.Text += fmt.Sprintf(" (%d refs)", len(refs))
	}
	if attributes {
		for _, t := range attributeLines(attributeMap(inst)) {
			n.Children = append(n.Children, pterm.TreeNode{Text: t})
		}
	}
	return n
}

func renderInstances(w io.Writer, instances []*entity.Instance, attributes bool) error {
	fmt.Fprintf(w, "%s Found %d referencing instances\n\n", sym.AX, len(instances))
	if len(instances) == 0 {
		return nil
	}
	root := pterm.TreeNode{}
	for _, inst := range instances {
		n := instanceNode(inst, attributes)
		n.Text = fmt.Sprintf("%s %s", inst.UID(), n.Text)
		root.Children = append(root.Children, n)
	}
	text, err := pterm.DefaultTree.WithRoot(root).Srender()
	if err != nil {
		return err
	}
	fmt.Fprint(w, text)
	return nil
}

func attributeLines(m map[string]string) []string {
	lines := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		lines = append(lines, k+" = "+m[k])
	}
	return lines
}
