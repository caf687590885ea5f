// Package criteria is a small expression language for index searches.
//
// A tree is built from leaves (attribute, comparator, value, scope) and
// compounds (ordered children). Every node also carries a combinator saying
// how it joins the sibling before it; the first child's combinator is
// ignored and None reads as AND. Siblings fold left to right, so
// [A, OR B, AND C] means (A OR B) AND C. Construction errors surface here,
// never at compile time.
package criteria

import (
	"fmt"

	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/teranos/dcmindex/errors"
)

// Comparator is the match operator of a leaf.
type Comparator int

const (
	// Equality matches the value exactly.
	Equality Comparator = iota
	// Substring matches part of the value. Whether that means "contains" or
	// "starts with" depends on the attribute.
	Substring
)

func (c Comparator) String() string {
	switch c {
	case Equality:
		return "="
	case Substring:
		return "~"
	}
	return fmt.Sprintf("Comparator(%d)", int(c))
}

// Combinator joins a node to its preceding sibling.
type Combinator int

const (
	None Combinator = iota
	And
	Or
)

func (c Combinator) String() string {
	switch c {
	case None:
		return ""
	case And:
		return "AND"
	case Or:
		return "OR"
	}
	return fmt.Sprintf("Combinator(%d)", int(c))
}

// Criterion is a node of a criteria tree: a *Leaf or a *Compound.
// Leaf-only accessors fail on a compound with an error wrapping
// errors.ErrUnsupported, and Children fails on a leaf the same way.
type Criterion interface {
	Attribute() (tag.Tag, error)
	Comparator() (Comparator, error)
	Value() (string, error)
	Scope() (Scope, error)
	Children() ([]Criterion, error)

	Combinator() Combinator
	SetCombinator(Combinator)
	IsCompound() bool
	String() string
}

// Leaf is a single attribute predicate.
type Leaf struct {
	attribute  tag.Tag
	comparator Comparator
	value      string
	scope      Scope
	combinator Combinator
}

var _ Criterion = (*Leaf)(nil)

// NewLeaf creates an unscoped leaf. Attributes without compile rules are
// accepted; the compiler decides what to do with them.
func NewLeaf(attribute tag.Tag, cmp Comparator, value string) *Leaf {
	return &Leaf{attribute: attribute, comparator: cmp, value: value}
}

// Eq is NewLeaf with Equality.
func Eq(attribute tag.Tag, value string) *Leaf {
	return NewLeaf(attribute, Equality, value)
}

// Like is NewLeaf with Substring.
func Like(attribute tag.Tag, value string) *Leaf {
	return NewLeaf(attribute, Substring, value)
}

// SetScope restricts the join level of the leaf. It fails with
// invalid-argument when the attribute is not legal at s.
func (l *Leaf) SetScope(s Scope) error {
	if !s.valid() {
		return errors.InvalidArgumentf("unknown scope %d", int(s))
	}
	if !Legal(s, l.attribute) {
		return errors.InvalidArgumentf("attribute %s is not valid at %s scope", AttributeName(l.attribute), s)
	}
	l.scope = s
	return nil
}

// In is SetScope returning the leaf, for building literals.
func (l *Leaf) In(s Scope) (*Leaf, error) {
	if err := l.SetScope(s); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Leaf) Attribute() (tag.Tag, error)     { return l.attribute, nil }
func (l *Leaf) Comparator() (Comparator, error) { return l.comparator, nil }
func (l *Leaf) Value() (string, error)          { return l.value, nil }
func (l *Leaf) Scope() (Scope, error)           { return l.scope, nil }

// Children fails: leaves have none.
func (l *Leaf) Children() ([]Criterion, error) {
	return nil, errors.Unsupportedf("children of leaf criterion %s", l)
}

func (l *Leaf) Combinator() Combinator     { return l.combinator }
func (l *Leaf) SetCombinator(c Combinator) { l.combinator = c }
func (l *Leaf) IsCompound() bool           { return false }

// Infallible accessors for code that already holds a *Leaf.
func (l *Leaf) Tag() tag.Tag   { return l.attribute }
func (l *Leaf) Op() Comparator { return l.comparator }
func (l *Leaf) Text() string   { return l.value }
func (l *Leaf) ScopeOf() Scope { return l.scope }

func (l *Leaf) String() string {
	s := fmt.Sprintf("%s %s %q", AttributeName(l.attribute), l.comparator, l.value)
	if l.scope != Unspecified {
		s += "@" + l.scope.String()
	}
	return s
}

// Compound is an ordered list of at least two children.
type Compound struct {
	children   []Criterion
	combinator Combinator
}

var _ Criterion = (*Compound)(nil)

// NewCompound creates a compound joined to its own siblings by comb.
// It fails with invalid-argument for fewer than two children or a nil child.
func NewCompound(comb Combinator, children ...Criterion) (*Compound, error) {
	if len(children) < 2 {
		return nil, errors.InvalidArgumentf("compound criterion needs at least 2 children, got %d", len(children))
	}
	for i, c := range children {
		if c == nil {
			return nil, errors.InvalidArgumentf("compound criterion child %d is nil", i)
		}
	}
	return &Compound{children: append([]Criterion(nil), children...), combinator: comb}, nil
}

// AllOf joins children with AND.
func AllOf(children ...Criterion) (*Compound, error) {
	return joined(And, children)
}

// AnyOf joins children with OR.
func AnyOf(children ...Criterion) (*Compound, error) {
	return joined(Or, children)
}

func joined(comb Combinator, children []Criterion) (*Compound, error) {
	c, err := NewCompound(None, children...)
	if err != nil {
		return nil, err
	}
	for _, child := range c.children {
		child.SetCombinator(comb)
	}
	return c, nil
}

func (c *Compound) Attribute() (tag.Tag, error) {
	return tag.Tag{}, errors.Unsupportedf("attribute of compound criterion")
}

func (c *Compound) Comparator() (Comparator, error) {
	return 0, errors.Unsupportedf("comparator of compound criterion")
}

func (c *Compound) Value() (string, error) {
	return "", errors.Unsupportedf("value of compound criterion")
}

func (c *Compound) Scope() (Scope, error) {
	return Unspecified, errors.Unsupportedf("scope of compound criterion")
}

// Children returns a copy of the ordered children.
func (c *Compound) Children() ([]Criterion, error) {
	return append([]Criterion(nil), c.children...), nil
}

func (c *Compound) Combinator() Combinator     { return c.combinator }
func (c *Compound) SetCombinator(k Combinator) { c.combinator = k }
func (c *Compound) IsCompound() bool           { return true }

func (c *Compound) String() string {
	var s string
	var prev Combinator
	for i, child := range c.children {
		if i > 0 {
			op := child.Combinator()
			if op == None {
				op = And
			}
			if i > 1 && op != prev {
				s = "(" + s + ")"
			}
			s += " " + op.String() + " "
			prev = op
		}
		s += child.String()
	}
	return "(" + s + ")"
}

// Walk calls fn for every leaf in c, depth-first.
func Walk(c Criterion, fn func(*Leaf)) {
	switch n := c.(type) {
	case *Leaf:
		fn(n)
	case *Compound:
		for _, child := range n.children {
			Walk(child, fn)
		}
	}
}
