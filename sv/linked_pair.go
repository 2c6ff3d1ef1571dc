package sv

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// LinkType tags the kind of adjacency a LinkedPair represents.
type LinkType uint8

const (
	// TI is a templated insertion: a short segment bridging two breakends.
	TI LinkType = iota
	// DB is a deletion bridge: two breakends directly abutting.
	DB
	// DBE links two breakends found at the same location.
	DBE
)

func (t LinkType) String() string {
	switch t {
	case TI:
		return "TI"
	case DB:
		return "DB"
	case DBE:
		return "DBE"
	}
	return fmt.Sprintf("link(%d)", t)
}

// ParseLinkType parses "TI", "DB" or "DBE".
func ParseLinkType(s string) (LinkType, error) {
	switch strings.ToUpper(s) {
	case "TI":
		return TI, nil
	case "DB", "DSB":
		return DB, nil
	case "DBE":
		return DBE, nil
	}
	return TI, fmt.Errorf("sv: unknown link type '%s'", s)
}

// LinkedPair is a proposed adjacency between two breakends. The pair is a
// value; Switched returns a copy with first and second exchanged.
//
// INVARIANT: First != Second.
type LinkedPair struct {
	First, Second BreakendRef
	Type          LinkType
	// Length is |pos(First) - pos(Second)|, computed at construction.
	Length int
	// Assembled is true when the pair is supported by assembly evidence, as
	// opposed to being inferred from proximity or copy number.
	Assembled bool
}

// NewLinkedPair creates a pair joining first and second. It rejects a
// breakend linked to itself, unknown variants and missing sides. A variant
// may be linked to its own other side.
func NewLinkedPair(t *Table, first, second BreakendRef, typ LinkType) (LinkedPair, error) {
	if first == second {
		return LinkedPair{}, errors.E(errors.Invalid, fmt.Sprintf("sv: linked pair joins breakend %v to itself", first))
	}
	if err := t.CheckRef(first); err != nil {
		return LinkedPair{}, err
	}
	if err := t.CheckRef(second); err != nil {
		return LinkedPair{}, err
	}
	b1, b2 := t.Breakend(first), t.Breakend(second)
	return LinkedPair{
		First:  first,
		Second: second,
		Type:   typ,
		Length: abs(b1.Pos - b2.Pos),
	}, nil
}

// Switched returns the pair with First and Second exchanged. Each breakend
// keeps its side.
func (p LinkedPair) Switched() LinkedPair {
	p.First, p.Second = p.Second, p.First
	return p
}

// HasBreakend reports whether ref is one of the pair's breakends.
func (p LinkedPair) HasBreakend(ref BreakendRef) bool {
	return p.First == ref || p.Second == ref
}

// HasVariant reports whether either breakend belongs to variant id.
func (p LinkedPair) HasVariant(id ID) bool {
	return p.First.ID == id || p.Second.ID == id
}

// OtherBreakend returns the breakend paired with ref.
//
// REQUIRES: p.HasBreakend(ref).
func (p LinkedPair) OtherBreakend(ref BreakendRef) BreakendRef {
	switch ref {
	case p.First:
		return p.Second
	case p.Second:
		return p.First
	}
	panic(fmt.Sprintf("linked pair %v does not contain %v", p, ref))
}

// Matches reports whether the two pairs join the same breakends. If exact is
// true, p.First must equal other.First; otherwise the order is ignored.
func (p LinkedPair) Matches(other LinkedPair, exact bool) bool {
	if p.First == other.First && p.Second == other.Second {
		return true
	}
	return !exact && p.First == other.Second && p.Second == other.First
}

// MatchesOrigin is like Matches(other, false), except that replicated copies
// compare equal to their original and to each other.
func (p LinkedPair) MatchesOrigin(t *Table, other LinkedPair) bool {
	same := func(a, b BreakendRef) bool {
		return a.Side == b.Side && t.SameOrigin(a.ID, b.ID)
	}
	return (same(p.First, other.First) && same(p.Second, other.Second)) ||
		(same(p.First, other.Second) && same(p.Second, other.First))
}

// IsSameVariant reports whether both breakends belong to the same variant.
func (p LinkedPair) IsSameVariant() bool { return p.First.ID == p.Second.ID }

func (p LinkedPair) String() string {
	return fmt.Sprintf("%s(%v-%v len=%d)", p.Type, p.First, p.Second, p.Length)
}
