package sv

import (
	"fmt"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Table is the arena that owns every Variant of a sample. Variants, breakends,
// linked pairs and chains refer to each other through IDs assigned by the
// table, so replicated copies compare by ID and by Original ID rather than by
// pointer. Thread compatible.
type Table struct {
	vars   []*Variant // indexed by ID; vars[0] is a placeholder
	names  map[string]ID
	copies map[ID][]ID // original -> replicated copies, in creation order
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		vars:   []*Variant{&Variant{Name: "invalid"}},
		names:  map[string]ID{},
		copies: map[ID][]ID{},
	}
}

// Add registers a copy of v and returns its ID. v.ID and v.Original are
// overwritten. A zero ReplicationCount is raised to 1.
func (t *Table) Add(v Variant) (ID, error) {
	if v.Name == "" {
		return InvalidID, errors.E(errors.Invalid, "sv: variant without a name")
	}
	if _, ok := t.names[v.Name]; ok {
		return InvalidID, errors.E(errors.Exists, fmt.Sprintf("sv: duplicate variant name %s", v.Name))
	}
	for _, s := range Sides {
		if !v.HasSide(s) {
			continue
		}
		if o := v.Loc[s].Orient; o != 1 && o != -1 {
			return InvalidID, errors.E(errors.Invalid, fmt.Sprintf("sv %s: invalid %s orientation %d", v.Name, s, o))
		}
	}
	if v.ReplicationCount < 1 {
		v.ReplicationCount = 1
	}
	id := ID(len(t.vars))
	v.ID = id
	v.Original = InvalidID
	t.vars = append(t.vars, &v)
	t.names[v.Name] = id
	return id, nil
}

// Get returns the variant with the given ID. It always returns non-nil.
//
// REQUIRES: id was assigned by this table.
func (t *Table) Get(id ID) *Variant {
	if id <= InvalidID || int(id) >= len(t.vars) {
		log.Panicf("sv: invalid variant id %d", id)
	}
	return t.vars[id]
}

// Has reports whether id was assigned by this table.
func (t *Table) Has(id ID) bool {
	return id > InvalidID && int(id) < len(t.vars)
}

// Lookup finds a variant by name.
func (t *Table) Lookup(name string) (ID, bool) {
	id, ok := t.names[name]
	return id, ok
}

// Len returns the number of registered variants, including replicated
// copies.
func (t *Table) Len() int { return len(t.vars) - 1 }

// IDRange returns the range of registered IDs. The low end is closed, the
// high end is open.
func (t *Table) IDRange() (ID, ID) { return 1, ID(len(t.vars)) }

// CheckRef verifies that ref names a registered variant and an existing side
// of it.
func (t *Table) CheckRef(ref BreakendRef) error {
	if !t.Has(ref.ID) {
		return errors.E(errors.NotExist, fmt.Sprintf("sv: unknown variant id %d", ref.ID))
	}
	if v := t.vars[ref.ID]; !v.HasSide(ref.Side) {
		return errors.E(errors.Invalid, fmt.Sprintf("sv %s: %s variant has no %s breakend", v.Name, v.Type, ref.Side))
	}
	return nil
}

// Replicate makes sure that count instances of the variant exist: the
// original and count-1 copies. Copies share the original's locations and
// annotations except for TI and DB links, which belong to a specific
// instance. A foldback or consecutive marker between the original's two
// sides joins the copy's two sides. It returns all instances, original
// first.
//
// REQUIRES: id is an original, count >= 1.
func (t *Table) Replicate(id ID, count int) []ID {
	orig := t.Get(id)
	if orig.IsReplicated() {
		log.Panicf("sv: cannot replicate copy %s", orig.Name)
	}
	if count < 1 {
		log.Panicf("sv: invalid replication count %d for %s", count, orig.Name)
	}
	for n := len(t.copies[id]) + 1; n < count; n++ {
		c := *orig
		c.ID = ID(len(t.vars))
		c.Name = orig.Name + "_r" + strconv.Itoa(n)
		c.Original = id
		c.DBLink = [2]*LinkedPair{}
		c.TILink = [2]*LinkedPair{}
		// References to the original's own breakends refer to the copy's.
		for _, s := range Sides {
			if c.Foldback[s].Partner.ID == id {
				c.Foldback[s].Partner.ID = c.ID
			}
			if c.Consecutive[s].ID == id {
				c.Consecutive[s].ID = c.ID
			}
		}
		c.ClusterReasons = append([]string(nil), orig.ClusterReasons...)
		t.vars = append(t.vars, &c)
		t.names[c.Name] = c.ID
		t.copies[id] = append(t.copies[id], c.ID)
	}
	ids := append([]ID{id}, t.copies[id]...)
	for _, cid := range ids {
		t.vars[cid].ReplicationCount = count
	}
	return ids
}

// Copies returns the replicated copies of an original variant.
func (t *Table) Copies(id ID) []ID { return t.copies[id] }

// Instances returns the original of id followed by all of its copies.
func (t *Table) Instances(id ID) []ID {
	o := t.Original(id)
	return append([]ID{o}, t.copies[o]...)
}

// Original returns the original of a replicated copy, or id itself.
func (t *Table) Original(id ID) ID {
	if o := t.Get(id).Original; o != InvalidID {
		return o
	}
	return id
}

// SameOrigin reports whether a and b are the same variant or replicated
// copies of the same original.
func (t *Table) SameOrigin(a, b ID) bool {
	return t.Original(a) == t.Original(b)
}

// Breakend returns the read-only projection of a breakend.
//
// REQUIRES: ref is valid for this table.
func (t *Table) Breakend(ref BreakendRef) Breakend {
	loc := t.Get(ref.ID).At(ref.Side)
	return Breakend{
		Ref:    ref,
		Chrom:  loc.Chrom,
		Pos:    loc.Pos,
		Orient: loc.Orient,
		Arm:    loc.Arm,
	}
}

// Breakends returns all breakends of the variant.
func (t *Table) Breakends(id ID) []Breakend {
	v := t.Get(id)
	bes := []Breakend{t.Breakend(v.Ref(Start))}
	if v.HasSide(End) {
		bes = append(bes, t.Breakend(v.Ref(End)))
	}
	return bes
}

// SetLink records p as the TI or DB link of both of its breakends. DBE pairs
// are not recorded.
func (t *Table) SetLink(p LinkedPair) {
	lp := p
	for _, ref := range [2]BreakendRef{p.First, p.Second} {
		v := t.Get(ref.ID)
		switch p.Type {
		case TI:
			v.TILink[ref.Side] = &lp
		case DB:
			v.DBLink[ref.Side] = &lp
		}
	}
}

// ClearLinks drops all TI and DB links.
func (t *Table) ClearLinks() {
	for _, v := range t.vars[1:] {
		v.TILink = [2]*LinkedPair{}
		v.DBLink = [2]*LinkedPair{}
	}
}
