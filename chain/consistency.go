package chain

import (
	"encoding/binary"
	"sort"

	"github.com/grailbio/svchain/sv"
	"github.com/minio/highwayhash"
)

// ConsistencyFunc computes the consistency count of a set of variants. A
// count of zero means the variants form a ploidy-consistent structure.
type ConsistencyFunc func(tab *sv.Table, ids []sv.ID) int

// ArmOrientationConsistency sums, over every breakend of every variant, the
// arm sign (+1 for P, -1 for Q, 0 if unknown) times the orientation. A chain
// entering and leaving an arm the same number of times sums to zero.
func ArmOrientationConsistency(tab *sv.Table, ids []sv.ID) int {
	n := 0
	for _, id := range ids {
		v := tab.Get(id)
		for _, s := range sv.Sides {
			if !v.HasSide(s) {
				continue
			}
			loc := v.At(s)
			n += loc.Arm.Sign() * loc.Orient
		}
	}
	return n
}

// Zero key. Fingerprints are only compared within a process.
var hashKey = [highwayhash.Size]uint8{}

// Fingerprint is a 128 bit hash of a chain's structure. Chains for which
// IsIdentical is true have the same fingerprint.
type Fingerprint [highwayhash.Size128]byte

// Fingerprint computes the chain's fingerprint. Closed chains hash their
// unordered pair set; open chains hash their unordered exposed ends.
func (c *Chain) Fingerprint() Fingerprint {
	type key struct{ a, b sv.BreakendRef }
	less := func(x, y sv.BreakendRef) bool {
		if x.ID != y.ID {
			return x.ID < y.ID
		}
		return x.Side < y.Side
	}
	canon := func(a, b sv.BreakendRef) key {
		if less(b, a) {
			a, b = b, a
		}
		return key{a, b}
	}
	var keys []key
	if c.closed {
		for _, p := range c.pairs {
			keys = append(keys, canon(p.First, p.Second))
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].a != keys[j].a {
				return less(keys[i].a, keys[j].a)
			}
			return less(keys[i].b, keys[j].b)
		})
	} else if !c.Empty() {
		keys = append(keys, canon(c.FrontBreakend(), c.BackBreakend()))
	}
	buf := make([]byte, 0, 1+len(keys)*10)
	if c.closed {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	put := func(r sv.BreakendRef) {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(r.ID))
		buf = append(buf, tmp[:]...)
		buf = append(buf, byte(r.Side))
	}
	for _, k := range keys {
		put(k.a)
		put(k.b)
	}
	return Fingerprint(highwayhash.Sum128(buf, hashKey[:]))
}
