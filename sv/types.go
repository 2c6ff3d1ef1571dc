package sv

import (
	"fmt"
	"strings"
)

// Side selects one of the two breakends of a variant.
type Side uint8

const (
	// Start is the lower breakend of the variant (or the only breakend of a
	// single-breakend variant).
	Start Side = iota
	// End is the upper breakend. SGL variants have no End.
	End
)

// Sides lists both sides in index order.
var Sides = [2]Side{Start, End}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == Start {
		return End
	}
	return Start
}

// Index returns s as an array index.
func (s Side) Index() int { return int(s) }

func (s Side) String() string {
	switch s {
	case Start:
		return "start"
	case End:
		return "end"
	}
	return fmt.Sprintf("side(%d)", s)
}

// ParseSide parses "start"/"end" (case-insensitive, "s"/"e" accepted).
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "start", "s":
		return Start, nil
	case "end", "e":
		return End, nil
	}
	return Start, fmt.Errorf("sv: invalid side '%s'", s)
}

// Type is the structural variant class.
type Type uint8

const (
	DEL Type = iota
	DUP
	INS
	INV
	BND
	SGL
	nType
)

var typeNames = [nType]string{"DEL", "DUP", "INS", "INV", "BND", "SGL"}

func (t Type) String() string {
	if t < nType {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", t)
}

// ParseType parses a variant type name such as "DEL" or "BND".
func ParseType(s string) (Type, error) {
	u := strings.ToUpper(s)
	for i, name := range typeNames {
		if name == u {
			return Type(i), nil
		}
	}
	return SGL, fmt.Errorf("sv: unknown variant type '%s'", s)
}

// Arm is a chromosome arm.
type Arm uint8

const (
	UnknownArm Arm = iota
	P
	Q
)

func (a Arm) String() string {
	switch a {
	case P:
		return "P"
	case Q:
		return "Q"
	}
	return "?"
}

// Sign returns +1 for the P arm, -1 for the Q arm and 0 for an unknown arm.
// It is the direction of travel from telomere to centromere.
func (a Arm) Sign() int {
	switch a {
	case P:
		return 1
	case Q:
		return -1
	}
	return 0
}

// ParseArm parses "P" or "Q".
func ParseArm(s string) (Arm, error) {
	switch strings.ToUpper(s) {
	case "P":
		return P, nil
	case "Q":
		return Q, nil
	case "", "?", ".":
		return UnknownArm, nil
	}
	return UnknownArm, fmt.Errorf("sv: invalid arm '%s'", s)
}
