// Package blood holds the shared vocabulary of the donation domain: ABO/Rh
// blood types, request urgency and the red-cell compatibility table.
package blood

import (
	"errors"
	"strings"
)

// Type is one of the eight ABO/Rh groups.
type Type string

const (
	APos  Type = "A+"
	ANeg  Type = "A-"
	BPos  Type = "B+"
	BNeg  Type = "B-"
	ABPos Type = "AB+"
	ABNeg Type = "AB-"
	OPos  Type = "O+"
	ONeg  Type = "O-"
)

// Types lists every group in the order the pickers show them.
var Types = []Type{APos, ANeg, BPos, BNeg, ABPos, ABNeg, OPos, ONeg}

var (
	ErrUnknownType    = errors.New("blood: unknown blood type")
	ErrUnknownUrgency = errors.New("blood: unknown urgency")
)

// ParseType normalises s ("ab+", " O- ") and validates it.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrUnknownType
	}
	return t, nil
}

func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

func (t Type) String() string { return string(t) }

func (t Type) abo() string { return strings.TrimRight(string(t), "+-") }

func (t Type) rhPositive() bool { return strings.HasSuffix(string(t), "+") }

// CanDonateTo reports whether red cells of type t can be given to recipient.
func (t Type) CanDonateTo(recipient Type) bool {
	if !t.Valid() || !recipient.Valid() {
		return false
	}
	if t.rhPositive() && !recipient.rhPositive() {
		return false
	}
	donor, rec := t.abo(), recipient.abo()
	switch donor {
	case "O":
		return true
	case "AB":
		return rec == "AB"
	default:
		return rec == donor || rec == "AB"
	}
}

// DonorsFor returns every type that can donate to recipient, exact match first.
func DonorsFor(recipient Type) []Type {
	if !recipient.Valid() {
		return nil
	}
	out := []Type{recipient}
	for _, t := range Types {
		if t != recipient && t.CanDonateTo(recipient) {
			out = append(out, t)
		}
	}
	return out
}

// Urgency grades a blood request.
type Urgency string

const (
	Normal   Urgency = "Normal"
	Urgent   Urgency = "Urgent"
	Critical Urgency = "Critical"
)

// ParseUrgency accepts the three levels case-insensitively; empty means Normal.
func ParseUrgency(s string) (Urgency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return Normal, nil
	case "urgent":
		return Urgent, nil
	case "critical":
		return Critical, nil
	default:
		return "", ErrUnknownUrgency
	}
}

func (u Urgency) Valid() bool {
	return u == Normal || u == Urgent || u == Critical
}
