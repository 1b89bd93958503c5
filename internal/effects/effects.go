// Package effects implements the stacking, duration-bound status ledger
// shared by heroes and enemies. Every operation is a pure function: it
// returns a new List and never mutates its input.
package effects

import "strings"

// ID identifies a status effect.
type ID string

const (
	Burn      ID = "BURN"      // End-of-turn damage over time
	Poison    ID = "POISON"    // End-of-turn damage over time
	Bleed     ID = "BLEED"     // End-of-turn damage over time
	Regen     ID = "REGEN"     // Start-of-turn heal
	Stun      ID = "STUN"      // Skips the afflicted unit's action
	Blind     ID = "BLIND"     // Flat chance for an attack to miss
	Weak      ID = "WEAK"      // Outgoing attack reduced
	Confusion ID = "CONFUSION" // Flat chance the action is wasted
	Shield    ID = "SHIELD"    // Incoming damage reduced
	Curse     ID = "CURSE"     // Luck penalty from shrine pacts
)

// Limits on ledger growth.
const (
	MaxStacks  = 99
	MaxEntries = 16
)

var known = map[ID]bool{
	Burn: true, Poison: true, Bleed: true, Regen: true, Stun: true,
	Blind: true, Weak: true, Confusion: true, Shield: true, Curse: true,
}

// ParseID converts authored text ("burn", "STATUS_BURN") to an ID.
func ParseID(s string) (ID, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "STATUS_")
	id := ID(s)
	return id, known[id]
}

// IsDamageOverTime reports whether the effect deals end-of-turn damage.
func (id ID) IsDamageOverTime() bool {
	return id == Burn || id == Poison || id == Bleed
}

// IsDebuff reports whether cleansing removes the effect.
func (id ID) IsDebuff() bool {
	switch id {
	case Burn, Poison, Bleed, Stun, Blind, Weak, Confusion, Curse:
		return true
	default:
		return false
	}
}

// Instance is one active effect. Turns is always > 0 while present.
type Instance struct {
	ID     ID             `json:"id"`
	Stacks int            `json:"stacks"`
	Turns  int            `json:"turns"`
	Data   map[string]int `json:"data,omitempty"`
}

// Patch describes an application. Zero fields default to 1.
type Patch struct {
	Stacks int
	Turns  int
}

// List is an ordered effect ledger. Order is insertion order.
type List []Instance

// Upsert adds the effect or merges it into an existing one:
// turns become the max of both, stacks the capped sum.
func Upsert(list List, id ID, p Patch) List {
	stacks := p.Stacks
	if stacks < 1 {
		stacks = 1
	}
	turns := p.Turns
	if turns < 1 {
		turns = 1
	}

	out := clone(list)
	for i := range out {
		if out[i].ID != id {
			continue
		}
		if turns > out[i].Turns {
			out[i].Turns = turns
		}
		out[i].Stacks = min(MaxStacks, out[i].Stacks+stacks)
		return out
	}

	out = append(out, Instance{ID: id, Stacks: min(MaxStacks, stacks), Turns: turns})
	return trim(out)
}

// TickDown subtracts by from every duration and drops expired effects.
func TickDown(list List, by int) List {
	if by < 0 {
		by = 0
	}
	out := make(List, 0, len(list))
	for _, e := range list {
		e.Turns -= by
		if e.Turns <= 0 {
			continue
		}
		out = append(out, e)
	}
	return trim(out)
}

// Has reports whether the effect is active.
func Has(list List, id ID) bool {
	_, ok := Get(list, id)
	return ok
}

// Get returns the active instance for id.
func Get(list List, id ID) (Instance, bool) {
	for _, e := range list {
		if e.ID == id {
			return e, true
		}
	}
	return Instance{}, false
}

// Stacks returns the stack count for id, or 0 when absent.
func Stacks(list List, id ID) int {
	e, _ := Get(list, id)
	return e.Stacks
}

// Remove drops the effect if present.
func Remove(list List, id ID) List {
	out := make(List, 0, len(list))
	for _, e := range list {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

// Cleanse removes every debuff, or only the listed ids when given.
func Cleanse(list List, ids ...ID) List {
	out := make(List, 0, len(list))
	for _, e := range list {
		if shouldCleanse(e.ID, ids) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func shouldCleanse(id ID, only []ID) bool {
	if len(only) == 0 {
		return id.IsDebuff()
	}
	for _, o := range only {
		if o == id {
			return true
		}
	}
	return false
}

func clone(list List) List {
	out := make(List, len(list), len(list)+1)
	copy(out, list)
	return out
}

// trim keeps the newest MaxEntries effects.
func trim(list List) List {
	if len(list) <= MaxEntries {
		return list
	}
	return list[len(list)-MaxEntries:]
}
