// Package combat resolves one turn-based fight between the hero and an enemy.
package combat

import (
	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/effects"
	"github.com/lawnchairsociety/cardcrawl/internal/logger"
)

// OnHit is a status an attack may inflict on the target.
type OnHit struct {
	Status effects.ID
	Chance float64
	Stacks int
	Turns  int
}

// Unit is one combatant.
type Unit struct {
	Name    string
	HP      int
	MaxHP   int
	MP      int
	MaxMP   int
	Atk     int
	Def     int
	Spd     int
	Luk     int
	Tags    []card.Tag
	Effects effects.List
	Element card.Element
	OnHit   *OnHit

	// set after a stun skip so the unit acts once before it can be stunned again
	stunGuard bool
}

// Clamp records one invariant repair.
type Clamp struct {
	Unit  string
	Field string
	From  int
	To    int
}

// Clamp restores 0 <= hp <= maxHp and 0 <= mp <= maxMp and non-negative
// stats, returning every repair it made.
func (u *Unit) Clamp() []Clamp {
	var out []Clamp
	fix := func(field string, v *int, lo, hi int) {
		was := *v
		if *v < lo {
			*v = lo
		}
		if *v > hi {
			*v = hi
		}
		if *v != was {
			out = append(out, Clamp{Unit: u.Name, Field: field, From: was, To: *v})
		}
	}
	const unbounded = int(^uint(0) >> 1)
	fix("max_hp", &u.MaxHP, 1, unbounded)
	fix("max_mp", &u.MaxMP, 0, unbounded)
	fix("hp", &u.HP, 0, u.MaxHP)
	fix("mp", &u.MP, 0, u.MaxMP)
	fix("atk", &u.Atk, 0, unbounded)
	fix("def", &u.Def, 0, unbounded)
	fix("spd", &u.Spd, 0, unbounded)
	for _, c := range out {
		logger.Warning("invariant clamped", "unit", c.Unit, "field", c.Field, "from", c.From, "to", c.To)
	}
	return out
}

// Alive reports whether the unit can still fight.
func (u *Unit) Alive() bool {
	return u.HP > 0
}

// HPRatio returns hp/maxHp.
func (u *Unit) HPRatio() float64 {
	if u.MaxHP <= 0 {
		return 0
	}
	return float64(u.HP) / float64(u.MaxHP)
}

// TakeDamage removes up to n hp and returns the amount removed.
func (u *Unit) TakeDamage(n int) int {
	if n <= 0 {
		return 0
	}
	if n > u.HP {
		n = u.HP
	}
	u.HP -= n
	return n
}

// Heal restores up to n hp and returns the amount restored.
func (u *Unit) Heal(n int) int {
	if n <= 0 || u.HP >= u.MaxHP {
		return 0
	}
	if u.HP+n > u.MaxHP {
		n = u.MaxHP - u.HP
	}
	u.HP += n
	return n
}

// RestoreMP restores up to n mp and returns the amount restored.
func (u *Unit) RestoreMP(n int) int {
	if n <= 0 || u.MP >= u.MaxMP {
		return 0
	}
	if u.MP+n > u.MaxMP {
		n = u.MaxMP - u.MP
	}
	u.MP += n
	return n
}

// Afflict adds a status to the unit. Stun is refused right after the unit
// lost a turn to it.
func (u *Unit) Afflict(id effects.ID, stacks, turns int) bool {
	if id == effects.Stun && u.stunGuard {
		return false
	}
	u.Effects = effects.Upsert(u.Effects, id, effects.Patch{Stacks: stacks, Turns: turns})
	return true
}

// EffectiveLuk is luck after curses.
func (u *Unit) EffectiveLuk() int {
	return u.Luk - 5*effects.Stacks(u.Effects, effects.Curse)
}

// EnemyFromCard builds a combatant from normalized card data. The first
// STATUS_ tag naming a known effect becomes the enemy's on-hit status.
func EnemyFromCard(c *card.CardData) *Unit {
	s := card.Stats{HP: 1}
	if c.Stats != nil {
		s = *c.Stats
	}
	u := FromStats(c.Name, s, c.Tags)
	for _, t := range c.Tags {
		if t.Namespace != card.NSStatus {
			continue
		}
		if id, ok := effects.ParseID(t.Value); ok && id.IsDebuff() {
			u.OnHit = &OnHit{Status: id, Chance: 0.3, Stacks: 1, Turns: 3}
			break
		}
	}
	return u
}

// FromStats builds a combatant with average luck.
func FromStats(name string, s card.Stats, tags []card.Tag) *Unit {
	return &Unit{
		Name:    name,
		HP:      s.HP,
		MaxHP:   s.HP,
		Atk:     s.Atk,
		Def:     s.Def,
		Spd:     s.Spd,
		Luk:     10,
		Tags:    tags,
		Element: card.AttrElement(tags),
	}
}
