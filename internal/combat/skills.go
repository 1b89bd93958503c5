package combat

import (
	"strings"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/effects"
)

// SkillID names a hero skill.
type SkillID string

const (
	PowerStrike SkillID = "POWER_STRIKE"
	Firebolt    SkillID = "FIREBOLT"
	Smite       SkillID = "SMITE"
	Shock       SkillID = "SHOCK"
)

// Skill is a costed attack with an optional rider.
type Skill struct {
	ID      SkillID
	Name    string
	Cost    int
	Mul     float64
	Element card.Element
	OnHit   *OnHit
}

var skills = map[SkillID]Skill{
	PowerStrike: {ID: PowerStrike, Name: "Power Strike", Cost: 5, Mul: 1.6, Element: card.Physical},
	Firebolt: {ID: Firebolt, Name: "Firebolt", Cost: 6, Mul: 1.3, Element: card.Fire,
		OnHit: &OnHit{Status: effects.Burn, Chance: 0.6, Stacks: 1, Turns: 3}},
	Smite: {ID: Smite, Name: "Smite", Cost: 7, Mul: 1.4, Element: card.Holy},
	Shock: {ID: Shock, Name: "Shock", Cost: 8, Mul: 1.2, Element: card.Lightning,
		OnHit: &OnHit{Status: effects.Stun, Chance: 0.3, Stacks: 1, Turns: 1}},
}

// LookupSkill finds a skill by id, case-insensitively.
func LookupSkill(id string) (Skill, bool) {
	s, ok := skills[SkillID(strings.ToUpper(strings.TrimSpace(id)))]
	return s, ok
}

// Skills lists every skill in a fixed order.
func Skills() []Skill {
	return []Skill{skills[PowerStrike], skills[Firebolt], skills[Smite], skills[Shock]}
}
