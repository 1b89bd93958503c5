package run

import (
	"strings"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/combat"
	"github.com/lawnchairsociety/cardcrawl/internal/economy"
	"github.com/lawnchairsociety/cardcrawl/internal/items"
	"github.com/lawnchairsociety/cardcrawl/internal/leveling"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

// Playstyle is the hero's opening perk.
type Playstyle string

const (
	Vanguard Playstyle = "VANGUARD" // sturdier body
	Swift    Playstyle = "SWIFT"    // wins initiative in the first fight
	Precise  Playstyle = "PRECISE"  // first action of the first fight crits
	Arcane   Playstyle = "ARCANE"   // larger mana pool
)

// Playstyles lists every playstyle.
var Playstyles = []Playstyle{Vanguard, Swift, Precise, Arcane}

// ParsePlaystyle reads a playstyle name. Unknown names are VANGUARD.
func ParsePlaystyle(s string) Playstyle {
	p := Playstyle(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case Vanguard, Swift, Precise, Arcane:
		return p
	default:
		return Vanguard
	}
}

// Starting hero block
const (
	baseHP  = 100
	baseMP  = 30
	baseAtk = 10
	baseDef = 5
	baseSpd = 10
	baseLuk = 10

	vanguardHP  = 20
	vanguardDef = 2
	arcaneMP    = 20
	heroName    = "Hero"
)

// Hero is the run-scoped player state.
type Hero struct {
	Unit      *combat.Unit
	Progress  *leveling.Progress
	Wallet    *economy.Wallet
	Bag       *items.Bag
	Playstyle Playstyle
}

// NewHero builds a fresh level 1 hero for a difficulty.
func NewHero(style Playstyle, d card.Difficulty) *Hero {
	u := &combat.Unit{
		Name:  heroName,
		HP:    baseHP,
		MaxHP: baseHP,
		MP:    baseMP,
		MaxMP: baseMP,
		Atk:   baseAtk,
		Def:   baseDef,
		Spd:   baseSpd,
		Luk:   baseLuk,
	}
	switch style {
	case Vanguard:
		u.MaxHP += vanguardHP
		u.HP = u.MaxHP
		u.Def += vanguardDef
	case Arcane:
		u.MaxMP += arcaneMP
		u.MP = u.MaxMP
	}
	bag := items.NewBag()
	bag.Add(items.Potion, 1)
	return &Hero{
		Unit:      u,
		Progress:  leveling.NewProgress(),
		Wallet:    economy.NewWallet(card.StarterGold(d)),
		Bag:       bag,
		Playstyle: style,
	}
}

// Score maps an ability onto the hero's current stats.
func (h *Hero) Score(a stats.Ability) int {
	u := h.Unit
	switch a {
	case stats.Strength:
		return u.Atk
	case stats.Dexterity:
		return u.Spd
	case stats.Constitution:
		return u.Def + 5
	case stats.Intelligence, stats.Wisdom:
		return 7 + u.MaxMP/10
	case stats.Luck:
		return u.EffectiveLuk()
	default:
		return 10
	}
}

// CheckModifier is the d20 modifier for an ability: the score modifier
// plus one per four levels.
func (h *Hero) CheckModifier(a stats.Ability) int {
	return stats.Modifier(h.Score(a)) + h.Progress.Level/4
}
