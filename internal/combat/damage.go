package combat

import (
	"math"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

const (
	critMultiplier   = 1.5
	weakAtkFactor    = 0.75
	defendReduction  = 0.5
	shieldReduction  = 0.3
	blindMissChance  = 0.35
	confusionChance  = 0.35
	initiativeJitter = 5
)

// Hit is one damage calculation.
type Hit struct {
	Atk       int
	Mul       float64
	Def       int
	Luk       int
	Weak      bool
	Reduction float64
	Element   card.Element
	ForceCrit bool
}

// CritChance is the critical-hit probability for a luck score.
func CritChance(luk int) float64 {
	return clamp(0.05+float64(luk-10)*0.005, 0.05, 0.25)
}

// FleeChance is the probability that the hero escapes.
func FleeChance(heroSpd, enemySpd int) float64 {
	return clamp(0.35+float64(heroSpd-enemySpd)*0.02, 0.1, 0.85)
}

// ElementFactor is the multiplier an element gets against a tag set.
// Immunity wins over weakness, weakness over resistance.
func ElementFactor(e card.Element, tags []card.Tag) float64 {
	switch {
	case card.HasTag(tags, card.ImmuneTo(e)):
		return 0
	case card.HasTag(tags, card.WeakTo(e)):
		return 1.7
	case card.HasTag(tags, card.ResistTo(e)):
		return 0.5
	case e == card.Holy && card.HasTag(tags, card.TagUndead):
		return 1.5
	case e == card.Lightning && card.HasTag(tags, card.TagConstruct):
		return 1.5
	default:
		return 1
	}
}

// Damage resolves h against a target with the given tags. The crit roll is
// always drawn unless forced, so a seed replays the same sequence. Immune
// targets take 0; everything else takes at least 1.
func Damage(h Hit, targetTags []card.Tag, src stats.Source) (int, bool) {
	atk := float64(h.Atk)
	if h.Weak {
		atk *= weakAtkFactor
	}
	raw := atk*h.Mul - float64(h.Def)*0.5
	dmg := math.Max(1, math.Round(raw))

	crit := h.ForceCrit || stats.Chance(src, CritChance(h.Luk))
	if crit {
		dmg *= critMultiplier
	}

	factor := ElementFactor(h.Element, targetTags)
	if factor == 0 {
		return 0, crit
	}
	dmg *= (1 - clamp(h.Reduction, 0, 1)) * factor
	return max(1, int(math.Round(dmg))), crit
}

// combineReduction stacks independent reductions multiplicatively.
func combineReduction(rs ...float64) float64 {
	keep := 1.0
	for _, r := range rs {
		keep *= 1 - clamp(r, 0, 1)
	}
	return 1 - keep
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
