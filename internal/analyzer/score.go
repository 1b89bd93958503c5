package analyzer

import (
	"math"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

// Slot flags.
const (
	FlagElite     = "ELITE"
	FlagElemental = "ELEMENTAL"
	FlagMimic     = "MIMIC"
	FlagStatus    = "INFLICTS_STATUS"
	FlagHighRisk  = "HIGH_RISK"
	FlagRecovery  = "RECOVERY"
	FlagRich      = "RICH"
)

// base is a category's starting risk, reward and sustain.
type base struct{ risk, reward, sustain float64 }

var categoryBase = map[card.Category]base{
	card.EnemySingle:   {35, 20, 0},
	card.EnemySquad:    {50, 30, 0},
	card.EnemyBoss:     {80, 60, 0},
	card.TrapInstant:   {30, 5, 0},
	card.TrapRoom:      {40, 15, 0},
	card.LootChest:     {5, 45, 5},
	card.Shrine:        {15, 35, 10},
	card.EventChoice:   {20, 25, 5},
	card.NPCTrader:     {0, 20, 25},
	card.NPCQuest:      {5, 30, 0},
	card.NPCDialogue:   {0, 5, 10},
	card.RestCampfire:  {0, 5, 40},
	card.RestSpring:    {0, 5, 35},
	card.RestSanctuary: {0, 10, 60},
}

// timeRange is a rough seconds-to-resolve band per category.
var timeRange = map[card.Category][2]int{
	card.EnemySingle:   {45, 90},
	card.EnemySquad:    {60, 120},
	card.EnemyBoss:     {120, 240},
	card.TrapInstant:   {10, 20},
	card.TrapRoom:      {15, 30},
	card.LootChest:     {10, 25},
	card.Shrine:        {15, 40},
	card.EventChoice:   {20, 45},
	card.NPCTrader:     {20, 60},
	card.NPCQuest:      {15, 30},
	card.NPCDialogue:   {15, 40},
	card.RestCampfire:  {10, 20},
	card.RestSpring:    {10, 20},
	card.RestSanctuary: {10, 20},
}

// SlotScore is one slot's scored content.
type SlotScore struct {
	Step     int           `json:"step"`
	Slot     int           `json:"slot"`
	Name     string        `json:"name"`
	Category card.Category `json:"category"`
	Risk     int           `json:"risk"`
	Reward   int           `json:"reward"`
	Sustain  int           `json:"sustain"`
	Flags    []string      `json:"flags,omitempty"`
}

func scoreSlot(c *card.CardData, d card.Difficulty) SlotScore {
	b := categoryBase[c.Category]
	risk, reward, sustain := b.risk, b.reward, b.sustain
	var flags []string

	switch {
	case c.Category.IsCombat():
		risk += statModifier(c, d)
	case c.Category.IsTrap():
		risk += trapModifier(c, d)
	}

	tr, tf := tagModifier(c)
	risk += tr
	flags = append(flags, tf...)

	switch c.Grade {
	case card.GradeElite:
		risk, reward = risk+8, reward+5
	case card.GradeEpic:
		risk, reward = risk+14, reward+10
	case card.GradeLegendary:
		risk, reward = risk+20, reward+15
	}
	if c.Grade != card.GradeNormal && c.Grade != card.GradeBoss && c.Grade != "" {
		flags = append(flags, FlagElite)
	}

	rw := rewardModifier(c.Rewards, d)
	reward += rw
	sustain += sustainModifier(c)

	out := SlotScore{
		Name:     c.Name,
		Category: c.Category,
		Risk:     clampScore(risk),
		Reward:   clampScore(reward),
		Sustain:  clampScore(sustain),
	}
	if out.Risk >= 70 {
		flags = append(flags, FlagHighRisk)
	}
	if out.Sustain >= 30 {
		flags = append(flags, FlagRecovery)
	}
	if rw >= 20 {
		flags = append(flags, FlagRich)
	}
	out.Flags = flags
	return out
}

// statModifier compares an enemy's stats to the default for its category,
// grade and tier. The grade itself is scored separately.
func statModifier(c *card.CardData, d card.Difficulty) float64 {
	if c.Stats == nil {
		return 0
	}
	ref := card.DefaultStats(c.Category, c.Grade, d)
	power := 0.5*ratio(c.Stats.HP, ref.HP) + 0.35*ratio(c.Stats.Atk, ref.Atk) + 0.15*ratio(c.Stats.Def, ref.Def)
	return clampFloat((power-1)*30, -20, 30)
}

func trapModifier(c *card.CardData, d card.Difficulty) float64 {
	if c.CheckInfo == nil {
		return 0
	}
	_, _, def := card.TrapDC(d)
	mod := float64(c.CheckInfo.Difficulty-def) * 3
	if got, ok := stats.ParseDice(c.CheckInfo.Damage); ok {
		if want, ok := stats.ParseDice(card.TrapDamage(d)); ok && want.Average() > 0 {
			mod += (got.Average()/want.Average() - 1) * 10
		}
	}
	return clampFloat(mod, -15, 20)
}

func tagModifier(c *card.CardData) (risk float64, flags []string) {
	elemental := false
	for _, t := range c.Tags {
		switch t.Namespace {
		case card.NSAttr:
			if card.ParseElement(t.Value) != card.Physical {
				risk += 3
				elemental = true
			}
		case card.NSImmune:
			risk += 4
		case card.NSResist:
			risk += 2
		case card.NSWeak:
			risk -= 2
		case card.NSStatus:
			if c.Category.IsCombat() {
				risk += 4
				flags = appendOnce(flags, FlagStatus)
			}
		}
	}
	if elemental {
		flags = append(flags, FlagElemental)
	}
	if c.Category == card.LootChest && c.Mimic != nil {
		risk += 10 + 40*c.Mimic.Chance
		flags = append(flags, FlagMimic)
	}
	return risk, flags
}

func rewardModifier(r *card.Rewards, d card.Difficulty) float64 {
	if r == nil {
		return 0
	}
	mod := r.Gold.Mean() / float64(card.MaxRewardGold(d)) * 30
	mod += float64(r.XP) / card.MaxRewardXP * 20
	for _, it := range r.Items {
		mod += 8 * it.Rate
	}
	return mod
}

func sustainModifier(c *card.CardData) float64 {
	var mod float64
	switch c.Category {
	case card.NPCTrader:
		mod += float64(len(c.TradeList))
	case card.Shrine:
		for _, o := range c.ShrineOptions {
			if o.Reward.Kind == card.BoonHeal || o.Reward.Kind == card.BoonMaxHP {
				mod += 5
			}
		}
	case card.EventChoice:
		for _, o := range c.EventOptions {
			if o.Reward.Kind == card.BoonHeal {
				mod += 5
			}
		}
	}
	return mod
}

func ratio(v, ref int) float64 {
	if ref <= 0 {
		return 1
	}
	return float64(v) / float64(ref)
}

func clampScore(v float64) int {
	return int(math.Round(clampFloat(v, 0, 100)))
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func appendOnce(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
