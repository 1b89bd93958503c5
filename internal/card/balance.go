package card

import "math"

// Baseline is the per-tier reference enemy every envelope is measured against.
func Baseline(d Difficulty) Stats {
	switch d {
	case Easy:
		return Stats{HP: 30, Atk: 6, Def: 2, Spd: 8}
	case Hard:
		return Stats{HP: 65, Atk: 13, Def: 6, Spd: 12}
	case Nightmare:
		return Stats{HP: 90, Atk: 18, Def: 9, Spd: 14}
	default:
		return Stats{HP: 45, Atk: 9, Def: 4, Spd: 10}
	}
}

// StarterGold is the dungeon-local gold a hero enters with.
func StarterGold(d Difficulty) int {
	return [...]int{120, 100, 80, 60}[d.Index()]
}

// MaxRewardGold caps a single room's gold reward.
func MaxRewardGold(d Difficulty) int {
	return [...]int{150, 200, 260, 340}[d.Index()]
}

// MaxTradePrice caps a trader's price.
func MaxTradePrice(d Difficulty) int {
	return 3 * StarterGold(d)
}

// MaxRewardXP caps a single room's xp reward.
const MaxRewardXP = 360

// TrapDC returns the tier's trap difficulty-class range and default.
func TrapDC(d Difficulty) (lo, hi, def int) {
	switch d {
	case Easy:
		return 8, 12, 10
	case Hard:
		return 12, 16, 14
	case Nightmare:
		return 14, 18, 16
	default:
		return 10, 14, 12
	}
}

// TrapDamage is the default trap damage dice per tier.
func TrapDamage(d Difficulty) string {
	return [...]string{"1d6+1", "2d6", "2d8+2", "3d8+3"}[d.Index()]
}

type multiplier struct{ hp, atk, def float64 }

func categoryMultiplier(c Category) multiplier {
	switch c {
	case EnemySquad:
		return multiplier{1.6, 0.9, 1}
	case EnemyBoss:
		return multiplier{4.0, 1.4, 1.2}
	default:
		return multiplier{1, 1, 1}
	}
}

func gradeMultiplier(g Grade) multiplier {
	switch g {
	case GradeElite:
		return multiplier{1.6, 1.3, 1.2}
	case GradeEpic:
		return multiplier{1.9, 1.45, 1.25}
	case GradeLegendary:
		return multiplier{2.3, 1.6, 1.35}
	default:
		return multiplier{1, 1, 1}
	}
}

// DefaultStats synthesizes enemy stats from the tier baseline.
func DefaultStats(c Category, g Grade, d Difficulty) Stats {
	base := Baseline(d)
	cm, gm := categoryMultiplier(c), gradeMultiplier(g)
	return Stats{
		HP:  round(float64(base.HP) * cm.hp * gm.hp),
		Atk: round(float64(base.Atk) * cm.atk * gm.atk),
		Def: round(float64(base.Def) * cm.def * gm.def),
		Spd: base.Spd,
	}
}

type span struct{ lo, hi float64 }

// envelope holds baseline multiples a combat stat may take.
type envelope struct{ hp, atk, def, spd span }

func envelopeFor(c Category) envelope {
	switch c {
	case EnemySquad:
		return envelope{span{0.6, 4.2}, span{0.3, 2.0}, span{0, 2.5}, span{0.3, 2.0}}
	case EnemyBoss:
		return envelope{span{2.2, 6.5}, span{0.8, 2.6}, span{0.5, 3.0}, span{0.5, 2.2}}
	default:
		return envelope{span{0.25, 2.6}, span{0.1, 2.2}, span{0, 2.5}, span{0.3, 2.0}}
	}
}

// ClampStats pulls s into the category envelope for the tier. hp is at least
// 1 and the other stats at least 0 whatever the envelope says.
func ClampStats(s Stats, c Category, d Difficulty) Stats {
	base := Baseline(d)
	env := envelopeFor(c)
	return Stats{
		HP:  max(1, clampSpan(s.HP, base.HP, env.hp)),
		Atk: max(0, clampSpan(s.Atk, base.Atk, env.atk)),
		Def: max(0, clampSpan(s.Def, base.Def, env.def)),
		Spd: max(0, clampSpan(s.Spd, base.Spd, env.spd)),
	}
}

func clampSpan(v, base int, sp span) int {
	lo := round(float64(base) * sp.lo)
	hi := round(float64(base) * sp.hi)
	return clampInt(v, lo, hi)
}

// round saturates at the int32 range so oversized input clamps the same way
// on every platform. NaN rounds to 0.
func round(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	return int(math.Round(clampFloat(f, math.MinInt32, math.MaxInt32)))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
