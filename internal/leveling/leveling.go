// Package leveling implements the run-scoped xp curve and the level-up
// choice queue.
package leveling

import (
	"github.com/lawnchairsociety/cardcrawl/internal/combat"
)

// Leveling constants
const (
	MaxHeroLevel = 50
	HPPerLevel   = 12
	MPPerLevel   = 6
)

// XPToNextLevel returns the xp needed to go from level to level+1.
// The curve is linear: 60 + (level-1)*30.
func XPToNextLevel(level int) int {
	if level >= MaxHeroLevel {
		return 0
	}
	if level < 1 {
		level = 1
	}
	return 60 + (level-1)*30
}

// XPForLevel returns the total xp needed to reach a level from level 1.
func XPForLevel(level int) int {
	total := 0
	for l := 1; l < level && l < MaxHeroLevel; l++ {
		total += XPToNextLevel(l)
	}
	return total
}

// LevelUpInfo contains information about a level-up event
type LevelUpInfo struct {
	NewLevel int
	HPGain   int
	MPGain   int
}

// Progress is the hero's level, xp toward the next level and unspent
// level-up credits.
type Progress struct {
	Level   int `json:"level"`
	XP      int `json:"xp"`
	Pending int `json:"pending"`

	offer []Upgrade
}

// NewProgress starts at level 1.
func NewProgress() *Progress {
	return &Progress{Level: 1}
}

// Grant adds xp and resolves every level it reaches, in order. Each level
// raises the unit's pools; the unit is fully healed once per grant that
// levels, not once per level.
func (p *Progress) Grant(xp int, u *combat.Unit) []LevelUpInfo {
	if xp <= 0 || p.Level >= MaxHeroLevel {
		return nil
	}
	p.XP += xp
	var ups []LevelUpInfo
	for p.Level < MaxHeroLevel && p.XP >= XPToNextLevel(p.Level) {
		p.XP -= XPToNextLevel(p.Level)
		p.Level++
		p.Pending++
		u.MaxHP += HPPerLevel
		u.MaxMP += MPPerLevel
		ups = append(ups, LevelUpInfo{NewLevel: p.Level, HPGain: HPPerLevel, MPGain: MPPerLevel})
	}
	if p.Level >= MaxHeroLevel {
		p.XP = 0
	}
	if len(ups) > 0 {
		u.HP = u.MaxHP
		u.MP = u.MaxMP
	}
	return ups
}

// XPToNext returns the xp still missing for the next level.
func (p *Progress) XPToNext() int {
	return max(0, XPToNextLevel(p.Level)-p.XP)
}
