package leveling

import (
	"errors"

	"github.com/lawnchairsociety/cardcrawl/internal/combat"
	"github.com/lawnchairsociety/cardcrawl/internal/effects"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

var (
	ErrNoPendingLevelUp = errors.New("no level-up pending")
	ErrInvalidChoice    = errors.New("invalid upgrade choice")
)

// OfferSize is how many upgrades a level-up presents.
const OfferSize = 3

// UpgradeID names a level-up option.
type UpgradeID string

const (
	Power    UpgradeID = "POWER"
	Guard    UpgradeID = "GUARD"
	Agility  UpgradeID = "AGILITY"
	Fortune  UpgradeID = "FORTUNE"
	Vitality UpgradeID = "VITALITY"
	Focus    UpgradeID = "FOCUS"
	Recovery UpgradeID = "RECOVERY"
)

// Upgrade is one permanent-for-the-run improvement.
type Upgrade struct {
	ID          UpgradeID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// Pool is the fixed upgrade pool in presentation order.
var Pool = []Upgrade{
	{Power, "Power", "+2 attack"},
	{Guard, "Guard", "+2 defense"},
	{Agility, "Agility", "+2 speed"},
	{Fortune, "Fortune", "+3 luck"},
	{Vitality, "Vitality", "+15 max hp"},
	{Focus, "Focus", "+8 max mp"},
	{Recovery, "Recovery", "Heal half your hp and cleanse ailments"},
}

// Apply changes the unit.
func (up Upgrade) Apply(u *combat.Unit) {
	switch up.ID {
	case Power:
		u.Atk += 2
	case Guard:
		u.Def += 2
	case Agility:
		u.Spd += 2
	case Fortune:
		u.Luk += 3
	case Vitality:
		u.MaxHP += 15
		u.Heal(15)
	case Focus:
		u.MaxMP += 8
		u.RestoreMP(8)
	case Recovery:
		u.Heal(u.MaxHP / 2)
		u.Effects = effects.Cleanse(u.Effects)
	}
}

// Offer returns the current choice set, drawing a fresh one from src when
// a credit is pending and none is showing. It returns nil with no credits.
func (p *Progress) Offer(src stats.Source) []Upgrade {
	if p.Pending <= 0 {
		p.offer = nil
		return nil
	}
	if p.offer == nil {
		p.offer = sample(src, OfferSize)
	}
	out := make([]Upgrade, len(p.offer))
	copy(out, p.offer)
	return out
}

// Choose applies option i of the current offer and consumes one credit.
// Another offer is rolled if credits remain.
func (p *Progress) Choose(i int, u *combat.Unit, src stats.Source) (Upgrade, error) {
	if p.Pending <= 0 {
		return Upgrade{}, ErrNoPendingLevelUp
	}
	offer := p.Offer(src)
	if i < 0 || i >= len(offer) {
		return Upgrade{}, ErrInvalidChoice
	}
	up := offer[i]
	up.Apply(u)
	p.Pending--
	p.offer = nil
	p.Offer(src)
	return up, nil
}

// sample draws n upgrades without replacement.
func sample(src stats.Source, n int) []Upgrade {
	idx := make([]int, len(Pool))
	for i := range idx {
		idx[i] = i
	}
	out := make([]Upgrade, 0, n)
	for k := 0; k < n && k < len(idx); k++ {
		j := k + src.Intn(len(idx)-k)
		idx[k], idx[j] = idx[j], idx[k]
		out = append(out, Pool[idx[k]])
	}
	return out
}
