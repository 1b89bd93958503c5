package run

import (
	"context"
	"errors"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/combat"
	"github.com/lawnchairsociety/cardcrawl/internal/effects"
	"github.com/lawnchairsociety/cardcrawl/internal/items"
	"github.com/lawnchairsociety/cardcrawl/internal/leveling"
)

// maxAutopilotSteps bounds a playthrough; a run still open after this many
// operations is abandoned.
const maxAutopilotSteps = 5000

// Autopilot plays a run with a simple cautious policy. It is how the CLI
// demonstrates a dungeon and how balance sweeps gather telemetry.
type Autopilot struct {
	// HealBelow is the hp ratio under which potions are drunk.
	HealBelow float64
	// OnUpdate, when set, sees every update.
	OnUpdate func(Update)
}

// DefaultAutopilot heals below 40% hp.
func DefaultAutopilot() *Autopilot {
	return &Autopilot{HealBelow: 0.4}
}

// Play drives m until it ends and returns the settlement.
func (a *Autopilot) Play(ctx context.Context, m *Machine) (Settlement, error) {
	for step := 0; !m.Phase().Terminal(); step++ {
		if err := ctx.Err(); err != nil {
			return Settlement{}, err
		}
		if step >= maxAutopilotSteps {
			if _, err := m.Abandon(); err != nil {
				return Settlement{}, err
			}
			break
		}
		u, err := a.step(ctx, m)
		if err != nil {
			return Settlement{}, err
		}
		if a.OnUpdate != nil {
			a.OnUpdate(u)
		}
	}
	return m.Settle()
}

func (a *Autopilot) step(ctx context.Context, m *Machine) (Update, error) {
	rc := m.Context()
	h := rc.Hero
	switch rc.Phase {
	case PhaseEntry, PhaseReward:
		if h.Unit.HPRatio() < a.HealBelow && h.Bag.Count(items.Potion) > 0 && rc.Phase == PhaseReward {
			return m.UseItem(items.Potion)
		}
		return m.Confirm(ctx)
	case PhaseCombat:
		return m.CombatAction(ctx, a.combatAction(m))
	case PhaseTrap:
		c := rc.Card()
		ci := trapCheck(c, rc.Difficulty)
		// a d20 with modifier mod beats dc about (21+mod-dc)/20 of the time
		if 21+h.CheckModifier(ci.Stat)-ci.Difficulty >= 10 {
			return m.ResolveTrap(ctx, Disarm)
		}
		return m.ResolveTrap(ctx, Endure)
	case PhaseShrine:
		for _, opt := range rc.Card().ShrineOptions {
			if a.affordable(h, opt.Cost) {
				return m.ChooseShrine(opt.ID)
			}
		}
		return m.Leave()
	case PhaseLoot:
		return m.OpenChest()
	case PhaseEvent:
		opts := rc.Card().EventOptions
		if len(opts) == 0 {
			return m.Leave()
		}
		for _, opt := range opts {
			if opt.Check == nil && opt.Penalty.Kind == card.CostNone && opt.Reward.Kind != card.BoonNone {
				return m.ChooseEvent(ctx, opt.ID)
			}
		}
		for _, opt := range opts {
			if opt.Check != nil && h.Unit.HPRatio() >= 0.5 {
				return m.ChooseEvent(ctx, opt.ID)
			}
		}
		return m.ChooseEvent(ctx, opts[len(opts)-1].ID)
	case PhaseTrade:
		if h.Bag.Count(items.Potion) < 2 {
			for _, e := range rc.Card().TradeList {
				if e.ItemID == items.Potion && h.Wallet.CanAfford(e.Price) {
					return m.Buy(e.ItemID)
				}
			}
		}
		return m.Leave()
	case PhaseQuest:
		u, err := m.AcceptQuest()
		if errors.Is(err, ErrAlreadyOnQuest) {
			return m.Leave()
		}
		return u, err
	case PhaseDialogue:
		u, err := m.Talk()
		if errors.Is(err, ErrNothingToSay) {
			return m.Leave()
		}
		return u, err
	case PhaseRest:
		return m.Rest()
	case PhaseLevelUp:
		return m.ChooseUpgrade(ctx, a.upgrade(m.Offer(), h))
	case PhaseBranch:
		return m.ChooseBranch(ctx, a.branch(m))
	default:
		return m.Abandon()
	}
}

func (a *Autopilot) combatAction(m *Machine) combat.PlayerAction {
	h := m.Context().Hero
	enc := m.Encounter()
	if h.Unit.HPRatio() < a.HealBelow {
		for _, id := range []string{items.HiPotion, items.Potion, items.Elixir} {
			if h.Bag.Count(id) > 0 {
				return combat.PlayerAction{Kind: combat.ActItem, Item: id}
			}
		}
	}
	if effects.Has(h.Unit.Effects, effects.Poison) && h.Bag.Count(items.Antidote) > 0 {
		return combat.PlayerAction{Kind: combat.ActItem, Item: items.Antidote}
	}
	best, bestFactor := combat.Skill{}, 1.0
	for _, s := range combat.Skills() {
		if s.Cost > h.Unit.MP {
			continue
		}
		f := s.Mul * combat.ElementFactor(s.Element, enc.Enemy.Tags)
		if f > bestFactor {
			best, bestFactor = s, f
		}
	}
	if best.ID != "" {
		return combat.PlayerAction{Kind: combat.ActSkill, Skill: best.ID}
	}
	return combat.PlayerAction{Kind: combat.ActAttack}
}

func (a *Autopilot) affordable(h *Hero, c card.Cost) bool {
	switch c.Kind {
	case card.CostNone:
		return true
	case card.CostGold:
		return h.Wallet.CanAfford(c.Value)
	case card.CostHP:
		return h.Unit.HP > 2*c.Value
	case card.CostMaxHP:
		return h.Unit.MaxHP > 4*c.Value
	default:
		return false
	}
}

func (a *Autopilot) upgrade(offer []leveling.Upgrade, h *Hero) int {
	if h.Unit.HPRatio() < 0.5 {
		for i, up := range offer {
			if up.ID == leveling.Recovery || up.ID == leveling.Vitality {
				return i
			}
		}
	}
	for i, up := range offer {
		if up.ID == leveling.Power {
			return i
		}
	}
	return 0
}

// branch prefers supportive rooms while hurt and fights otherwise.
func (a *Autopilot) branch(m *Machine) int {
	rc := m.Context()
	opts := m.BranchOptions()
	hurt := rc.Hero.Unit.HPRatio() < 0.6
	for i, room := range opts {
		c := rc.Graph.Card(room)
		if c == nil {
			continue
		}
		if hurt == c.Category.IsSupportive() {
			return i
		}
	}
	return 0
}
