package run

import (
	"context"
	"fmt"
	"time"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/combat"
	"github.com/lawnchairsociety/cardcrawl/internal/logger"
)

// startCombat opens a fight. rewards are paid on victory.
func (m *Machine) startCombat(enemy *combat.Unit, actions []card.Action, rewards *card.Rewards) {
	rc := m.ctx
	enc, err := combat.NewEncounter(rc.Hero.Unit, enemy, actions, combat.Options{
		FirstStrike: rc.FirstStrike,
		OpeningCrit: rc.OpeningCrit,
		Bag:         rc.Hero.Bag,
		Catalog:     m.opts.Catalog,
	}, m.src)
	if err != nil {
		// hero and enemy are never nil here
		logger.Error("Failed to start encounter", "run_id", rc.ID, "room", rc.Room, "error", err)
		m.toReward(nil)
		return
	}
	rc.FirstStrike = false
	rc.OpeningCrit = false
	rc.Telemetry.CombatsStarted++
	m.enc = enc
	m.encRewards = rewards
	m.setPhase(PhaseCombat)
	m.logf("%s attacks!", enemy.Name)
	m.absorb(enc.Start())
}

// CombatAction plays one hero action and the enemy's reply. The optional
// enemy turn delay is waited out first and honors ctx.
func (m *Machine) CombatAction(ctx context.Context, a combat.PlayerAction) (Update, error) {
	if err := m.require(PhaseCombat); err != nil {
		return Update{}, err
	}
	if err := m.pause(ctx); err != nil {
		return Update{}, err
	}
	rep, err := m.enc.Act(a)
	if err != nil {
		return Update{}, err
	}
	m.absorb(rep)
	return m.flush(), nil
}

func (m *Machine) pause(ctx context.Context) error {
	d := m.opts.EnemyTurnDelay
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// absorb records a combat report and settles the fight if it ended.
func (m *Machine) absorb(rep combat.Report) {
	for _, ev := range rep.Events {
		m.pending.Combat = append(m.pending.Combat, ev)
		if line := describe(ev); line != "" {
			m.logf("%s", line)
		}
	}
	if rep.Phase == combat.PhaseResolved {
		m.finishCombat(rep.Outcome)
	}
}

func (m *Machine) finishCombat(o combat.Outcome) {
	rc := m.ctx
	t := m.enc.Totals()
	rc.Telemetry.Turns += t.Turns
	rc.Telemetry.DamageDealt += t.DamageDealt
	rc.Telemetry.DamageTaken += t.DamageTaken
	rc.Telemetry.Crits += t.Crits
	rc.Telemetry.SkillsUsed += t.SkillsUsed
	rc.Telemetry.ItemsUsed += t.ItemsUsed
	rc.Telemetry.InvariantClamps += len(t.Clamps)
	rewards := m.encRewards
	m.enc = nil
	m.encRewards = nil

	switch o {
	case combat.Victory:
		rc.Telemetry.CombatsWon++
		m.logf("Victory!")
		summary := &RewardSummary{}
		m.completeQuests(card.QuestDefeat, summary)
		m.toRewardWith(rewards, summary)
	case combat.Fled:
		rc.Telemetry.CombatsFled++
		m.logf("You escape.")
		m.toReward(nil)
	default:
		m.checkDeath()
		if rc.Phase != PhaseDead {
			m.invariant("hp", rc.Hero.Unit.HP, 0)
			rc.Hero.Unit.HP = 0
			m.setPhase(PhaseDead)
		}
	}
}

func describe(ev combat.Event) string {
	switch ev.Kind {
	case combat.EventInitiative:
		return fmt.Sprintf("%s moves first.", ev.Actor)
	case combat.EventAttack, combat.EventSkill:
		verb := "hits"
		if ev.Message != "" {
			verb = "uses " + ev.Message + " on"
		}
		crit := ""
		if ev.Crit {
			crit = " Critical!"
		}
		return fmt.Sprintf("%s %s %s for %d.%s", ev.Actor, verb, ev.Target, ev.Amount, crit)
	case combat.EventMiss:
		return fmt.Sprintf("%s misses.", ev.Actor)
	case combat.EventConfused:
		return fmt.Sprintf("%s stumbles in confusion.", ev.Actor)
	case combat.EventStunned:
		return fmt.Sprintf("%s is stunned.", ev.Actor)
	case combat.EventDefend:
		return fmt.Sprintf("%s braces.", ev.Actor)
	case combat.EventHeal, combat.EventRegen:
		return fmt.Sprintf("%s recovers %d hp.", ev.Actor, ev.Amount)
	case combat.EventBuff:
		return fmt.Sprintf("%s grows stronger.", ev.Actor)
	case combat.EventStatus:
		return fmt.Sprintf("%s is afflicted with %s.", ev.Target, ev.Status)
	case combat.EventDOT:
		return fmt.Sprintf("%s takes %d damage from ailments.", ev.Actor, ev.Amount)
	case combat.EventItem:
		return fmt.Sprintf("%s uses %s.", ev.Actor, ev.Message)
	case combat.EventFlee:
		return ""
	case combat.EventFleeFailed:
		return fmt.Sprintf("%s fails to escape.", ev.Actor)
	case combat.EventDefeated:
		return fmt.Sprintf("%s is defeated.", ev.Actor)
	default:
		return ev.Message
	}
}
