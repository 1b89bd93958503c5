package run

import (
	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

func (m *Machine) toReward(r *card.Rewards) {
	m.toRewardWith(r, &RewardSummary{})
}

// toRewardWith pays a room's rewards on top of summary and opens REWARD.
// Gold pays down debt before it counts, drops are rolled one by one and xp
// may queue level-ups.
func (m *Machine) toRewardWith(r *card.Rewards, summary *RewardSummary) {
	if r != nil {
		m.creditGold(m.rollGold(r.Gold), summary)
		for _, drop := range r.Items {
			if stats.Chance(m.src, drop.Rate) {
				m.ctx.Hero.Bag.Add(drop.ID, 1)
				summary.Items = append(summary.Items, drop.ID)
			}
		}
		m.grantXP(r.XP, summary)
	}
	if len(summary.Items) > 0 {
		m.logf("You find %d item(s).", len(summary.Items))
	}
	m.pending.Reward = summary
	m.setPhase(PhaseReward)
}

func (m *Machine) rollGold(g card.GoldRange) int {
	if g.Max <= g.Min {
		return max(0, g.Min)
	}
	return g.Min + m.src.Intn(g.Max-g.Min+1)
}

func (m *Machine) creditGold(n int, summary *RewardSummary) {
	if n <= 0 {
		return
	}
	paid, credited := m.ctx.Hero.Wallet.Credit(n)
	summary.Gold += n
	summary.DebtPaid += paid
	summary.Credited += credited
	m.ctx.Telemetry.GoldEarned += credited
	m.ctx.Telemetry.DebtPaid += paid
	if paid > 0 {
		m.logf("You gain %d gold, %d of it settles your debt.", n, paid)
	} else {
		m.logf("You gain %d gold.", n)
	}
}

func (m *Machine) grantXP(n int, summary *RewardSummary) {
	if n <= 0 {
		return
	}
	h := m.ctx.Hero
	ups := h.Progress.Grant(n, h.Unit)
	summary.XP += n
	summary.LevelUps = append(summary.LevelUps, ups...)
	m.ctx.Telemetry.XPEarned += n
	m.ctx.Telemetry.LevelUps += len(ups)
	m.logf("You gain %d xp.", n)
	for _, up := range ups {
		m.logf("You reach level %d!", up.NewLevel)
	}
}

// completeQuests advances quests with the given objective and pays those
// that finish. A nil summary is reported as its own reward.
func (m *Machine) completeQuests(obj card.QuestObjective, summary *RewardSummary) {
	own := summary == nil
	if own {
		summary = &RewardSummary{}
	}
	for _, q := range m.ctx.Quests {
		if q.Done || q.Objective != obj {
			continue
		}
		q.Progress++
		if q.Progress < q.Target {
			continue
		}
		q.Done = true
		m.ctx.Telemetry.QuestsCompleted++
		m.logf("Quest for %s complete.", q.Giver)
		m.creditGold(q.RewardGold, summary)
		m.grantXP(q.RewardXP, summary)
		summary.Completed = append(summary.Completed, q.CardID)
	}
	if own && len(summary.Completed) > 0 {
		m.pending.Reward = summary
	}
}
