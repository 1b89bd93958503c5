package run

import (
	"context"
	"fmt"
	"strings"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/combat"
	"github.com/lawnchairsociety/cardcrawl/internal/effects"
	"github.com/lawnchairsociety/cardcrawl/internal/items"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

// TrapChoice is how the hero deals with a room trap.
type TrapChoice string

const (
	Disarm TrapChoice = "DISARM" // ability check, full damage on failure
	Endure TrapChoice = "ENDURE" // take half damage, no check
)

const (
	curseTurns     = 10
	sanctuaryWard  = 3
	blessingDivide = 4 // dialogue blessings heal a quarter of max hp
)

// TagBlessing marks dialogue NPCs that bless the hero once they are heard.
var TagBlessing = card.Tag{Namespace: card.NSLogic, Value: "BLESS"}

func (m *Machine) check(ctx context.Context, c *card.CardData, ci *card.CheckInfo, choice string) Verdict {
	rc := m.ctx
	req := CheckRequest{
		RunID:    rc.ID,
		Room:     rc.Room,
		CardName: c.Name,
		Stat:     ci.Stat,
		DC:       ci.Difficulty,
		Modifier: rc.Hero.CheckModifier(ci.Stat),
		Choice:   choice,
	}
	v, fellBack := adjudicate(ctx, m.opts.Judge, m.opts.JudgeTimeout, m.src, req)
	rc.Telemetry.ChecksJudged++
	if fellBack {
		rc.Telemetry.JudgeFallbacks++
	}
	m.pending.Verdict = &v
	if v.Narrative != "" {
		m.logf("%s", v.Narrative)
	}
	return v
}

// trapDamage rolls a trap's dice, falling back to the tier default.
func (m *Machine) trapDamage(ci *card.CheckInfo) int {
	d, ok := stats.ParseDice(ci.Damage)
	if !ok {
		d, _ = stats.ParseDice(card.TrapDamage(m.ctx.Difficulty))
	}
	return max(1, d.Roll(m.src))
}

func (m *Machine) hurt(n int) bool {
	u := m.ctx.Hero.Unit
	taken := u.TakeDamage(n)
	m.ctx.Telemetry.DamageTaken += taken
	m.logf("You take %d damage.", taken)
	m.clampHero()
	return m.checkDeath()
}

// springTrap resolves an instant trap on entry.
func (m *Machine) springTrap(ctx context.Context, c *card.CardData) {
	ci := trapCheck(c, m.ctx.Difficulty)
	v := m.check(ctx, c, ci, "AUTO")
	if v.Success {
		m.ctx.Telemetry.TrapsAvoided++
		m.logf("You avoid the trap.")
		m.toReward(c.Rewards)
		return
	}
	m.ctx.Telemetry.TrapsTriggered++
	m.logf("The trap springs!")
	if m.hurt(m.trapDamage(ci)) {
		return
	}
	m.toReward(nil)
}

func trapCheck(c *card.CardData, d card.Difficulty) *card.CheckInfo {
	if c.CheckInfo != nil {
		return c.CheckInfo
	}
	_, _, dc := card.TrapDC(d)
	return &card.CheckInfo{Stat: stats.Dexterity, Difficulty: dc, Damage: card.TrapDamage(d)}
}

// ResolveTrap handles a room trap.
func (m *Machine) ResolveTrap(ctx context.Context, choice TrapChoice) (Update, error) {
	if err := m.require(PhaseTrap); err != nil {
		return Update{}, err
	}
	c := m.ctx.Card()
	ci := trapCheck(c, m.ctx.Difficulty)
	switch TrapChoice(strings.ToUpper(string(choice))) {
	case Disarm:
		v := m.check(ctx, c, ci, string(Disarm))
		if v.Success {
			m.ctx.Telemetry.TrapsAvoided++
			m.logf("You disarm the trap.")
			m.toReward(c.Rewards)
			break
		}
		m.ctx.Telemetry.TrapsTriggered++
		m.logf("The trap springs!")
		if !m.hurt(m.trapDamage(ci)) {
			m.toReward(nil)
		}
	case Endure:
		m.ctx.Telemetry.TrapsTriggered++
		m.logf("You brace and push through.")
		if !m.hurt(max(1, m.trapDamage(ci)/2)) {
			m.toReward(nil)
		}
	default:
		return Update{}, fmt.Errorf("%w: %s", ErrUnknownOption, choice)
	}
	return m.flush(), nil
}

// ChooseShrine pays an option's cost and takes its reward. An unaffordable
// gold cost changes nothing.
func (m *Machine) ChooseShrine(id string) (Update, error) {
	if err := m.require(PhaseShrine); err != nil {
		return Update{}, err
	}
	c := m.ctx.Card()
	id = items.NormalizeID(id)
	for _, opt := range c.ShrineOptions {
		if opt.ID != id {
			continue
		}
		if err := m.payCost(opt.Cost, true); err != nil {
			return Update{}, err
		}
		m.ctx.Telemetry.ShrinesUsed++
		m.logf("You accept the %s.", opt.Label)
		summary := &RewardSummary{}
		m.applyBoon(opt.Reward, summary)
		m.toRewardWith(c.Rewards, summary)
		return m.flush(), nil
	}
	return Update{}, fmt.Errorf("%w: %s", ErrUnknownOption, id)
}

// OpenChest opens a chest. A mimic starts a fight and pays the chest's
// rewards on victory.
func (m *Machine) OpenChest() (Update, error) {
	if err := m.require(PhaseLoot); err != nil {
		return Update{}, err
	}
	c := m.ctx.Card()
	if c.Mimic != nil && stats.Chance(m.src, c.Mimic.Chance) {
		m.ctx.Telemetry.MimicsFound++
		m.logf("The chest bares its teeth!")
		m.startCombat(combat.FromStats(c.Mimic.Name, c.Mimic.Stats, c.Tags), nil, c.Rewards)
		return m.flush(), nil
	}
	m.logf("You open the chest.")
	m.toReward(c.Rewards)
	return m.flush(), nil
}

// ChooseEvent resolves an event option. Options with a check pay their
// reward on success and their penalty on failure; others pay both.
func (m *Machine) ChooseEvent(ctx context.Context, id string) (Update, error) {
	if err := m.require(PhaseEvent); err != nil {
		return Update{}, err
	}
	c := m.ctx.Card()
	id = items.NormalizeID(id)
	for _, opt := range c.EventOptions {
		if opt.ID != id {
			continue
		}
		m.logf("You choose to %s.", opt.Label)
		summary := &RewardSummary{}
		success := true
		if opt.Check != nil {
			success = m.check(ctx, c, opt.Check, opt.ID).Success
		}
		if success {
			m.applyBoon(opt.Reward, summary)
		}
		if !success || opt.Check == nil {
			if err := m.payCost(opt.Penalty, false); err != nil {
				return Update{}, err
			}
			if m.checkDeath() {
				return m.flush(), nil
			}
		}
		var rewards *card.Rewards
		if success {
			rewards = c.Rewards
		}
		m.toRewardWith(rewards, summary)
		return m.flush(), nil
	}
	return Update{}, fmt.Errorf("%w: %s", ErrUnknownOption, id)
}

// Buy purchases one item from a trader.
func (m *Machine) Buy(itemID string) (Update, error) {
	if err := m.require(PhaseTrade); err != nil {
		return Update{}, err
	}
	itemID = items.NormalizeID(itemID)
	for _, e := range m.ctx.Card().TradeList {
		if e.ItemID != itemID {
			continue
		}
		if err := m.ctx.Hero.Wallet.Spend(e.Price); err != nil {
			return Update{}, fmt.Errorf("failed to buy %s: %w", e.Name, err)
		}
		m.ctx.Hero.Bag.Add(e.ItemID, 1)
		m.ctx.Telemetry.ItemsBought++
		m.ctx.Telemetry.GoldSpent += e.Price
		m.logf("You buy %s for %d gold.", e.Name, e.Price)
		return m.flush(), nil
	}
	return Update{}, fmt.Errorf("%w: %s", ErrNotForSale, itemID)
}

// AcceptQuest takes the quest giver's task.
func (m *Machine) AcceptQuest() (Update, error) {
	if err := m.require(PhaseQuest); err != nil {
		return Update{}, err
	}
	c := m.ctx.Card()
	for _, q := range m.ctx.Quests {
		if q.CardID == c.ID {
			return Update{}, ErrAlreadyOnQuest
		}
	}
	q := c.Quest
	if q == nil {
		q = &card.Quest{Objective: card.QuestClear, Count: 1}
	}
	m.ctx.Quests = append(m.ctx.Quests, &QuestState{
		CardID:     c.ID,
		Giver:      c.Name,
		Objective:  q.Objective,
		Target:     q.Count,
		RewardGold: q.RewardGold,
		RewardXP:   q.RewardXP,
	})
	if q.Objective == card.QuestClear {
		m.logf("%s asks you to reach the end of the dungeon.", c.Name)
	} else {
		m.logf("%s asks you to defeat %d foes.", c.Name, q.Count)
	}
	m.toReward(nil)
	return m.flush(), nil
}

// Talk hears the next line of an NPC's dialogue. Hearing a blessing NPC
// out heals the hero once.
func (m *Machine) Talk() (Update, error) {
	if err := m.require(PhaseDialogue, PhaseTrade, PhaseQuest); err != nil {
		return Update{}, err
	}
	c := m.ctx.Card()
	if m.lines >= len(c.Dialogue) {
		return Update{}, ErrNothingToSay
	}
	m.logf("%s: %s", c.Name, c.Dialogue[m.lines])
	m.lines++
	if m.lines == len(c.Dialogue) && !m.blessed && c.HasTag(TagBlessing) {
		m.blessed = true
		u := m.ctx.Hero.Unit
		healed := u.Heal(u.MaxHP / blessingDivide)
		u.Effects = effects.Cleanse(u.Effects)
		m.logf("%s blesses you. You recover %d hp.", c.Name, healed)
		m.clampHero()
	}
	return m.flush(), nil
}

// Rest uses a rest site.
func (m *Machine) Rest() (Update, error) {
	if err := m.require(PhaseRest); err != nil {
		return Update{}, err
	}
	c := m.ctx.Card()
	u := m.ctx.Hero.Unit
	var healed, restored int
	switch c.Category {
	case card.RestSpring:
		healed = u.Heal(u.MaxHP * 15 / 100)
		restored = u.RestoreMP(u.MaxMP)
		u.Effects = effects.Cleanse(u.Effects)
	case card.RestSanctuary:
		healed = u.Heal(u.MaxHP)
		restored = u.RestoreMP(u.MaxMP / 2)
		u.Effects = effects.Cleanse(u.Effects)
		u.Afflict(effects.Shield, 1, sanctuaryWard)
	default:
		healed = u.Heal(u.MaxHP * 30 / 100)
		restored = u.RestoreMP(u.MaxMP * 30 / 100)
	}
	m.ctx.Telemetry.RestsTaken++
	m.logf("You rest and recover %d hp and %d mp.", healed, restored)
	m.clampHero()
	m.toReward(c.Rewards)
	return m.flush(), nil
}

// UseItem consumes an item outside combat.
func (m *Machine) UseItem(id string) (Update, error) {
	p := m.ctx.Phase
	if p.Terminal() || p == PhaseCombat || p == PhaseEntry {
		return Update{}, fmt.Errorf("%w: %s", ErrWrongPhase, p)
	}
	id = items.NormalizeID(id)
	h := m.ctx.Hero
	if h.Bag.Count(id) == 0 {
		return Update{}, fmt.Errorf("%w: %s", combat.ErrNoItem, id)
	}
	def := m.opts.Catalog.Get(id)
	if !def.Use.Usable() || def.Use.CombatOnly() {
		return Update{}, fmt.Errorf("%w: %s", combat.ErrItemNotUsable, id)
	}
	h.Bag.Take(id)
	u := h.Unit
	switch def.Use {
	case items.UseHeal:
		m.logf("You use %s and recover %d hp.", def.Name, u.Heal(def.Amount))
	case items.UseHealFull:
		m.logf("You use %s and recover %d hp.", def.Name, u.Heal(u.MaxHP))
	case items.UseMana:
		m.logf("You use %s and recover %d mp.", def.Name, u.RestoreMP(def.Amount))
	case items.UseCleanse:
		u.Effects = effects.Cleanse(u.Effects)
		m.logf("You use %s.", def.Name)
	}
	m.ctx.Telemetry.ItemsUsed++
	m.clampHero()
	return m.flush(), nil
}

// payCost applies a cost. Voluntary costs cannot kill and refuse an
// unaffordable gold price; penalties take what they can.
func (m *Machine) payCost(c card.Cost, voluntary bool) error {
	h := m.ctx.Hero
	u := h.Unit
	switch c.Kind {
	case card.CostHP:
		n := c.Value
		if voluntary {
			n = min(n, u.HP-1)
		}
		if n > 0 {
			m.ctx.Telemetry.DamageTaken += u.TakeDamage(n)
			m.logf("You lose %d hp.", n)
		}
	case card.CostGold:
		n := c.Value
		if !voluntary {
			n = min(n, h.Wallet.Gold)
		}
		if err := h.Wallet.Spend(n); err != nil {
			return fmt.Errorf("failed to pay %d gold: %w", n, err)
		}
		m.ctx.Telemetry.GoldSpent += n
		if n > 0 {
			m.logf("You pay %d gold.", n)
		}
	case card.CostDebt:
		h.Wallet.AddDebt(c.Value)
		m.logf("You owe %d gold.", c.Value)
	case card.CostMaxHP:
		u.MaxHP = max(1, u.MaxHP-c.Value)
		u.HP = min(u.HP, u.MaxHP)
		m.logf("Your max hp falls by %d.", c.Value)
	case card.CostCurse:
		u.Afflict(effects.Curse, c.Value, curseTurns)
		m.logf("A curse settles on you.")
	}
	m.clampHero()
	return nil
}

// applyBoon grants a reward into summary.
func (m *Machine) applyBoon(b card.Boon, summary *RewardSummary) {
	u := m.ctx.Hero.Unit
	switch b.Kind {
	case card.BoonAtk:
		u.Atk += b.Value
		m.logf("Attack +%d.", b.Value)
	case card.BoonDef:
		u.Def += b.Value
		m.logf("Defense +%d.", b.Value)
	case card.BoonSpd:
		u.Spd += b.Value
		m.logf("Speed +%d.", b.Value)
	case card.BoonLuk:
		u.Luk += b.Value
		m.logf("Luck +%d.", b.Value)
	case card.BoonMaxHP:
		u.MaxHP += b.Value
		u.Heal(b.Value)
		m.logf("Max hp +%d.", b.Value)
	case card.BoonHeal:
		m.logf("You recover %d hp.", u.Heal(b.Value))
	case card.BoonMP:
		m.logf("You recover %d mp.", u.RestoreMP(b.Value))
	case card.BoonGold:
		m.creditGold(b.Value, summary)
	case card.BoonXP:
		m.grantXP(b.Value, summary)
	case card.BoonItem:
		m.ctx.Hero.Bag.Add(b.ItemID, b.Value)
		for range b.Value {
			summary.Items = append(summary.Items, b.ItemID)
		}
	}
	m.clampHero()
}
