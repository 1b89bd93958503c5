package run

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/combat"
	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/economy"
	"github.com/lawnchairsociety/cardcrawl/internal/effects"
	"github.com/lawnchairsociety/cardcrawl/internal/items"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

// noLuck makes every chance roll fail and every die roll its minimum.
var noLuck = stats.Fixed{Int: 0, Float: 0.99}

var combatAttack = combat.PlayerAction{Kind: combat.ActAttack}

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func mustCard(t *testing.T, cat card.Category, d card.Difficulty, raw string) *card.CardData {
	t.Helper()
	c, err := card.Normalize([]byte(raw), cat, d, stats.NewRNG(1))
	if err != nil {
		t.Fatalf("normalize %s: %v", cat, err)
	}
	return c
}

func linear(cards ...*card.CardData) *dungeon.Graph {
	steps := make([]dungeon.StepCards, len(cards))
	for i, c := range cards {
		steps[i] = dungeon.StepCards{Kind: dungeon.Single, Cards: []*card.CardData{c}}
	}
	return dungeon.FromSteps(steps)
}

func rat(t *testing.T, extra string) *card.CardData {
	return mustCard(t, card.EnemySingle, card.Easy,
		`{"name":"Rat","description":"Squeaks.","stats":{"hp":10,"atk":1,"def":0,"spd":5}`+extra+`}`)
}

func newMachine(g *dungeon.Graph, d card.Difficulty, src stats.Source) *Machine {
	return New(g, Options{RunID: "run-1", DungeonID: "dng-1", ProfileID: "p-1", Difficulty: d, Source: src, Now: fixedNow})
}

func TestWeakEnemyDiesInOneAttack(t *testing.T) {
	ctx := context.Background()
	m := newMachine(linear(rat(t, "")), card.Easy, noLuck)
	m.Context().Hero.Unit.Def = 0

	u, err := m.Confirm(ctx)
	if err != nil || u.Phase != PhaseCombat {
		t.Fatalf("confirm: phase %s err %v", u.Phase, err)
	}
	u, err = m.CombatAction(ctx, combat.PlayerAction{Kind: combat.ActAttack})
	if err != nil {
		t.Fatal(err)
	}
	if u.Phase != PhaseReward {
		t.Fatalf("phase = %s, want REWARD", u.Phase)
	}
	if u.Reward == nil || u.Reward.Gold != 7 || u.Reward.XP != 25 {
		t.Errorf("reward = %+v", u.Reward)
	}
	if m.Context().Hero.Wallet.Gold != 127 {
		t.Errorf("gold = %d", m.Context().Hero.Wallet.Gold)
	}
	if tel := m.Context().Telemetry; tel.CombatsWon != 1 || tel.DamageDealt != 10 {
		t.Errorf("telemetry = %+v", tel)
	}
	if u, _ := m.Confirm(ctx); u.Phase != PhaseCleared {
		t.Errorf("after last room phase = %s", u.Phase)
	}
}

func TestWrongPhaseChangesNothing(t *testing.T) {
	ctx := context.Background()
	m := newMachine(linear(rat(t, "")), card.Easy, noLuck)
	before := *m.Context().Hero.Unit

	calls := map[string]func() error{
		"combat":  func() error { _, err := m.CombatAction(ctx, combat.PlayerAction{Kind: combat.ActAttack}); return err },
		"trap":    func() error { _, err := m.ResolveTrap(ctx, Disarm); return err },
		"shrine":  func() error { _, err := m.ChooseShrine("blood_pact"); return err },
		"chest":   func() error { _, err := m.OpenChest(); return err },
		"event":   func() error { _, err := m.ChooseEvent(ctx, "leave"); return err },
		"buy":     func() error { _, err := m.Buy(items.Potion); return err },
		"quest":   func() error { _, err := m.AcceptQuest(); return err },
		"talk":    func() error { _, err := m.Talk(); return err },
		"rest":    func() error { _, err := m.Rest(); return err },
		"leave":   func() error { _, err := m.Leave(); return err },
		"upgrade": func() error { _, err := m.ChooseUpgrade(ctx, 0); return err },
		"branch":  func() error { _, err := m.ChooseBranch(ctx, 0); return err },
		"item":    func() error { _, err := m.UseItem(items.Potion); return err },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrWrongPhase) {
			t.Errorf("%s: err = %v, want ErrWrongPhase", name, err)
		}
	}
	if m.Phase() != PhaseEntry || len(m.Context().Log) != 0 || m.Context().Room != -1 {
		t.Errorf("state changed: phase %s log %v", m.Phase(), m.Context().Log)
	}
	if !reflect.DeepEqual(before, *m.Context().Hero.Unit) {
		t.Error("hero changed")
	}
	if m.Context().Hero.Bag.Count(items.Potion) != 1 {
		t.Error("bag changed")
	}
}

func TestHeroAtOneHPDies(t *testing.T) {
	trap := mustCard(t, card.TrapInstant, card.Easy, `{"name":"Dart","description":"Pfft."}`)
	m := newMachine(linear(trap, rat(t, "")), card.Easy, noLuck)
	h := m.Context().Hero
	h.Unit.HP = 1
	h.Wallet.Credit(40)

	u, err := m.Confirm(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if u.Phase != PhaseDead || h.Unit.HP != 0 {
		t.Fatalf("phase %s hp %d", u.Phase, h.Unit.HP)
	}
	if u.Verdict == nil || u.Verdict.Success || u.Verdict.Source != SourceLocal {
		t.Errorf("verdict = %+v", u.Verdict)
	}
	s, err := m.Settle()
	if err != nil {
		t.Fatal(err)
	}
	if s.Outcome != OutcomeDead || s.PersistentGoldDelta != 0 || h.Wallet.Gold != 0 {
		t.Errorf("settlement %+v gold %d", s, h.Wallet.Gold)
	}
}

func TestHeroDiesInCombat(t *testing.T) {
	brute := mustCard(t, card.EnemySingle, card.Easy,
		`{"name":"Brute","description":"Big.","stats":{"hp":60,"atk":13,"def":0,"spd":20}}`)
	m := newMachine(linear(brute), card.Easy, noLuck)
	m.Context().Hero.Unit.HP = 1

	u, err := m.Confirm(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if u.Phase != PhaseDead || m.Context().Hero.Unit.HP != 0 {
		t.Errorf("phase %s hp %d", u.Phase, m.Context().Hero.Unit.HP)
	}
}

func TestForkOutOfRangeClears(t *testing.T) {
	camp := mustCard(t, card.RestCampfire, card.Normal, `{"name":"Camp","description":"Warm."}`)
	g := dungeon.FromLinks([]*card.CardData{camp}, []dungeon.RawLink{dungeon.RawFork(5, 9)})
	m := newMachine(g, card.Normal, noLuck)
	ctx := context.Background()

	for _, step := range []func() (Update, error){
		func() (Update, error) { return m.Confirm(ctx) },
		m.Rest,
		func() (Update, error) { return m.Confirm(ctx) },
	} {
		if _, err := step(); err != nil {
			t.Fatal(err)
		}
	}
	if m.Phase() != PhaseCleared {
		t.Fatalf("phase = %s, want CLEARED", m.Phase())
	}
	s, _ := m.Settle()
	if s.Outcome != OutcomeCleared || s.PersistentGoldDelta != 0 {
		t.Errorf("settlement = %+v", s)
	}
}

func TestBranchChoice(t *testing.T) {
	camp := mustCard(t, card.RestCampfire, card.Normal, `{"name":"Camp","description":"Warm."}`)
	a := mustCard(t, card.RestSpring, card.Normal, `{"name":"Spring","description":"Cold."}`)
	b := mustCard(t, card.RestSanctuary, card.Normal, `{"name":"Chapel","description":"Still."}`)
	g := dungeon.FromSteps([]dungeon.StepCards{
		{Kind: dungeon.Single, Cards: []*card.CardData{camp}},
		{Kind: dungeon.ForkStep, Cards: []*card.CardData{a, b}},
	})
	m := newMachine(g, card.Normal, noLuck)
	ctx := context.Background()
	m.Confirm(ctx)
	m.Rest()
	if u, _ := m.Confirm(ctx); u.Phase != PhaseBranch {
		t.Fatalf("phase = %s, want BRANCH", u.Phase)
	}
	if got := m.BranchOptions(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("options = %v", got)
	}
	if _, err := m.ChooseBranch(ctx, 2); !errors.Is(err, ErrInvalidBranch) {
		t.Errorf("err = %v", err)
	}
	u, err := m.ChooseBranch(ctx, 1)
	if err != nil || u.Room != 2 || u.Phase != PhaseRest {
		t.Fatalf("room %d phase %s err %v", u.Room, u.Phase, err)
	}

	h := m.Context().Hero.Unit
	h.HP = 10
	h.Effects = effects.Upsert(h.Effects, effects.Poison, effects.Patch{Stacks: 2, Turns: 3})
	m.Rest()
	if h.HP != h.MaxHP || effects.Has(h.Effects, effects.Poison) || !effects.Has(h.Effects, effects.Shield) {
		t.Errorf("sanctuary left hp %d effects %+v", h.HP, h.Effects)
	}
}

func TestShrineDebtAndGold(t *testing.T) {
	shrine := mustCard(t, card.Shrine, card.Normal, `{"name":"Altar","description":"Old.","shrine_options":[
		{"id":"pact","label":"Pact","cost":{"kind":"DEBT","value":40},"reward":{"kind":"GOLD","value":50}},
		{"id":"tithe","label":"Tithe","cost":{"kind":"GOLD","value":150},"reward":{"kind":"ATK","value":3}}]}`)
	m := newMachine(linear(shrine), card.Normal, noLuck)
	m.Confirm(context.Background())
	w := m.Context().Hero.Wallet

	if _, err := m.ChooseShrine("tithe"); !errors.Is(err, economy.ErrInsufficientGold) {
		t.Fatalf("err = %v, want ErrInsufficientGold", err)
	}
	if m.Phase() != PhaseShrine || w.Gold != 100 || m.Context().Hero.Unit.Atk != baseAtk {
		t.Fatalf("failed shrine changed state: phase %s gold %d", m.Phase(), w.Gold)
	}
	if _, err := m.ChooseShrine("nope"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("err = %v", err)
	}

	u, err := m.ChooseShrine("pact")
	if err != nil {
		t.Fatal(err)
	}
	if w.Debt != 0 || w.Gold != 110 || w.Earned() != 10 {
		t.Errorf("wallet = %+v", *w)
	}
	if u.Reward == nil || u.Reward.DebtPaid != 40 || u.Reward.Credited != 10 {
		t.Errorf("reward = %+v", u.Reward)
	}
}

func TestTrader(t *testing.T) {
	trader := mustCard(t, card.NPCTrader, card.Normal,
		`{"name":"Pip","description":"Sells.","trade_list":[{"item_id":"potion","price":30}],"dialogue":["Welcome."]}`)
	m := newMachine(linear(trader), card.Normal, noLuck)
	m.Confirm(context.Background())
	h := m.Context().Hero

	if _, err := m.Buy("Potion"); err != nil {
		t.Fatal(err)
	}
	if h.Wallet.Gold != 70 || h.Bag.Count(items.Potion) != 2 {
		t.Errorf("gold %d potions %d", h.Wallet.Gold, h.Bag.Count(items.Potion))
	}
	if _, err := m.Buy("elixir"); !errors.Is(err, ErrNotForSale) {
		t.Errorf("err = %v", err)
	}
	m.Buy(items.Potion)
	m.Buy(items.Potion)
	if _, err := m.Buy(items.Potion); !errors.Is(err, economy.ErrInsufficientGold) {
		t.Errorf("fourth buy err = %v", err)
	}
	if h.Wallet.Gold != 10 || m.Context().Telemetry.GoldSpent != 90 {
		t.Errorf("gold %d spent %d", h.Wallet.Gold, m.Context().Telemetry.GoldSpent)
	}
	if u, err := m.Talk(); err != nil || len(u.Log) == 0 {
		t.Errorf("talk: %v", err)
	}
	if u, _ := m.Leave(); u.Phase != PhaseReward {
		t.Errorf("phase = %s", u.Phase)
	}
}

func TestLevelUpQueue(t *testing.T) {
	ctx := context.Background()
	m := newMachine(linear(rat(t, `,"rewards":{"xp":150}`)), card.Easy, noLuck)
	m.Confirm(ctx)
	u, _ := m.CombatAction(ctx, combat.PlayerAction{Kind: combat.ActAttack})
	if len(u.Reward.LevelUps) != 2 {
		t.Fatalf("level ups = %+v", u.Reward.LevelUps)
	}
	if u, _ := m.Confirm(ctx); u.Phase != PhaseLevelUp {
		t.Fatalf("phase = %s", u.Phase)
	}
	if len(m.Offer()) != 3 {
		t.Fatalf("offer = %+v", m.Offer())
	}
	if _, err := m.ChooseUpgrade(ctx, 7); err == nil {
		t.Error("out of range choice should fail")
	}
	if u, _ := m.ChooseUpgrade(ctx, 0); u.Phase != PhaseLevelUp {
		t.Errorf("second credit should keep LEVEL_UP, got %s", u.Phase)
	}
	if u, _ := m.ChooseUpgrade(ctx, 0); u.Phase != PhaseCleared {
		t.Errorf("phase = %s, want CLEARED", u.Phase)
	}
	if m.Context().Telemetry.LevelUps != 2 || m.Context().Hero.Progress.Level != 3 {
		t.Errorf("level %d", m.Context().Hero.Progress.Level)
	}
}

func TestQuestAndClearSettlement(t *testing.T) {
	ctx := context.Background()
	giver := mustCard(t, card.NPCQuest, card.Easy,
		`{"name":"Old Man","description":"Worried.","quest":{"objective":"DEFEAT","count":1,"reward_gold":30,"reward_xp":0}}`)
	m := newMachine(linear(giver, rat(t, "")), card.Easy, noLuck)
	m.Confirm(ctx)
	if _, err := m.AcceptQuest(); err != nil {
		t.Fatal(err)
	}
	m.Confirm(ctx)
	u, err := m.CombatAction(ctx, combat.PlayerAction{Kind: combat.ActAttack})
	if err != nil {
		t.Fatal(err)
	}
	if u.Reward == nil || !reflect.DeepEqual(u.Reward.Completed, []string{giver.ID}) {
		t.Fatalf("reward = %+v", u.Reward)
	}
	if m.Context().Hero.Wallet.Gold != 157 {
		t.Errorf("gold = %d, want 157", m.Context().Hero.Wallet.Gold)
	}
	m.Confirm(ctx)
	s, err := m.Settle()
	if err != nil {
		t.Fatal(err)
	}
	if s.Outcome != OutcomeCleared || s.EarnedGold != 37 || s.PersistentGoldDelta != 18 {
		t.Errorf("settlement = %+v", s)
	}
	if s.Telemetry.QuestsCompleted != 1 || s.Duration != 0 {
		t.Errorf("telemetry = %+v duration %s", s.Telemetry, s.Duration)
	}
}

func TestAbandon(t *testing.T) {
	m := newMachine(linear(rat(t, "")), card.Easy, noLuck)
	m.Confirm(context.Background())
	m.Context().Hero.Wallet.Credit(50)
	if u, err := m.Abandon(); err != nil || u.Phase != PhaseForfeited {
		t.Fatalf("phase %s err %v", u.Phase, err)
	}
	if _, err := m.Abandon(); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("second abandon err = %v", err)
	}
	s, _ := m.Settle()
	if s.Outcome != OutcomeForfeited || s.PersistentGoldDelta != 0 {
		t.Errorf("settlement = %+v", s)
	}
}

func TestSettleBeforeEnd(t *testing.T) {
	m := newMachine(linear(rat(t, "")), card.Easy, noLuck)
	if _, err := m.Settle(); !errors.Is(err, ErrNotSettled) {
		t.Errorf("err = %v", err)
	}
}

func TestJudgeFallback(t *testing.T) {
	trap := mustCard(t, card.TrapRoom, card.Easy, `{"name":"Blades","description":"Swing."}`)
	ctx := context.Background()

	t.Run("external verdict", func(t *testing.T) {
		var got CheckRequest
		m := New(linear(trap), Options{Difficulty: card.Easy, Source: noLuck, Now: fixedNow,
			Judge: JudgeFunc(func(_ context.Context, req CheckRequest) (Verdict, error) {
				got = req
				return Verdict{Success: true, Narrative: "You slip between the blades."}, nil
			})})
		m.Confirm(ctx)
		u, err := m.ResolveTrap(ctx, Disarm)
		if err != nil {
			t.Fatal(err)
		}
		if u.Verdict.Source != SourceExternal || !u.Verdict.Success {
			t.Errorf("verdict = %+v", u.Verdict)
		}
		if got.Stat != stats.Dexterity || got.DC != 10 || got.Choice != string(Disarm) {
			t.Errorf("request = %+v", got)
		}
		if u.Reward.XP != 10 || m.Context().Telemetry.TrapsAvoided != 1 {
			t.Errorf("reward = %+v", u.Reward)
		}
	})

	t.Run("failing judge falls back", func(t *testing.T) {
		m := New(linear(trap), Options{Difficulty: card.Easy, Source: noLuck, Now: fixedNow,
			Judge: JudgeFunc(func(context.Context, CheckRequest) (Verdict, error) {
				return Verdict{}, errors.New("storyteller offline")
			})})
		m.Confirm(ctx)
		u, err := m.ResolveTrap(ctx, Disarm)
		if err != nil {
			t.Fatal(err)
		}
		if u.Verdict.Source != SourceLocal || u.Verdict.Success {
			t.Errorf("verdict = %+v", u.Verdict)
		}
		tel := m.Context().Telemetry
		if tel.JudgeFallbacks != 1 || tel.TrapsTriggered != 1 {
			t.Errorf("telemetry = %+v", tel)
		}
		if h := m.Context().Hero.Unit; h.HP != h.MaxHP-2 {
			t.Errorf("hp = %d", h.HP)
		}
	})

	t.Run("endure halves damage", func(t *testing.T) {
		m := New(linear(trap), Options{Difficulty: card.Easy, Source: stats.Fixed{Int: 5}, Now: fixedNow})
		m.Confirm(ctx)
		m.ResolveTrap(ctx, Endure)
		// 1d6+1 rolls 7 with Intn always 5
		if h := m.Context().Hero.Unit; h.HP != h.MaxHP-3 {
			t.Errorf("hp = %d", h.HP)
		}
		if _, err := m.ResolveTrap(ctx, Endure); !errors.Is(err, ErrWrongPhase) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestMimicChest(t *testing.T) {
	chest := mustCard(t, card.LootChest, card.Easy,
		`{"name":"Chest","description":"Wooden.","mimic":{"chance":0.9}}`)
	m := newMachine(linear(chest), card.Easy, stats.Fixed{Float: 0})
	m.Confirm(context.Background())
	u, err := m.OpenChest()
	if err != nil {
		t.Fatal(err)
	}
	if u.Phase != PhaseCombat || m.Encounter() == nil || m.Encounter().Enemy.Name != "Mimic" {
		t.Errorf("phase %s", u.Phase)
	}
	if m.Context().Telemetry.MimicsFound != 1 {
		t.Error("mimic not counted")
	}
}

func TestDialogueBlessing(t *testing.T) {
	sage := mustCard(t, card.NPCDialogue, card.Normal,
		`{"name":"Sage","description":"Hums.","tags":["LOGIC_BLESS"],"dialogue":["Rest.","Go on."]}`)
	m := newMachine(linear(sage), card.Normal, noLuck)
	m.Confirm(context.Background())
	h := m.Context().Hero.Unit
	h.HP = 50
	m.Talk()
	if h.HP != 50 {
		t.Fatalf("blessed early, hp %d", h.HP)
	}
	m.Talk()
	if h.HP != 50+h.MaxHP/4 {
		t.Errorf("hp = %d", h.HP)
	}
	if _, err := m.Talk(); !errors.Is(err, ErrNothingToSay) {
		t.Errorf("err = %v", err)
	}
}

func TestUseItemOutsideCombat(t *testing.T) {
	camp := mustCard(t, card.RestCampfire, card.Normal, `{"name":"Camp","description":"Warm."}`)
	m := newMachine(linear(camp), card.Normal, noLuck)
	m.Confirm(context.Background())
	h := m.Context().Hero
	h.Bag.Add(items.Bomb, 1)
	if _, err := m.UseItem(items.Bomb); !errors.Is(err, combat.ErrItemNotUsable) {
		t.Errorf("bomb err = %v", err)
	}
	h.Unit.HP = 40
	if _, err := m.UseItem(items.Potion); err != nil {
		t.Fatal(err)
	}
	if h.Unit.HP != 70 || h.Bag.Count(items.Potion) != 0 {
		t.Errorf("hp %d potions %d", h.Unit.HP, h.Bag.Count(items.Potion))
	}
	if _, err := m.UseItem(items.Potion); !errors.Is(err, combat.ErrNoItem) {
		t.Errorf("err = %v", err)
	}
}

func TestEnemyDelayHonorsCancel(t *testing.T) {
	g := linear(rat(t, ""))
	m := New(g, Options{Difficulty: card.Easy, Source: noLuck, EnemyTurnDelay: time.Hour})
	m.Confirm(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.CombatAction(ctx, combat.PlayerAction{Kind: combat.ActAttack}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if m.Phase() != PhaseCombat || m.Encounter().Enemy.HP != 10 {
		t.Error("cancelled action changed the fight")
	}
}

func TestPlaystylePerks(t *testing.T) {
	tests := []struct {
		style       Playstyle
		firstStrike bool
		openingCrit bool
		maxHP       int
		maxMP       int
	}{
		{Vanguard, false, false, 120, 30},
		{Swift, true, false, 100, 30},
		{Precise, false, true, 100, 30},
		{Arcane, false, false, 100, 50},
	}
	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			m := New(nil, Options{Playstyle: tt.style, Source: noLuck})
			rc := m.Context()
			if rc.FirstStrike != tt.firstStrike || rc.OpeningCrit != tt.openingCrit {
				t.Errorf("perks = %v %v", rc.FirstStrike, rc.OpeningCrit)
			}
			if rc.Hero.Unit.MaxHP != tt.maxHP || rc.Hero.Unit.MaxMP != tt.maxMP {
				t.Errorf("pools = %d %d", rc.Hero.Unit.MaxHP, rc.Hero.Unit.MaxMP)
			}
		})
	}
	if ParsePlaystyle("swift") != Swift || ParsePlaystyle("bard") != Vanguard {
		t.Error("ParsePlaystyle")
	}
}

func TestEmptyDungeonClearsOnEntry(t *testing.T) {
	m := New(nil, Options{Source: noLuck, Now: fixedNow})
	if u, _ := m.Confirm(context.Background()); u.Phase != PhaseCleared {
		t.Errorf("phase = %s", u.Phase)
	}
}
