package run

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

type memStore struct {
	gold      map[string]int
	telemetry map[string][]Settlement
	failGold  error

	// failTelemetry fails that many appends before succeeding.
	failTelemetry int
}

func newMemStore() *memStore {
	return &memStore{gold: map[string]int{}, telemetry: map[string][]Settlement{}}
}

func (s *memStore) LoadDungeon(context.Context, string) (*DungeonRecord, error) { return nil, nil }

func (s *memStore) LoadProfile(_ context.Context, id string) (*Profile, error) {
	return &Profile{ID: id, Gold: s.gold[id]}, nil
}

func (s *memStore) ApplyGoldDelta(_ context.Context, id string, delta int) error {
	if s.failGold != nil {
		return s.failGold
	}
	s.gold[id] += delta
	return nil
}

func (s *memStore) AppendTelemetry(_ context.Context, id string, st Settlement) error {
	if s.failTelemetry > 0 {
		s.failTelemetry--
		return errors.New("telemetry unavailable")
	}
	s.telemetry[id] = append(s.telemetry[id], st)
	return nil
}

func (s *memStore) LoadAggregate(_ context.Context, id string) (*Aggregate, error) {
	agg := &Aggregate{}
	for _, st := range s.telemetry[id] {
		agg.Add(st)
	}
	return agg, nil
}

func clearedRun(t *testing.T) *Machine {
	t.Helper()
	ctx := context.Background()
	m := newMachine(linear(rat(t, `,"rewards":{"gold":80}`)), card.Easy, noLuck)
	m.Context().Hero.Unit.Def = 0
	m.Confirm(ctx)
	m.CombatAction(ctx, combatAttack)
	m.Confirm(ctx)
	if m.Phase() != PhaseCleared {
		t.Fatalf("phase = %s", m.Phase())
	}
	return m
}

func TestFinishWritesOnce(t *testing.T) {
	store := newMemStore()
	m := clearedRun(t)
	ctx := context.Background()

	s, err := m.Finish(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if s.PersistentGoldDelta != 40 || store.gold["p-1"] != 40 {
		t.Errorf("delta %d stored %d", s.PersistentGoldDelta, store.gold["p-1"])
	}
	if len(store.telemetry["dng-1"]) != 1 {
		t.Fatalf("telemetry appends = %d", len(store.telemetry["dng-1"]))
	}
	if _, err := m.Finish(ctx, store); !errors.Is(err, ErrAlreadyFlushed) {
		t.Errorf("second finish err = %v", err)
	}
	if store.gold["p-1"] != 40 {
		t.Error("second finish paid again")
	}

	agg, _ := store.LoadAggregate(ctx, "dng-1")
	if agg.Runs != 1 || agg.Clears != 1 || agg.ClearRate() != 1 {
		t.Errorf("aggregate = %+v", agg)
	}
}

func TestFinishStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failGold = errors.New("disk full")
	m := clearedRun(t)
	if _, err := m.Finish(context.Background(), store); err == nil {
		t.Fatal("want error")
	}
	store.failGold = nil
	if _, err := m.Finish(context.Background(), store); err != nil {
		t.Errorf("retry should succeed: %v", err)
	}
	if _, err := m.Finish(context.Background(), nil); !errors.Is(err, ErrNoStore) {
		t.Errorf("nil store err = %v", err)
	}
}

func TestFinishRetryAfterTelemetryFailurePaysOnce(t *testing.T) {
	store := newMemStore()
	store.failTelemetry = 1
	m := clearedRun(t)
	ctx := context.Background()

	if _, err := m.Finish(ctx, store); err == nil {
		t.Fatal("want telemetry error")
	}
	if store.gold["p-1"] != 40 {
		t.Fatalf("gold after failed finish = %d, want 40", store.gold["p-1"])
	}
	s, err := m.Finish(ctx, store)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.PersistentGoldDelta != 40 || store.gold["p-1"] != 40 {
		t.Errorf("delta %d stored %d, want a single 40", s.PersistentGoldDelta, store.gold["p-1"])
	}
	if len(store.telemetry["dng-1"]) != 1 {
		t.Errorf("telemetry appends = %d, want 1", len(store.telemetry["dng-1"]))
	}
	if _, err := m.Finish(ctx, store); !errors.Is(err, ErrAlreadyFlushed) {
		t.Errorf("third finish err = %v", err)
	}
}

func TestAggregate(t *testing.T) {
	var a Aggregate
	a.Add(Settlement{Outcome: OutcomeCleared, Duration: 90 * time.Second, Telemetry: Telemetry{RoomsVisited: 8}})
	a.Add(Settlement{Outcome: OutcomeDead, Duration: 30 * time.Second, Telemetry: Telemetry{RoomsVisited: 3}})
	a.Add(Settlement{Outcome: OutcomeForfeited})
	if a.Runs != 3 || a.Clears != 1 || a.Failures() != 2 || a.RoomsVisited != 11 || a.Seconds != 120 {
		t.Errorf("aggregate = %+v", a)
	}
	var b Aggregate
	b.Merge(a)
	b.Merge(a)
	if b.Runs != 6 || b.Deaths != 2 {
		t.Errorf("merged = %+v", b)
	}
	if (&Aggregate{}).ClearRate() != 0 {
		t.Error("empty clear rate should be 0")
	}
}

func mixedDungeon(t *testing.T) *dungeon.Graph {
	d := card.Normal
	return dungeon.FromSteps([]dungeon.StepCards{
		{Kind: dungeon.Single, Cards: []*card.CardData{
			mustCard(t, card.EnemySingle, d, `{"name":"Goblin","description":"Sneers.","tags":["STATUS_POISON"]}`)}},
		{Kind: dungeon.ForkStep, Cards: []*card.CardData{
			mustCard(t, card.Shrine, d, `{"name":"Altar","description":"Old."}`),
			mustCard(t, card.TrapRoom, d, `{"name":"Pit","description":"Deep."}`)}},
		{Kind: dungeon.Single, Cards: []*card.CardData{
			mustCard(t, card.NPCTrader, d, `{"name":"Pip","description":"Sells."}`)}},
		{Kind: dungeon.Single, Cards: []*card.CardData{
			mustCard(t, card.EventChoice, d, `{"name":"Well","description":"Echoes."}`)}},
		{Kind: dungeon.ForkStep, Cards: []*card.CardData{
			mustCard(t, card.LootChest, d, `{"name":"Chest","description":"Iron.","tags":["LOGIC_MIMIC"]}`),
			mustCard(t, card.RestCampfire, d, `{"name":"Camp","description":"Warm."}`)}},
		{Kind: dungeon.Single, Cards: []*card.CardData{
			mustCard(t, card.EnemyBoss, d, `{"name":"Ogre","description":"Huge.","actions":[
				{"trigger":"ON_TURN","effect":"ATTACK","value":1.2},
				{"trigger":"LOW_HP","effect":"HEAL","value":20}]}`)}},
	})
}

func TestSeededRunsReplay(t *testing.T) {
	play := func(seed int64) (Settlement, []string) {
		m := New(mixedDungeon(t), Options{RunID: "r", Difficulty: card.Normal, Source: stats.NewRNG(seed), Now: fixedNow})
		s, err := DefaultAutopilot().Play(context.Background(), m)
		if err != nil {
			t.Fatal(err)
		}
		return s, m.Context().Log
	}
	for seed := int64(1); seed <= 5; seed++ {
		s1, log1 := play(seed)
		s2, log2 := play(seed)
		if !reflect.DeepEqual(s1, s2) || !reflect.DeepEqual(log1, log2) {
			t.Errorf("seed %d diverged", seed)
		}
		if s1.Telemetry.RoomsVisited == 0 || s1.Telemetry.CombatsStarted == 0 {
			t.Errorf("seed %d telemetry = %+v", seed, s1.Telemetry)
		}
		if s1.Outcome == OutcomeCleared && s1.Telemetry.RoomsVisited != 6 {
			t.Errorf("seed %d cleared after %d rooms", seed, s1.Telemetry.RoomsVisited)
		}
	}
}

func TestAutopilotStopsOnCancel(t *testing.T) {
	m := New(mixedDungeon(t), Options{Difficulty: card.Normal, Source: stats.NewRNG(1)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := DefaultAutopilot().Play(ctx, m); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
