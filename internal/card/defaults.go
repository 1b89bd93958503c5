package card

import (
	"github.com/lawnchairsociety/cardcrawl/internal/items"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

const (
	ShrineOptionCount = 5
	MinTradeEntries   = 3
	MaxTradeEntries   = 6
)

// tierScale grows shrine costs and boons with difficulty.
func tierScale(d Difficulty) float64 {
	return [...]float64{1, 1.25, 1.5, 1.8}[d.Index()]
}

func scaled(v int, s float64) int {
	return max(1, round(float64(v)*s))
}

// DefaultShrineOptions returns the tier's fallback shrine pool. The pool is
// larger than ShrineOptionCount so fills can vary between shrines.
func DefaultShrineOptions(d Difficulty) []ShrineOption {
	s := tierScale(d)
	return []ShrineOption{
		{ID: "blood_pact", Label: "Bleed on the altar for strength",
			Cost: Cost{CostHP, scaled(15, s)}, Reward: Boon{Kind: BoonAtk, Value: 2}},
		{ID: "golden_offering", Label: "Offer gold for protection",
			Cost: Cost{CostGold, scaled(30, s)}, Reward: Boon{Kind: BoonDef, Value: 2}},
		{ID: "iron_vow", Label: "Trade vigor for a hardened body",
			Cost: Cost{CostMaxHP, scaled(8, s)}, Reward: Boon{Kind: BoonDef, Value: 3}},
		{ID: "time_contract", Label: "Borrow against future fortune",
			Cost: Cost{CostDebt, scaled(40, s)}, Reward: Boon{Kind: BoonXP, Value: scaled(50, s)}},
		{ID: "swift_prayer", Label: "Pray for swiftness",
			Cost: Cost{CostCurse, 3}, Reward: Boon{Kind: BoonSpd, Value: 2}},
		{ID: "fortune_coin", Label: "Flip the fortune coin",
			Cost: Cost{CostGold, scaled(20, s)}, Reward: Boon{Kind: BoonLuk, Value: 3}},
		{ID: "sage_ember", Label: "Breathe the sage's ember",
			Cost: Cost{CostHP, scaled(10, s)}, Reward: Boon{Kind: BoonMP, Value: scaled(10, s)}},
		{ID: "spring_blessing", Label: "Accept the spring's blessing",
			Cost: Cost{CostNone, 0}, Reward: Boon{Kind: BoonHeal, Value: 20}},
	}
}

type tradeDefault struct {
	id   string
	name string
	base int
}

var defaultTradePool = []tradeDefault{
	{items.Potion, "Potion", 25},
	{items.Antidote, "Antidote", 20},
	{items.Ether, "Ether", 35},
	{items.Bomb, "Bomb", 45},
	{items.HiPotion, "Hi-Potion", 60},
	{items.SmokeBomb, "Smoke Bomb", 40},
}

// DefaultTradeList returns the tier's fallback stock; prices scale 10% per tier.
func DefaultTradeList(d Difficulty) []TradeEntry {
	mul := 1 + 0.1*float64(d.Index())
	out := make([]TradeEntry, len(defaultTradePool))
	for i, td := range defaultTradePool {
		out[i] = TradeEntry{ItemID: td.id, Name: td.name, Price: round(float64(td.base) * mul)}
	}
	return out
}

// cheapPotion is the affordability-floor substitute.
func cheapPotion(d Difficulty) TradeEntry {
	return TradeEntry{ItemID: items.Potion, Name: "Potion", Price: min(25, StarterGold(d))}
}

// DefaultEventOptions is used when an event arrives without usable options.
func DefaultEventOptions(d Difficulty) []EventOption {
	_, _, dc := TrapDC(d)
	return []EventOption{
		{ID: "investigate", Label: "Investigate",
			Check:   &CheckInfo{Stat: stats.Wisdom, Difficulty: dc},
			Reward:  Boon{Kind: BoonGold, Value: MaxRewardGold(d) / 4},
			Penalty: Cost{CostHP, 10}},
		{ID: "leave", Label: "Leave it be",
			Reward: Boon{Kind: BoonNone}, Penalty: Cost{Kind: CostNone}},
	}
}

// fillShrine tops options up to ShrineOptionCount from the default pool in
// an order drawn from src, skipping ids already present. The pool outnumbers
// the slots, so up to five authored collisions still leave enough.
func fillShrine(options []ShrineOption, d Difficulty, src stats.Source) []ShrineOption {
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		seen[o.ID] = true
	}
	pool := DefaultShrineOptions(d)
	shuffle(src, len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	for _, o := range pool {
		if len(options) >= ShrineOptionCount {
			break
		}
		if seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		options = append(options, o)
	}
	return options
}

// shuffle is a Fisher-Yates over the injected source.
func shuffle(src stats.Source, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, src.Intn(i+1))
	}
}
