// Package card defines encounter cards and the normalizer that turns
// untrusted generator output into bounded, playable CardData.
package card

import (
	"strings"

	"github.com/lawnchairsociety/cardcrawl/internal/effects"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

// Difficulty is the dungeon's tier.
type Difficulty string

const (
	Easy      Difficulty = "EASY"
	Normal    Difficulty = "NORMAL"
	Hard      Difficulty = "HARD"
	Nightmare Difficulty = "NIGHTMARE"
)

// Difficulties lists tiers from easiest to hardest.
var Difficulties = []Difficulty{Easy, Normal, Hard, Nightmare}

// ParseDifficulty converts text to a Difficulty. Unknown values are NORMAL.
func ParseDifficulty(s string) Difficulty {
	switch d := Difficulty(strings.ToUpper(strings.TrimSpace(s))); d {
	case Easy, Normal, Hard, Nightmare:
		return d
	default:
		return Normal
	}
}

// Index returns the tier position, 0 for EASY.
func (d Difficulty) Index() int {
	switch d {
	case Easy:
		return 0
	case Hard:
		return 2
	case Nightmare:
		return 3
	default:
		return 1
	}
}

// Category is the kind of encounter a card produces.
type Category string

const (
	EnemySingle   Category = "ENEMY_SINGLE"
	EnemySquad    Category = "ENEMY_SQUAD"
	EnemyBoss     Category = "ENEMY_BOSS"
	TrapInstant   Category = "TRAP_INSTANT"
	TrapRoom      Category = "TRAP_ROOM"
	LootChest     Category = "LOOT_CHEST"
	Shrine        Category = "SHRINE"
	EventChoice   Category = "EVENT_CHOICE"
	NPCTrader     Category = "NPC_TRADER"
	NPCQuest      Category = "NPC_QUEST"
	NPCDialogue   Category = "NPC_DIALOGUE"
	RestCampfire  Category = "REST_CAMPFIRE"
	RestSpring    Category = "REST_SPRING"
	RestSanctuary Category = "REST_SANCTUARY"
)

// Categories lists every category.
var Categories = []Category{
	EnemySingle, EnemySquad, EnemyBoss, TrapInstant, TrapRoom, LootChest, Shrine,
	EventChoice, NPCTrader, NPCQuest, NPCDialogue, RestCampfire, RestSpring, RestSanctuary,
}

// ParseCategory converts text to a Category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// IsCombat reports whether the card starts a fight.
func (c Category) IsCombat() bool {
	return c == EnemySingle || c == EnemySquad || c == EnemyBoss
}

// IsTrap reports whether the card is a trap.
func (c Category) IsTrap() bool {
	return c == TrapInstant || c == TrapRoom
}

// IsRest reports whether the card is a rest site.
func (c Category) IsRest() bool {
	return c == RestCampfire || c == RestSpring || c == RestSanctuary
}

// IsNPC reports whether the card is an NPC.
func (c Category) IsNPC() bool {
	return c == NPCTrader || c == NPCQuest || c == NPCDialogue
}

// IsSupportive reports whether the card mainly helps the hero.
func (c Category) IsSupportive() bool {
	return c.IsRest() || c == LootChest || c == Shrine || c == NPCTrader
}

// Grade is a card's power tier.
type Grade string

const (
	GradeNormal    Grade = "NORMAL"
	GradeElite     Grade = "ELITE"
	GradeBoss      Grade = "BOSS"
	GradeEpic      Grade = "EPIC"
	GradeLegendary Grade = "LEGENDARY"
)

// ParseGrade converts text to a Grade.
func ParseGrade(s string) (Grade, bool) {
	switch g := Grade(strings.ToUpper(strings.TrimSpace(s))); g {
	case GradeNormal, GradeElite, GradeBoss, GradeEpic, GradeLegendary:
		return g, true
	default:
		return "", false
	}
}

// Stats are combat parameters.
type Stats struct {
	HP  int `json:"hp" yaml:"hp"`
	Atk int `json:"atk" yaml:"atk"`
	Def int `json:"def" yaml:"def"`
	Spd int `json:"spd" yaml:"spd"`
}

// CheckInfo describes the ability check a trap or event asks for.
type CheckInfo struct {
	Stat       stats.Ability `json:"stat" yaml:"stat"`
	Difficulty int           `json:"difficulty" yaml:"difficulty"`
	Damage     string        `json:"damage,omitempty" yaml:"damage,omitempty"`
}

// Trigger is when an enemy action is eligible.
type Trigger string

const (
	OnTurn      Trigger = "ON_TURN"
	OnTurnStart Trigger = "ON_TURN_START"
	Passive     Trigger = "PASSIVE"
	LowHP       Trigger = "LOW_HP"
)

// ActionEffect is what an enemy action does.
type ActionEffect string

const (
	EffectAttack ActionEffect = "ATTACK"
	EffectHeal   ActionEffect = "HEAL"
	EffectBuff   ActionEffect = "BUFF"
	EffectStatus ActionEffect = "STATUS"
	EffectDefend ActionEffect = "DEFEND"
)

// Action is one AI behavior rule.
type Action struct {
	Trigger Trigger      `json:"trigger" yaml:"trigger"`
	Effect  ActionEffect `json:"effect" yaml:"effect"`
	Value   float64      `json:"value" yaml:"value"`
	Status  effects.ID   `json:"status,omitempty" yaml:"status,omitempty"`
	Message string       `json:"message,omitempty" yaml:"message,omitempty"`
}

// GoldRange is a reward roll; Min == Max for fixed rewards.
type GoldRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Mean returns the expected gold.
func (g GoldRange) Mean() float64 {
	return float64(g.Min+g.Max) / 2
}

// ItemDrop is a reward item with its drop rate in [0,1].
type ItemDrop struct {
	ID   string  `json:"id" yaml:"id"`
	Name string  `json:"name,omitempty" yaml:"name,omitempty"`
	Rate float64 `json:"rate" yaml:"rate"`
}

// Rewards are granted when a room resolves in the hero's favor.
type Rewards struct {
	Gold  GoldRange  `json:"gold" yaml:"gold"`
	Items []ItemDrop `json:"items,omitempty" yaml:"items,omitempty"`
	XP    int        `json:"xp" yaml:"xp"`
}

// CostKind is what a shrine or event takes.
type CostKind string

const (
	CostNone  CostKind = "NONE"
	CostHP    CostKind = "HP"     // percent of max hp, never lethal
	CostGold  CostKind = "GOLD"   // flat gold, skipped if unaffordable
	CostDebt  CostKind = "DEBT"   // gold debt paid from future rewards
	CostMaxHP CostKind = "MAX_HP" // permanent max hp for the run
	CostCurse CostKind = "CURSE"  // turns of CURSE on the hero
)

// BoonKind is what a shrine or event gives.
type BoonKind string

const (
	BoonNone  BoonKind = "NONE"
	BoonAtk   BoonKind = "ATK"
	BoonDef   BoonKind = "DEF"
	BoonSpd   BoonKind = "SPD"
	BoonLuk   BoonKind = "LUK"
	BoonMaxHP BoonKind = "MAX_HP"
	BoonHeal  BoonKind = "HEAL" // percent of max hp
	BoonMP    BoonKind = "MP"
	BoonGold  BoonKind = "GOLD"
	BoonXP    BoonKind = "XP"
	BoonItem  BoonKind = "ITEM"
)

// Cost is a price paid at a shrine or event.
type Cost struct {
	Kind  CostKind `json:"kind" yaml:"kind"`
	Value int      `json:"value" yaml:"value"`
}

// Boon is a benefit gained at a shrine or event.
type Boon struct {
	Kind   BoonKind `json:"kind" yaml:"kind"`
	Value  int      `json:"value" yaml:"value"`
	ItemID string   `json:"item_id,omitempty" yaml:"item_id,omitempty"`
}

// ShrineOption is one cost/reward pair a shrine offers.
type ShrineOption struct {
	ID     string `json:"id" yaml:"id"`
	Label  string `json:"label" yaml:"label"`
	Cost   Cost   `json:"cost" yaml:"cost"`
	Reward Boon   `json:"reward" yaml:"reward"`
}

// TradeEntry is one item a trader sells.
type TradeEntry struct {
	ItemID string `json:"item_id" yaml:"item_id"`
	Name   string `json:"name" yaml:"name"`
	Price  int    `json:"price" yaml:"price"`
}

// QuestObjective is what a quest NPC asks for.
type QuestObjective string

const (
	QuestDefeat QuestObjective = "DEFEAT" // defeat Count enemies
	QuestClear  QuestObjective = "CLEAR"  // reach the end of the dungeon
)

// Quest is a quest NPC's offer.
type Quest struct {
	Objective  QuestObjective `json:"objective" yaml:"objective"`
	Count      int            `json:"count" yaml:"count"`
	RewardGold int            `json:"reward_gold" yaml:"reward_gold"`
	RewardXP   int            `json:"reward_xp" yaml:"reward_xp"`
}

// Mimic turns a loot chest into a fight when its chance hits.
type Mimic struct {
	Name   string  `json:"name" yaml:"name"`
	Chance float64 `json:"chance" yaml:"chance"`
	Stats  Stats   `json:"stats" yaml:"stats"`
}

// EventOption is one choice in an event. With a check, success grants
// Reward and failure applies Penalty; without one, both apply.
type EventOption struct {
	ID      string     `json:"id" yaml:"id"`
	Label   string     `json:"label" yaml:"label"`
	Check   *CheckInfo `json:"check,omitempty" yaml:"check,omitempty"`
	Reward  Boon       `json:"reward" yaml:"reward"`
	Penalty Cost       `json:"penalty" yaml:"penalty"`
}

// CardData is one normalized encounter definition. It is immutable once
// placed in a dungeon.
type CardData struct {
	ID            string         `json:"id" yaml:"id"`
	Name          string         `json:"name" yaml:"name"`
	Description   string         `json:"description" yaml:"description"`
	Category      Category       `json:"category" yaml:"category"`
	Grade         Grade          `json:"grade" yaml:"grade"`
	Tags          []Tag          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Stats         *Stats         `json:"stats,omitempty" yaml:"stats,omitempty"`
	CheckInfo     *CheckInfo     `json:"check_info,omitempty" yaml:"check_info,omitempty"`
	Actions       []Action       `json:"actions,omitempty" yaml:"actions,omitempty"`
	Rewards       *Rewards       `json:"rewards,omitempty" yaml:"rewards,omitempty"`
	ShrineOptions []ShrineOption `json:"shrine_options,omitempty" yaml:"shrine_options,omitempty"`
	TradeList     []TradeEntry   `json:"trade_list,omitempty" yaml:"trade_list,omitempty"`
	Dialogue      []string       `json:"dialogue,omitempty" yaml:"dialogue,omitempty"`
	Quest         *Quest         `json:"quest,omitempty" yaml:"quest,omitempty"`
	Mimic         *Mimic         `json:"mimic,omitempty" yaml:"mimic,omitempty"`
	EventOptions  []EventOption  `json:"event_options,omitempty" yaml:"event_options,omitempty"`
}

// HasTag reports whether the card carries the tag.
func (c *CardData) HasTag(t Tag) bool {
	return HasTag(c.Tags, t)
}
