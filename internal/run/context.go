// Package run is the encounter state machine for one dungeon playthrough.
package run

import (
	"errors"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/combat"
	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/leveling"
)

var (
	ErrWrongPhase     = errors.New("operation not allowed in this phase")
	ErrUnknownOption  = errors.New("unknown option")
	ErrNotForSale     = errors.New("item not sold here")
	ErrInvalidBranch  = errors.New("invalid branch choice")
	ErrNothingToSay   = errors.New("nothing more to say")
	ErrAlreadyOnQuest = errors.New("quest already accepted")
)

// Phase is where the run is waiting.
type Phase string

const (
	PhaseEntry     Phase = "ENTRY"
	PhaseCombat    Phase = "COMBAT"
	PhaseTrap      Phase = "TRAP"
	PhaseShrine    Phase = "SHRINE"
	PhaseLoot      Phase = "LOOT"
	PhaseEvent     Phase = "EVENT"
	PhaseTrade     Phase = "TRADE"
	PhaseQuest     Phase = "QUEST"
	PhaseDialogue  Phase = "DIALOGUE"
	PhaseRest      Phase = "REST"
	PhaseReward    Phase = "REWARD"
	PhaseLevelUp   Phase = "LEVEL_UP"
	PhaseBranch    Phase = "BRANCH"
	PhaseCleared   Phase = "CLEARED"
	PhaseDead      Phase = "DEAD"
	PhaseForfeited Phase = "FORFEITED"
)

// Terminal reports whether the run is over.
func (p Phase) Terminal() bool {
	return p == PhaseCleared || p == PhaseDead || p == PhaseForfeited
}

// Room reports whether the phase waits on a room's own choices, where
// Leave is accepted.
func (p Phase) Room() bool {
	switch p {
	case PhaseShrine, PhaseLoot, PhaseEvent, PhaseTrade, PhaseQuest, PhaseDialogue, PhaseRest:
		return true
	default:
		return false
	}
}

// roomPhase maps a card category to the phase its room opens in.
func roomPhase(c card.Category) Phase {
	switch {
	case c.IsCombat():
		return PhaseCombat
	case c.IsTrap():
		return PhaseTrap
	case c.IsRest():
		return PhaseRest
	}
	switch c {
	case card.Shrine:
		return PhaseShrine
	case card.LootChest:
		return PhaseLoot
	case card.EventChoice:
		return PhaseEvent
	case card.NPCTrader:
		return PhaseTrade
	case card.NPCQuest:
		return PhaseQuest
	default:
		return PhaseDialogue
	}
}

// QuestState tracks one accepted quest.
type QuestState struct {
	CardID     string              `json:"card_id"`
	Giver      string              `json:"giver"`
	Objective  card.QuestObjective `json:"objective"`
	Target     int                 `json:"target"`
	Progress   int                 `json:"progress"`
	RewardGold int                 `json:"reward_gold"`
	RewardXP   int                 `json:"reward_xp"`
	Done       bool                `json:"done"`
}

// RunContext is everything one playthrough owns. It is passed explicitly;
// nothing about a run lives in package state.
type RunContext struct {
	ID         string
	DungeonID  string
	ProfileID  string
	Difficulty card.Difficulty
	Hero       *Hero
	Graph      *dungeon.Graph
	Room       int
	Phase      Phase

	// one-shot playstyle perks, cleared when used
	FirstStrike bool
	OpeningCrit bool

	Quests    []*QuestState
	Telemetry Telemetry
	Log       []string
}

// Card returns the current room's card, or nil before entry.
func (rc *RunContext) Card() *card.CardData {
	return rc.Graph.Card(rc.Room)
}

// RewardSummary is what one room paid out.
type RewardSummary struct {
	Gold      int                    `json:"gold"`
	DebtPaid  int                    `json:"debt_paid"`
	Credited  int                    `json:"credited"`
	Items     []string               `json:"items,omitempty"`
	XP        int                    `json:"xp"`
	LevelUps  []leveling.LevelUpInfo `json:"level_ups,omitempty"`
	Completed []string               `json:"completed_quests,omitempty"`
}

// Update is what one operation produced.
type Update struct {
	Phase   Phase          `json:"phase"`
	Room    int            `json:"room"`
	Log     []string       `json:"log,omitempty"`
	Combat  []combat.Event `json:"combat,omitempty"`
	Reward  *RewardSummary `json:"reward,omitempty"`
	Verdict *Verdict       `json:"verdict,omitempty"`
}
