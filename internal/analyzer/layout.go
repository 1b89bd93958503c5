// Package analyzer scores an authored dungeon layout for risk, reward and
// sustain, and estimates how often it will be cleared.
package analyzer

import (
	"strings"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

// layoutSeed fixes the normalizer's shrine shuffle so analysis is stable.
const layoutSeed = 1

// Slot is one position in a step. Card is nil for an empty slot; Err is
// set when authored content could not be normalized.
type Slot struct {
	Card *card.CardData
	Err  string
}

// Step is one authored step.
type Step struct {
	Kind  dungeon.StepKind
	Slots []Slot
}

// Layout is what the analyzer reads. RoomCount is the number of steps the
// author intends; zero means "as many as there are".
type Layout struct {
	Difficulty card.Difficulty
	RoomCount  int
	Steps      []Step
}

// LayoutFromGraph groups a built graph's rooms by step.
func LayoutFromGraph(d card.Difficulty, g *dungeon.Graph) Layout {
	l := Layout{Difficulty: d}
	for _, s := range g.Steps() {
		st := Step{Kind: s.Kind}
		for _, i := range s.Rooms {
			st.Slots = append(st.Slots, Slot{Card: g.Card(i)})
		}
		l.Steps = append(l.Steps, st)
	}
	l.RoomCount = len(l.Steps)
	return l
}

// LayoutFromDocument reads an authoring document. Unlike Document.Build it
// keeps empty and broken slots so they can be reported; a FORK step always
// has two slots.
func LayoutFromDocument(doc *dungeon.Document) Layout {
	d := card.ParseDifficulty(doc.Difficulty)
	src := stats.NewRNG(layoutSeed)
	if len(doc.Steps) == 0 && len(doc.CardList) > 0 {
		return layoutFromCardList(d, doc, src)
	}
	l := Layout{Difficulty: d, RoomCount: doc.RoomCount}
	for _, s := range doc.Steps {
		kind := dungeon.Single
		if strings.EqualFold(strings.TrimSpace(s.Type), string(dungeon.ForkStep)) {
			kind = dungeon.ForkStep
		}
		want := 1
		if kind == dungeon.ForkStep {
			want = dungeon.MaxPerFork
		}
		st := Step{Kind: kind}
		for i := 0; i < want; i++ {
			var room dungeon.Room
			if i < len(s.Rooms) {
				room = s.Rooms[i]
			}
			st.Slots = append(st.Slots, slotFor(room, d, src))
		}
		l.Steps = append(l.Steps, st)
	}
	return l
}

// layoutFromCardList normalizes each room on its own, then groups the
// rooms by step along the resolved links. A room that fails to normalize
// stays in place as a broken slot.
func layoutFromCardList(d card.Difficulty, doc *dungeon.Document, src stats.Source) Layout {
	slots := make([]Slot, len(doc.CardList))
	cards := make([]*card.CardData, len(doc.CardList))
	for i, room := range doc.CardList {
		slots[i] = slotFor(room, d, src)
		cards[i] = slots[i].Card
	}
	g := dungeon.FromLinks(cards, doc.RoomLinks)

	l := Layout{Difficulty: d}
	for _, s := range g.Steps() {
		st := Step{Kind: s.Kind}
		for _, i := range s.Rooms {
			st.Slots = append(st.Slots, slots[i])
		}
		l.Steps = append(l.Steps, st)
	}
	l.RoomCount = max(len(l.Steps), doc.RoomCount)
	return l
}

func slotFor(room dungeon.Room, d card.Difficulty, src stats.Source) Slot {
	if len(room) == 0 {
		return Slot{}
	}
	c, err := room.Normalize(d, src)
	if err != nil {
		return Slot{Err: err.Error()}
	}
	return Slot{Card: c}
}

// filled returns the step's placed cards.
func (s Step) filled() []*card.CardData {
	var out []*card.CardData
	for _, sl := range s.Slots {
		if sl.Card != nil {
			out = append(out, sl.Card)
		}
	}
	return out
}
