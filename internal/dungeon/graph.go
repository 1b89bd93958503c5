// Package dungeon turns authored step or room-link layouts into one
// canonical forward-only graph of rooms.
package dungeon

import (
	"github.com/lawnchairsociety/cardcrawl/internal/card"
)

// LinkKind is what happens after a room resolves.
type LinkKind string

const (
	Terminal LinkKind = "TERMINAL" // the run is cleared
	Next     LinkKind = "NEXT"     // move to Next
	Fork     LinkKind = "FORK"     // the player picks Next or Alt
)

// Link is one room's outgoing edge. Next and Alt are -1 when unused.
type Link struct {
	Kind LinkKind `json:"kind"`
	Next int      `json:"next"`
	Alt  int      `json:"alt"`
}

// TerminalLink ends the run.
func TerminalLink() Link { return Link{Kind: Terminal, Next: -1, Alt: -1} }

// NextLink moves to j.
func NextLink(j int) Link { return Link{Kind: Next, Next: j, Alt: -1} }

// ForkLink offers a and b. Identical targets collapse to NEXT.
func ForkLink(a, b int) Link {
	if a == b {
		return NextLink(a)
	}
	return Link{Kind: Fork, Next: a, Alt: b}
}

// Targets lists the link's destinations in choice order.
func (l Link) Targets() []int {
	switch l.Kind {
	case Next:
		return []int{l.Next}
	case Fork:
		return []int{l.Next, l.Alt}
	default:
		return nil
	}
}

// StepKind is how many rooms a step offers.
type StepKind string

const (
	Single   StepKind = "SINGLE"
	ForkStep StepKind = "FORK"
)

// MaxPerFork is how many rooms a FORK step offers.
const MaxPerFork = 2

// Step is one position in the sequence with the room indices it offers.
type Step struct {
	Kind  StepKind `json:"kind"`
	Rooms []int    `json:"rooms"`
}

// StepCards is the authored form of a step.
type StepCards struct {
	Kind  StepKind
	Cards []*card.CardData
}

// Graph is a normalized dungeon. Every non-terminal target is a valid room
// index greater than the room it leaves, so traversal always ends.
type Graph struct {
	Cards []*card.CardData `json:"card_list"`
	Links []Link           `json:"room_links"`
	Entry Link             `json:"entry"`
}

// Len returns the number of rooms.
func (g *Graph) Len() int {
	return len(g.Cards)
}

// At returns room i's link. Out-of-range indices report false.
func (g *Graph) At(i int) (Link, bool) {
	if i < 0 || i >= len(g.Links) {
		return TerminalLink(), false
	}
	return g.Links[i], true
}

// Card returns room i's card, or nil when out of range.
func (g *Graph) Card(i int) *card.CardData {
	if i < 0 || i >= len(g.Cards) {
		return nil
	}
	return g.Cards[i]
}

// FromSteps flattens steps into rooms. Every room of step i links to the
// rooms of step i+1; the last step's rooms are terminal. Empty steps are
// dropped, FORK steps keep at most two cards and a one-card FORK is SINGLE.
func FromSteps(steps []StepCards) *Graph {
	g := &Graph{Entry: TerminalLink()}
	var groups [][]int
	for _, s := range steps {
		cards := s.Cards
		limit := 1
		if s.Kind == ForkStep {
			limit = MaxPerFork
		}
		var idx []int
		for _, c := range cards {
			if c == nil || len(idx) == limit {
				continue
			}
			idx = append(idx, len(g.Cards))
			g.Cards = append(g.Cards, c)
		}
		if len(idx) > 0 {
			groups = append(groups, idx)
		}
	}

	g.Links = make([]Link, len(g.Cards))
	for i, group := range groups {
		link := TerminalLink()
		if i+1 < len(groups) {
			link = groupLink(groups[i+1])
		}
		for _, room := range group {
			g.Links[room] = link
		}
	}
	if len(groups) > 0 {
		g.Entry = groupLink(groups[0])
	}
	return g
}

func groupLink(rooms []int) Link {
	if len(rooms) == 1 {
		return NextLink(rooms[0])
	}
	return ForkLink(rooms[0], rooms[1])
}

// FromLinks builds a graph from a flat card list and raw links. Room 0 is
// the entry. Links that point out of range, backwards or at themselves,
// or that cannot be read, become TERMINAL.
func FromLinks(cards []*card.CardData, raw []RawLink) *Graph {
	g := &Graph{Cards: cards, Links: make([]Link, len(cards)), Entry: TerminalLink()}
	for i := range cards {
		if i < len(raw) {
			g.Links[i] = raw[i].resolve(i, len(cards))
		} else {
			g.Links[i] = TerminalLink()
		}
	}
	if len(cards) > 0 {
		g.Entry = NextLink(0)
	}
	return g
}

// Steps re-derives the step grouping by walking from the entry. Each step
// is the set of rooms the previous step's first room leads to.
func (g *Graph) Steps() []Step {
	var steps []Step
	link := g.Entry
	for guard := 0; guard <= len(g.Cards); guard++ {
		rooms := link.Targets()
		if len(rooms) == 0 {
			break
		}
		kind := Single
		if len(rooms) == MaxPerFork {
			kind = ForkStep
		}
		steps = append(steps, Step{Kind: kind, Rooms: rooms})
		next, ok := g.At(rooms[0])
		if !ok {
			break
		}
		link = next
	}
	return steps
}

// Reachable reports which rooms any path from the entry can visit.
func (g *Graph) Reachable() []bool {
	seen := make([]bool, len(g.Cards))
	queue := g.Entry.Targets()
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if i < 0 || i >= len(seen) || seen[i] {
			continue
		}
		seen[i] = true
		queue = append(queue, g.Links[i].Targets()...)
	}
	return seen
}
