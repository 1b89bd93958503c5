package dungeon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

func cards(n int) []*card.CardData {
	out := make([]*card.CardData, n)
	for i := range out {
		out[i] = &card.CardData{ID: string(rune('a' + i)), Name: "Room", Category: card.RestCampfire}
	}
	return out
}

func TestFromSteps_RoundTrip(t *testing.T) {
	c := cards(6)
	steps := []StepCards{
		{Kind: Single, Cards: c[0:1]},
		{Kind: ForkStep, Cards: c[1:3]},
		{Kind: Single, Cards: c[3:4]},
		{Kind: ForkStep, Cards: c[4:6]},
	}
	g := FromSteps(steps)

	wantLinks := []Link{ForkLink(1, 2), NextLink(3), NextLink(3), ForkLink(4, 5), TerminalLink(), TerminalLink()}
	if !reflect.DeepEqual(g.Links, wantLinks) {
		t.Fatalf("links = %+v, want %+v", g.Links, wantLinks)
	}
	if g.Entry != NextLink(0) {
		t.Errorf("entry = %+v", g.Entry)
	}

	want := []Step{
		{Kind: Single, Rooms: []int{0}},
		{Kind: ForkStep, Rooms: []int{1, 2}},
		{Kind: Single, Rooms: []int{3}},
		{Kind: ForkStep, Rooms: []int{4, 5}},
	}
	if got := g.Steps(); !reflect.DeepEqual(got, want) {
		t.Errorf("Steps() = %+v, want %+v", got, want)
	}
}

func TestFromSteps_DegenerateSteps(t *testing.T) {
	c := cards(4)
	g := FromSteps([]StepCards{
		{Kind: ForkStep, Cards: c[0:1]},
		{Kind: Single, Cards: nil},
		{Kind: Single, Cards: c[1:3]},
		{Kind: ForkStep, Cards: []*card.CardData{c[3], nil}},
	})
	if g.Len() != 3 {
		t.Fatalf("rooms = %d, want 3", g.Len())
	}
	steps := g.Steps()
	if len(steps) != 3 || steps[0].Kind != Single || steps[2].Kind != Single {
		t.Errorf("steps = %+v", steps)
	}
}

func TestFromLinks_Degrades(t *testing.T) {
	var raw []RawLink
	if err := json.Unmarshal([]byte(`[[9, 12], 2, -1, "x", [3, 3], [1, 5]]`), &raw); err != nil {
		t.Fatalf("raw links should always decode: %v", err)
	}
	g := FromLinks(cards(6), raw)
	want := []Link{
		TerminalLink(), // both fork targets out of range
		NextLink(2),
		TerminalLink(),
		TerminalLink(), // malformed
		TerminalLink(), // [3,3] points backwards
		TerminalLink(), // [1,5]: 1 backwards, 5 is itself
	}
	if !reflect.DeepEqual(g.Links, want) {
		t.Errorf("links = %+v, want %+v", g.Links, want)
	}
}

func TestFromLinks_ForkCollapse(t *testing.T) {
	g := FromLinks(cards(4), []RawLink{RawFork(9, 2), RawFork(3, 3), RawNext(3)})
	if g.Links[0] != NextLink(2) {
		t.Errorf("fork with one valid target should be NEXT, got %+v", g.Links[0])
	}
	if g.Links[1] != NextLink(3) {
		t.Errorf("identical fork targets should be NEXT, got %+v", g.Links[1])
	}
	if g.Links[3] != TerminalLink() {
		t.Errorf("missing link should be TERMINAL, got %+v", g.Links[3])
	}
	if _, ok := g.At(10); ok {
		t.Error("At out of range should report false")
	}
}

func TestEmptyGraph(t *testing.T) {
	g := FromSteps(nil)
	if g.Entry.Kind != Terminal || len(g.Steps()) != 0 {
		t.Errorf("empty graph = %+v", g)
	}
}

func TestReachable(t *testing.T) {
	g := FromLinks(cards(4), []RawLink{RawNext(2), RawNext(3), RawTerminal()})
	got := g.Reachable()
	want := []bool{true, false, true, false}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Reachable() = %v, want %v", got, want)
	}
}

func TestLoadDocument_YAMLSteps(t *testing.T) {
	content := `
id: crypt
name: The Crypt
difficulty: hard
steps:
  - type: SINGLE
    rooms:
      - category: ENEMY_SINGLE
        name: Ghoul
        description: It hungers.
        tags: [TAG_UNDEAD]
  - type: FORK
    rooms:
      - category: SHRINE
        name: Altar
        description: Bones.
      - category: REST_CAMPFIRE
        name: Embers
        description: Warm.
`
	path := filepath.Join(t.TempDir(), "crypt.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatal(err)
	}
	g, diff, err := doc.Build(stats.NewRNG(1))
	if err != nil {
		t.Fatal(err)
	}
	if diff != card.Hard || g.Len() != 3 {
		t.Fatalf("difficulty %s rooms %d", diff, g.Len())
	}
	if g.Cards[0].Stats == nil || !g.Cards[0].HasTag(card.TagUndead) {
		t.Errorf("ghoul = %+v", g.Cards[0])
	}
	if len(g.Cards[1].ShrineOptions) != card.ShrineOptionCount {
		t.Errorf("shrine options = %d", len(g.Cards[1].ShrineOptions))
	}
	if g.Links[0] != ForkLink(1, 2) {
		t.Errorf("link 0 = %+v", g.Links[0])
	}
}

func TestLoadDocument_YAMLRoomLinks(t *testing.T) {
	content := `
difficulty: easy
card_list:
  - {category: REST_SPRING, name: Spring, description: Clear.}
  - {category: LOOT_CHEST, name: Chest, description: Wooden.}
room_links:
  - [1, 7]
  - ~
`
	doc, err := ParseDocument([]byte(content))
	if err != nil {
		t.Fatal(err)
	}
	g, _, err := doc.Build(stats.NewRNG(1))
	if err != nil {
		t.Fatal(err)
	}
	if g.Links[0] != NextLink(1) || g.Links[1] != TerminalLink() {
		t.Errorf("links = %+v", g.Links)
	}
}

func TestDocument_UnknownCategory(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"card_list":[{"name":"X","description":"Y","category":"DRAGON"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := doc.Build(stats.NewRNG(1)); err == nil {
		t.Error("unknown category should fail the build")
	}
}

func TestDocumentFromGraph_RoundTrip(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"difficulty":"NORMAL","steps":[
		{"type":"SINGLE","rooms":[{"category":"NPC_TRADER","name":"Pip","description":"Sells."}]},
		{"type":"FORK","rooms":[
			{"category":"ENEMY_SQUAD","name":"Wolves","description":"Howl."},
			{"category":"TRAP_ROOM","name":"Blades","description":"Swing."}]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	g, diff, err := doc.Build(stats.NewRNG(5))
	if err != nil {
		t.Fatal(err)
	}
	out, err := DocumentFromGraph("d1", "Test", diff, g)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	again, err := ParseDocument(b)
	if err != nil {
		t.Fatal(err)
	}
	g2, _, err := again.Build(stats.NewRNG(5))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(g.Links, g2.Links) || !reflect.DeepEqual(g.Steps(), g2.Steps()) {
		t.Errorf("links changed: %+v vs %+v", g.Links, g2.Links)
	}
	if !reflect.DeepEqual(g.Cards, g2.Cards) {
		t.Errorf("cards changed after a round trip")
	}
}
