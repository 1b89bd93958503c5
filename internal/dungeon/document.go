package dungeon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

var ErrUnknownCategory = errors.New("room has no known category")

// Room is one authored card. Its "category" key is the category forced on
// the normalizer; everything else is untrusted card content.
type Room map[string]any

// StepDoc is one authored step.
type StepDoc struct {
	Type  string `json:"type" yaml:"type"`
	Rooms []Room `json:"rooms" yaml:"rooms"`
}

// Document is the stored form of a dungeon. Either Steps or CardList with
// RoomLinks is set; Steps wins when both are.
type Document struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Difficulty string    `json:"difficulty" yaml:"difficulty"`
	RoomCount  int       `json:"room_count,omitempty" yaml:"room_count,omitempty"`
	Steps      []StepDoc `json:"steps,omitempty" yaml:"steps,omitempty"`
	CardList   []Room    `json:"card_list,omitempty" yaml:"card_list,omitempty"`
	RoomLinks  []RawLink `json:"room_links,omitempty" yaml:"room_links,omitempty"`
}

// ParseDocument decodes JSON, or YAML when the data does not start with '{'.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse dungeon JSON: %w", err)
		}
		return &doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse dungeon YAML: %w", err)
	}
	return &doc, nil
}

// LoadDocument reads a dungeon file. The extension picks the format.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dungeon file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse dungeon YAML: %w", err)
		}
		return &doc, nil
	default:
		return ParseDocument(data)
	}
}

// Build normalizes every room and assembles the graph.
func (d *Document) Build(src stats.Source) (*Graph, card.Difficulty, error) {
	diff := card.ParseDifficulty(d.Difficulty)
	if len(d.Steps) > 0 {
		steps := make([]StepCards, 0, len(d.Steps))
		for si, s := range d.Steps {
			kind := Single
			if strings.EqualFold(strings.TrimSpace(s.Type), string(ForkStep)) {
				kind = ForkStep
			}
			sc := StepCards{Kind: kind}
			for ri, room := range s.Rooms {
				c, err := room.Normalize(diff, src)
				if err != nil {
					return nil, diff, fmt.Errorf("step %d room %d: %w", si, ri, err)
				}
				sc.Cards = append(sc.Cards, c)
			}
			steps = append(steps, sc)
		}
		return FromSteps(steps), diff, nil
	}

	cards := make([]*card.CardData, 0, len(d.CardList))
	for i, room := range d.CardList {
		c, err := room.Normalize(diff, src)
		if err != nil {
			return nil, diff, fmt.Errorf("room %d: %w", i, err)
		}
		cards = append(cards, c)
	}
	return FromLinks(cards, d.RoomLinks), diff, nil
}

// Category returns the room's declared category.
func (r Room) Category() (card.Category, bool) {
	s, _ := r["category"].(string)
	return card.ParseCategory(s)
}

// Normalize runs the room through the card normalizer.
func (r Room) Normalize(d card.Difficulty, src stats.Source) (*card.CardData, error) {
	cat, ok := r.Category()
	if !ok {
		return nil, ErrUnknownCategory
	}
	return card.NormalizeValue(map[string]any(r), cat, d, src)
}

// DocumentFromGraph writes a graph back out in card_list/room_links form.
func DocumentFromGraph(id, name string, d card.Difficulty, g *Graph) (*Document, error) {
	doc := &Document{ID: id, Name: name, Difficulty: string(d), RoomLinks: RawLinks(g.Links)}
	for _, c := range g.Cards {
		b, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to encode card %q: %w", c.ID, err)
		}
		var room Room
		if err := json.Unmarshal(b, &room); err != nil {
			return nil, fmt.Errorf("failed to decode card %q: %w", c.ID, err)
		}
		doc.CardList = append(doc.CardList, room)
	}
	return doc, nil
}
