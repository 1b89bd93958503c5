package items

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition describes one item kind.
type Definition struct {
	ID          string  `yaml:"-"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Use         UseKind `yaml:"use"`
	Amount      int     `yaml:"amount"`
	BasePrice   int     `yaml:"base_price"`
}

// Catalog maps item ids to definitions.
type Catalog struct {
	defs map[string]Definition
}

// CatalogConfig represents the structure of an items YAML file
type CatalogConfig struct {
	Items map[string]Definition `yaml:"items"`
}

// DefaultCatalog returns the built-in consumables.
func DefaultCatalog() *Catalog {
	c := &Catalog{defs: make(map[string]Definition)}
	for _, d := range []Definition{
		{ID: Potion, Name: "Potion", Description: "Restores 30 hp.", Use: UseHeal, Amount: 30, BasePrice: 25},
		{ID: HiPotion, Name: "Hi-Potion", Description: "Restores 70 hp.", Use: UseHeal, Amount: 70, BasePrice: 60},
		{ID: Elixir, Name: "Elixir", Description: "Restores all hp.", Use: UseHealFull, BasePrice: 140},
		{ID: Ether, Name: "Ether", Description: "Restores 15 mp.", Use: UseMana, Amount: 15, BasePrice: 35},
		{ID: Antidote, Name: "Antidote", Description: "Cures burns, poison and other ailments.", Use: UseCleanse, BasePrice: 20},
		{ID: Bomb, Name: "Bomb", Description: "Deals 25 damage to the enemy.", Use: UseDamage, Amount: 25, BasePrice: 45},
		{ID: SmokeBomb, Name: "Smoke Bomb", Description: "Guarantees escape from a fight.", Use: UseEscape, BasePrice: 40},
	} {
		c.defs[d.ID] = d
	}
	return c
}

// LoadCatalogFromYAML loads extra item definitions on top of the defaults.
func LoadCatalogFromYAML(filename string) (*Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}

	var config CatalogConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse items YAML: %w", err)
	}

	c := DefaultCatalog()
	for id, def := range config.Items {
		id = NormalizeID(id)
		if id == "" {
			continue
		}
		def.ID = id
		if def.Name == "" {
			def.Name = id
		}
		if def.Amount < 0 {
			def.Amount = 0
		}
		if def.BasePrice < 0 {
			def.BasePrice = 0
		}
		c.defs[id] = def
	}
	return c, nil
}

// Get returns the definition for id. Unknown ids are treated as trinkets
// that can be carried but not used.
func (c *Catalog) Get(id string) Definition {
	if def, ok := c.defs[id]; ok {
		return def
	}
	return Definition{ID: id, Name: id}
}

// Known reports whether the catalog defines id.
func (c *Catalog) Known(id string) bool {
	_, ok := c.defs[id]
	return ok
}

// IDs returns every defined id in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.defs))
	for id := range c.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NormalizeID lowercases and snake-cases an authored item id.
func NormalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r == ' ' || r == '-':
			return '_'
		default:
			return -1
		}
	}, id)
	if len(id) > 48 {
		id = id[:48]
	}
	return id
}
