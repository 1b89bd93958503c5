package items

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBag_InsertionOrder(t *testing.T) {
	b := NewBag()
	b.Add(Ether, 1)
	b.Add(Potion, 2)
	b.Add(Ether, 1)
	b.Add(Bomb, 1)

	want := []Entry{{Ether, 2}, {Potion, 2}, {Bomb, 1}}
	got := b.Entries()
	if len(got) != len(want) {
		t.Fatalf("Entries() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
	if b.Total() != 5 {
		t.Errorf("Total() = %d, want 5", b.Total())
	}
}

func TestBag_TakeRemovesEmptyEntries(t *testing.T) {
	b := NewBag()
	b.Add(Potion, 1)
	b.Add(Antidote, 1)

	if !b.Take(Potion) {
		t.Fatal("Take(potion) should succeed")
	}
	if b.Take(Potion) {
		t.Error("second Take(potion) should fail")
	}
	if b.Len() != 1 || b.Entries()[0].ID != Antidote {
		t.Errorf("expected only antidote left, got %v", b.Entries())
	}

	b.Add(Potion, 1)
	if got := b.Entries(); got[len(got)-1].ID != Potion {
		t.Errorf("re-added item should go to the end, got %v", got)
	}
}

func TestBag_IgnoresNonPositive(t *testing.T) {
	b := NewBag()
	b.Add(Potion, 0)
	b.Add(Potion, -3)
	b.Add("", 2)
	if b.Len() != 0 {
		t.Errorf("expected empty bag, got %v", b.Entries())
	}
}

func TestCatalog_UnknownIsTrinket(t *testing.T) {
	c := DefaultCatalog()
	def := c.Get("ancient_relic")
	if def.Use.Usable() {
		t.Error("unknown items should not be usable")
	}
	if !c.Get(Potion).Use.Usable() {
		t.Error("potion should be usable")
	}
	if !c.Get(SmokeBomb).Use.CombatOnly() {
		t.Error("smoke bomb should be combat only")
	}
}

func TestLoadCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.yaml")
	content := `
items:
  "Dragon Tear":
    name: Dragon Tear
    use: heal
    amount: 120
    base_price: -5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalogFromYAML(path)
	if err != nil {
		t.Fatalf("LoadCatalogFromYAML: %v", err)
	}
	def := c.Get("dragon_tear")
	if def.Use != UseHeal || def.Amount != 120 {
		t.Errorf("got %+v", def)
	}
	if def.BasePrice != 0 {
		t.Errorf("negative price should clamp to 0, got %d", def.BasePrice)
	}
	if !c.Known(Potion) {
		t.Error("defaults should survive loading")
	}
}

func TestNormalizeID(t *testing.T) {
	tests := map[string]string{
		" Hi-Potion ":   "hi_potion",
		"Dragon Tear!!": "dragon_tear",
		"":              "",
	}
	for in, want := range tests {
		if got := NormalizeID(in); got != want {
			t.Errorf("NormalizeID(%q) = %q, want %q", in, got, want)
		}
	}
}
