// Package items holds the consumable catalog and the hero's run-scoped bag.
package items

// UseKind describes what using an item does.
type UseKind string

const (
	UseNone     UseKind = ""          // Trinkets and quest items
	UseHeal     UseKind = "heal"      // Restore Amount hp
	UseMana     UseKind = "mana"      // Restore Amount mp
	UseCleanse  UseKind = "cleanse"   // Remove debuffs
	UseDamage   UseKind = "damage"    // Deal Amount damage to the enemy, ignoring defense
	UseEscape   UseKind = "escape"    // Guaranteed flee
	UseHealFull UseKind = "heal_full" // Restore hp to max
)

// CombatOnly reports whether the item can only be used in an encounter.
func (k UseKind) CombatOnly() bool {
	return k == UseDamage || k == UseEscape
}

// Usable reports whether the item can be consumed at all.
func (k UseKind) Usable() bool {
	return k != UseNone
}

// Well-known item ids referenced by default trade lists and shrines.
const (
	Potion    = "potion"
	HiPotion  = "hi_potion"
	Elixir    = "elixir"
	Ether     = "ether"
	Antidote  = "antidote"
	Bomb      = "bomb"
	SmokeBomb = "smoke_bomb"
)
