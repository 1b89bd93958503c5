// Package stats provides the seedable randomness port shared by the combat
// resolver, the run state machine and the content normalizer, plus the
// dice and ability-check helpers built on top of it.
package stats

import (
	"math/rand"
	"regexp"
	"strconv"
)

// Source is the randomness port. Everything that rolls takes a Source so
// tests can replay a scenario from a seed or script exact outcomes.
type Source interface {
	// Intn returns a value in [0, n). n must be positive.
	Intn(n int) int
	// Float64 returns a value in [0, 1).
	Float64() float64
}

// countingSource counts draws from the underlying generator so an RNG can
// be restored to an exact position.
type countingSource struct {
	src   rand.Source
	draws int64
}

func (c *countingSource) Int63() int64 {
	c.draws++
	return c.src.Int63()
}

func (c *countingSource) Seed(seed int64) {
	c.src.Seed(seed)
	c.draws = 0
}

// RNG is a deterministic Source seeded once at run creation.
type RNG struct {
	seed int64
	cs   *countingSource
	r    *rand.Rand
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	cs := &countingSource{src: rand.NewSource(seed)}
	return &RNG{seed: seed, cs: cs, r: rand.New(cs)}
}

// RestoreRNG creates an RNG and advances it to the given position.
func RestoreRNG(seed, position int64) *RNG {
	rng := NewRNG(seed)
	for rng.cs.draws < position {
		rng.cs.Int63()
	}
	return rng
}

// Seed returns the seed the RNG was created with.
func (g *RNG) Seed() int64 {
	return g.seed
}

// Position returns the number of raw draws made since creation.
func (g *RNG) Position() int64 {
	return g.cs.draws
}

// Intn returns a value in [0, n). Non-positive n returns 0.
func (g *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return g.r.Intn(n)
}

// Float64 returns a value in [0, 1).
func (g *RNG) Float64() float64 {
	return g.r.Float64()
}

// Chance reports whether a roll against probability p succeeds.
// p <= 0 never succeeds and p >= 1 always does, without consuming a draw.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// D20 rolls a 20-sided die (1-20)
func D20(src Source) int {
	return src.Intn(20) + 1
}

// Roll rolls n dice with the specified number of sides and returns the total
func Roll(src Source, n, sides int) int {
	if sides <= 0 {
		return 0
	}
	total := 0
	for i := 0; i < n; i++ {
		total += src.Intn(sides) + 1
	}
	return total
}

// WeightedSelect returns an index chosen by weighted random selection.
// Non-positive weights are never chosen; if all are, index 0 is returned.
func WeightedSelect(src Source, weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return 0
	}
	roll := src.Intn(total)
	cumulative := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		if roll < cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// Dice is a parsed dice expression such as "2d6+1".
type Dice struct {
	Count int
	Sides int
	Bonus int
}

// diceNotationRegex matches dice notation like "1d6", "2d4+1", "1d8-2"
var diceNotationRegex = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// ParseDice parses dice notation. Supports "1d6", "2d4", "1d8+2", "2d6-1".
func ParseDice(notation string) (Dice, bool) {
	matches := diceNotationRegex.FindStringSubmatch(notation)
	if matches == nil {
		return Dice{}, false
	}

	count, _ := strconv.Atoi(matches[1])
	sides, _ := strconv.Atoi(matches[2])
	if count <= 0 || sides <= 0 || count > 20 || sides > 100 {
		return Dice{}, false
	}

	bonus := 0
	if matches[3] != "" {
		bonus, _ = strconv.Atoi(matches[3])
	}
	return Dice{Count: count, Sides: sides, Bonus: bonus}, true
}

// Roll rolls the expression. Results never go below zero.
func (d Dice) Roll(src Source) int {
	total := Roll(src, d.Count, d.Sides) + d.Bonus
	if total < 0 {
		return 0
	}
	return total
}

// Average returns the expected value of the expression.
func (d Dice) Average() float64 {
	return float64(d.Count)*float64(d.Sides+1)/2 + float64(d.Bonus)
}

// String renders the expression back to notation.
func (d Dice) String() string {
	s := strconv.Itoa(d.Count) + "d" + strconv.Itoa(d.Sides)
	switch {
	case d.Bonus > 0:
		s += "+" + strconv.Itoa(d.Bonus)
	case d.Bonus < 0:
		s += strconv.Itoa(d.Bonus)
	}
	return s
}
