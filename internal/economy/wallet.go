// Package economy tracks dungeon-local gold, starter gold and debt.
package economy

import (
	"errors"
	"math"
)

// DefaultConversionRate is the share of earned gold converted to persistent
// gold on a clear.
const DefaultConversionRate = 0.5

var ErrInsufficientGold = errors.New("insufficient gold")

// Wallet is the hero's dungeon-local purse. Gold and Debt never go negative.
type Wallet struct {
	Gold        int `json:"gold"`
	StarterGold int `json:"starter_gold"`
	Debt        int `json:"debt"`
}

// NewWallet seeds a wallet with starter gold.
func NewWallet(starter int) *Wallet {
	starter = max(0, starter)
	return &Wallet{Gold: starter, StarterGold: starter}
}

// Credit takes a reward. Debt is paid first; paid is what went to debt and
// credited what reached the purse.
func (w *Wallet) Credit(reward int) (paid, credited int) {
	if reward <= 0 {
		return 0, 0
	}
	paid = min(w.Debt, reward)
	w.Debt -= paid
	credited = reward - paid
	w.Gold += credited
	return paid, credited
}

// Spend removes n gold or fails without changing anything.
func (w *Wallet) Spend(n int) error {
	if n < 0 {
		return nil
	}
	if n > w.Gold {
		return ErrInsufficientGold
	}
	w.Gold -= n
	return nil
}

// CanAfford reports whether n gold is available.
func (w *Wallet) CanAfford(n int) bool {
	return n <= w.Gold
}

// AddDebt defers a cost against future rewards.
func (w *Wallet) AddDebt(n int) {
	if n > 0 {
		w.Debt += n
	}
}

// Earned is the gold eligible for conversion: gold above the starter
// amount, less remaining debt.
func (w *Wallet) Earned() int {
	return max(0, w.Gold-w.StarterGold-w.Debt)
}

// Convert returns the persistent gold a clear pays out at rate. Rates
// outside [0,1] are clamped.
func (w *Wallet) Convert(rate float64) int {
	if math.IsNaN(rate) || rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return int(math.Floor(float64(w.Earned()) * rate))
}

// Forfeit empties the purse after a death or abandoned run.
func (w *Wallet) Forfeit() {
	w.Gold = 0
	w.Debt = 0
}
