package analyzer

import (
	"math"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/run"
)

// Config tunes calibration against observed runs.
type Config struct {
	// MinSamples is how many finished runs are needed before telemetry
	// moves the estimate.
	MinSamples int `json:"min_samples" yaml:"min_samples"`
	// MaxEmpiricalWeight caps the share given to observed clear rates.
	MaxEmpiricalWeight float64 `json:"max_empirical_weight" yaml:"max_empirical_weight"`
	// Confidence is K in the weight n/(n+K).
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// DefaultConfig returns the stock calibration settings.
func DefaultConfig() Config {
	return Config{MinSamples: 10, MaxEmpiricalWeight: 0.65, Confidence: 20}
}

// BaseClearRate is the tier's clear rate for a layout of average risk.
func BaseClearRate(d card.Difficulty) float64 {
	return [...]float64{0.85, 0.70, 0.50, 0.32}[d.Index()]
}

// TargetRisk is the average risk a tier is tuned around.
func TargetRisk(d card.Difficulty) float64 {
	return [...]float64{30, 40, 50, 60}[d.Index()]
}

const (
	minClearRate = 0.03
	maxClearRate = 0.95

	riskWeight    = 0.006
	sustainWeight = 0.003
	rewardWeight  = 0.001

	sustainNorm = 15
	rewardNorm  = 25
)

// Summary aggregates the whole layout.
type Summary struct {
	Steps               int     `json:"steps"`
	FilledSlots         int     `json:"filled_slots"`
	AvgRisk             float64 `json:"avg_risk"`
	PeakRisk            float64 `json:"peak_risk"`
	AvgReward           float64 `json:"avg_reward"`
	AvgSustain          float64 `json:"avg_sustain"`
	CombatDensity       float64 `json:"combat_density"`
	TrapDensity         float64 `json:"trap_density"`
	RecoveryDensity     float64 `json:"recovery_density"`
	RewardDensity       float64 `json:"reward_density"`
	EstimatedClearRate  float64 `json:"estimated_clear_rate"`
	CalibratedClearRate float64 `json:"calibrated_clear_rate"`
	EmpiricalClearRate  float64 `json:"empirical_clear_rate"`
	EmpiricalWeight     float64 `json:"empirical_weight"`
	Samples             int     `json:"samples"`
	MinRunSeconds       int     `json:"min_run_seconds"`
	MaxRunSeconds       int     `json:"max_run_seconds"`
	ObservedRunSeconds  float64 `json:"observed_run_seconds,omitempty"`
}

// Result is one analysis.
type Result struct {
	Difficulty card.Difficulty `json:"difficulty"`
	Slots      []SlotScore     `json:"slots"`
	Heatmap    []float64       `json:"heatmap"`
	Issues     []Issue         `json:"issues"`
	Summary    Summary         `json:"summary"`
}

// Analyze scores l. agg may be nil. The result depends only on its inputs.
func Analyze(l Layout, agg *run.Aggregate, cfg Config) Result {
	d := l.Difficulty
	if d == "" {
		d = card.Normal
	}
	res := Result{Difficulty: d, Slots: []SlotScore{}, Heatmap: make([]float64, len(l.Steps)), Issues: []Issue{}}
	sum := &res.Summary
	sum.Steps = len(l.Steps)

	var (
		riskSum, rewardSum, sustainSum float64
		filledSteps                    int
		combat, traps, recovery, loot  int
	)
	for i, st := range l.Steps {
		var stepRisk float64
		n := 0
		lo, hi := math.MaxInt, 0
		for j, sl := range st.Slots {
			if sl.Card == nil {
				continue
			}
			s := scoreSlot(sl.Card, d)
			s.Step, s.Slot = i, j
			res.Slots = append(res.Slots, s)
			stepRisk += float64(s.Risk)
			rewardSum += float64(s.Reward)
			sustainSum += float64(s.Sustain)
			n++

			c := sl.Card.Category
			switch {
			case c.IsCombat():
				combat++
			case c.IsTrap():
				traps++
			}
			if c.IsRest() || c == card.NPCTrader || s.Sustain >= 30 {
				recovery++
			}
			if c == card.LootChest || c == card.Shrine || c == card.EventChoice || c == card.NPCQuest {
				loot++
			}
			t := timeRange[c]
			lo, hi = min(lo, t[0]), max(hi, t[1])
		}
		if n == 0 {
			continue
		}
		filledSteps++
		res.Heatmap[i] = round1(stepRisk / float64(n))
		riskSum += res.Heatmap[i]
		sum.PeakRisk = math.Max(sum.PeakRisk, res.Heatmap[i])
		sum.MinRunSeconds += lo
		sum.MaxRunSeconds += hi
	}

	filled := len(res.Slots)
	sum.FilledSlots = filled
	sum.EstimatedClearRate = BaseClearRate(d)
	if filled > 0 {
		sum.AvgRisk = round1(riskSum / float64(filledSteps))
		sum.AvgReward = round1(rewardSum / float64(filled))
		sum.AvgSustain = round1(sustainSum / float64(filled))
		sum.CombatDensity = round3(float64(combat) / float64(filled))
		sum.TrapDensity = round3(float64(traps) / float64(filled))
		sum.RecoveryDensity = round3(float64(recovery) / float64(filled))
		sum.RewardDensity = round3(float64(loot) / float64(filled))

		est := BaseClearRate(d) +
			(TargetRisk(d)-sum.AvgRisk)*riskWeight +
			(sum.AvgSustain-sustainNorm)*sustainWeight +
			(sum.AvgReward-rewardNorm)*rewardWeight
		sum.EstimatedClearRate = round3(clampFloat(est, minClearRate, maxClearRate))
	}
	calibrate(sum, agg, cfg)

	res.Issues = diagnose(l, &res, d, cfg)
	return res
}

// calibrate blends observed clear rate into the estimate once enough runs
// exist. The empirical share grows as n/(n+K) and never passes the cap.
func calibrate(sum *Summary, agg *run.Aggregate, cfg Config) {
	sum.CalibratedClearRate = sum.EstimatedClearRate
	if agg == nil || agg.Runs == 0 {
		return
	}
	sum.Samples = agg.Runs
	sum.EmpiricalClearRate = round3(agg.ClearRate())
	if agg.Seconds > 0 {
		sum.ObservedRunSeconds = round1(agg.Seconds / float64(agg.Runs))
	}
	if agg.Runs < cfg.MinSamples {
		return
	}
	n := float64(agg.Runs)
	w := n / (n + math.Max(cfg.Confidence, 0))
	w = math.Min(w, cfg.MaxEmpiricalWeight)
	w = clampFloat(w, 0, 1)
	sum.EmpiricalWeight = round3(w)
	sum.CalibratedClearRate = round3((1-w)*sum.EstimatedClearRate + w*agg.ClearRate())
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
