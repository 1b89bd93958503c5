// Package balance runs Monte Carlo autopilot playthroughs of authored
// dungeons and sets the observed clear rate against the analyzer's estimate.
package balance

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/lawnchairsociety/cardcrawl/internal/analyzer"
	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/items"
	"github.com/lawnchairsociety/cardcrawl/internal/run"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

var ErrNoIterations = errors.New("sweep needs at least one iteration")

// Config controls a sweep.
type Config struct {
	Iterations int
	// Seed of iteration i is Seed+i, so a sweep replays exactly.
	Seed    int64
	Workers int
	// Playstyles are assigned round-robin across iterations.
	Playstyles     []run.Playstyle
	ConversionRate float64
	HealBelow      float64
	Catalog        *items.Catalog
	Analyzer       analyzer.Config
}

// DefaultConfig returns a 1000 run sweep over every playstyle.
func DefaultConfig() Config {
	return Config{
		Iterations: 1000,
		Seed:       1,
		Workers:    runtime.NumCPU(),
		Playstyles: run.Playstyles,
		HealBelow:  run.DefaultAutopilot().HealBelow,
		Analyzer:   analyzer.DefaultConfig(),
	}
}

// StyleResult is the share of a sweep played with one playstyle.
type StyleResult struct {
	Playstyle run.Playstyle `json:"playstyle"`
	Aggregate run.Aggregate `json:"aggregate"`
	AvgLevel  float64       `json:"avg_level"`
}

// Report summarizes a sweep.
type Report struct {
	DungeonID  string          `json:"dungeon_id"`
	Name       string          `json:"name"`
	Difficulty card.Difficulty `json:"difficulty"`
	Iterations int             `json:"iterations"`
	Seed       int64           `json:"seed"`
	Overall    run.Aggregate   `json:"overall"`
	Styles     []StyleResult   `json:"styles"`
	// Levels counts runs by the hero's final level.
	Levels         map[int]int `json:"levels"`
	PersistentGold int         `json:"persistent_gold"`
	// Analysis is calibrated against Overall.
	Analysis analyzer.Result `json:"analysis"`
}

// Gap is the observed clear rate minus the layout-only estimate.
func (r *Report) Gap() float64 {
	return r.Overall.ClearRate() - r.Analysis.Summary.EstimatedClearRate
}

// Sweep plays doc cfg.Iterations times with the autopilot and summarizes
// the runs.
func Sweep(ctx context.Context, doc *dungeon.Document, cfg Config) (*Report, error) {
	if len(cfg.Playstyles) == 0 {
		cfg.Playstyles = run.Playstyles
	}
	settlements, err := Play(ctx, doc, cfg)
	if err != nil {
		return nil, err
	}
	return summarize(doc, cfg, settlements), nil
}

// Play returns the settlement of every iteration, in iteration order.
// Run ids derive from the seed, so replaying a seed range yields the same
// ids.
func Play(ctx context.Context, doc *dungeon.Document, cfg Config) ([]run.Settlement, error) {
	if cfg.Iterations <= 0 {
		return nil, ErrNoIterations
	}
	if len(cfg.Playstyles) == 0 {
		cfg.Playstyles = run.Playstyles
	}
	workers := max(1, min(cfg.Workers, cfg.Iterations))

	// Fail fast on a document that cannot be built.
	if _, _, err := doc.Build(stats.NewRNG(cfg.Seed)); err != nil {
		return nil, err
	}

	settlements := make([]run.Settlement, cfg.Iterations)
	errs := make([]error, cfg.Iterations)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				settlements[i], errs[i] = playOnce(ctx, doc, cfg, i)
			}
		}()
	}

feed:
	for i := 0; i < cfg.Iterations; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return settlements, nil
}

// Simulated runs take no wall-clock time.
var epoch = time.Unix(0, 0)

func fixedClock() time.Time { return epoch }

func playOnce(ctx context.Context, doc *dungeon.Document, cfg Config, i int) (run.Settlement, error) {
	seed := cfg.Seed + int64(i)
	src := stats.NewRNG(seed)
	g, d, err := doc.Build(src)
	if err != nil {
		return run.Settlement{}, err
	}
	m := run.New(g, run.Options{
		RunID:          fmt.Sprintf("sweep-%d", seed),
		DungeonID:      doc.ID,
		Difficulty:     d,
		Playstyle:      cfg.Playstyles[i%len(cfg.Playstyles)],
		Source:         src,
		ConversionRate: cfg.ConversionRate,
		Catalog:        cfg.Catalog,
		Now:            fixedClock,
	})
	pilot := &run.Autopilot{HealBelow: cfg.HealBelow}
	s, err := pilot.Play(ctx, m)
	if err != nil {
		return run.Settlement{}, fmt.Errorf("iteration %d: %w", i, err)
	}
	return s, nil
}

func summarize(doc *dungeon.Document, cfg Config, settlements []run.Settlement) *Report {
	r := &Report{
		DungeonID:  doc.ID,
		Name:       doc.Name,
		Difficulty: card.ParseDifficulty(doc.Difficulty),
		Iterations: cfg.Iterations,
		Seed:       cfg.Seed,
		Levels:     make(map[int]int),
	}

	styles := make([]StyleResult, len(cfg.Playstyles))
	levels := make([]int, len(cfg.Playstyles))
	for i, p := range cfg.Playstyles {
		styles[i].Playstyle = p
	}
	for i, s := range settlements {
		k := i % len(cfg.Playstyles)
		r.Overall.Add(s)
		styles[k].Aggregate.Add(s)
		levels[k] += s.Level
		r.Levels[s.Level]++
		r.PersistentGold += s.PersistentGoldDelta
	}
	for k := range styles {
		if n := styles[k].Aggregate.Runs; n > 0 {
			styles[k].AvgLevel = float64(levels[k]) / float64(n)
		}
	}
	r.Styles = styles

	agg := r.Overall
	r.Analysis = analyzer.Analyze(analyzer.LayoutFromDocument(doc), &agg, cfg.Analyzer)
	return r
}
