// balance is a Monte Carlo simulator for testing Card Crawl dungeon balance.
//
// Usage:
//
//	balance [command] [options]
//
// Commands:
//
//	sweep      - Autopilot a dungeon many times and compare with the analyzer
//	tiers      - Sweep one layout at every difficulty
//	calibrate  - Sweep and record the runs as telemetry for the analyzer
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/lawnchairsociety/cardcrawl/internal/analyzer"
	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/config"
	"github.com/lawnchairsociety/cardcrawl/internal/database"
	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/logger"
	"github.com/lawnchairsociety/cardcrawl/internal/run"
	"github.com/lawnchairsociety/cardcrawl/utilities/balance"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "sweep":
		err = runSweep(os.Args[2:])
	case "tiers":
		err = runTiers(os.Args[2:])
	case "calibrate":
		err = runCalibrate(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "balance %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Card Crawl Balance Simulator

A Monte Carlo simulator for testing dungeon balance.

Usage: balance <command> [options]

Commands:
  sweep      Autopilot a dungeon many times and compare with the analyzer
  tiers      Sweep one layout at every difficulty
  calibrate  Sweep and record the runs as telemetry in the database

Examples:
  balance sweep -dungeon data/dungeons/crypt.yaml -iterations=10000
  balance sweep -dungeon data/dungeons/crypt.yaml -playstyles=swift,arcane -json
  balance tiers -dungeon data/dungeons/crypt.yaml -iterations=2000
  balance calibrate -dungeon data/dungeons/crypt.yaml -iterations=500

Use "balance <command> -h" for more information about a command.`)
}

type sweepFlags struct {
	dungeon    *string
	iterations *int
	seed       *int64
	workers    *int
	playstyles *string
	configFile *string
}

func addSweepFlags(fs *flag.FlagSet, iterations int) sweepFlags {
	return sweepFlags{
		dungeon:    fs.String("dungeon", "", "Path to dungeon document (YAML or JSON)"),
		iterations: fs.Int("iterations", iterations, "Number of runs to simulate"),
		seed:       fs.Int64("seed", 1, "Seed of the first run; run i uses seed+i"),
		workers:    fs.Int("workers", runtime.NumCPU(), "Parallel workers"),
		playstyles: fs.String("playstyles", "", "Comma-separated playstyles (default: all)"),
		configFile: fs.String("config", "data/crawl.yaml", "Path to config YAML file"),
	}
}

func (f sweepFlags) load() (*dungeon.Document, balance.Config, *config.Config, error) {
	cfg, err := config.Load(*f.configFile)
	if err != nil {
		return nil, balance.Config{}, nil, err
	}
	if *f.dungeon == "" {
		return nil, balance.Config{}, nil, fmt.Errorf("need -dungeon")
	}
	doc, err := dungeon.LoadDocument(*f.dungeon)
	if err != nil {
		return nil, balance.Config{}, nil, err
	}

	bc := balance.DefaultConfig()
	bc.Iterations = *f.iterations
	bc.Seed = *f.seed
	bc.Workers = *f.workers
	bc.ConversionRate = cfg.Economy.ConversionRate
	bc.Analyzer = analyzer.Config{
		MinSamples:         cfg.Analyzer.MinSamples,
		MaxEmpiricalWeight: cfg.Analyzer.MaxEmpiricalWeight,
		Confidence:         cfg.Analyzer.Confidence,
	}
	if *f.playstyles != "" {
		bc.Playstyles = nil
		for _, p := range strings.Split(*f.playstyles, ",") {
			bc.Playstyles = append(bc.Playstyles, run.ParsePlaystyle(p))
		}
	}
	return doc, bc, cfg, nil
}

func runSweep(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	sf := addSweepFlags(fs, 1000)
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	fs.Parse(args)

	doc, bc, _, err := sf.load()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	r, err := balance.Sweep(ctx, doc, bc)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return r.Write(os.Stdout)
}

func runTiers(args []string) error {
	fs := flag.NewFlagSet("tiers", flag.ExitOnError)
	sf := addSweepFlags(fs, 2000)
	fs.Parse(args)

	doc, bc, _, err := sf.load()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Printf("=== Difficulty Tiers: %s ===\n\n", doc.Name)
	fmt.Printf("%s runs per tier\n\n", humanize.Comma(int64(bc.Iterations)))
	fmt.Println("Tier      | Estimate | Observed | Gap     | Deaths")
	fmt.Println("----------+----------+----------+---------+--------")
	for _, d := range card.Difficulties {
		tier := *doc
		tier.Difficulty = string(d)
		r, err := balance.Sweep(ctx, &tier, bc)
		if err != nil {
			return fmt.Errorf("%s: %w", d, err)
		}
		fmt.Printf("%-9s | %7.1f%% | %7.1f%% | %+6.1f | %s\n",
			d, r.Analysis.Summary.EstimatedClearRate*100, r.Overall.ClearRate()*100,
			r.Gap()*100, humanize.Comma(int64(r.Overall.Deaths)))
	}
	return nil
}

func runCalibrate(args []string) error {
	fs := flag.NewFlagSet("calibrate", flag.ExitOnError)
	sf := addSweepFlags(fs, 500)
	fs.Parse(args)

	doc, bc, cfg, err := sf.load()
	if err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("dungeon document has no id")
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	db, err := database.OpenWithConfig(database.FromSettings(cfg.Database))
	if err != nil {
		return err
	}
	defer db.Close()

	settlements, err := balance.Play(ctx, doc, bc)
	if err != nil {
		return err
	}
	for _, s := range settlements {
		if err := db.AppendTelemetry(ctx, doc.ID, s); err != nil {
			return err
		}
	}
	agg, err := db.LoadAggregate(ctx, doc.ID)
	if err != nil {
		return err
	}
	logger.Info("Telemetry recorded", "dungeon_id", doc.ID, "runs", len(settlements), "total", agg.Runs)

	res := analyzer.Analyze(analyzer.LayoutFromDocument(doc), agg, bc.Analyzer)
	fmt.Printf("Recorded %s runs (%s total) for %s\n",
		humanize.Comma(int64(len(settlements))), humanize.Comma(int64(agg.Runs)), doc.ID)
	fmt.Printf("Clear rate estimated %.1f%%, observed %.1f%%, calibrated %.1f%%\n",
		res.Summary.EstimatedClearRate*100, agg.ClearRate()*100, res.Summary.CalibratedClearRate*100)
	return nil
}
