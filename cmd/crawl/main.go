// crawl plays, analyzes and serves Card Crawl dungeons.
//
// Usage:
//
//	crawl <command> [options]
//
// Commands:
//
//	run        - Autopilot playthrough of a dungeon, optionally settled into the database
//	analyze    - Score a dungeon layout and list pacing issues
//	normalize  - Normalize one untrusted card into its canonical form
//	import     - Store a dungeon document in the database
//	serve      - Start the live authoring analyzer
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lawnchairsociety/cardcrawl/internal/analyzer"
	"github.com/lawnchairsociety/cardcrawl/internal/authoring"
	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/config"
	"github.com/lawnchairsociety/cardcrawl/internal/database"
	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/items"
	"github.com/lawnchairsociety/cardcrawl/internal/logger"
	"github.com/lawnchairsociety/cardcrawl/internal/run"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "analyze":
		err = analyzeCmd(os.Args[2:])
	case "normalize":
		err = normalizeCmd(os.Args[2:])
	case "import":
		err = importCmd(os.Args[2:])
	case "serve":
		err = serveCmd(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawl %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Card Crawl

Usage: crawl <command> [options]

Commands:
  run        Autopilot playthrough of a dungeon
  analyze    Score a dungeon layout and list pacing issues
  normalize  Normalize one untrusted card JSON
  import     Store a dungeon document in the database
  serve      Start the live authoring analyzer (WebSocket)

Examples:
  crawl run -dungeon data/dungeons/crypt.yaml -seed 7 -playstyle swift
  crawl run -id crypt -profile p-1 -save
  crawl analyze -dungeon data/dungeons/crypt.yaml -telemetry
  crawl normalize -category ENEMY_BOSS -difficulty HARD < lich.json
  crawl import -dungeon data/dungeons/crypt.yaml
  crawl serve -addr 127.0.0.1:8070

Use "crawl <command> -h" for more information about a command.`)
}

// common holds the flags every command shares.
type common struct {
	configFile  *string
	loggingFile *string
}

func commonFlags(fs *flag.FlagSet) common {
	return common{
		configFile:  fs.String("config", "data/crawl.yaml", "Path to config YAML file"),
		loggingFile: fs.String("logging", "data/logging.yaml", "Path to logging config YAML file"),
	}
}

// setup loads configuration and starts logging.
func (c common) setup() (*config.Config, error) {
	logConfig, err := logger.LoadConfig(*c.loggingFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return config.Load(*c.configFile)
}

func analyzerConfig(cfg *config.Config) analyzer.Config {
	return analyzer.Config{
		MinSamples:         cfg.Analyzer.MinSamples,
		MaxEmpiricalWeight: cfg.Analyzer.MaxEmpiricalWeight,
		Confidence:         cfg.Analyzer.Confidence,
	}
}

func openDB(cfg *config.Config) (*database.Database, error) {
	return database.OpenWithConfig(database.FromSettings(cfg.Database))
}

// loadDocument reads a dungeon from a file, or from the database by id.
func loadDocument(ctx context.Context, cfg *config.Config, path, id string) (*dungeon.Document, error) {
	if path != "" {
		return dungeon.LoadDocument(path)
	}
	if id == "" {
		return nil, fmt.Errorf("need -dungeon or -id")
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rec, err := db.LoadDungeon(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Document, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cf := commonFlags(fs)
	path := fs.String("dungeon", "", "Path to dungeon document (YAML or JSON)")
	id := fs.String("id", "", "Stored dungeon id (used when -dungeon is empty)")
	seed := fs.Int64("seed", 0, "RNG seed (default: random based on current time)")
	style := fs.String("playstyle", string(run.Vanguard), "Playstyle: vanguard, swift, precise, arcane")
	profile := fs.String("profile", "", "Profile id credited with the settlement")
	save := fs.Bool("save", false, "Write the settlement and telemetry to the database")
	itemsFile := fs.String("items", "", "Path to item catalog YAML (default: built-in catalog)")
	quiet := fs.Bool("quiet", false, "Print only the settlement")
	fs.Parse(args)

	cfg, err := cf.setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	doc, err := loadDocument(ctx, cfg, *path, *id)
	if err != nil {
		return err
	}

	runSeed := *seed
	if runSeed == 0 {
		runSeed = time.Now().UnixNano()
	}
	logger.Info("Run seed selected", "seed", runSeed, "random", *seed == 0)

	src := stats.NewRNG(runSeed)
	g, d, err := doc.Build(src)
	if err != nil {
		return err
	}

	var catalog *items.Catalog
	if *itemsFile != "" {
		if catalog, err = items.LoadCatalogFromYAML(*itemsFile); err != nil {
			return err
		}
	}

	m := run.New(g, run.Options{
		DungeonID:      doc.ID,
		ProfileID:      *profile,
		Difficulty:     d,
		Playstyle:      run.ParsePlaystyle(*style),
		Source:         src,
		JudgeTimeout:   cfg.Combat.JudgeTimeout(),
		EnemyTurnDelay: cfg.Combat.EnemyTurnDelay(),
		ConversionRate: cfg.Economy.ConversionRate,
		Catalog:        catalog,
	})

	pilot := run.DefaultAutopilot()
	if !*quiet {
		pilot.OnUpdate = func(u run.Update) { printUpdate(os.Stdout, u) }
	}
	s, err := pilot.Play(ctx, m)
	if err != nil {
		return err
	}

	if *save {
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if s, err = m.Finish(ctx, db); err != nil {
			return err
		}
	}
	return printJSON(os.Stdout, s)
}

func printUpdate(w io.Writer, u run.Update) {
	for _, e := range u.Combat {
		if e.Message != "" {
			fmt.Fprintf(w, "  [turn %d] %s\n", e.Turn, e.Message)
		}
	}
	for _, line := range u.Log {
		fmt.Fprintln(w, line)
	}
	if u.Verdict != nil {
		fmt.Fprintf(w, "  (%s check: rolled %d, total %d)\n", u.Verdict.Source, u.Verdict.Roll, u.Verdict.Total)
	}
}

func analyzeCmd(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	cf := commonFlags(fs)
	path := fs.String("dungeon", "", "Path to dungeon document (YAML or JSON)")
	id := fs.String("id", "", "Stored dungeon id (used when -dungeon is empty)")
	telemetry := fs.Bool("telemetry", false, "Calibrate against recorded runs in the database")
	asJSON := fs.Bool("json", false, "Print the full analysis as JSON")
	fs.Parse(args)

	cfg, err := cf.setup()
	if err != nil {
		return err
	}
	ctx := context.Background()

	doc, err := loadDocument(ctx, cfg, *path, *id)
	if err != nil {
		return err
	}

	var agg *run.Aggregate
	if *telemetry && doc.ID != "" {
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if agg, err = db.LoadAggregate(ctx, doc.ID); err != nil {
			return err
		}
	}

	res := analyzer.Analyze(analyzer.LayoutFromDocument(doc), agg, analyzerConfig(cfg))
	if *asJSON {
		return printJSON(os.Stdout, res)
	}
	printAnalysis(os.Stdout, doc, res)
	return nil
}

func printAnalysis(w io.Writer, doc *dungeon.Document, res analyzer.Result) {
	s := res.Summary
	fmt.Fprintf(w, "=== %s (%s) ===\n\n", doc.Name, res.Difficulty)
	fmt.Fprintf(w, "Steps %d, filled slots %d\n", s.Steps, s.FilledSlots)
	fmt.Fprintf(w, "Risk avg %.1f peak %.1f | reward avg %.1f | sustain avg %.1f\n",
		s.AvgRisk, s.PeakRisk, s.AvgReward, s.AvgSustain)
	fmt.Fprintf(w, "Density combat %.2f trap %.2f recovery %.2f reward %.2f\n",
		s.CombatDensity, s.TrapDensity, s.RecoveryDensity, s.RewardDensity)
	fmt.Fprintf(w, "Clear rate estimated %.1f%% calibrated %.1f%% (%d samples)\n",
		s.EstimatedClearRate*100, s.CalibratedClearRate*100, s.Samples)
	fmt.Fprintf(w, "Run time %d-%ds\n\n", s.MinRunSeconds, s.MaxRunSeconds)

	fmt.Fprintln(w, "Step | Heat  | Rooms")
	fmt.Fprintln(w, "-----+-------+------------------------------")
	for i, heat := range res.Heatmap {
		var names []string
		for _, slot := range res.Slots {
			if slot.Step == i {
				names = append(names, fmt.Sprintf("%s(%d)", slot.Name, slot.Risk))
			}
		}
		fmt.Fprintf(w, "%4d | %5.1f | %s\n", i, heat, strings.Join(names, ", "))
	}

	if len(res.Issues) > 0 {
		fmt.Fprintln(w)
		for _, is := range res.Issues {
			fmt.Fprintf(w, "[%s] %s: %s\n", is.Severity, is.Code, is.Message)
			if is.Hint != "" {
				fmt.Fprintf(w, "        %s\n", is.Hint)
			}
		}
	}
}

func normalizeCmd(args []string) error {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	category := fs.String("category", "", "Forced card category (e.g. ENEMY_SINGLE)")
	difficulty := fs.String("difficulty", string(card.Normal), "Difficulty tier")
	seed := fs.Int64("seed", 1, "RNG seed for ranged values")
	input := fs.String("in", "", "Card JSON file (default: stdin)")
	fs.Parse(args)

	cat, ok := card.ParseCategory(*category)
	if !ok {
		return fmt.Errorf("unknown category %q", *category)
	}

	var raw []byte
	var err error
	if *input == "" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(*input)
	}
	if err != nil {
		return err
	}

	c, err := card.Normalize(raw, cat, card.ParseDifficulty(*difficulty), stats.NewRNG(*seed))
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, c)
}

func importCmd(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cf := commonFlags(fs)
	path := fs.String("dungeon", "", "Path to dungeon document (YAML or JSON)")
	fs.Parse(args)

	cfg, err := cf.setup()
	if err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("need -dungeon")
	}
	doc, err := dungeon.LoadDocument(*path)
	if err != nil {
		return err
	}
	// Reject documents that would fail at play time.
	if _, _, err := doc.Build(stats.NewRNG(1)); err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.SaveDungeon(context.Background(), doc); err != nil {
		return err
	}
	logger.Info("Dungeon imported", "id", doc.ID, "name", doc.Name)
	return nil
}

func serveCmd(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cf := commonFlags(fs)
	addr := fs.String("addr", "", "Listen address (default: from config)")
	noDB := fs.Bool("no-db", false, "Serve without telemetry calibration")
	fs.Parse(args)

	cfg, err := cf.setup()
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Authoring.ListenAddr = *addr
	}

	var source authoring.AggregateSource
	if !*noDB {
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		source = db
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Always("Starting Card Crawl authoring server")
	srv := authoring.New(cfg.Authoring, analyzerConfig(cfg), source)
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	logger.Always("Authoring server stopped")
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
