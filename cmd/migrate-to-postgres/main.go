// migrate-to-postgres copies dungeons, profiles and run telemetry from SQLite
// to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/cardcrawl.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user cardcrawl \
//	    -pg-password cardcrawl \
//	    -pg-database cardcrawl
package main

import (
	"context"
	"flag"
	"log"

	"github.com/lawnchairsociety/cardcrawl/internal/database"
)

func main() {
	pg := database.DefaultPostgresConfig()

	sqlitePath := flag.String("sqlite", "data/cardcrawl.db", "Path to SQLite database")
	flag.StringVar(&pg.Host, "pg-host", pg.Host, "PostgreSQL host")
	flag.IntVar(&pg.Port, "pg-port", pg.Port, "PostgreSQL port")
	flag.StringVar(&pg.User, "pg-user", pg.User, "PostgreSQL user")
	flag.StringVar(&pg.Password, "pg-password", "", "PostgreSQL password")
	flag.StringVar(&pg.Database, "pg-database", pg.Database, "PostgreSQL database name")
	flag.StringVar(&pg.SSLMode, "pg-sslmode", pg.SSLMode, "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Migration Tool")
	log.Println("====================================")

	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := database.Open(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	// Opening runs the schema migrations on PostgreSQL.
	log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", pg.User, pg.Host, pg.Port, pg.Database)
	dst, err := database.OpenWithConfig(database.Config{Driver: string(database.DialectPostgres), Postgres: pg})
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer dst.Close()

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	}

	stats, err := src.CopyTo(context.Background(), dst, *dryRun)
	if err != nil {
		log.Fatalf("Migration failed after %d rows: %v", stats.Total(), err)
	}

	log.Printf("  dungeons:  %d", stats.Dungeons)
	log.Printf("  profiles:  %d", stats.Profiles)
	log.Printf("  telemetry: %d", stats.Runs)
	log.Println("====================================")
	log.Printf("Migration complete! Total rows migrated: %d", stats.Total())
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}
