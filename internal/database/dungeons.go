package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/run"
)

var (
	ErrDungeonNotFound = errors.New("dungeon not found")
	ErrNoDungeonID     = errors.New("dungeon document has no id")
)

// DungeonSummary is one row of ListDungeons.
type DungeonSummary struct {
	ID         string
	Name       string
	Difficulty card.Difficulty
}

// SaveDungeon inserts or replaces a dungeon document.
func (d *Database) SaveDungeon(ctx context.Context, doc *dungeon.Document) error {
	if doc.ID == "" {
		return ErrNoDungeonID
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode dungeon: %w", err)
	}
	query := d.qb.Build(`
		INSERT INTO dungeons (id, name, difficulty, document)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			difficulty = excluded.difficulty,
			document = excluded.document,
			updated_at = CURRENT_TIMESTAMP
	`)
	diff := card.ParseDifficulty(doc.Difficulty)
	if _, err := d.db.ExecContext(ctx, query, doc.ID, doc.Name, string(diff), string(data)); err != nil {
		return fmt.Errorf("failed to save dungeon: %w", err)
	}
	return nil
}

// LoadDungeon reads a stored dungeon document.
func (d *Database) LoadDungeon(ctx context.Context, id string) (*run.DungeonRecord, error) {
	query := d.qb.Build("SELECT id, name, document FROM dungeons WHERE id = ?")
	var rec run.DungeonRecord
	var data string
	err := d.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.Name, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDungeonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dungeon: %w", err)
	}
	doc, err := dungeon.ParseDocument([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("stored dungeon %s: %w", id, err)
	}
	rec.Document = doc
	return &rec, nil
}

// ListDungeons returns every stored dungeon ordered by id.
func (d *Database) ListDungeons(ctx context.Context) ([]DungeonSummary, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT id, name, difficulty FROM dungeons ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list dungeons: %w", err)
	}
	defer rows.Close()

	var out []DungeonSummary
	for rows.Next() {
		var s DungeonSummary
		var diff string
		if err := rows.Scan(&s.ID, &s.Name, &diff); err != nil {
			return nil, err
		}
		s.Difficulty = card.ParseDifficulty(diff)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteDungeon removes a dungeon and its telemetry.
func (d *Database) DeleteDungeon(ctx context.Context, id string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, d.qb.Build("DELETE FROM dungeon_telemetry WHERE dungeon_id = ?"), id); err != nil {
		return fmt.Errorf("failed to delete telemetry: %w", err)
	}
	res, err := tx.ExecContext(ctx, d.qb.Build("DELETE FROM dungeons WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete dungeon: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDungeonNotFound
	}
	return tx.Commit()
}
