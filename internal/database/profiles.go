package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lawnchairsociety/cardcrawl/internal/run"
)

var ErrNoProfileID = errors.New("profile id is empty")

const applyGoldDelta = `
	INSERT INTO profiles (id, gold) VALUES (?, {greatest}(?, 0))
	ON CONFLICT (id) DO UPDATE SET
		gold = {greatest}(profiles.gold + ?, 0),
		updated_at = CURRENT_TIMESTAMP`

// LoadProfile reads a player's persistent gold. A profile that has never
// been paid reads as zero gold.
func (d *Database) LoadProfile(ctx context.Context, id string) (*run.Profile, error) {
	if id == "" {
		return nil, ErrNoProfileID
	}
	p := &run.Profile{ID: id}
	err := d.db.QueryRowContext(ctx, d.qb.Build("SELECT gold FROM profiles WHERE id = ?"), id).Scan(&p.Gold)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

// ApplyGoldDelta adds delta to a profile, creating it if needed. The
// balance never drops below zero.
func (d *Database) ApplyGoldDelta(ctx context.Context, profileID string, delta int) error {
	if profileID == "" {
		return ErrNoProfileID
	}
	query := d.qb.Build(applyGoldDelta)
	if _, err := d.db.ExecContext(ctx, query, profileID, delta, delta); err != nil {
		return fmt.Errorf("failed to apply gold delta: %w", err)
	}
	return nil
}
