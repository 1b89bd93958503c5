package database

import "github.com/lawnchairsociety/cardcrawl/internal/run"

// Database is the run package's persistence boundary.
var _ run.Store = (*Database)(nil)
