// Package history provides file and database backends for run history.
package history

import (
	"fmt"

	corehistory "github.com/kilianp07/squadopt/core/history"
)

// Config selects and configures a history backend.
type Config struct {
	// Backend is "jsonl", "sqlite" or empty to disable history.
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// Rotation applies to the jsonl backend only.
	Rotation Rotation `json:"rotation"`
}

// Validate checks that an enabled backend has a path.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "none":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("history: %s backend requires a path", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("history: unknown backend %q", c.Backend)
	}
}

// New opens the configured store.
func New(cfg Config) (corehistory.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "jsonl":
		return NewJSONLStore(cfg.Path, cfg.Rotation)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return corehistory.Nop{}, nil
	}
}
