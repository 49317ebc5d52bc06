// Package store persists confirmed deals.
package store

import (
	"context"
	"strings"

	"mandi/internal/orchestrator"
)

// Store records finalized sessions. Save returns where the deal landed.
type Store interface {
	Save(ctx context.Context, s *orchestrator.Session) (string, error)
	List(ctx context.Context) ([]orchestrator.Deal, error)
	Close() error
}

// Open picks the MySQL store when dsn is set and the file store otherwise.
func Open(ctx context.Context, dsn, dir string) (Store, error) {
	if strings.TrimSpace(dsn) != "" {
		s, err := OpenMySQL(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return NewFileStore(dir), nil
}
