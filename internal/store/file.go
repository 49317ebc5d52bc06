package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mandi/internal/orchestrator"
	"mandi/internal/output"
)

const DefaultDir = "./deals"

// FileStore writes one JSON document and one Markdown invoice per deal.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	return &FileStore{dir: dir}
}

func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) Save(_ context.Context, s *orchestrator.Session) (string, error) {
	rec, err := output.NewRecord(s)
	if err != nil {
		return "", err
	}
	ts := rec.Deal.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	path := output.NewTimestampPath(f.dir, ts)
	if err := output.SaveDeal(path, rec); err != nil {
		return "", fmt.Errorf("save deal %s: %w", rec.Deal.ID, err)
	}
	return path, nil
}

// List returns saved deals, oldest first.
func (f *FileStore) List(ctx context.Context) ([]orchestrator.Deal, error) {
	paths, err := filepath.Glob(filepath.Join(f.dir, "*"+output.DealSuffix))
	if err != nil {
		return nil, fmt.Errorf("list deal files: %w", err)
	}
	sort.Strings(paths)

	deals := make([]orchestrator.Deal, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := output.ReadDeal(path)
		if err != nil {
			return nil, err
		}
		deals = append(deals, rec.Deal)
	}
	return deals, nil
}

func (f *FileStore) Close() error { return nil }
