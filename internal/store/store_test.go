package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mandi/internal/listing"
	"mandi/internal/orchestrator"
	"mandi/internal/output"
	"mandi/internal/persona"
)

func sessionWithDeal(id string, at time.Time) *orchestrator.Session {
	return &orchestrator.Session{
		ID:       "S-" + id,
		Listing:  listing.Sample(),
		Personas: persona.Defaults(),
		Stage:    orchestrator.StageFinalized,
		Deal: &orchestrator.Deal{
			ID:            id,
			SessionID:     "S-" + id,
			ListingID:     "LST-SAMPLE",
			SellerID:      "farmer",
			BuyerID:       "trader",
			ProduceName:   "Onion",
			Unit:          "Quintal",
			FinalPrice:    3300,
			FinalQuantity: 10,
			TotalAmount:   33000,
			Status:        orchestrator.DealStatusCompleted,
			Timestamp:     at,
		},
	}
}

func TestFileStoreSaveAndList(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	second, err := fs.Save(ctx, sessionWithDeal("DEAL-BBBBBB", base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = fs.Save(ctx, sessionWithDeal("DEAL-AAAAAA", base))
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(second))
	_, err = os.Stat(output.MarkdownPath(second))
	require.NoError(t, err, "invoice should be written next to the deal")

	deals, err := fs.List(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.Equal(t, "DEAL-AAAAAA", deals[0].ID)
	assert.Equal(t, "DEAL-BBBBBB", deals[1].ID)
	assert.Equal(t, 33000.0, deals[1].TotalAmount)
}

func TestFileStoreRejectsSessionWithoutDeal(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	s := sessionWithDeal("DEAL-CCCCCC", time.Now())
	s.Deal = nil

	_, err := fs.Save(context.Background(), s)
	assert.ErrorIs(t, err, output.ErrNoDeal)
}

func TestFileStoreListEmptyDir(t *testing.T) {
	deals, err := NewFileStore(filepath.Join(t.TempDir(), "missing")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestNewFileStoreDefaultDir(t *testing.T) {
	assert.Equal(t, DefaultDir, NewFileStore("  ").Dir())
}

func TestOpenWithoutDSNUsesFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), "", dir)
	require.NoError(t, err)
	fs, ok := s.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, dir, fs.Dir())
	assert.NoError(t, s.Close())
}

func TestMySQLConfigForcesParseTime(t *testing.T) {
	cfg, err := mysqlConfig("mandi:secret@tcp(127.0.0.1:3306)/mandi")
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Equal(t, "mandi", cfg.DBName)
	assert.Equal(t, "127.0.0.1:3306", cfg.Addr)
}

func TestOpenMySQLRejectsBadDSN(t *testing.T) {
	_, err := OpenMySQL(context.Background(), "not a dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse mysql dsn")
}
