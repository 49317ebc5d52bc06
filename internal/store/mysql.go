package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"mandi/internal/orchestrator"
)

const createDealsTable = `CREATE TABLE IF NOT EXISTS deals (
	id VARCHAR(16) PRIMARY KEY,
	session_id CHAR(26) NOT NULL,
	listing_id VARCHAR(64) NOT NULL,
	seller_id VARCHAR(64) NOT NULL,
	buyer_id VARCHAR(64) NOT NULL,
	produce_name VARCHAR(128) NOT NULL,
	unit VARCHAR(16) NOT NULL,
	final_price DECIMAL(12,2) NOT NULL,
	final_quantity DECIMAL(12,3) NOT NULL,
	total_amount DECIMAL(14,2) NOT NULL,
	status VARCHAR(16) NOT NULL,
	created_at DATETIME(3) NOT NULL
)`

// MySQLStore inserts deals into the deals table.
type MySQLStore struct {
	db *sql.DB
}

// mysqlConfig parses dsn and forces the options the store relies on.
func mysqlConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg, nil
}

// OpenMySQL connects, pings and migrates.
func OpenMySQL(ctx context.Context, dsn string) (*MySQLStore, error) {
	cfg, err := mysqlConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}
	s := NewMySQLStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (m *MySQLStore) Migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createDealsTable); err != nil {
		return fmt.Errorf("create deals table: %w", err)
	}
	return nil
}

func (m *MySQLStore) Save(ctx context.Context, s *orchestrator.Session) (string, error) {
	if s == nil || s.Deal == nil {
		return "", fmt.Errorf("save deal: session has no confirmed deal")
	}
	d := s.Deal
	query := `
		INSERT INTO deals (id, session_id, listing_id, seller_id, buyer_id, produce_name, unit,
			final_price, final_quantity, total_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := m.db.ExecContext(ctx, query,
		d.ID, d.SessionID, d.ListingID, d.SellerID, d.BuyerID, d.ProduceName, d.Unit,
		d.FinalPrice, d.FinalQuantity, d.TotalAmount, d.Status, d.Timestamp.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert deal %s: %w", d.ID, err)
	}
	return "mysql:deals/" + d.ID, nil
}

func (m *MySQLStore) List(ctx context.Context) ([]orchestrator.Deal, error) {
	query := `
		SELECT id, session_id, listing_id, seller_id, buyer_id, produce_name, unit,
			final_price, final_quantity, total_amount, status, created_at
		FROM deals
		ORDER BY created_at ASC
	`
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query deals: %w", err)
	}
	defer rows.Close()

	var deals []orchestrator.Deal
	for rows.Next() {
		var d orchestrator.Deal
		if err := rows.Scan(&d.ID, &d.SessionID, &d.ListingID, &d.SellerID, &d.BuyerID, &d.ProduceName, &d.Unit,
			&d.FinalPrice, &d.FinalQuantity, &d.TotalAmount, &d.Status, &d.Timestamp); err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deals, nil
}

func (m *MySQLStore) Close() error {
	return m.db.Close()
}
