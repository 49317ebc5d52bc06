// Package market supplies benchmark mandi prices and the deviation advisory
// shown when an offer strays far from them.
package market

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTTL = time.Hour

	// fairBand is the deviation, in percent, inside which a price is fair.
	fairBand = 15.0
	// advisoryThreshold is the deviation, in percent, above which offers
	// carry a caution.
	advisoryThreshold = 50.0
)

const (
	StatusFair = "fair"
	StatusHigh = "high"
	StatusLow  = "low"
)

var ErrUnknownCommodity = errors.New("no market price for commodity")

// Record is one benchmark price in rupees per quintal.
type Record struct {
	Commodity  string    `json:"commodity"`
	Market     string    `json:"market"`
	ModalPrice float64   `json:"modalPrice"`
	MinPrice   float64   `json:"minPrice"`
	MaxPrice   float64   `json:"maxPrice"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Source interface {
	Lookup(ctx context.Context, commodity string) (Record, error)
}

// Insight compares a price with the benchmark.
type Insight struct {
	MarketPrice  float64 `json:"marketPrice"`
	DeviationPct float64 `json:"deviationPct"`
	Status       string  `json:"status"`
}

type Config struct {
	TTL    time.Duration
	Source Source
	Now    func() time.Time
}

type cached struct {
	record  Record
	fetched time.Time
}

// Service caches benchmark lookups per commodity for TTL.
type Service struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

func New(cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Source == nil {
		cfg.Source = MockTable()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		source: cfg.Source,
		ttl:    cfg.TTL,
		now:    cfg.Now,
		cache:  make(map[string]cached),
	}
}

// Price returns the benchmark record for commodity.
func (s *Service) Price(ctx context.Context, commodity string) (Record, error) {
	key := normalizeKey(commodity)
	if key == "" {
		return Record{}, ErrUnknownCommodity
	}

	now := s.now()
	s.mu.Lock()
	if c, ok := s.cache[key]; ok && now.Sub(c.fetched) < s.ttl {
		s.mu.Unlock()
		return c.record, nil
	}
	s.mu.Unlock()

	rec, err := s.source.Lookup(ctx, commodity)
	if err != nil {
		return Record{}, fmt.Errorf("lookup %s: %w", commodity, err)
	}

	s.mu.Lock()
	s.cache[key] = cached{record: rec, fetched: now}
	s.mu.Unlock()
	return rec, nil
}

// ClearCache drops every cached record.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cached)
}

// Deviation is the signed difference of price from benchmark in percent.
func Deviation(price, benchmark float64) float64 {
	if benchmark <= 0 {
		return 0
	}
	return (price - benchmark) / benchmark * 100
}

func Compare(price, benchmark float64) Insight {
	pct := Deviation(price, benchmark)
	status := StatusFair
	switch {
	case pct > fairBand:
		status = StatusHigh
	case pct < -fairBand:
		status = StatusLow
	}
	return Insight{MarketPrice: benchmark, DeviationPct: pct, Status: status}
}

// Advise returns a caution when price deviates from benchmark by more than
// half, or "" when it does not or either value is absent.
func Advise(price, benchmark float64) string {
	if price <= 0 || benchmark <= 0 {
		return ""
	}
	pct := math.Abs(Deviation(price, benchmark))
	if pct <= advisoryThreshold {
		return ""
	}
	return fmt.Sprintf("Price deviation is high (%.0f%%). Proceed with caution.", pct)
}

// Table is a fixed price list keyed by lowercase commodity, optionally
// followed by a parenthesised variety.
type Table struct {
	Market string
	Prices map[string]float64
	Now    func() time.Time
}

// MockTable returns the built-in benchmark list.
func MockTable() *Table {
	return &Table{
		Market: "Mandi average",
		Prices: map[string]float64{
			"onion":            1200,
			"onion (red)":      1250,
			"tomato":           1500,
			"potato":           900,
			"rice":             3200,
			"rice (ponni)":     3600,
			"wheat":            2100,
			"wheat (sharbati)": 2300,
			"chilli":           8000,
			"cotton":           6000,
			"soybean":          4800,
			"mustard":          5400,
		},
	}
}

// Lookup matches the longest table key contained in commodity, or the
// longest key containing it, so "Red Onion (red)" finds "onion (red)" and
// "soy" finds "soybean".
func (t *Table) Lookup(_ context.Context, commodity string) (Record, error) {
	key := normalizeKey(commodity)
	if key == "" {
		return Record{}, ErrUnknownCommodity
	}

	keys := make([]string, 0, len(t.Prices))
	for k := range t.Prices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	match := ""
	for _, k := range keys {
		if k == key {
			match = k
			break
		}
	}
	if match == "" {
		for _, k := range keys {
			if strings.Contains(key, k) || strings.Contains(k, key) {
				match = k
				break
			}
		}
	}
	if match == "" {
		return Record{}, ErrUnknownCommodity
	}

	price := t.Prices[match]
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	return Record{
		Commodity:  commodity,
		Market:     t.Market,
		ModalPrice: price,
		MinPrice:   math.Round(price * 0.9),
		MaxPrice:   math.Round(price * 1.1),
		UpdatedAt:  now().UTC(),
	}, nil
}

// Rates lists every table entry sorted by commodity.
func (t *Table) Rates(ctx context.Context) []Record {
	keys := make([]string, 0, len(t.Prices))
	for k := range t.Prices {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		rec, err := t.Lookup(ctx, k)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
