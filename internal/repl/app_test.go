package repl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mandi/internal/catalog"
	"mandi/internal/fallback"
	"mandi/internal/listing"
	"mandi/internal/locale"
	"mandi/internal/orchestrator"
	"mandi/internal/persona"
	"mandi/internal/store"
)

func newTestEngine(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	set, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	engine, err := fallback.New(set, fallback.Config{Seed: 7})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	o, err := orchestrator.New(engine, nil, orchestrator.Config{})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o
}

func runREPL(t *testing.T, cfg Config, input string) string {
	t.Helper()
	var out strings.Builder
	cfg.Writer = &out
	if cfg.Engine == nil {
		cfg.Engine = newTestEngine(t)
	}
	if cfg.Locale == "" {
		cfg.Locale = locale.English
	}
	app := NewApp(cfg)
	if err := app.Start(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("start: %v", err)
	}
	return out.String()
}

func TestNegotiateConfirmAndSave(t *testing.T) {
	dir := t.TempDir()
	text := runREPL(t, Config{Store: store.NewFileStore(dir)}, "₹3200\nyes\n/confirm\n/exit\n")

	if !strings.Contains(text, "negotiating with Ramesh Patel (seller)") {
		t.Fatalf("expected counterpart intro, got %q", text)
	}
	if !strings.Contains(text, "Confirm deal terms: ₹3200 x 50 Quintal = ₹160000") {
		t.Fatalf("expected confirmation prompt, got %q", text)
	}
	if !strings.Contains(text, "Deal confirmed! Invoice generated.") {
		t.Fatalf("expected confirmation turn, got %q", text)
	}
	if !strings.Contains(text, "at ₹3200 = ₹160000") {
		t.Fatalf("expected deal summary, got %q", text)
	}
	if !strings.Contains(text, "saved deal: "+dir) {
		t.Fatalf("expected saved deal path, got %q", text)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*-deal.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one deal file, got %v err=%v", files, err)
	}
}

func TestMessagesAfterConfirmAreRefused(t *testing.T) {
	text := runREPL(t, Config{}, "₹3200\nyes\n/confirm\nhello again\n")
	if !strings.Contains(text, "This deal is already finalized. Use /reset to start again.") {
		t.Fatalf("expected finalized notice, got %q", text)
	}
}

func TestConfirmBeforeAgreementFails(t *testing.T) {
	text := runREPL(t, Config{}, "/confirm\n")
	if !strings.Contains(text, "confirm failed:") {
		t.Fatalf("expected confirm failure, got %q", text)
	}
}

func TestEditReopensTerms(t *testing.T) {
	text := runREPL(t, Config{}, "₹3200\nyes\n/edit\n/show\n")
	if !strings.Contains(text, "Terms reopened. Keep negotiating.") {
		t.Fatalf("expected edit notice, got %q", text)
	}
	if !strings.Contains(text, "stage: chat | role: buyer | language: en") {
		t.Fatalf("expected chat stage after edit, got %q", text)
	}
}

func TestListingCommandStartsNewNegotiation(t *testing.T) {
	text := runREPL(t, Config{}, "/listing 20 quintal wheat for 2400 rupees\n/show\n")
	if !strings.Contains(text, "Wheat, 20 Quintal at ₹2400 per Quintal") {
		t.Fatalf("expected extracted listing, got %q", text)
	}
}

func TestListingCommandExplainsMissingFields(t *testing.T) {
	text := runREPL(t, Config{}, "/listing I have some onions\n")
	if !strings.Contains(text, locale.Message(locale.KeyExtractionHelp, locale.English)) {
		t.Fatalf("expected extraction help, got %q", text)
	}
}

func TestLoadListingFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listing.json")
	content := `{"id":"L-1","produceName":"Tomato","quantity":500,"unit":"kg","pricePerUnit":18}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write listing: %v", err)
	}

	text := runREPL(t, Config{}, "/load "+path+"\n")
	if !strings.Contains(text, "Tomato, 500 kg at ₹18 per kg (L-1)") {
		t.Fatalf("expected loaded listing, got %q", text)
	}
}

func TestRoleAndLanguageCommands(t *testing.T) {
	text := runREPL(t, Config{}, "/role seller\n/lang hi-IN\n/role broker\n/show\n")
	if !strings.Contains(text, "negotiating with Anil Traders (buyer)") {
		t.Fatalf("expected buyer counterpart, got %q", text)
	}
	if !strings.Contains(text, "language: Hindi (hi)") {
		t.Fatalf("expected language switch, got %q", text)
	}
	if !strings.Contains(text, "usage: /role <seller|buyer>") {
		t.Fatalf("expected role usage, got %q", text)
	}
	if !strings.Contains(text, "stage: chat | role: seller | language: hi") {
		t.Fatalf("expected updated session, got %q", text)
	}
}

func TestUnknownCommand(t *testing.T) {
	text := runREPL(t, Config{}, "/dance\n")
	if !strings.Contains(text, "unknown command") {
		t.Fatalf("expected unknown command message, got %q", text)
	}
}

func TestHelpListsCommands(t *testing.T) {
	text := runREPL(t, Config{}, "/help\n")
	if !strings.Contains(text, "/confirm") || !strings.Contains(text, "/lang <code>") {
		t.Fatalf("expected help output, got %q", text)
	}
}

func TestStartWithNilEngine(t *testing.T) {
	app := NewApp(Config{})
	if err := app.Start(context.Background(), strings.NewReader("")); err == nil {
		t.Fatal("expected error without engine")
	}
}

func TestStartRejectsInvalidListing(t *testing.T) {
	app := NewApp(Config{
		Engine:  newTestEngine(t),
		Listing: listing.Listing{ProduceName: "Onion", Quantity: 10, PricePerUnit: -1},
		Role:    persona.RoleBuyer,
	})
	if err := app.Start(context.Background(), strings.NewReader("")); err == nil {
		t.Fatal("expected invalid listing error")
	}
}

type failOnceStore struct {
	*store.FileStore
	failed bool
}

func (f *failOnceStore) Save(ctx context.Context, s *orchestrator.Session) (string, error) {
	if !f.failed {
		f.failed = true
		return "", errors.New("disk full")
	}
	return f.FileStore.Save(ctx, s)
}

func TestConfirmRetriesAfterSaveFailure(t *testing.T) {
	dir := t.TempDir()
	text := runREPL(t, Config{Store: &failOnceStore{FileStore: store.NewFileStore(dir)}}, `₹3200
yes
/confirm
/confirm
/exit
`)

	if !strings.Contains(text, "confirm failed: save deal") || !strings.Contains(text, "disk full") {
		t.Fatalf("expected save failure, got %q", text)
	}
	if !strings.Contains(text, "saved deal: "+dir) {
		t.Fatalf("expected second confirm to save under %s, got %q", dir, text)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*-deal.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one deal file, got %v err=%v", files, err)
	}
}
