package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"mandi/internal/catalog"
	"mandi/internal/config"
	"mandi/internal/fallback"
	"mandi/internal/listing"
	"mandi/internal/locale"
	"mandi/internal/market"
	"mandi/internal/openai"
	"mandi/internal/orchestrator"
	"mandi/internal/persona"
	"mandi/internal/repl"
	"mandi/internal/store"
	"mandi/internal/tui"
	"mandi/internal/web"
)

type runtimeOptions struct {
	listingPath string
	personaPath string
	role        string
	lang        string
	webMode     bool
	addr        string
}

// runtime is everything the three surfaces share.
type runtime struct {
	settings     config.Settings
	logger       *slog.Logger
	engine       *fallback.Engine
	orchestrator *orchestrator.Orchestrator
	store        store.Store
	listing      listing.Listing
	personas     []persona.Persona
	role         persona.Role
	locale       locale.Code
}

func main() {
	opts, err := parseRuntimeOptions(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "argument error:", err)
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	settings, err := config.FromEnv()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, settings, opts)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "startup error:", err)
		os.Exit(1)
	}
	defer rt.store.Close()

	if err := rt.run(ctx, opts); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "runtime error:", err)
		os.Exit(1)
	}
}

func newRuntime(ctx context.Context, settings config.Settings, opts runtimeOptions) (*runtime, error) {
	logger := settings.Logger(os.Stderr)

	set, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	engine, err := fallback.New(set, fallback.Config{
		Seed:           settings.Seed,
		LowPriceRatio:  settings.LowPriceRatio,
		TotalTolerance: settings.TotalTolerance,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("fallback engine: %w", err)
	}

	var ai orchestrator.Negotiator
	if settings.HasAI() {
		client, err := openai.NewClient(openai.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.RequestTimeout,
			MaxRetries: settings.APIMaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		ai = client
	} else {
		logger.Info("OPENAI_API_KEY not set; negotiating offline")
	}

	o, err := orchestrator.New(engine, ai, orchestrator.Config{
		AITimeout: settings.AITimeout,
		Market:    market.New(market.Config{TTL: settings.PriceCacheTTL}),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	l := listing.Sample()
	if opts.listingPath != "" {
		if l, err = listing.LoadFromFile(opts.listingPath); err != nil {
			return nil, err
		}
	}
	personas, err := loadPersonas(opts.personaPath)
	if err != nil {
		return nil, err
	}

	role := settings.Role
	if opts.role != "" {
		if role, err = persona.ParseRole(opts.role); err != nil {
			return nil, err
		}
	}
	code := settings.Locale
	if opts.lang != "" {
		code = locale.Resolve(opts.lang)
	}

	st, err := store.Open(ctx, settings.MySQLDSN, settings.DealDir)
	if err != nil {
		return nil, fmt.Errorf("open deal store: %w", err)
	}

	return &runtime{
		settings:     settings,
		logger:       logger,
		engine:       engine,
		orchestrator: o,
		store:        st,
		listing:      l,
		personas:     personas,
		role:         role,
		locale:       code,
	}, nil
}

func (rt *runtime) run(ctx context.Context, opts runtimeOptions) error {
	if opts.webMode {
		app := web.NewApp(web.Config{
			Engine:     rt.orchestrator,
			Classifier: rt.engine,
			Store:      rt.store,
			Listing:    rt.listing,
			Personas:   rt.personas,
			Role:       rt.role,
			Locale:     rt.locale,
			Logger:     rt.logger,
			Now:        time.Now,
		})
		return app.Start(ctx, opts.addr)
	}

	if isTTY() {
		app := tui.NewApp(tui.Config{
			Engine:      rt.orchestrator,
			Store:       rt.store,
			Listing:     rt.listing,
			LoadListing: listing.LoadFromFile,
			Personas:    rt.personas,
			Role:        rt.role,
			Locale:      rt.locale,
			Now:         time.Now,
		})
		return app.Start(ctx)
	}

	// Fallback for non-interactive shells (pipes, CI).
	app := repl.NewApp(repl.Config{
		Engine:      rt.orchestrator,
		Store:       rt.store,
		Listing:     rt.listing,
		LoadListing: listing.LoadFromFile,
		Personas:    rt.personas,
		Role:        rt.role,
		Locale:      rt.locale,
		Writer:      os.Stdout,
	})
	return app.Start(ctx, os.Stdin)
}

// loadPersonas reads the persona file. A missing file at the default path
// means the built-in pair.
func loadPersonas(path string) ([]persona.Persona, error) {
	personas, err := persona.LoadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) && path == config.DefaultPersonaPath {
		return persona.Defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	return personas, nil
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func parseRuntimeOptions(args []string) (runtimeOptions, error) {
	fs := flag.NewFlagSet("mandi", flag.ContinueOnError)
	listingPath := fs.String("listing", "", "path to a listing json file (default: built-in onion listing)")
	personaPath := fs.String("personas", config.DefaultPersonaPath, "path to personas json file")
	fs.StringVar(personaPath, "persona", config.DefaultPersonaPath, "alias of -personas")
	role := fs.String("role", "", "your side: seller or buyer (default: MANDI_ROLE)")
	lang := fs.String("lang", "", "language code such as hi, en, ta (default: MANDI_LOCALE)")
	webMode := fs.Bool("web", false, "serve the web UI and JSON API instead of the terminal")
	addr := fs.String("addr", "", "listen address for -web (default :8080)")
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		return runtimeOptions{}, err
	}
	if len(fs.Args()) > 0 {
		return runtimeOptions{}, fmt.Errorf("unexpected positional args: %s", strings.Join(fs.Args(), " "))
	}

	path := strings.TrimSpace(*personaPath)
	if path == "" {
		path = config.DefaultPersonaPath
	}
	opts := runtimeOptions{
		listingPath: strings.TrimSpace(*listingPath),
		personaPath: path,
		role:        strings.TrimSpace(*role),
		lang:        strings.TrimSpace(*lang),
		webMode:     *webMode,
		addr:        strings.TrimSpace(*addr),
	}
	if opts.role != "" {
		if _, err := persona.ParseRole(opts.role); err != nil {
			return runtimeOptions{}, err
		}
	}
	return opts, nil
}
