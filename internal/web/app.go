package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mandi/internal/extract"
	"mandi/internal/fallback"
	"mandi/internal/listing"
	"mandi/internal/locale"
	"mandi/internal/numeral"
	"mandi/internal/orchestrator"
	"mandi/internal/persona"
	"mandi/internal/render"
	"mandi/internal/store"
)

const (
	defaultAddr       = ":8080"
	maxRequestBytes   = 256 * 1024
	serverStopTimeout = 5 * time.Second
)

// Engine is the part of *orchestrator.Orchestrator the server drives.
type Engine interface {
	Start(ctx context.Context, input orchestrator.StartInput) (*orchestrator.Session, error)
	Handle(ctx context.Context, s *orchestrator.Session, message string) (orchestrator.Reply, error)
	ConfirmAndSave(ctx context.Context, s *orchestrator.Session, rec orchestrator.Recorder) (orchestrator.Deal, string, error)
	Edit(s *orchestrator.Session) error
	ExtractListing(ctx context.Context, text string, code locale.Code) (listing.Listing, error)
}

// Classifier answers a single message without a session. *fallback.Engine
// satisfies it.
type Classifier interface {
	ClassifyAndRespond(msg string, code locale.Code, role persona.Role, ctx render.Context) fallback.Response
}

type Config struct {
	Engine     Engine
	Classifier Classifier
	Store      store.Store
	Listing    listing.Listing
	Personas   []persona.Persona
	Role       persona.Role
	Locale     locale.Code
	Logger     *slog.Logger
	Now        func() time.Time
}

type App struct {
	engine     Engine
	classifier Classifier
	store      store.Store
	listing    listing.Listing
	personas   []persona.Persona
	role       persona.Role
	locale     locale.Code
	logger     *slog.Logger
	now        func() time.Time
	sessions   *sessionRegistry
}

type listingResponse struct {
	Listing   listing.Listing   `json:"listing"`
	Personas  []persona.Persona `json:"personas"`
	Role      persona.Role      `json:"role"`
	Locale    locale.Code       `json:"locale"`
	Languages []languageView    `json:"languages"`
}

type languageView struct {
	Code       locale.Code `json:"code"`
	Name       string      `json:"name"`
	NativeName string      `json:"nativeName"`
	SpeechTag  string      `json:"speechTag"`
}

type classifyRequest struct {
	Message string         `json:"message"`
	Locale  locale.Code    `json:"locale,omitempty"`
	Role    persona.Role   `json:"role,omitempty"`
	Context render.Context `json:"context"`
}

type extractRequest struct {
	Message string `json:"message"`
}

type extractResponse struct {
	Price    float64 `json:"price,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

type listingExtractRequest struct {
	Text   string      `json:"text"`
	Locale locale.Code `json:"locale,omitempty"`
}

type createSessionRequest struct {
	Listing  *listing.Listing  `json:"listing,omitempty"`
	Personas []persona.Persona `json:"personas,omitempty"`
	Role     persona.Role      `json:"role,omitempty"`
	Locale   locale.Code       `json:"locale,omitempty"`
}

type messageRequest struct {
	Text   string      `json:"text"`
	Locale locale.Code `json:"locale,omitempty"`
}

type messageResponse struct {
	Reply   orchestrator.Reply    `json:"reply"`
	Session *orchestrator.Session `json:"session"`
}

type confirmResponse struct {
	Deal      orchestrator.Deal     `json:"deal"`
	SavedPath string                `json:"savedPath,omitempty"`
	Session   *orchestrator.Session `json:"session"`
}

func NewApp(cfg Config) *App {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Listing.Quantity == 0 {
		cfg.Listing = listing.Sample()
	}
	if !cfg.Role.Valid() {
		cfg.Role = persona.RoleBuyer
	}
	if len(cfg.Personas) == 0 {
		cfg.Personas = persona.Defaults()
	}
	if cfg.Locale == "" {
		cfg.Locale = locale.Default
	}

	return &App{
		engine:     cfg.Engine,
		classifier: cfg.Classifier,
		store:      cfg.Store,
		listing:    cfg.Listing,
		personas:   cfg.Personas,
		role:       cfg.Role,
		locale:     locale.Resolve(string(cfg.Locale)),
		logger:     cfg.Logger,
		now:        cfg.Now,
		sessions:   newSessionRegistry(sessionRetention, cfg.Now),
	}
}

func (a *App) Start(ctx context.Context, addr string) error {
	if a.engine == nil {
		return errors.New("engine is required")
	}
	if strings.TrimSpace(addr) == "" {
		addr = defaultAddr
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	a.logger.Info("mandi web listening", "addr", addr)
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("GET /{$}", a.handleIndex)
	mux.HandleFunc("GET /api/listing", a.handleListing)
	mux.HandleFunc("POST /api/classify", a.handleClassify)
	mux.HandleFunc("POST /api/extract", a.handleExtract)
	mux.HandleFunc("POST /api/listings/extract", a.handleExtractListing)
	mux.HandleFunc("POST /api/sessions", a.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", a.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/messages", a.handleMessage)
	mux.HandleFunc("POST /api/sessions/{id}/confirm", a.handleConfirm)
	mux.HandleFunc("POST /api/sessions/{id}/edit", a.handleEdit)
	mux.HandleFunc("GET /ws/sessions/{id}", a.handleSessionSocket)
	return mux
}

func (a *App) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexHTML)
}

func (a *App) handleListing(w http.ResponseWriter, _ *http.Request) {
	supported := locale.Supported()
	languages := make([]languageView, 0, len(supported))
	for _, lang := range supported {
		languages = append(languages, languageView{
			Code:       lang.Code,
			Name:       lang.Name,
			NativeName: lang.NativeName,
			SpeechTag:  lang.SpeechTag,
		})
	}
	writeJSON(w, http.StatusOK, listingResponse{
		Listing:   a.listing,
		Personas:  a.personas,
		Role:      a.role,
		Locale:    a.locale,
		Languages: languages,
	})
}

func (a *App) handleClassify(w http.ResponseWriter, r *http.Request) {
	if a.classifier == nil {
		writeError(w, http.StatusNotImplemented, "classifier is not configured")
		return
	}
	var req classifyRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	role := req.Role
	if role == "" {
		role = a.role
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("role must be seller or buyer, got %q", req.Role))
		return
	}
	code := req.Locale
	if code == "" {
		code = a.locale
	}

	writeJSON(w, http.StatusOK, a.classifier.ClassifyAndRespond(req.Message, code, role, req.Context))
}

func (a *App) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	slots := extract.FromMessage(numeral.Normalize(req.Message))
	writeJSON(w, http.StatusOK, extractResponse{
		Price:    slots.Price,
		Quantity: slots.Quantity,
		Unit:     string(slots.Unit),
	})
}

func (a *App) handleExtractListing(w http.ResponseWriter, r *http.Request) {
	var req listingExtractRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	code := req.Locale
	if code == "" {
		code = a.locale
	}
	l, err := a.engine.ExtractListing(r.Context(), req.Text, code)
	if errors.Is(err, extract.ErrIncompleteListing) {
		writeError(w, http.StatusUnprocessableEntity, locale.Message(locale.KeyExtractionHelp, code))
		return
	}
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *App) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	input := orchestrator.StartInput{
		Listing:   a.listing,
		Personas:  a.personas,
		HumanRole: a.role,
		Locale:    a.locale,
	}
	if req.Listing != nil {
		input.Listing = *req.Listing
	}
	if len(req.Personas) > 0 {
		input.Personas = req.Personas
	}
	if req.Role != "" {
		input.HumanRole = req.Role
	}
	if req.Locale != "" {
		input.Locale = req.Locale
	}

	s, err := a.engine.Start(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry := a.sessions.add(s)
	writeJSON(w, http.StatusCreated, entry.view())
}

func (a *App) handleGetSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry.view())
}

func (a *App) handleMessage(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.lookup(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	reply, err := a.sendMessage(r.Context(), entry, req.Text, req.Locale)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Reply: reply, Session: entry.view()})
}

func (a *App) handleConfirm(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.lookup(w, r)
	if !ok {
		return
	}
	deal, path, err := a.confirmDeal(r.Context(), entry)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmResponse{Deal: deal, SavedPath: path, Session: entry.view()})
}

func (a *App) handleEdit(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.lookup(w, r)
	if !ok {
		return
	}
	if err := a.editTerms(entry); err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry.view())
}

// sendMessage, confirmDeal and editTerms are shared by the JSON API and the
// websocket so both serialise on the same session entry.
func (a *App) sendMessage(ctx context.Context, entry *sessionEntry, text string, code locale.Code) (orchestrator.Reply, error) {
	var reply orchestrator.Reply
	err := entry.do(a.now(), func(s *orchestrator.Session) error {
		if code != "" {
			s.Locale = locale.Resolve(string(code))
		}
		var err error
		reply, err = a.engine.Handle(ctx, s, text)
		return err
	})
	return reply, err
}

func (a *App) confirmDeal(ctx context.Context, entry *sessionEntry) (orchestrator.Deal, string, error) {
	var (
		deal orchestrator.Deal
		path string
	)
	err := entry.do(a.now(), func(s *orchestrator.Session) error {
		var err error
		deal, path, err = a.engine.ConfirmAndSave(ctx, s, a.store)
		return err
	})
	return deal, path, err
}

func (a *App) editTerms(entry *sessionEntry) error {
	return entry.do(a.now(), a.engine.Edit)
}

func (a *App) lookup(w http.ResponseWriter, r *http.Request) (*sessionEntry, bool) {
	id := r.PathValue("id")
	entry, ok := a.sessions.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("session %q not found", id))
		return nil, false
	}
	return entry, true
}

func (a *App) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Warn("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrFinalized), errors.Is(err, orchestrator.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, extract.ErrIncompleteListing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
