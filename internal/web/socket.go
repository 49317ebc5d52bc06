package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"mandi/internal/locale"
	"mandi/internal/orchestrator"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024

	eventUpdate = "update"
	eventReply  = "reply"
	eventDeal   = "deal"
	eventError  = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// socketCommand is a frame sent by the browser: {"type":"message","text":"..."},
// {"type":"confirm"} or {"type":"edit"}.
type socketCommand struct {
	Type   string      `json:"type"`
	Text   string      `json:"text,omitempty"`
	Locale locale.Code `json:"locale,omitempty"`
}

type socketEvent struct {
	Type      string              `json:"type"`
	Stage     orchestrator.Stage  `json:"stage,omitempty"`
	Offer     *orchestrator.Offer `json:"offer,omitempty"`
	Advisory  string              `json:"advisory,omitempty"`
	Source    string              `json:"source,omitempty"`
	Deal      *orchestrator.Deal  `json:"deal,omitempty"`
	SavedPath string              `json:"savedPath,omitempty"`
	Error     string              `json:"error,omitempty"`
}

func (a *App) handleSessionSocket(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.lookup(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan socketEvent, 8)
	go a.readPump(ctx, cancel, conn, entry, events)
	a.writePump(ctx, conn, entry, events)
}

// readPump runs the commands of one connection in order. Replies reach the
// client through events; turn updates go out through the entry watch.
func (a *App) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, entry *sessionEntry, events chan<- socketEvent) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd socketCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.logger.Debug("websocket closed", "err", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		event := a.runSocketCommand(ctx, entry, cmd)
		select {
		case events <- event:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) runSocketCommand(ctx context.Context, entry *sessionEntry, cmd socketCommand) socketEvent {
	switch strings.ToLower(strings.TrimSpace(cmd.Type)) {
	case "message":
		if strings.TrimSpace(cmd.Text) == "" {
			return socketEvent{Type: eventError, Error: "text is required"}
		}
		reply, err := a.sendMessage(ctx, entry, cmd.Text, cmd.Locale)
		if err != nil {
			return errorEvent(err)
		}
		offer := reply.Offer
		return socketEvent{Type: eventReply, Stage: reply.Stage, Offer: &offer, Advisory: reply.Advisory, Source: reply.Source}
	case "confirm":
		deal, path, err := a.confirmDeal(ctx, entry)
		if err != nil {
			return errorEvent(err)
		}
		return socketEvent{Type: eventDeal, Stage: orchestrator.StageFinalized, Deal: &deal, SavedPath: path}
	case "edit":
		if err := a.editTerms(entry); err != nil {
			return errorEvent(err)
		}
		return socketEvent{Type: eventReply, Stage: orchestrator.StageChat}
	default:
		return socketEvent{Type: eventError, Error: "unknown command type " + cmd.Type}
	}
}

// writePump owns every write to the connection: the initial snapshot, turn
// updates after each change, command results and keepalive pings.
func (a *App) writePump(ctx context.Context, conn *websocket.Conn, entry *sessionEntry, events <-chan socketEvent) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	cursor := 0
	first := true
	for {
		changed := entry.watch()
		update := entry.snapshot(cursor)
		if first || len(update.Turns) > 0 {
			if err := writeFrame(conn, update); err != nil {
				return
			}
			cursor = update.Cursor
			first = false
		}

		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case <-changed:
		case event := <-events:
			// Flush the turns the command produced before its result.
			update := entry.snapshot(cursor)
			if len(update.Turns) > 0 {
				if err := writeFrame(conn, update); err != nil {
					return
				}
				cursor = update.Cursor
			}
			if err := writeFrame(conn, event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, payload any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(payload)
}

func errorEvent(err error) socketEvent {
	if errors.Is(err, orchestrator.ErrFinalized) {
		return socketEvent{Type: eventError, Stage: orchestrator.StageFinalized, Error: err.Error()}
	}
	return socketEvent{Type: eventError, Error: err.Error()}
}
