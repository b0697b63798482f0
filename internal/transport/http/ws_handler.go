package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"ham-exam-bot/internal/app"
	"ham-exam-bot/internal/domain"
	"ham-exam-bot/internal/interaction"
)

const reportPageSize = 10

type WSHandler struct {
	service  *app.QuizService
	hub      *Hub
	router   *interaction.Router
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *Hub) (*WSHandler, error) {
	h := &WSHandler{
		service: service,
		hub:     hub,
		router:  interaction.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if err := h.router.Handle(interaction.PrefixAnswer, h.handleAnswer); err != nil {
		return nil, err
	}
	if err := h.router.Handle(interaction.PrefixStop, h.handleStop); err != nil {
		return nil, err
	}
	if err := h.router.Handle(interaction.PrefixReport, h.handleReport); err != nil {
		return nil, err
	}
	return h, nil
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	ExamID       string `json:"examId"`
	Rounds       int    `json:"rounds"`
	DelaySeconds int    `json:"delaySeconds"`
	Mode         string `json:"mode"`
}

type interactionPayload struct {
	CustomID   string `json:"customId"`
	QuestionID string `json:"questionId"`
}

type startedPayload struct {
	SessionID   string      `json:"sessionId"`
	ExamID      string      `json:"examId"`
	Mode        domain.Mode `json:"mode"`
	TotalRounds int         `json:"totalRounds"`
	Delay       int         `json:"delaySeconds"`
}

type stoppedPayload struct {
	ScopeKey string `json:"scopeKey"`
	Stopped  bool   `json:"stopped"`
}

type reportPayload struct {
	ScopeKey string            `json:"scopeKey"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
	Entries  []displayStanding `json:"entries"`
}

type rejectedPayload struct {
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// replyKey carries the requesting client through the interaction router.
type replyKey struct{}

// ServeWS upgrades /ws/{scope} requests and joins the client to the scope's room.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	scope := mux.Vars(r)["scope"]
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if scope == "" || userID == "" || displayName == "" {
		http.Error(w, "missing scope, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	c := newClient(h.hub, conn, scope, userID, displayName)
	h.hub.register(c)
	go c.writePump()
	h.readPump(r.Context(), c)
}

func (h *WSHandler) readPump(ctx context.Context, c *client) {
	defer h.hub.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound inboundMessage
		if err := c.conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error for %s in %s: %v", c.userID, c.scope, err)
			}
			return
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				_ = c.reply(TypeError, errorPayload{Message: "invalid start payload"})
				continue
			}
			h.start(ctx, c, payload)
		case "interaction":
			var payload interactionPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				_ = c.reply(TypeError, errorPayload{Message: "invalid interaction payload"})
				continue
			}
			err := h.router.Dispatch(context.WithValue(ctx, replyKey{}, c), interaction.Event{
				CustomID:   payload.CustomID,
				UserID:     c.userID,
				UserName:   c.name,
				QuestionID: payload.QuestionID,
			})
			if err != nil {
				h.reject(c, err)
			}
		default:
			_ = c.reply(TypeError, errorPayload{Message: "unsupported message type"})
		}
	}
}

func (h *WSHandler) start(ctx context.Context, c *client, payload startPayload) {
	session, err := h.service.StartExam(ctx, app.StartRequest{
		ScopeKey:      c.scope,
		ExamID:        payload.ExamID,
		InitiatorID:   c.userID,
		InitiatorName: c.name,
		Mode:          domain.ParseMode(payload.Mode),
		Rounds:        payload.Rounds,
		Delay:         time.Duration(payload.DelaySeconds) * time.Second,
	})
	if err != nil {
		h.reject(c, err)
		return
	}
	if session.Rounds() == 0 {
		h.reject(c, domain.ErrEmptyPool)
		return
	}
	_ = c.reply(TypeStarted, startedPayload{
		SessionID:   session.ID(),
		ExamID:      session.Record().ExamID,
		Mode:        session.Record().Mode,
		TotalRounds: session.Rounds(),
		Delay:       int(session.Delay() / time.Second),
	})
}

func (h *WSHandler) handleAnswer(ctx context.Context, ev interaction.Event) error {
	scope, letter, err := interaction.ParseAnswerID(ev.CustomID)
	if err != nil {
		return err
	}
	if c := requester(ctx); c != nil && c.scope != scope {
		return fmt.Errorf("%w: answer for %s sent from %s", domain.ErrMalformedInteraction, scope, c.scope)
	}
	// the reveal is broadcast by the session itself
	_, err = h.service.Submit(ctx, scope, ev.QuestionID, ev.UserID, letter)
	return err
}

func (h *WSHandler) handleStop(ctx context.Context, ev interaction.Event) error {
	scope, err := interaction.ParseStopID(ev.CustomID)
	if err != nil {
		return err
	}
	stopped, err := h.service.StopExam(ctx, scope, ev.UserID)
	if err != nil {
		return err
	}
	if c := requester(ctx); c != nil {
		_ = c.reply(TypeStopped, stoppedPayload{ScopeKey: scope, Stopped: stopped})
	}
	return nil
}

// handleReport pages through the standings of a running session:
// "report:<scopeKey>:<page>", pages counted from 1.
func (h *WSHandler) handleReport(ctx context.Context, ev interaction.Event) error {
	rest := strings.TrimPrefix(ev.CustomID, interaction.PrefixReport+":")
	i := strings.LastIndex(rest, ":")
	if i <= 0 {
		return fmt.Errorf("%w: %q", domain.ErrMalformedInteraction, ev.CustomID)
	}
	scope := rest[:i]
	page, err := strconv.Atoi(rest[i+1:])
	if err != nil || page < 1 {
		return fmt.Errorf("%w: %q", domain.ErrMalformedInteraction, ev.CustomID)
	}

	snap, ok := h.service.Status(scope)
	if !ok {
		return domain.ErrSessionNotFound
	}
	standings, err := h.service.Standings(ctx, snap.SessionID, snap.TotalRounds)
	if err != nil {
		return err
	}
	all := displayStandings(standings)
	pages := (len(all) + reportPageSize - 1) / reportPageSize
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}
	from := (page - 1) * reportPageSize
	to := from + reportPageSize
	if to > len(all) {
		to = len(all)
	}
	c := requester(ctx)
	if c == nil {
		return nil
	}
	return c.reply(TypeReport, reportPayload{ScopeKey: scope, Page: page, Pages: pages, Entries: all[from:to]})
}

func (h *WSHandler) reject(c *client, err error) {
	if domain.IsRejection(err) {
		_ = c.reply(TypeRejected, rejectedPayload{Code: domain.RejectCode(err), Message: err.Error()})
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	log.Printf("ws %s: request of %s failed: %v", c.scope, c.userID, err)
	_ = c.reply(TypeError, errorPayload{Message: err.Error()})
}

func requester(ctx context.Context) *client {
	c, _ := ctx.Value(replyKey{}).(*client)
	return c
}
