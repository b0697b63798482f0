package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"ham-exam-bot/internal/app"
	"ham-exam-bot/internal/domain"
	"ham-exam-bot/internal/interaction"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// Outbound message types.
const (
	TypeQuestion       = "question"
	TypeAnswerReveal   = "answer_reveal"
	TypeQuestionExpire = "question_expired"
	TypeRoundResults   = "round_results"
	TypeFinalStandings = "final_standings"
	TypeStarted        = "started"
	TypeStopped        = "stopped"
	TypeReport         = "report"
	TypeRejected       = "rejected"
	TypeError          = "error"
)

// questionPayload adds the action ids a client echoes back as interactions.
type questionPayload struct {
	domain.QuestionView
	AnswerIDs map[string]string `json:"answerIds"`
	StopID    string            `json:"stopId"`
}

type standingsPayload struct {
	domain.FinalStandings
	Display []displayStanding `json:"display"`
}

type displayStanding struct {
	UserID  string `json:"userId"`
	Correct int    `json:"correct"`
	Percent int    `json:"percent"`
	Passed  bool   `json:"passed"`
}

// Hub groups websocket clients into rooms by scope key. It is the chat
// transport of the quiz engine and implements app.Presenter.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	scope  string
	userID string
	name   string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, scope, userID, name string) *client {
	return &client{
		hub:    hub,
		conn:   conn,
		scope:  scope,
		userID: userID,
		name:   name,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.scope]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[c.scope] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if room, ok := h.rooms[c.scope]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.scope)
		}
	}
	h.mu.Unlock()
	c.close()
}

func (h *Hub) broadcast(scope, msgType string, payload any) error {
	data, err := json.Marshal(outboundMessage[any]{Type: msgType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[scope]))
	for c := range h.rooms[scope] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return fmt.Errorf("%s to %s: %w", msgType, scope, domain.ErrNoListeners)
	}
	for _, c := range clients {
		if !c.enqueue(data) {
			log.Printf("hub %s: send buffer of %s full, dropping client", scope, c.userID)
			go h.unregister(c)
		}
	}
	return nil
}

func (h *Hub) PresentQuestion(_ context.Context, view domain.QuestionView) error {
	ids := make(map[string]string, len(view.Choices))
	for _, choice := range view.Choices {
		ids[choice.Letter] = interaction.AnswerID(view.ScopeKey, choice.Letter)
	}
	return h.broadcast(view.ScopeKey, TypeQuestion, questionPayload{
		QuestionView: view,
		AnswerIDs:    ids,
		StopID:       interaction.StopID(view.ScopeKey),
	})
}

func (h *Hub) RevealAnswer(_ context.Context, reveal domain.AnswerReveal) error {
	return h.broadcast(reveal.ScopeKey, TypeAnswerReveal, reveal)
}

func (h *Hub) ExpireQuestion(_ context.Context, expired domain.QuestionExpired) error {
	return h.broadcast(expired.ScopeKey, TypeQuestionExpire, expired)
}

func (h *Hub) PresentRoundResult(_ context.Context, result domain.RoundResult) error {
	return h.broadcast(result.ScopeKey, TypeRoundResults, result)
}

func (h *Hub) PresentFinal(_ context.Context, final domain.FinalStandings) error {
	return h.broadcast(final.ScopeKey, TypeFinalStandings, standingsPayload{
		FinalStandings: final,
		Display:        displayStandings(final.Entries),
	})
}

// reply queues a message for one client only.
func (c *client) reply(msgType string, payload any) error {
	data, err := json.Marshal(outboundMessage[any]{Type: msgType, Payload: payload})
	if err != nil {
		return err
	}
	if !c.enqueue(data) {
		return fmt.Errorf("send buffer of %s full", c.userID)
	}
	return nil
}

func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump is the only writer of the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			// flush what is already queued before closing
			for {
				select {
				case msg := <-c.send:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		}
	}
}

func displayStandings(entries []domain.Standing) []displayStanding {
	out := make([]displayStanding, 0, len(entries))
	for _, e := range entries {
		out = append(out, displayStanding{
			UserID:  e.UserID,
			Correct: e.Correct,
			Percent: app.DisplayPercent(e.Percent),
			Passed:  e.Passed,
		})
	}
	return out
}
