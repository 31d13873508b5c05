package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"prepsnap-quiz/internal/app"
	"prepsnap-quiz/internal/domain"
)

// SessionRegistry tracks sessions owned by open connections.
type SessionRegistry interface {
	Add(session *app.Session)
	Remove(id string)
}

type WSHandler struct {
	service  *app.QuizService
	sessions SessionRegistry
	theme    domain.Theme
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, sessions SessionRegistry, theme domain.Theme) *WSHandler {
	return &WSHandler{
		service:  service,
		sessions: sessions,
		theme:    theme,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Index int `json:"index"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type helloPayload struct {
	SessionID string       `json:"sessionId"`
	Theme     domain.Theme `json:"theme"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs one quiz session for the lifetime of
// the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := h.service.Start(ctx)
	h.sessions.Add(session)
	defer h.sessions.Remove(session.ID())
	slog.InfoContext(ctx, "ws connected", "session", session.ID())

	views, unsubscribe := session.Subscribe()
	defer unsubscribe()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	viewsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Warn("ws write error", "session", session.ID(), "err", err)
				return
			}
		}
	}()

	send <- outboundMessage{Type: "hello", Payload: helloPayload{SessionID: session.ID(), Theme: h.theme}}

	go func() {
		defer close(viewsDone)
		for {
			select {
			case view, ok := <-views:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "view", Payload: view}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if v := session.View(); v.State == app.StateReady && !v.Empty {
		if err := session.StartCountdown(ctx); err != nil {
			slog.Warn("ws countdown not started", "session", session.ID(), "err", err)
		}
	}

	reportError := func(err error) {
		select {
		case send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}:
		case <-closeSignals:
		case <-writerDone:
		}
	}

	// Submitting commands run off the read loop so input keeps flowing and a
	// disconnect is noticed while the remote call is in flight.
	var inflight sync.WaitGroup
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if submits(session, inbound) {
			inflight.Add(1)
			go func(msg inboundMessage) {
				defer inflight.Done()
				if err := h.dispatch(ctx, session, msg); err != nil {
					reportError(err)
				}
			}(inbound)
			continue
		}
		if err := h.dispatch(ctx, session, inbound); err != nil {
			reportError(err)
		}
	}

	slog.InfoContext(ctx, "ws disconnected", "session", session.ID())
	cancel()
	h.sessions.Remove(session.ID())
	close(closeSignals)
	inflight.Wait()
	<-viewsDone
	close(send)
	<-writerDone
}

// submits reports whether msg may start a remote submission.
func submits(session *app.Session, msg inboundMessage) bool {
	switch msg.Type {
	case "retry":
		return true
	case "next":
		return session.View().IsLast
	}
	return false
}

func (h *WSHandler) dispatch(ctx context.Context, session *app.Session, msg inboundMessage) error {
	switch msg.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.SelectOption(payload.Index)
	case "previous":
		return session.Previous()
	case "next":
		return session.Next(ctx)
	case "retry":
		return session.RetrySubmit(ctx)
	default:
		return errUnsupportedMessage
	}
}

type wsError string

func (e wsError) Error() string { return string(e) }

const (
	errInvalidPayload     wsError = "invalid select payload"
	errUnsupportedMessage wsError = "unsupported message type"
)
