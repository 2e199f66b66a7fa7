package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/domain"
)

const quitTimeout = 5 * time.Second

type WSHandler struct {
	service  *app.QuizService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades an authenticated request and dispatches session commands read from the socket.
// It must be mounted behind RequireIdentity.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := h.hub.register(identity.UserID)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		// A closed queue means the hub dropped this connection; closing the socket ends the read loop.
		defer conn.Close()
		for event := range c.send {
			msg, err := encodeEvent(event)
			if err != nil {
				log.Printf("ws encode error: %v", err)
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error for %s: %v", identity.UserID, err)
				return
			}
		}
	}()

	attached := make(map[string]struct{})
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r.Context(), c, identity, inbound, attached)
	}

	// A dropped connection is a quit, never a leave. Rooms are keyed by user, so
	// the quit waits for the user's last connection.
	if h.hub.unregister(c) {
		quitCtx, cancel := context.WithTimeout(context.Background(), quitTimeout)
		for code := range attached {
			err := h.service.Quit(quitCtx, code, identity.UserID)
			if err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
				log.Printf("quit %s for %s on disconnect: %v", code, identity.UserID, err)
			}
		}
		cancel()
	}
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, c *client, identity domain.Identity, inbound inboundMessage, attached map[string]struct{}) {
	var err error
	switch inbound.Type {
	case cmdJoinSession, cmdRejoinSession, cmdLeaveSession, cmdQuitSession, cmdStartQuiz:
		var payload sessionPayload
		if decodeErr := decodePayload(inbound.Payload, &payload); decodeErr != nil {
			h.hub.sendTo(c, domain.ErrorEvent{Message: "invalid " + inbound.Type + " payload"})
			return
		}
		code := payload.SessionCode
		switch inbound.Type {
		case cmdJoinSession:
			err = h.service.Join(ctx, code, identity)
			// A returning participant is re-attached even when the join is rejected.
			if err == nil || errors.Is(err, domain.ErrDuplicateParticipant) || errors.Is(err, domain.ErrAlreadyStarted) {
				attached[code] = struct{}{}
			}
		case cmdRejoinSession:
			var events []domain.Event
			if events, err = h.service.Rejoin(ctx, code, identity.UserID); err == nil {
				attached[code] = struct{}{}
				for _, ev := range events {
					h.hub.sendTo(c, ev)
				}
			}
		case cmdLeaveSession:
			if err = h.service.Leave(ctx, code, identity.UserID); err == nil {
				delete(attached, code)
			}
		case cmdQuitSession:
			if err = h.service.Quit(ctx, code, identity.UserID); err == nil {
				delete(attached, code)
			}
		case cmdStartQuiz:
			err = h.service.Start(ctx, code, identity.UserID)
		}
	case cmdSubmitAnswer:
		var payload answerPayload
		if decodeErr := decodePayload(inbound.Payload, &payload); decodeErr != nil {
			h.hub.sendTo(c, domain.ErrorEvent{Message: "invalid submit_answer payload"})
			return
		}
		err = h.service.SubmitAnswer(ctx, payload.SessionCode, identity.UserID, domain.AnswerSubmission{
			QuestionID: string(payload.QuestionID),
			OptionID:   string(payload.OptionID),
		})
	default:
		h.hub.sendTo(c, domain.ErrorEvent{Message: "unsupported message type"})
		return
	}
	if err != nil {
		h.hub.sendTo(c, errorEvent(inbound.Type, err))
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(raw, v)
}
