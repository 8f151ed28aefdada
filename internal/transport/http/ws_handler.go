package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"scripture-quiz-service/internal/app"
	"scripture-quiz-service/internal/domain"
)

// WSHandler is the presentation adapter for quiz sessions: one connection drives at
// most one session at a time.
type WSHandler struct {
	service  *app.QuizService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log.With().Str("component", "ws").Logger(),
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

type startPayload struct {
	Config *domain.SessionConfig `json:"config"`
}

type selectPayload struct {
	Choice string `json:"choice"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// subscription forwards one session's events to the connection.
type subscription struct {
	sessionID string
	cancel    func()
	done      chan struct{}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	log := h.log.With().Str("user_id", userID).Logger()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	emitError := func(err error) {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	var current *subscription
	detach := func() {
		if current == nil {
			return
		}
		current.cancel()
		<-current.done
		current = nil
	}
	attach := func(session *app.Session) {
		detach()
		events, cancel, err := h.service.Subscribe(ctx, session.ID())
		if err != nil {
			emitError(err)
			return
		}
		sub := &subscription{sessionID: session.ID(), cancel: cancel, done: make(chan struct{})}
		go forward(events, emit, closeSignals, sub.done)
		current = sub
	}
	// abandon stops the attached session; its progress snapshot stays resumable.
	abandon := func() {
		if current == nil {
			return
		}
		sessionID := current.sessionID
		detach()
		h.service.Abandon(ctx, sessionID)
	}
	// noop re-sends the current snapshot for requests the session ignored.
	noop := func() {
		if current == nil {
			return
		}
		if session, err := h.service.Session(current.sessionID); err == nil {
			emit(outboundMessage[any]{Type: "state", Payload: session.Snapshot()})
		}
	}
	handle := func(err error) {
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrInvalidTransition):
			noop()
		default:
			emitError(err)
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "start":
			var payload startPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					emitError(errors.New("invalid start payload"))
					continue
				}
			}
			abandon()
			session, err := h.service.Start(ctx, userID, payload.Config)
			if err != nil {
				emitError(err)
				continue
			}
			attach(session)
		case "resume":
			abandon()
			session, err := h.service.Resume(ctx, userID)
			if err != nil {
				emitError(err)
				continue
			}
			attach(session)
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emitError(errors.New("invalid select payload"))
				continue
			}
			if current == nil {
				emitError(domain.ErrSessionNotFound)
				continue
			}
			_, err := h.service.SelectChoice(ctx, current.sessionID, payload.Choice)
			handle(err)
		case "submit":
			if current == nil {
				emitError(domain.ErrSessionNotFound)
				continue
			}
			_, _, err := h.service.SubmitAnswer(ctx, current.sessionID)
			handle(err)
		case "hint":
			if current == nil {
				emitError(domain.ErrSessionNotFound)
				continue
			}
			_, _, err := h.service.UseHint(ctx, current.sessionID)
			handle(err)
		case "next":
			if current == nil {
				emitError(domain.ErrSessionNotFound)
				continue
			}
			_, completion, err := h.service.Advance(ctx, current.sessionID)
			handle(err)
			if completion != nil {
				detach()
				emit(outboundMessage[any]{Type: "completed", Payload: completion})
			}
		default:
			emitError(errors.New("unsupported message type"))
		}
	}

	abandon()
	close(closeSignals)
	close(send)
	<-writerDone
}

func forward(events <-chan app.Event, emit func(outboundMessage[any]), closeSignals <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			emit(outboundMessage[any]{Type: wireType(ev.Type), Payload: ev.Snapshot})
		case <-closeSignals:
			return
		}
	}
}

func wireType(t app.EventType) string {
	switch t {
	case app.EventTick:
		return "tick"
	case app.EventScored:
		return "scored"
	case app.EventHint:
		return "hint"
	default:
		return "state"
	}
}
