package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"driving-quiz-service/internal/app"
	"driving-quiz-service/internal/domain"
	"driving-quiz-service/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	modeLearning  = "learning"
	modeTest      = "test"
	modeScreening = "screening"
)

type WSHandler struct {
	service      *app.ProgressService
	logger       logging.Logger
	validate     *validator.Validate
	upgrader     websocket.Upgrader
	tickInterval time.Duration
}

func NewWSHandler(service *app.ProgressService, logger logging.Logger) *WSHandler {
	return &WSHandler{
		service:      service,
		logger:       logger,
		validate:     validator.New(),
		tickInterval: 5 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// SetTickInterval changes how often timed tests push the remaining time.
func (h *WSHandler) SetTickInterval(d time.Duration) {
	h.tickInterval = d
}

type connectParams struct {
	UserID     string `validate:"required,max=128"`
	Mode       string `validate:"required,oneof=learning test screening"`
	CategoryID int    `validate:"required_if=Mode learning"`
	TestID     int    `validate:"required_unless=Mode learning"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type questionPayload struct {
	QuestionID int `json:"questionId" validate:"required"`
}

type answerPayload struct {
	QuestionID    int `json:"questionId" validate:"required"`
	SelectedIndex int `json:"selectedIndex" validate:"gte=0"`
}

type startPayload struct {
	Minutes int `json:"minutes" validate:"gte=0,lte=600"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type answerResult struct {
	QuestionID    int                 `json:"questionId"`
	SelectedIndex int                 `json:"selectedIndex"`
	Correct       bool                `json:"correct"`
	Status        domain.AnswerStatus `json:"status"`
}

type revealResult struct {
	QuestionID  int `json:"questionId"`
	OptionIndex int `json:"optionIndex"`
}

type tickPayload struct {
	RemainingSeconds int64 `json:"remainingSeconds"`
	TimeUp           bool  `json:"timeUp"`
}

// ServeWS upgrades HTTP requests to websockets and drives one quiz flow per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseParams(r)
	if err != nil {
		http.Error(w, "invalid parameters: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sess, err := h.openSession(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCategoryNotFound), errors.Is(err, domain.ErrTestNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrScreeningRequired):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			h.logger.ErrorContext(ctx, "open session failed", "user", params.UserID, "mode", params.Mode, "error", err.Error())
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	logger := h.logger.With("conn", uuid.NewString(), "user", params.UserID, "mode", params.Mode)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.LogError(err, "ws upgrade failed")
		return
	}
	defer conn.Close()
	logger.Info("ws connected")
	defer logger.Info("ws disconnected")

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("ws write error", "error", err.Error())
				return
			}
		}
	}()

	// Timed tests get a periodic countdown; expiry itself is still computed on read.
	go func() {
		defer close(tickerDone)
		if sess.test == nil || h.tickInterval <= 0 {
			return
		}
		ticker := time.NewTicker(h.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !sess.test.HasTimer(ctx) {
					continue
				}
				remaining := sess.test.RemainingTime(ctx)
				select {
				case send <- outboundMessage[any]{Type: "tick", Payload: tickPayload{
					RemainingSeconds: int64(remaining / time.Second),
					TimeUp:           remaining == 0,
				}}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	connected := enqueue(send, writerDone, outboundMessage[any]{Type: "state", Payload: sess.state(ctx)})

read:
	for connected {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range h.handle(ctx, sess, inbound) {
			if !enqueue(send, writerDone, msg) {
				break read
			}
		}
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer goroutine. It reports false once the writer
// has stopped, so a full buffer never blocks the read loop.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func (h *WSHandler) parseParams(r *http.Request) (connectParams, error) {
	q := r.URL.Query()
	params := connectParams{
		UserID: q.Get("userId"),
		Mode:   q.Get("mode"),
	}
	if raw := q.Get("categoryId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return params, errors.New("categoryId must be an integer")
		}
		params.CategoryID = id
	}
	if raw := q.Get("testId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return params, errors.New("testId must be an integer")
		}
		params.TestID = id
	}
	return params, h.validate.Struct(params)
}

func (h *WSHandler) openSession(ctx context.Context, params connectParams) (*session, error) {
	sess := &session{mode: params.Mode}
	switch params.Mode {
	case modeLearning:
		nav, err := h.service.Learning(ctx, params.UserID, params.CategoryID)
		if err != nil {
			return nil, err
		}
		sess.nav = nav
	case modeTest:
		test, err := h.service.TimedTest(ctx, params.UserID, params.TestID)
		if err != nil {
			return nil, err
		}
		sess.test = test
		sess.nav = test.Navigator
	case modeScreening:
		gate, err := h.service.Screening(ctx, params.UserID, params.TestID)
		if err != nil {
			return nil, err
		}
		sess.gate = gate
		sess.nav = gate.Navigator()
		sess.reopenGate = func(ctx context.Context) (*app.ScreeningGate, error) {
			return h.service.Screening(ctx, params.UserID, params.TestID)
		}
	}
	return sess, nil
}

func (h *WSHandler) handle(ctx context.Context, sess *session, inbound inboundMessage) []outboundMessage[any] {
	switch inbound.Type {
	case "state":
	case "next":
		sess.nav.Next()
	case "previous":
		sess.nav.Previous()
	case "select":
		var payload questionPayload
		if err := h.decode(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid select payload")
		}
		if err := sess.nav.SelectQuestion(payload.QuestionID); err != nil {
			return errorMessage(err.Error())
		}
	case "answer":
		var payload answerPayload
		if err := h.decode(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid answer payload")
		}
		record, err := sess.answer(ctx, payload.QuestionID, payload.SelectedIndex)
		if err != nil {
			return errorMessage(err.Error())
		}
		return []outboundMessage[any]{
			{Type: "answerResult", Payload: answerResult{
				QuestionID:    record.QuestionID,
				SelectedIndex: record.SelectedAnswer,
				Correct:       record.IsCorrect,
				Status:        sess.nav.StatusOf(record.QuestionID),
			}},
			{Type: "state", Payload: sess.state(ctx)},
		}
	case "reveal":
		var payload questionPayload
		if err := h.decode(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid reveal payload")
		}
		idx, err := sess.nav.Reveal(payload.QuestionID)
		if err != nil {
			return errorMessage(err.Error())
		}
		return []outboundMessage[any]{{Type: "reveal", Payload: revealResult{QuestionID: payload.QuestionID, OptionIndex: idx}}}
	case "start":
		if sess.test == nil {
			return errorMessage("start is only valid for timed tests")
		}
		var payload startPayload
		if len(inbound.Payload) > 0 {
			if err := h.decode(inbound.Payload, &payload); err != nil {
				return errorMessage("invalid start payload")
			}
		}
		sess.test.Start(ctx, time.Duration(payload.Minutes)*time.Minute)
	case "reset":
		if err := sess.reset(ctx); err != nil {
			return errorMessage(err.Error())
		}
	default:
		return errorMessage("unsupported message type")
	}
	return []outboundMessage[any]{{Type: "state", Payload: sess.state(ctx)}}
}

func (h *WSHandler) decode(raw json.RawMessage, dest any) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return err
	}
	return h.validate.Struct(dest)
}

func errorMessage(msg string) []outboundMessage[any] {
	return []outboundMessage[any]{{Type: "error", Payload: errorPayload{Message: msg}}}
}
