package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizard-service/internal/app"
	"quizard-service/internal/domain"
)

// WSHandler streams the append-only event feed to websocket clients.
type WSHandler struct {
	feed     *app.Feed
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(feed *app.Feed, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		feed:   feed,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string       `json:"type"`
	Payload domain.Event `json:"payload"`
}

// ServeWS upgrades the request and forwards every event to the client until
// it disconnects. The optional quizRef query parameter narrows the stream to
// one quiz.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizRef := r.URL.Query().Get("quizRef")

	// Subscribe before finishing the handshake so clients observe every
	// event published after their dial returns.
	events, cancel := h.feed.Subscribe()
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	// Reader goroutine only detects the client going away.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if quizRef != "" && event.QuizRef != quizRef {
				continue
			}
			if err := conn.WriteJSON(outboundMessage{Type: event.Type, Payload: event}); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
