package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/avvvet/tap-services/internal/comm"
	"github.com/avvvet/tap-services/internal/feedsvc/ws"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const historyLimit = 20

type History interface {
	Recent(ctx context.Context, ownerID string, limit int64) ([]comm.FeedItem, error)
}

type Handler struct {
	upgrader  websocket.Upgrader
	ws        *ws.Ws
	history   History
	tokenAuth *jwtauth.JWTAuth
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

// NewHandler wires the feed socket. history may be nil.
func NewHandler(s *ws.Ws, history History, tokenAuth *jwtauth.JWTAuth, checkOrigin func(*http.Request) bool) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		ws:        s,
		history:   history,
		tokenAuth: tokenAuth,
	}
}

// HandleWebSocket authenticates with the access token in the token query
// parameter, since browsers cannot set headers on websocket requests.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(r.URL.Query().Get("token"))
	if !ok {
		h.CreateResponse(w, Response{Message: "Unauthorized", Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	err = h.ws.Open(socketId, ownerID, conn, func() []comm.FeedItem {
		return h.recent(r.Context(), ownerID)
	})
	if err != nil {
		log.Warnf("send history to %s: %s", socketId, err)
	}
	log.Infof("New WebSocket connection established: %s", socketId)

	go h.handleConnection(conn, socketId)
}

func (h *Handler) owner(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	t, err := jwtauth.VerifyToken(h.tokenAuth, token)
	if err != nil || t == nil {
		return "", false
	}
	if _, err := uuid.Parse(t.Subject()); err != nil {
		return "", false
	}
	return t.Subject(), true
}

// recent returns the owner's feed history, empty when history is disabled
// or unavailable.
func (h *Handler) recent(ctx context.Context, ownerID string) []comm.FeedItem {
	if h.history == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	items, err := h.history.Recent(ctx, ownerID, historyLimit)
	if err != nil {
		log.Errorf("Error [History.Recent] %s", err)
		return nil
	}
	return items
}

// handleConnection keeps reading so close frames and pings are processed.
// Clients may send {"type":"ping"}.
func (h *Handler) handleConnection(conn *websocket.Conn, socketId string) {
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		h.ws.RemoveConnection(socketId)
		conn.Close()
	}()

	// the server ReadTimeout deadline survives the hijack
	_ = conn.SetReadDeadline(time.Time{})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			}
			return
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			h.sendError(socketId, "Invalid message format")
			continue
		}

		switch message.Type {
		case "ping":
			_ = h.ws.Send(socketId, &comm.WSMessage{Type: "pong", Data: json.RawMessage(`null`)})
		default:
			log.Warnf("unknown event received: %s", message.Type)
		}
	}
}

func (h *Handler) sendError(socketId, msg string) {
	data, _ := json.Marshal(msg)
	if err := h.ws.Send(socketId, &comm.WSMessage{Type: "error", Data: data}); err != nil {
		log.Errorf("Failed to send error message to client: %v", err)
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "feed service is running at port " + os.Getenv("FEED_SERVICE_PORT"),
		Code:    http.StatusOK,
		Data:    map[string]int{"connections": h.ws.Count()},
	})
}
