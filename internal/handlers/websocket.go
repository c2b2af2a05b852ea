package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // voting links are opened from any origin
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub            *services.WSHub
	userService    *services.UserService
	pairingService *services.PairingService
	resultsService *services.ResultsService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	userService *services.UserService,
	pairingService *services.PairingService,
	resultsService *services.ResultsService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		userService:    userService,
		pairingService: pairingService,
		resultsService: resultsService,
	}
}

// HandleWebSocket handles GET /ws?token=, the per-user channel for couple and
// decision events
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized, apperr.CodeUnauthorized)
		return
	}

	userID, err := h.userService.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized, apperr.CodeUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if err := h.hub.Register(ctx, userID, conn); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to register WebSocket connection")
		return
	}
	defer h.hub.Unregister(ctx, userID, conn)

	h.sendCoupleStatus(ctx, userID)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendErrorToUser(userID, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "ping":
			if err := h.hub.SendToUser(userID, services.WSMessage{Type: "pong", Timestamp: time.Now().UnixMilli()}); err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to send pong")
			}
		default:
			h.sendErrorToUser(userID, "Unknown message type")
		}
	}
}

func (h *WebSocketHandler) sendCoupleStatus(ctx context.Context, userID string) {
	data := map[string]any{"has_couple": false}

	view, err := h.pairingService.GetCouple(ctx, userID)
	if err == nil {
		data["has_couple"] = true
		data["couple_id"] = view.ID
		data["invite_code"] = view.InviteCode
		data["partner_online"] = view.Partner != nil && h.hub.IsOnline(view.Partner.ID)
	} else if apperr.CodeOf(err) != apperr.CodeNotFound {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get couple")
	}

	if err := h.hub.SendToUser(userID, services.WSMessage{Type: "couple_status", Data: data}); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Msg("Failed to send couple_status message")
	}
}

// sendErrorToUser sends an error message to a user
func (h *WebSocketHandler) sendErrorToUser(userID, message string) {
	msg := services.WSMessage{
		Type:    "error",
		Message: message,
	}
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send error message")
	}
}

// HandleDecisionFeed handles GET /ws/decisions/{decision_id}. It streams the
// decision's results and a fresh copy after every change.
func (h *WebSocketHandler) HandleDecisionFeed(w http.ResponseWriter, r *http.Request) {
	decisionID := chi.URLParam(r, "decision_id")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed, err := h.resultsService.Watch(ctx, decisionID)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to watch decision")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	// the reader only notices the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for results := range feed {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(services.WSMessage{Type: "results", Data: results}); err != nil {
			log.Debug().Err(err).Str("decision_id", decisionID).Msg("Results feed closed by client")
			return
		}
	}

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed ended"),
		time.Now().Add(writeWait),
	)
}
