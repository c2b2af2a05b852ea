package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pickmate-backend/internal/events"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Online    *bool  `json:"online,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// PartnerFinder resolves a user's partner
type PartnerFinder interface {
	PartnerID(ctx context.Context, userID string) (string, error)
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
}

func (c *wsClient) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages per-user WebSocket connections and forwards the user's
// events from the bus to them
type WSHub struct {
	mu       sync.RWMutex
	clients  map[string]*wsClient
	bus      events.Bus
	partners PartnerFinder
}

// NewWSHub creates a new WebSocket hub
func NewWSHub(bus events.Bus, partners PartnerFinder) *WSHub {
	return &WSHub{
		clients:  make(map[string]*wsClient),
		bus:      bus,
		partners: partners,
	}
}

// Register registers a connection for a user, replacing any previous one,
// and starts forwarding the user's events to it
func (h *WSHub) Register(ctx context.Context, userID string, conn *websocket.Conn) error {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	updates, err := h.bus.Subscribe(subCtx, events.UserTopic(userID))
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to user events: %w", err)
	}

	client := &wsClient{conn: conn, cancel: cancel}

	h.mu.Lock()
	if existing, ok := h.clients[userID]; ok {
		existing.cancel()
		existing.conn.Close()
	}
	h.clients[userID] = client
	h.mu.Unlock()

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")

	go func() {
		for ev := range updates {
			msg := WSMessage{Type: string(ev.Type), Timestamp: ev.At.UnixMilli(), Data: ev}
			if err := h.send(client, msg); err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to forward event")
			}
		}
	}()

	go h.NotifyPartnerStatus(context.WithoutCancel(ctx), userID, true)
	return nil
}

// Unregister removes the user's connection if it is still conn
func (h *WSHub) Unregister(ctx context.Context, userID string, conn *websocket.Conn) {
	h.mu.Lock()
	client, ok := h.clients[userID]
	if !ok || client.conn != conn {
		h.mu.Unlock()
		return
	}
	delete(h.clients, userID)
	h.mu.Unlock()

	client.cancel()
	client.conn.Close()
	log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")

	go h.NotifyPartnerStatus(context.WithoutCancel(ctx), userID, false)
}

func (h *WSHub) send(client *wsClient, message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := client.write(data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user %s is not connected", userID)
	}
	return h.send(client, message)
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// NotifyPartnerStatus tells the user's partner, if connected here, that the
// user came online or went offline
func (h *WSHub) NotifyPartnerStatus(ctx context.Context, userID string, online bool) {
	if h.partners == nil {
		return
	}
	partnerID, err := h.partners.PartnerID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get partner")
		return
	}
	if partnerID == "" || !h.IsOnline(partnerID) {
		return
	}

	message := WSMessage{
		Type:   "partner_status",
		Online: &online,
	}
	if err := h.SendToUser(partnerID, message); err != nil {
		log.Error().
			Err(err).
			Str("user_id", partnerID).
			Msg("Failed to notify partner status")
	}
}

// Close drops every connection
func (h *WSHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, client := range h.clients {
		client.cancel()
		client.conn.Close()
		delete(h.clients, userID)
	}
}
