// Package notify sends push notifications to a user's device.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"pickmate-backend/internal/config"
)

// Message is a user-visible alert plus custom keys for the app
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier delivers a message to one device
type Notifier interface {
	Notify(ctx context.Context, deviceToken string, msg Message) error
}

// Noop drops every message. Used when push is not configured.
type Noop struct{}

func (Noop) Notify(context.Context, string, Message) error { return nil }

// ErrRejected is returned when APNs answers with a non-200 status
var ErrRejected = errors.New("push rejected")

type pusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNs sends notifications through Apple Push Notification service using
// token based (.p8) authentication
type APNs struct {
	client pusher
	topic  string
}

// NewAPNs builds an APNs notifier from config
func NewAPNs(cfg config.APNsConfig) (*APNs, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNs{client: client, topic: cfg.Topic}, nil
}

// New returns an APNs notifier when configured, Noop otherwise
func New(cfg config.APNsConfig) (Notifier, error) {
	if !cfg.Enabled() {
		log.Info().Msg("APNs not configured, push notifications disabled")
		return Noop{}, nil
	}
	n, err := NewAPNs(cfg)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Notify sends msg to deviceToken
func (a *APNs) Notify(ctx context.Context, deviceToken string, msg Message) error {
	if deviceToken == "" {
		return nil
	}

	n := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       a.topic,
		Payload:     buildPayload(msg),
	}

	res, err := a.client.PushWithContext(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("%w: %d %s", ErrRejected, res.StatusCode, res.Reason)
	}

	log.Debug().Str("apns_id", res.ApnsID).Msg("Push notification sent")
	return nil
}

func buildPayload(msg Message) *payload.Payload {
	p := payload.NewPayload().
		AlertTitle(msg.Title).
		AlertBody(msg.Body).
		Sound("default")
	for k, v := range msg.Data {
		p = p.Custom(k, v)
	}
	return p
}
