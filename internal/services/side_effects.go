package services

import (
	"context"
	"time"

	"pickmate-backend/internal/events"
	"pickmate-backend/internal/notify"

	"github.com/rs/zerolog/log"
)

const pushTimeout = 10 * time.Second

// sideEffects runs the work that follows a committed change. Failures are
// logged and never reach the caller.
type sideEffects struct {
	users UserStore
	bus   events.Bus
	push  notify.Notifier
}

func (s *sideEffects) publish(ctx context.Context, topic string, event events.Event) {
	if s.bus == nil {
		return
	}
	if event.At.IsZero() {
		event.At = now()
	}
	if err := s.bus.Publish(ctx, topic, event); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("type", string(event.Type)).
			Msg("Failed to publish event")
	}
}

// pushTo sends msg to the user's registered device in the background
func (s *sideEffects) pushTo(ctx context.Context, userID string, msg notify.Message) {
	if s.push == nil || userID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)

	go func() {
		ctx, cancel := context.WithTimeout(ctx, pushTimeout)
		defer cancel()

		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to load user for push")
			return
		}
		if user.PushToken == nil {
			return
		}
		if err := s.push.Notify(ctx, *user.PushToken, msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to send push notification")
		}
	}()
}
