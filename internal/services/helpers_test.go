package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"pickmate-backend/internal/events"
	"pickmate-backend/internal/models"
	"pickmate-backend/internal/notify"
	"pickmate-backend/internal/repository/memory"
)

type sentPush struct {
	token string
	msg   notify.Message
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentPush
}

func (r *recordingNotifier) Notify(_ context.Context, token string, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentPush{token: token, msg: msg})
	return nil
}

func (r *recordingNotifier) pushes() []sentPush {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentPush(nil), r.sent...)
}

type testEnv struct {
	stores    Stores
	bus       *events.LocalBus
	push      *recordingNotifier
	users     *UserService
	pairing   *PairingService
	decisions *DecisionService
	ratings   *RatingService
	results   *ResultsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := memory.New()
	stores := Stores{
		Users:     db.Users(),
		Couples:   db.Couples(),
		Decisions: db.Decisions(),
		Options:   db.Options(),
		Ratings:   db.Ratings(),
	}
	bus := events.NewLocalBus()
	push := &recordingNotifier{}

	return &testEnv{
		stores:    stores,
		bus:       bus,
		push:      push,
		users:     NewUserService(stores.Users, "test-secret"),
		pairing:   NewPairingService(stores.Couples, stores.Users, bus, push),
		decisions: NewDecisionService(stores, bus, push),
		ratings:   NewRatingService(stores, bus),
		results:   NewResultsService(stores, bus),
	}
}

func (e *testEnv) createUser(t *testing.T, name string) *models.User {
	t.Helper()
	user, _, err := e.users.CreateUser(context.Background(), CreateUserInput{
		Email:       name + "@example.com",
		DisplayName: name,
	})
	require.NoError(t, err)
	return user
}

// pair creates a couple of two fresh users
func (e *testEnv) pair(t *testing.T) (a, b *models.User, couple *models.Couple) {
	t.Helper()
	ctx := context.Background()

	a = e.createUser(t, "alex")
	b = e.createUser(t, "sam")

	couple, err := e.pairing.CreateCouple(ctx, a.ID)
	require.NoError(t, err)
	couple, err = e.pairing.JoinCouple(ctx, b.ID, couple.InviteCode)
	require.NoError(t, err)
	return a, b, couple
}

func (e *testEnv) createDecision(t *testing.T, userID string, options ...string) *DecisionDetail {
	t.Helper()
	input := CreateDecisionInput{Title: "Dinner", Category: models.CategoryFood}
	for _, title := range options {
		input.Options = append(input.Options, OptionInput{Title: title})
	}
	d, err := e.decisions.Create(context.Background(), userID, input)
	require.NoError(t, err)
	return d
}
