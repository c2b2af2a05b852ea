package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickmate-backend/internal/apperr"
)

func TestCreateUser_IssuesValidToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, token, err := env.users.CreateUser(ctx, CreateUserInput{Email: " Alex@Example.com ", DisplayName: " Alex "})
	require.NoError(t, err)
	assert.Equal(t, "alex@example.com", user.Email)
	assert.Equal(t, "Alex", user.DisplayName)
	assert.Nil(t, user.CoupleID)

	userID, err := env.users.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	_, _, err = env.users.CreateUser(ctx, CreateUserInput{Email: "alex@example.com", DisplayName: "Other"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, _, err = env.users.CreateUser(ctx, CreateUserInput{Email: "", DisplayName: "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestValidateJWT_Rejects(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.ValidateJWT("not-a-token")
	assert.Error(t, err)

	other := NewUserService(nil, "another-secret")
	token, err := other.GenerateJWT("user-1")
	require.NoError(t, err)
	_, err = env.users.ValidateJWT(token)
	assert.Error(t, err)
}

func TestUpdatePushToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "alex")

	require.NoError(t, env.users.UpdatePushToken(ctx, u.ID, " device-1 "))
	got, err := env.users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PushToken)
	assert.Equal(t, "device-1", *got.PushToken)

	require.NoError(t, env.users.UpdatePushToken(ctx, u.ID, ""))
	got, err = env.users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PushToken)

	err = env.users.UpdatePushToken(ctx, "missing", "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
