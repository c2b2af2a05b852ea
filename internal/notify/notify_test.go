package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickmate-backend/internal/config"
)

type fakePusher struct {
	sent []*apns2.Notification
	res  *apns2.Response
	err  error
}

func (f *fakePusher) PushWithContext(_ apns2.Context, n *apns2.Notification) (*apns2.Response, error) {
	f.sent = append(f.sent, n)
	return f.res, f.err
}

func TestAPNs_Notify(t *testing.T) {
	fp := &fakePusher{res: &apns2.Response{StatusCode: http.StatusOK, ApnsID: "abc"}}
	a := &APNs{client: fp, topic: "com.example.pickmate"}

	err := a.Notify(context.Background(), "device-1", Message{
		Title: "Dinner?",
		Body:  "Alex added a new decision",
		Data:  map[string]string{"decision_id": "d1"},
	})
	require.NoError(t, err)
	require.Len(t, fp.sent, 1)

	n := fp.sent[0]
	assert.Equal(t, "device-1", n.DeviceToken)
	assert.Equal(t, "com.example.pickmate", n.Topic)

	raw, err := json.Marshal(n.Payload)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "d1", body["decision_id"])

	aps := body["aps"].(map[string]any)
	alert := aps["alert"].(map[string]any)
	assert.Equal(t, "Dinner?", alert["title"])
	assert.Equal(t, "Alex added a new decision", alert["body"])
}

func TestAPNs_NotifyRejected(t *testing.T) {
	fp := &fakePusher{res: &apns2.Response{StatusCode: http.StatusBadRequest, Reason: apns2.ReasonBadDeviceToken}}
	a := &APNs{client: fp, topic: "t"}

	err := a.Notify(context.Background(), "device-1", Message{Title: "x"})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), apns2.ReasonBadDeviceToken)
}

func TestAPNs_NotifyTransportError(t *testing.T) {
	fp := &fakePusher{err: errors.New("connection reset")}
	a := &APNs{client: fp, topic: "t"}

	err := a.Notify(context.Background(), "device-1", Message{Title: "x"})
	assert.Error(t, err)
}

func TestAPNs_SkipsEmptyToken(t *testing.T) {
	fp := &fakePusher{}
	a := &APNs{client: fp, topic: "t"}

	require.NoError(t, a.Notify(context.Background(), "", Message{Title: "x"}))
	assert.Empty(t, fp.sent)
}

func TestNew_DisabledReturnsNoop(t *testing.T) {
	n, err := New(config.APNsConfig{})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, n)
	assert.NoError(t, n.Notify(context.Background(), "device", Message{}))
}

func TestNew_MissingKeyFile(t *testing.T) {
	_, err := New(config.APNsConfig{
		KeyFile: "/nonexistent/AuthKey.p8",
		KeyID:   "KEY",
		TeamID:  "TEAM",
		Topic:   "com.example.pickmate",
	})
	assert.Error(t, err)
}
