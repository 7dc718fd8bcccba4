package fcm

import (
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMulticast(t *testing.T) {
	msg := BuildMulticast([]string{"a", "b"}, NotificationData{
		Title:       "Acme Corp: INTERVIEW",
		Body:        "Software Engineer Intern",
		Data:        map[string]string{"type": "status_change"},
		ClickAction: "/applications/app-1",
	})

	assert.Equal(t, []string{"a", "b"}, msg.Tokens)
	assert.Equal(t, "Acme Corp: INTERVIEW", msg.Notification.Title)
	assert.Equal(t, "status_change", msg.Data["type"])
	assert.Equal(t, "/applications/app-1", msg.Data["click_action"])
	require.NotNil(t, msg.Webpush.FCMOptions)
	assert.Equal(t, "/applications/app-1", msg.Webpush.FCMOptions.Link)
}

func TestBuildMulticastWithoutClickAction(t *testing.T) {
	msg := BuildMulticast([]string{"a"}, NotificationData{Title: "t"})
	assert.Nil(t, msg.Webpush.FCMOptions)
	assert.NotContains(t, msg.Data, "click_action")
}

func TestFailedTokens(t *testing.T) {
	resp := &messaging.BatchResponse{
		SuccessCount: 1,
		FailureCount: 2,
		Responses: []*messaging.SendResponse{
			{Success: false, Error: errors.New("unregistered")},
			{Success: true, MessageID: "m1"},
			{Success: false, Error: errors.New("invalid")},
		},
	}
	assert.Equal(t, []string{"t1", "t3"}, FailedTokens([]string{"t1", "t2", "t3"}, resp))
}
