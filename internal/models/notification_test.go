package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationCloneIsIndependent(t *testing.T) {
	expires := time.Now().Add(time.Minute)
	n := &Notification{
		ID:        "NOTIF-1",
		Title:     "original",
		Channel:   ChannelLog,
		Priority:  PriorityNormal,
		Data:      map[string]interface{}{"k": "v"},
		ExpiresAt: &expires,
	}

	c := n.Clone()
	c.Title = "changed"
	c.RetryCount = 5
	c.Data["k"] = "w"
	*c.ExpiresAt = time.Now()

	assert.Equal(t, "original", n.Title)
	assert.Equal(t, 0, n.RetryCount)
	assert.Equal(t, "v", n.Data["k"])
	assert.True(t, n.ExpiresAt.After(time.Now()))
}

func TestNotificationExpired(t *testing.T) {
	n := &Notification{}
	assert.False(t, n.Expired())

	past := time.Now().Add(-time.Second)
	n.ExpiresAt = &past
	assert.True(t, n.Expired())
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityLow, ParsePriority("low"))
	assert.Equal(t, PriorityUrgent, ParsePriority("urgent"))
	assert.Equal(t, PriorityNormal, ParsePriority("anything"))
	require.Equal(t, "urgent", PriorityUrgent.String())
}
