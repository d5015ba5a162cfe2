package activitymap_test

import (
	"context"
	"testing"
	"time"

	"github.com/admitme/admitme-server"
	"github.com/admitme/admitme-server/activitymap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := admitme.ActivityEvent{
		EventType:  admitme.ActivityEventAccessDenied,
		Email:      " Admin@Example.com ",
		Reason:     "role",
		Route:      "/api/admin/users",
		Metadata:   map[string]any{"request_id": "req-1"},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	assert.Equal(t, "admin@example.com", out.ActorID)
	assert.Equal(t, string(admitme.ActivityEventAccessDenied), out.Verb)
	assert.Equal(t, "session", out.ObjectType)
	assert.Equal(t, "http", out.Channel)
	assert.True(t, out.OccurredAt.Equal(ts))
	assert.Equal(t, map[string]any{
		"request_id":                 "req-1",
		activitymap.MetadataKeyReason: "role",
		activitymap.MetadataKeyRoute:  "/api/admin/users",
	}, out.Metadata)

	// source metadata is not mutated
	assert.Len(t, event.Metadata, 1)
}

func TestNormalizeOptions(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	out := activitymap.Normalize(
		admitme.ActivityEvent{EventType: admitme.ActivityEventLogout},
		activitymap.WithDefaultChannel(" cli "),
		activitymap.WithDefaultObjectType("token"),
		activitymap.WithActorFallback("system"),
		activitymap.WithClock(func() time.Time { return fixed }),
	)

	assert.Equal(t, "system", out.ActorID)
	assert.Equal(t, "cli", out.Channel)
	assert.Equal(t, "token", out.ObjectType)
	assert.Equal(t, fixed, out.OccurredAt)
	assert.Nil(t, out.Metadata)
}

func TestNormalizeAnonymousActor(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(admitme.ActivityEvent{EventType: admitme.ActivityEventSessionRejected})
	assert.Equal(t, "anonymous", out.ActorID)
	assert.False(t, out.OccurredAt.IsZero())
}

type captureLogger struct {
	msgs []string
	args [][]any
}

func (c *captureLogger) Debug(string, ...any) {}
func (c *captureLogger) Warn(string, ...any)  {}
func (c *captureLogger) Error(string, ...any) {}
func (c *captureLogger) Info(msg string, args ...any) {
	c.msgs = append(c.msgs, msg)
	c.args = append(c.args, args)
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	logger := &captureLogger{}
	sink := activitymap.LogSink(logger)

	err := sink.Record(context.Background(), admitme.ActivityEvent{
		EventType: admitme.ActivityEventSessionRejected,
		Reason:    "expired",
		Route:     "/api/admin/users",
	})
	require.NoError(t, err)

	require.Len(t, logger.msgs, 1)
	assert.Equal(t, "Activity", logger.msgs[0])

	args := logger.args[0]
	assert.Contains(t, args, "auth.session.rejected")
	assert.Contains(t, args, "expired")
	assert.Contains(t, args, "/api/admin/users")
	assert.Contains(t, args, "anonymous")
}

func TestLogSinkNilLogger(t *testing.T) {
	t.Parallel()

	sink := activitymap.LogSink(nil)
	assert.NoError(t, sink.Record(context.Background(), admitme.ActivityEvent{}))
}
