// Package activitymap turns admitme activity events into a flat record that
// log pipelines and audit stores can consume without importing admitme types.
package activitymap

import (
	"context"
	"strings"
	"time"

	"github.com/admitme/admitme-server"
)

const (
	// MetadataKeyReason stores the rejection or denial reason.
	MetadataKeyReason = "reason"
	// MetadataKeyRoute stores the matched route pattern.
	MetadataKeyRoute = "route"
)

const (
	defaultChannel    = "http"
	defaultObjectType = "session"
	defaultActorID    = "anonymous"
)

// Normalized is a transport agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
	now           func() time.Time
}

// Normalize converts an admitme.ActivityEvent into a normalized record.
func Normalize(event admitme.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ActorID:    firstNonEmpty(admitme.NormalizeEmail(event.Email), options.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when the event carries no email.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock overrides the clock used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

// LogSink returns an ActivitySink that writes every normalized event to
// logger at info level.
func LogSink(logger admitme.Logger, opts ...Option) admitme.ActivitySink {
	return admitme.ActivitySinkFunc(func(_ context.Context, event admitme.ActivityEvent) error {
		if logger == nil {
			return nil
		}
		rec := Normalize(event, opts...)
		args := []any{
			"actor_id", rec.ActorID,
			"verb", rec.Verb,
			"object_type", rec.ObjectType,
			"channel", rec.Channel,
			"occurred_at", rec.OccurredAt,
		}
		for _, key := range []string{MetadataKeyRoute, MetadataKeyReason} {
			if val, ok := rec.Metadata[key]; ok {
				args = append(args, key, val)
			}
		}
		logger.Info("Activity", args...)
		return nil
	})
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func normalizeMetadata(event admitme.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	if reason := strings.TrimSpace(event.Reason); reason != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[MetadataKeyReason] = reason
	}

	if route := strings.TrimSpace(event.Route); route != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[MetadataKeyRoute]; !exists {
			metadata[MetadataKeyRoute] = route
		}
	}

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
