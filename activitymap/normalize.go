// Package activitymap flattens crew activity events into a transport
// agnostic record for log pipelines and webhooks.
package activitymap

import (
	"strings"
	"time"

	crew "github.com/goliatone/go-crew"
)

const (
	// MetadataKeyActorType stores the actor type derived from crew.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyActorName stores the display name written to the audit trail.
	MetadataKeyActorName = "actor_name"
	// MetadataKeyFromStatus stores the source user status for lifecycle transitions.
	MetadataKeyFromStatus = "from_status"
	// MetadataKeyToStatus stores the target user status for lifecycle transitions.
	MetadataKeyToStatus = "to_status"
	// MetadataKeyActions lists the audit actions written by the change.
	MetadataKeyActions = "actions"
)

const (
	defaultChannel = "crew"
	defaultActorID = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	TenantID   string         `json:"tenant_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Fields returns the record as alternating key values for structured loggers
func (n Normalized) Fields() []any {
	fields := []any{
		"actor_id", n.ActorID,
		"verb", n.Verb,
		"object_type", n.ObjectType,
		"object_id", n.ObjectID,
		"channel", n.Channel,
		"occurred_at", n.OccurredAt,
	}
	if n.TenantID != "" {
		fields = append(fields, "tenant_id", n.TenantID)
	}
	for key, value := range n.Metadata {
		fields = append(fields, key, value)
	}
	return fields
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	actorFallback    string
	objectIDResolver func(crew.ActivityEvent) (string, string)
}

// Normalize converts a crew.ActivityEvent into the normalized shape. The
// object is derived from the event family: company events point at the
// company, project events at the project, everything else at the user.
func Normalize(event crew.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.Actor.ID),
		strings.TrimSpace(options.actorFallback),
	)

	objectType, objectID := resolveObject(event, options.objectIDResolver)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: objectType,
		ObjectID:   objectID,
		TenantID:   strings.TrimSpace(event.CompanyID),
		Channel:    strings.TrimSpace(options.channel),
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithObjectResolver overrides object type and id extraction.
func WithObjectResolver(resolver func(crew.ActivityEvent) (objectType, objectID string)) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor-id used for system events.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
	}
}

func resolveObject(event crew.ActivityEvent, resolver func(crew.ActivityEvent) (string, string)) (string, string) {
	if resolver != nil {
		objectType, objectID := resolver(event)
		return strings.TrimSpace(objectType), strings.TrimSpace(objectID)
	}

	family, _, _ := strings.Cut(string(event.EventType), ".")
	switch family {
	case "company":
		return "company", strings.TrimSpace(event.CompanyID)
	case "project":
		id, _ := event.Metadata["project_id"].(string)
		return "project", strings.TrimSpace(id)
	default:
		return "user", strings.TrimSpace(event.UserID)
	}
}

func normalizeMetadata(event crew.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if _, exists := metadata[MetadataKeyActorType]; !exists {
			set(MetadataKeyActorType, actorType)
		}
	}

	if name := strings.TrimSpace(event.Actor.Name); name != "" {
		if _, exists := metadata[MetadataKeyActorName]; !exists {
			set(MetadataKeyActorName, name)
		}
	}

	if event.FromStatus != "" {
		set(MetadataKeyFromStatus, string(event.FromStatus))
	}

	if event.ToStatus != "" {
		set(MetadataKeyToStatus, string(event.ToStatus))
	}

	if len(event.Actions) > 0 {
		actions := make([]string, 0, len(event.Actions))
		for _, action := range event.Actions {
			actions = append(actions, string(action))
		}
		set(MetadataKeyActions, actions)
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
