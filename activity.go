package crew

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventUserRegistered       ActivityEventType = "user.registered"
	ActivityEventUserStatusChanged    ActivityEventType = "user.status.changed"
	ActivityEventUserUpdated          ActivityEventType = "user.updated"
	ActivityEventTransferRequested    ActivityEventType = "user.transfer.requested"
	ActivityEventTransferResolved     ActivityEventType = "user.transfer.resolved"
	ActivityEventAvailabilityToggled  ActivityEventType = "user.availability.toggled"
	ActivityEventVerificationChanged  ActivityEventType = "user.verification.changed"
	ActivityEventLoginSuccess         ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure         ActivityEventType = "auth.login.failure"
	ActivityEventPasswordChanged      ActivityEventType = "auth.password.changed"
	ActivityEventCompanyRegistered    ActivityEventType = "company.registered"
	ActivityEventCompanyRejected      ActivityEventType = "company.rejected"
	ActivityEventCompanyLicensed      ActivityEventType = "company.licensed"
	ActivityEventCompanyUpdated       ActivityEventType = "company.updated"
	ActivityEventProjectCreated       ActivityEventType = "project.created"
	ActivityEventProjectStatusChanged ActivityEventType = "project.status.changed"
)

// ActorRef identifies who/what triggered a change.
type ActorRef struct {
	ID   string
	Type string
	Name string
}

var (
	systemActor = ActorRef{Type: "system", Name: ActorSystem}
)

func actorFromUser(u *User) ActorRef {
	if u == nil {
		return systemActor
	}
	return ActorRef{ID: u.ID.String(), Type: string(u.Role), Name: u.FullName}
}

func selfActor(u *User) ActorRef {
	ref := actorFromUser(u)
	ref.Type = "self"
	return ref
}

// ActivityEvent describes a committed change, used as a change notification.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	CompanyID  string
	FromStatus UserStatus
	ToStatus   UserStatus
	Actions    []LogAction
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
