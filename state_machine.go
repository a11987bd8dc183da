package crew

import (
	"context"
)

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor ActorRef
	User  *User
	From  UserStatus
	To    UserStatus
}

// TransitionHook runs after a status change is applied to the in-memory
// record and before it is persisted. Returning an error aborts the change.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// UserStateMachine guards User.Status changes.
type UserStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus) error
	CanTransition(from, to UserStatus) bool
	CurrentStatus(user *User) UserStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*userStateMachine)

// WithTransitionHook registers a hook executed on every transition.
func WithTransitionHook(h TransitionHook) StateMachineOption {
	return func(sm *userStateMachine) {
		if h != nil {
			sm.hooks = append(sm.hooks, h)
		}
	}
}

// NewUserStateMachine returns the default status graph:
//
//	PENDING_APPROVAL      -> ACTIVE | BLOCKED
//	ACTIVE                -> BLOCKED
//	BLOCKED               -> ACTIVE
//	NEEDS_PASSWORD_CHANGE -> ACTIVE
func NewUserStateMachine(opts ...StateMachineOption) UserStateMachine {
	sm := &userStateMachine{
		transitions: map[UserStatus]map[UserStatus]struct{}{
			UserStatusPending: {
				UserStatusActive:  {},
				UserStatusBlocked: {},
			},
			UserStatusActive: {
				UserStatusBlocked: {},
			},
			UserStatusBlocked: {
				UserStatusActive: {},
			},
			UserStatusNeedsPasswordChange: {
				UserStatusActive: {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type userStateMachine struct {
	transitions map[UserStatus]map[UserStatus]struct{}
	hooks       []TransitionHook
}

func (sm *userStateMachine) Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus) error {
	if user == nil || target == "" {
		return newInvalidTransition("", target)
	}

	from := user.Status
	if !sm.CanTransition(from, target) {
		return newInvalidTransition(from, target)
	}

	user.Status = target

	tc := TransitionContext{
		Actor: actor,
		User:  user,
		From:  from,
		To:    target,
	}
	for _, hook := range sm.hooks {
		if err := hook(ctx, tc); err != nil {
			user.Status = from
			return err
		}
	}

	return nil
}

func (sm *userStateMachine) CanTransition(from, to UserStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *userStateMachine) CurrentStatus(user *User) UserStatus {
	if user == nil {
		return ""
	}
	return user.Status
}
