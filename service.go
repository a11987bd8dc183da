package crew

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// DefaultMaxRetries is how many times a conflicting per user transition is
// replayed before ErrConcurrentUpdate is returned.
const DefaultMaxRetries = 3

// Service is the lifecycle and authorization engine. Every operation is a
// method on Service, storage is reached only through the RepositoryManager.
type Service struct {
	repo         RepositoryManager
	authz        *Authorizer
	machine      UserStateMachine
	logger       Logger
	clock        Clock
	activity     ActivitySink
	codes        CodeGenerator
	passwordCost int
	autoVerify   bool
	maxRetries   int
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLogger sets the service logger
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used for timestamps and audit entries
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithActivitySink receives an event after every committed change
func WithActivitySink(sink ActivitySink) ServiceOption {
	return func(s *Service) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithPasswordCost sets the bcrypt cost
func WithPasswordCost(cost int) ServiceOption {
	return func(s *Service) {
		s.passwordCost = cost
	}
}

// WithAutoVerifyIdentity marks submitted identity documents as verified
// without a review step.
func WithAutoVerifyIdentity(enabled bool) ServiceOption {
	return func(s *Service) {
		s.autoVerify = enabled
	}
}

// WithMaxRetries bounds optimistic locking retries
func WithMaxRetries(n int) ServiceOption {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithCodeGenerator replaces the join code source
func WithCodeGenerator(gen CodeGenerator) ServiceOption {
	return func(s *Service) {
		if gen != nil {
			s.codes = gen
		}
	}
}

// WithStateMachine replaces the status graph
func WithStateMachine(sm UserStateMachine) ServiceOption {
	return func(s *Service) {
		if sm != nil {
			s.machine = sm
		}
	}
}

// NewService creates the engine on top of repo
func NewService(repo RepositoryManager, opts ...ServiceOption) *Service {
	s := &Service{
		repo:         repo,
		authz:        NewAuthorizer(),
		machine:      NewUserStateMachine(),
		logger:       defLogger{},
		clock:        time.Now,
		activity:     noopActivitySink{},
		codes:        KSUIDCodeGenerator,
		passwordCost: bcrypt.DefaultCost,
		maxRetries:   DefaultMaxRetries,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Authorizer exposes the capability registry used by the service
func (s *Service) Authorizer() *Authorizer {
	return s.authz
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// change is the working state of one per user transition
type change struct {
	tx     bun.IDB
	now    time.Time
	actor  *User
	user   *User
	before *User
	log    *journal
	event  ActivityEventType
	meta   map[string]any
}

func (c *change) adminName() string {
	if c.actor == nil {
		return ActorSystem
	}
	return c.actor.FullName
}

func (c *change) actorRef() ActorRef {
	switch {
	case c.actor != nil:
		return actorFromUser(c.actor)
	case c.event != "":
		return selfActor(c.user)
	default:
		return systemActor
	}
}

type mutation func(ctx context.Context, c *change) error

// mutate runs apply against userID inside a transaction. The actor, when
// actorID is not uuid.Nil, is loaded in the same transaction. The row is
// written with a version guard and the journal is appended before commit,
// so state and audit trail never diverge. Version conflicts are replayed.
func (s *Service) mutate(ctx context.Context, actorID, userID uuid.UUID, apply mutation) (*User, error) {
	var (
		result *User
		done   *change
	)

	for attempt := 0; ; attempt++ {
		err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			user, err := s.repo.Users().LoadTx(ctx, tx, userID)
			if err != nil {
				return err
			}

			now := s.now()
			c := &change{
				tx:     tx,
				now:    now,
				user:   user,
				before: user.clone(),
				log:    newJournal(user.ID, now),
			}

			if actorID != uuid.Nil {
				if actorID == userID {
					c.actor = user.clone()
				} else {
					if c.actor, err = s.repo.Users().LoadTx(ctx, tx, actorID); err != nil {
						return err
					}
				}
			}

			if err := apply(ctx, c); err != nil {
				return err
			}

			c.user.UpdatedAt = c.now
			if err := s.repo.Users().SaveVersionedTx(ctx, tx, c.user); err != nil {
				return err
			}

			if _, err := s.repo.Logs().AppendTx(ctx, tx, c.log.entries); err != nil {
				return err
			}

			logs, err := s.repo.Logs().ListTx(ctx, tx, c.user.ID)
			if err != nil {
				return err
			}
			c.user.Logs = logs

			result = c.user
			done = c
			return nil
		})

		if err == nil {
			break
		}

		if IsConcurrentUpdate(err) && attempt < s.maxRetries {
			s.logger.Warn("concurrent update on user %s, retrying (%d/%d)", userID, attempt+1, s.maxRetries)
			continue
		}

		return nil, normalizeError(err)
	}

	s.emit(ctx, done)
	return result, nil
}

func (s *Service) emit(ctx context.Context, c *change) {
	if c == nil || c.event == "" {
		return
	}

	event := ActivityEvent{
		EventType:  c.event,
		Actor:      c.actorRef(),
		UserID:     c.user.ID.String(),
		FromStatus: c.before.Status,
		ToStatus:   c.user.Status,
		Actions:    c.log.actions(),
		Metadata:   c.meta,
		OccurredAt: c.now,
	}
	if c.user.CompanyID != nil {
		event.CompanyID = c.user.CompanyID.String()
	} else if c.before.CompanyID != nil {
		event.CompanyID = c.before.CompanyID.String()
	}

	s.record(ctx, event)
}

func (s *Service) record(ctx context.Context, event ActivityEvent) {
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink failed for %s: %v", event.EventType, err)
	}
}

// readTx runs fn in a transaction so multi row reads see one snapshot
func (s *Service) readTx(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error {
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
	return normalizeError(err)
}

func (s *Service) hash(password string) (string, error) {
	return HashPassword(password, s.passwordCost)
}

// normalizeError keeps taxonomy errors intact and wraps the rest
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "crew operation failed")
}
