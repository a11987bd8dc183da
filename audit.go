package crew

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/uptrace/bun"
)

// LogAction is the closed vocabulary of audit tags
type LogAction string

const (
	ActionCreated              LogAction = "CREATED"
	ActionRegistered           LogAction = "REGISTERED"
	ActionApproved             LogAction = "APPROVED"
	ActionBlocked              LogAction = "BLOCKED"
	ActionUnblocked            LogAction = "UNBLOCKED"
	ActionRemovedFromCompany   LogAction = "REMOVED_FROM_COMPANY"
	ActionRemovedFromProject   LogAction = "REMOVED_FROM_PROJECT"
	ActionStatusUpdate         LogAction = "STATUS_UPDATE"
	ActionTransferRequested    LogAction = "TRANSFER_REQUESTED"
	ActionTransferApproved     LogAction = "TRANSFER_APPROVED"
	ActionTransferRejected     LogAction = "TRANSFER_REJECTED"
	ActionProjectChange        LogAction = "PROJECT_CHANGE"
	ActionPositionChange       LogAction = "POSITION_CHANGE"
	ActionNameChange           LogAction = "NAME_CHANGE"
	ActionPermissionsChange    LogAction = "PERMISSIONS_CHANGE"
	ActionUsernameChange       LogAction = "USERNAME_CHANGE"
	ActionPasswordReset        LogAction = "PASSWORD_RESET"
	ActionPasswordChanged      LogAction = "PASSWORD_CHANGED"
	ActionAvailabilitySignal   LogAction = "AVAILABILITY_SIGNAL"
	ActionIdentitySubmitted    LogAction = "IDENTITY_SUBMITTED"
	ActionVerificationReviewed LogAction = "VERIFICATION_REVIEWED"
)

// Display names used for automated and self service entries
const (
	ActorSystem = "System"
	ActorSelf   = "Self"
)

// UserLog is one append-only audit entry. Seq preserves append order per user.
type UserLog struct {
	bun.BaseModel `bun:"table:user_logs,alias:ulog"`
	ID            string    `bun:"id,pk" json:"id"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id"`
	Seq           int       `bun:"seq,notnull" json:"seq"`
	Date          time.Time `bun:"date,notnull" json:"date"`
	Action        LogAction `bun:"action,notnull" json:"action"`
	AdminName     string    `bun:"admin_name,notnull" json:"admin_name"`
	Description   string    `bun:"description" json:"description"`
}

func newLogEntry(userID uuid.UUID, at time.Time, action LogAction, adminName, description string) UserLog {
	return UserLog{
		ID:          ksuid.New().String(),
		UserID:      userID,
		Date:        at,
		Action:      action,
		AdminName:   adminName,
		Description: description,
	}
}

// journal collects the entries produced by one transition so they are
// written in the same transaction as the user row.
type journal struct {
	userID  uuid.UUID
	at      time.Time
	entries []UserLog
}

func newJournal(userID uuid.UUID, at time.Time) *journal {
	return &journal{userID: userID, at: at}
}

func (j *journal) add(action LogAction, adminName, description string) {
	j.entries = append(j.entries, newLogEntry(j.userID, j.at, action, adminName, description))
}

func (j *journal) actions() []LogAction {
	out := make([]LogAction, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Action)
	}
	return out
}

// MostRecentFirst returns a copy of logs in rendering order
func MostRecentFirst(logs []UserLog) []UserLog {
	out := append([]UserLog(nil), logs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Seq > out[j].Seq
	})
	return out
}

// CountActions counts entries with the given tag
func CountActions(logs []UserLog, action LogAction) int {
	n := 0
	for _, l := range logs {
		if l.Action == action {
			n++
		}
	}
	return n
}

func projectNames(ids []uuid.UUID, names map[uuid.UUID]string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok && name != "" {
			parts = append(parts, name)
			continue
		}
		parts = append(parts, id.String())
	}
	return strings.Join(parts, ", ")
}
