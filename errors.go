package crew

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	TextCodeAccountBlocked         = "ACCOUNT_BLOCKED"
	TextCodeDuplicateAccount       = "DUPLICATE_ACCOUNT"
	TextCodeInvalidCode            = "INVALID_CODE"
	TextCodePermissionDenied       = "PERMISSION_DENIED"
	TextCodeNotFound               = "NOT_FOUND"
	TextCodeTransferAlreadyPending = "TRANSFER_ALREADY_PENDING"
	TextCodeNoTransferPending      = "NO_TRANSFER_PENDING"
	TextCodeValidation             = "VALIDATION_ERROR"
	TextCodeInvalidTransition      = "INVALID_USER_STATE_TRANSITION"
	TextCodeConcurrentUpdate       = "CONCURRENT_UPDATE"
)

// ErrInvalidCredentials is returned when no account matches username and password
var ErrInvalidCredentials = goerrors.New("invalid username or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountBlocked is returned for correct credentials of a blocked account
var ErrAccountBlocked = goerrors.New("account blocked", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountBlocked).
	WithCode(goerrors.CodeForbidden)

// ErrTransferAlreadyPending is returned when a second transfer is requested
var ErrTransferAlreadyPending = goerrors.New("a transfer request is already pending for this user", goerrors.CategoryConflict).
	WithTextCode(TextCodeTransferAlreadyPending).
	WithCode(goerrors.CodeConflict)

// ErrNoTransferPending is returned when resolving a transfer that does not exist
var ErrNoTransferPending = goerrors.New("no pending transfer request", goerrors.CategoryConflict).
	WithTextCode(TextCodeNoTransferPending).
	WithCode(goerrors.CodeConflict)

// ErrConcurrentUpdate is returned when optimistic locking retries are exhausted
var ErrConcurrentUpdate = goerrors.New("user record was modified concurrently", goerrors.CategoryConflict).
	WithTextCode(TextCodeConcurrentUpdate).
	WithCode(goerrors.CodeConflict)

// Capability names an authorization predicate, carried by permission errors
type Capability string

const (
	CapApproveStaff     Capability = "approve_staff"
	CapResolveTransfer  Capability = "resolve_transfer"
	CapRequestTransfer  Capability = "request_transfer"
	CapEditUser         Capability = "edit_user"
	CapSetPermissions   Capability = "set_permissions"
	CapCreateProject    Capability = "create_project"
	CapBlockUser        Capability = "block_user"
	CapManageMembership Capability = "manage_membership"
	CapManageFinance    Capability = "manage_finance"
	CapManageCompany    Capability = "manage_company"
	CapReviewIdentity   Capability = "review_identity"
	CapManageCatalog    Capability = "manage_catalog"
	CapRejectCompany    Capability = "reject_company"
)

// NotFound kinds
const (
	KindUser    = "user"
	KindCompany = "company"
	KindProject = "project"
	KindLicense = "license"
	KindModule  = "module"
)

func newPermissionDenied(capability Capability, reason string) error {
	return goerrors.New(fmt.Sprintf("permission denied: %s", capability), goerrors.CategoryAuthz).
		WithTextCode(TextCodePermissionDenied).
		WithCode(goerrors.CodeForbidden).
		WithMetadata(map[string]any{
			"capability": string(capability),
			"reason":     reason,
		})
}

func newNotFound(kind string, id any) error {
	return goerrors.New(fmt.Sprintf("%s not found", kind), goerrors.CategoryNotFound).
		WithTextCode(TextCodeNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{
			"kind": kind,
			"id":   fmt.Sprint(id),
		})
}

func newDuplicateAccount(username string) error {
	return goerrors.New("mobile number already registered", goerrors.CategoryConflict).
		WithTextCode(TextCodeDuplicateAccount).
		WithCode(goerrors.CodeConflict).
		WithMetadata(map[string]any{"username": username})
}

func newInvalidCode(kind, code string) error {
	return goerrors.New(fmt.Sprintf("invalid %s code", kind), goerrors.CategoryBadInput).
		WithTextCode(TextCodeInvalidCode).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"kind": kind, "code": code})
}

func newValidationError(field, message string) error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithTextCode(TextCodeValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": map[string]string{field: message}})
}

func newValidationErrors(message string, fields map[string]string) error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithTextCode(TextCodeValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": fields})
}

func newInvalidTransition(from, to UserStatus) error {
	return goerrors.New("invalid user state transition", goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalidTransition).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"from": string(from),
			"to":   string(to),
		})
}

func wrapInternal(err error, message string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

func IsInvalidCredentials(err error) bool { return hasTextCode(err, TextCodeInvalidCredentials) }
func IsAccountBlocked(err error) bool     { return hasTextCode(err, TextCodeAccountBlocked) }
func IsDuplicateAccount(err error) bool   { return hasTextCode(err, TextCodeDuplicateAccount) }
func IsInvalidCode(err error) bool        { return hasTextCode(err, TextCodeInvalidCode) }
func IsPermissionDenied(err error) bool   { return hasTextCode(err, TextCodePermissionDenied) }
func IsNotFound(err error) bool           { return hasTextCode(err, TextCodeNotFound) }
func IsValidationError(err error) bool    { return hasTextCode(err, TextCodeValidation) }
func IsInvalidTransition(err error) bool  { return hasTextCode(err, TextCodeInvalidTransition) }
func IsConcurrentUpdate(err error) bool   { return hasTextCode(err, TextCodeConcurrentUpdate) }

func IsTransferAlreadyPending(err error) bool {
	return hasTextCode(err, TextCodeTransferAlreadyPending)
}

func IsNoTransferPending(err error) bool {
	return hasTextCode(err, TextCodeNoTransferPending)
}

// DeniedCapability extracts the capability carried by a permission error
func DeniedCapability(err error) (Capability, bool) {
	if !IsPermissionDenied(err) {
		return "", false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return "", false
	}
	capability, ok := richErr.Metadata["capability"].(string)
	return Capability(capability), ok
}
