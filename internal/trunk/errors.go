package trunk

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures and non-failure outcomes.
type ErrorKind string

const (
	// KindPreconditionFailed reports a host or store that is not in the state the operation needs.
	KindPreconditionFailed ErrorKind = "precondition failed"
	// KindReferenceNotFound reports a ref that exists in none of the consulted scopes.
	KindReferenceNotFound ErrorKind = "reference not found"
	// KindTransferFailure reports a failed fetch, push, or object verification.
	KindTransferFailure ErrorKind = "transfer failure"
	// KindConfirmationDeclined reports that the user answered no.
	KindConfirmationDeclined ErrorKind = "confirmation declined"
	// KindNoChanges reports a capture with nothing to record.
	KindNoChanges ErrorKind = "no changes"
	// KindNonFastForward reports a push the remote rejected because it would lose history.
	KindNonFastForward ErrorKind = "non-fast-forward"
)

const (
	errorMessageTemplateConstant          = "%s: %s"
	errorMessageWithStoreTemplateConstant = "%s: store %q: %s"
	errorCauseTemplateConstant            = "%s: %v"
)

// Error is the engine error type. Kind drives exit codes and is what errors.Is compares.
type Error struct {
	Kind    ErrorKind
	Store   string
	Message string
	Cause   error
}

// Error renders the kind, store, message and cause.
func (trunkError *Error) Error() string {
	rendered := string(trunkError.Kind)
	switch {
	case len(trunkError.Store) > 0:
		rendered = fmt.Sprintf(errorMessageWithStoreTemplateConstant, trunkError.Kind, trunkError.Store, trunkError.Message)
	case len(trunkError.Message) > 0:
		rendered = fmt.Sprintf(errorMessageTemplateConstant, trunkError.Kind, trunkError.Message)
	}
	if trunkError.Cause != nil {
		rendered = fmt.Sprintf(errorCauseTemplateConstant, rendered, trunkError.Cause)
	}
	return rendered
}

// Unwrap exposes the cause.
func (trunkError *Error) Unwrap() error {
	return trunkError.Cause
}

// Is matches any *Error of the same kind.
func (trunkError *Error) Is(target error) bool {
	var targetError *Error
	if !errors.As(target, &targetError) {
		return false
	}
	return targetError.Kind == trunkError.Kind
}

var (
	// ErrPreconditionFailed matches errors of KindPreconditionFailed.
	ErrPreconditionFailed = &Error{Kind: KindPreconditionFailed}
	// ErrReferenceNotFound matches errors of KindReferenceNotFound.
	ErrReferenceNotFound = &Error{Kind: KindReferenceNotFound}
	// ErrTransferFailure matches errors of KindTransferFailure.
	ErrTransferFailure = &Error{Kind: KindTransferFailure}
	// ErrConfirmationDeclined matches errors of KindConfirmationDeclined.
	ErrConfirmationDeclined = &Error{Kind: KindConfirmationDeclined}
	// ErrNoChanges matches errors of KindNoChanges.
	ErrNoChanges = &Error{Kind: KindNoChanges}
	// ErrNonFastForward matches errors of KindNonFastForward.
	ErrNonFastForward = &Error{Kind: KindNonFastForward}
)

// IsSuccessOutcome reports errors that describe a completed decision rather than a failure.
func IsSuccessOutcome(err error) bool {
	return errors.Is(err, ErrNoChanges) || errors.Is(err, ErrConfirmationDeclined)
}

func newError(kind ErrorKind, store StoreName, message string, cause error) *Error {
	return &Error{Kind: kind, Store: store.String(), Message: message, Cause: cause}
}
