package billing

import (
	"context"
	"errors"
	"fmt"
	"net"

	billingRepo "nestly/database/repository/billing"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorKind partitions step failures by recovery strategy.
type ErrorKind string

const (
	KindNetwork       ErrorKind = "NETWORK"
	KindValidation    ErrorKind = "VALIDATION"
	KindBusinessLogic ErrorKind = "BUSINESS_LOGIC"
	KindPermission    ErrorKind = "PERMISSION"
	KindResourceLimit ErrorKind = "RESOURCE_LIMIT"
	KindUnknown       ErrorKind = "UNKNOWN"
)

// Error is the single structured error type produced once at the point of
// failure and consumed uniformly by the run coordinator.
type Error struct {
	Kind      ErrorKind
	Retryable bool
	Op        string // Phase that failed, e.g. "persistInvoice".
	Subject   string // Reservation, invoice or user id.
	Cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s [%s] subject=%s: %v", e.Op, e.Kind, e.Subject, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Critical reports whether this failure must abort the whole run: continuing
// after a permission, quota or uncategorized error cannot be trusted to be
// safe or effective.
func (e *Error) Critical() bool {
	switch e.Kind {
	case KindPermission, KindResourceLimit, KindUnknown:
		return true
	}
	return false
}

func newError(kind ErrorKind, op, subject string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Retryable: kind == KindNetwork,
		Op:        op,
		Subject:   subject,
		Cause:     cause,
	}
}

// Mongo server error codes the classifier cares about.
const (
	codeUnauthorized        = 13
	codeExceededMemoryLimit = 146
	codeWriteConflict       = 112
	codeTooManyRequests     = 16500
)

// Classify assigns an error kind and retryable flag to an error surfaced by a
// step. Errors already classified at the failure point pass through untouched.
func Classify(op, subject string, err error) *Error {
	var be *Error
	if errors.As(err, &be) {
		return be
	}

	switch {
	case errors.Is(err, billingRepo.ErrAlreadyBilled), errors.Is(err, billingRepo.ErrNotFound):
		return newError(KindBusinessLogic, op, subject, err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindNetwork, op, subject, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindNetwork, op, subject, err)
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return newError(KindNetwork, op, subject, err)
	}

	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) {
		switch {
		case srvErr.HasErrorCode(codeUnauthorized):
			return newError(KindPermission, op, subject, err)
		case srvErr.HasErrorCode(codeWriteConflict),
			srvErr.HasErrorCode(codeExceededMemoryLimit),
			srvErr.HasErrorCode(codeTooManyRequests):
			return newError(KindResourceLimit, op, subject, err)
		}
	}

	return newError(KindUnknown, op, subject, err)
}
