package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	// ErrAlreadyLinked is returned by the store when the attach-once guard rejects an update.
	ErrAlreadyLinked = errors.New("profile already has a referrer")
)

// ConflictError reports a unique-constraint violation on insert.
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	if e.Constraint == "" {
		return "profile conflict"
	}
	return fmt.Sprintf("profile conflict on %s", e.Constraint)
}

const (
	ConstraintID           = "profiles_pkey"
	ConstraintEmail        = "profiles_email_key"
	ConstraintReferralCode = "profiles_referral_code_key"
)

// IsConflict reports whether err is a ConflictError on the given constraint.
// An empty constraint matches any conflict.
func IsConflict(err error, constraint string) bool {
	var ce *ConflictError
	if !errors.As(err, &ce) {
		return false
	}
	return constraint == "" || ce.Constraint == constraint
}

// RejectReason is the machine-readable cause of a refused referral attach.
type RejectReason string

const (
	RejectAlreadyLinked RejectReason = "already_linked"
	RejectInvalidCode   RejectReason = "invalid_code"
	RejectSelfReferral  RejectReason = "self_referral"
)

// RejectedError is a business-rule violation, not an infrastructure failure.
type RejectedError struct {
	Reason RejectReason
}

func (e *RejectedError) Error() string {
	return "referral rejected: " + string(e.Reason)
}

// RejectionReason extracts the reason from err, if err is a RejectedError.
func RejectionReason(err error) (RejectReason, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
