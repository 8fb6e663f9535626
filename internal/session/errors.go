package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotInCall        = errors.New("not in a call")
	ErrAlreadyInCall    = errors.New("already in a call")
	ErrLinkClosed       = errors.New("peer link closed")
	ErrUnexpectedAnswer = errors.New("answer without a pending offer")
	ErrNoVideoSender    = errors.New("no outbound video sender")
	ErrApprovalPending  = errors.New("join approval still pending")
	ErrChannelNotOpen   = errors.New("data channel not open")
)

// SessionError wraps an operation name around an underlying error.
type SessionError struct {
	Op      string
	Remote  string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	if e.Remote != "" {
		return fmt.Sprintf("%s (peer %s): %v", e.Op, e.Remote, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func NewPeerError(op, remote string, err error) *SessionError {
	return &SessionError{Op: op, Remote: remote, Err: err}
}
