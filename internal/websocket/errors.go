package websocket

import "errors"

var (
	ErrTaskPanic   = errors.New("detached task panicked")
	ErrHubClosed   = errors.New("hub is shutting down")
	ErrSendBlocked = errors.New("client send buffer full")
)

// Messages sent on the error event. Store failures never leak their detail.
const (
	msgInvalidPayload     = "Invalid payload"
	msgUnknownEvent       = "Unknown event"
	msgInternal           = "Internal server error"
	msgMissingFields      = "Missing required fields"
	msgEmptyContent       = "Message content cannot be empty"
	msgRateLimited        = "Rate limit exceeded. Please slow down."
	msgNotProjectMember   = "You are not a member of this project"
	msgRoomNotInProject   = "Chat room not found in this project"
	msgNotFriends         = "You can only message friends"
	msgJoinProjectFailed  = "Failed to join project rooms"
	msgSendMessageFailed  = "Failed to send message"
	msgSendFriendFailed   = "Failed to send friend message"
	msgMissingTargetField = "Missing target user"
)

// clientError is reported to the connection verbatim.
type clientError struct {
	msg string
}

func (e *clientError) Error() string { return e.msg }

func userError(msg string) error { return &clientError{msg: msg} }

// internalError carries a store or encoding failure. Only msg reaches the
// client; err is logged.
type internalError struct {
	msg string
	err error
}

func (e *internalError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *internalError) Unwrap() error { return e.err }

func failed(msg string, err error) error { return &internalError{msg: msg, err: err} }
