package chathub

import "errors"

// Error taxonomy. Every error is scoped to the operation and connection that
// triggered it; none is fatal to the process.
var (
	// ErrNotAuthenticated rejects channel and message operations issued
	// before a successful authenticate.
	ErrNotAuthenticated = errors.New("connection is not authenticated")

	// ErrSelfChannel rejects channel creation where both participants are the
	// same user.
	ErrSelfChannel = errors.New("cannot create a channel with yourself")

	// ErrEmptyMessage rejects messages with blank content.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrNotParticipant rejects a send from a user who is not one of the
	// channel's two participants.
	ErrNotParticipant = errors.New("user is not a participant of the channel")

	// ErrChannelNotFound marks operations on a channel id with no backing record.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrMessageNotFound marks operations on a message id with no backing record.
	ErrMessageNotFound = errors.New("message not found")
)
