package chat

import "errors"

var (
	// ErrNotFound means the referenced message or conversation is absent.
	ErrNotFound = errors.New("message not found")

	// ErrMessageNotSynced means a reaction targeted a message the server has
	// not seen yet. Callers should retry after the next sync rather than
	// treat this as a hard failure.
	ErrMessageNotSynced = errors.New("message not synced yet")

	// ErrDuplicateReaction means the user already reacted with that emoji.
	ErrDuplicateReaction = errors.New("user already reacted with this emoji")
)

// Retryable reports whether the error signals an expected eventual-consistency
// gap (the message will arrive with the next sync) rather than a real failure.
func Retryable(err error) bool {
	return errors.Is(err, ErrMessageNotSynced)
}
