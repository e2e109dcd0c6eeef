package service

import "errors"

// Error taxonomy shared by the core services. Handlers match these with
// errors.Is and map them to typed JSON responses; everything else is a
// 500.
var (
	// ErrSelfAction: acting on oneself (like, dislike, conversation).
	ErrSelfAction = errors.New("cannot perform this action on yourself")
	// ErrDuplicateAction: the same interaction repeated. Not silently
	// idempotent — callers surface "already liked/disliked".
	ErrDuplicateAction = errors.New("interaction already recorded")
	// ErrInvalidKind: interaction kind outside {like, dislike}.
	ErrInvalidKind = errors.New("invalid interaction kind")

	ErrUserNotFound         = errors.New("user not found")
	ErrUserInactive         = errors.New("user is not eligible")
	ErrInteractionNotFound  = errors.New("interaction not found")
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrNotParticipant: conversation/channel access denied.
	ErrNotParticipant = errors.New("you are not a participant of this conversation")
	ErrForbidden      = errors.New("access denied")
	ErrUnknownChannel = errors.New("unknown channel name")

	// ErrTransientStore: lock/timeout/conflict that survived the single
	// automatic retry. Callers may try again.
	ErrTransientStore = errors.New("temporary storage conflict, try again")

	// ErrInvariantViolation should be unreachable: it means the
	// canonical pair-lock discipline was bypassed. Logged loudly,
	// never silently corrected.
	ErrInvariantViolation = errors.New("pair invariant violated")
)
