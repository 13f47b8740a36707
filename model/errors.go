package model

import "errors"

// Poll engine errors.
var (
	ErrInvalidSpec       = errors.New("invalid poll spec")
	ErrMassMention       = errors.New("poll text contains a mass mention")
	ErrTooManySelections = errors.New("max selections exceeds answer count")
	ErrPollActive        = errors.New("a poll is already active in this channel")
	ErrNoPoll            = errors.New("no poll active in this channel")
	ErrNotInitiator      = errors.New("only the poll initiator can stop it")
	ErrPollClosed        = errors.New("poll already closed")
)

// Postbank errors.
var (
	ErrNoURL              = errors.New("no url found in message")
	ErrDuplicateLink      = errors.New("link already submitted")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrUnknownPost        = errors.New("unknown feedback id")
	ErrOwnPost            = errors.New("cannot review own submission")
	ErrFeedbackTooShort   = errors.New("feedback below minimum length")
	ErrAlreadyReviewed    = errors.New("already reviewed this submission")
	ErrNotOwner           = errors.New("post belongs to another user")
)
