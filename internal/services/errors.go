package services

import "errors"

// Deterministic rejections surfaced to subscribers and operators. Handlers
// map these onto HTTP responses; everything else is an internal error.
var (
	ErrDefinitionNotFound  = errors.New("campaign definition not found")
	ErrCampaignNotFound    = errors.New("campaign instance not found")
	ErrCampaignInactive    = errors.New("campaign is not active")
	ErrSubscriberNotFound  = errors.New("subscriber not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotInvited          = errors.New("subscriber was not invited to this campaign")
	ErrWindowClosed        = errors.New("participation window has closed")
	ErrAlreadyEngaged      = errors.New("attempt already in progress")
	ErrNotEngaged          = errors.New("no attempt in progress")
	ErrAnswerDeadline      = errors.New("answer deadline has passed")
	ErrAlreadyAnswered     = errors.New("answer already submitted")
	ErrNotAnswered         = errors.New("attempt has no answer to resolve")
	ErrAlreadyResolved     = errors.New("attempt already resolved")
	ErrInvalidGuess        = errors.New("guess must be between 1 and 6")
	ErrRollInProgress      = errors.New("a roll is already in progress")
	ErrNoTicket            = errors.New("participant has no ticket assigned")
	ErrInvalidCredentials  = errors.New("invalid email or password")
)
