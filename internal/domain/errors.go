package domain

import "errors"

var (
	ErrNoContest            = errors.New("no contest is showing")
	ErrContestAlreadyJoined = errors.New("contest already joined")
	ErrNoSpotlight          = errors.New("no product spotlight is showing")
	ErrLookupInProgress     = errors.New("product lookup already in progress")
	ErrProductNotFound      = errors.New("product not found")
	ErrLookupUnavailable    = errors.New("product lookup unavailable")
	ErrMalformedEvent       = errors.New("malformed event payload")
	ErrUnknownEventKind     = errors.New("unknown event kind")
	ErrInvalidEvent         = errors.New("invalid event")
)
