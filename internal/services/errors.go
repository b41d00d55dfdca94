package services

import "errors"

var (
	ErrAlreadyOpen      = errors.New("cash box already opened for this work date")
	ErrNotOpen          = errors.New("cash box is not open")
	ErrNotFound         = errors.New("not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidState     = errors.New("invalid state")
	ErrDuplicateRequest = errors.New("an opening request already exists for this work date")
	ErrNotAuthorized    = errors.New("not authorized")

	ErrInvalidMethod    = errors.New("invalid payment method")
	ErrInvalidCategory  = errors.New("invalid service category")
	ErrInvalidDate      = errors.New("invalid work date")
	ErrMissingCollector = errors.New("collector id required")
)
