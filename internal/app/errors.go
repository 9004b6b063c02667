package app

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrIndexNotFound   = errors.New("no documents have been processed yet")
	ErrHistoryDisabled = errors.New("question history is not enabled")
)
