package domain

import "errors"

var (
	ErrInvalidSignal     = errors.New("invalid signal")
	ErrBrokerUnavailable = errors.New("broker unavailable")
	ErrGuardAbort        = errors.New("guard abort")
	ErrDuplicateRun      = errors.New("duplicate run")
	ErrLeaseHeld         = errors.New("lease already held")
	ErrOrderNotFound     = errors.New("order not found")
)
