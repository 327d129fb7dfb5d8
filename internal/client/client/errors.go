package client

import "errors"

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRemoteRejected  = errors.New("QuickBooks rejected the request")
	ErrNotConnected    = errors.New("company is not connected")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrPrecondition    = errors.New("failed precondition")
)
