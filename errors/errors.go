package errors

import "fmt"

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrAuthenticationFailed = fmt.Errorf("authentication failed")
	ErrMissingEntryID       = fmt.Errorf("tab entry id is required for an update")
	ErrTabEntryNotFound     = fmt.Errorf("tab entry not found")
	ErrGroupNotFound        = fmt.Errorf("group not found")
	ErrParticipantNotFound  = fmt.Errorf("group participant not found")
	ErrConnectionClosed     = fmt.Errorf("connection already closed")
	ErrSendBufferFull       = fmt.Errorf("connection send buffer full")
)
