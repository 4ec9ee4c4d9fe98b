package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNetwork            = errors.New("network failure")
	ErrService            = errors.New("recognition service failure")
	ErrMalformedResponse  = errors.New("malformed recognition response")
	ErrHandshakeTimeout   = errors.New("record creation timed out")
	ErrChannelUnavailable = errors.New("record channel unavailable")
	ErrRecordStore        = errors.New("record store failure")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionState       = errors.New("illegal session transition")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
