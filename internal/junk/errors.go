package junk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is the root of every descriptor rejection.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrResourceExhausted reports a packet that cannot be allocated.
	ErrResourceExhausted = errors.New("resource exhausted")
)

var (
	ErrUnknownKey      = fmt.Errorf("%w: unknown tag key", ErrInvalidArgument)
	ErrUnexpectedValue = fmt.Errorf("%w: tag takes no value", ErrInvalidArgument)
	ErrMissingValue    = fmt.Errorf("%w: tag requires a value", ErrInvalidArgument)
	ErrBadHex          = fmt.Errorf("%w: malformed hex literal", ErrInvalidArgument)
	ErrBadLength       = fmt.Errorf("%w: malformed length", ErrInvalidArgument)
	ErrUnterminated    = fmt.Errorf("%w: unterminated tag", ErrInvalidArgument)
	ErrTooLarge        = fmt.Errorf("%w: packet exceeds maximum message size", ErrInvalidArgument)
)

// SyntaxError locates a rejected tag inside the descriptor.
type SyntaxError struct {
	Offset int    // byte offset of the opening '<'
	Tag    string // tag body between the brackets
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("junk: tag <%s> at offset %d: %v", e.Tag, e.Offset, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }
