package encounter

import (
	"errors"
	"fmt"
)

// The three outcome categories. They never overlap: authorization failures
// are checked before any state is read, bad input before storage is touched,
// and rejections are normal precondition misses that leave the session as-is.
var (
	ErrNotFound     = errors.New("game not found")
	ErrUnauthorized = errors.New("not a participant of this game")
	ErrRejected     = errors.New("rejected")
	ErrBadInput     = errors.New("bad input")
)

func reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

func badInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadInput, fmt.Sprintf(format, args...))
}
